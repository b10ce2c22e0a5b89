// Package shapes generates sample surfaces: exact polyhedra and grids built
// directly as indexed meshes, and smooth solids tessellated from signed
// distance functions.
package shapes

import (
	"math"

	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle returns a single counter clockwise triangle in the XY plane.
func Triangle() mesh.Indexed {
	return mesh.Indexed{
		Vertices:  []r3.Vec{{}, {X: 1}, {Y: 1}},
		Normals:   []r3.Vec{{Z: 1}, {Z: 1}, {Z: 1}},
		Triangles: [][3]int{{0, 1, 2}},
	}
}

// Octahedron returns the closed octahedron with vertices on the unit axes.
func Octahedron() mesh.Indexed {
	verts := []r3.Vec{
		{X: 1}, {X: -1},
		{Y: 1}, {Y: -1},
		{Z: 1}, {Z: -1},
	}
	tris := [][3]int{
		{0, 2, 4}, {1, 4, 2}, {0, 4, 3}, {1, 3, 4},
		{0, 5, 2}, {1, 2, 5}, {0, 3, 5}, {1, 5, 3},
	}
	return mesh.Indexed{Vertices: verts, Normals: append([]r3.Vec(nil), verts...), Triangles: tris}
}

// Icosphere returns an icosahedron subdivided the given number of times and
// projected onto a sphere of the given radius.
func Icosphere(radius float64, subdivisions int) mesh.Indexed {
	t := (1 + math.Sqrt(5)) / 2
	verts := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = r3.Unit(verts[i])
	}
	tris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]int]int)
		mid := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if m, ok := midpoints[key]; ok {
				return m
			}
			m := len(verts)
			verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
			midpoints[key] = m
			return m
		}
		next := make([][3]int, 0, 4*len(tris))
		for _, tri := range tris {
			ab := mid(tri[0], tri[1])
			bc := mid(tri[1], tri[2])
			ca := mid(tri[2], tri[0])
			next = append(next,
				[3]int{tri[0], ab, ca},
				[3]int{tri[1], bc, ab},
				[3]int{tri[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		tris = next
	}
	normals := make([]r3.Vec, len(verts))
	for i := range verts {
		normals[i] = verts[i]
		verts[i] = r3.Scale(radius, verts[i])
	}
	return mesh.Indexed{Vertices: verts, Normals: normals, Triangles: tris}
}

// Grid returns an open, flat nx by ny grid of square cells with side h in the
// XY plane, each cell split along its diagonal into two triangles.
func Grid(nx, ny int, h float64) mesh.Indexed {
	var in mesh.Indexed
	idx := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			in.Vertices = append(in.Vertices, r3.Vec{X: float64(i) * h, Y: float64(j) * h})
			in.Normals = append(in.Normals, r3.Vec{Z: 1})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			in.Triangles = append(in.Triangles,
				[3]int{idx(i, j), idx(i+1, j), idx(i+1, j+1)},
				[3]int{idx(i, j), idx(i+1, j+1), idx(i, j+1)},
			)
		}
	}
	return in
}
