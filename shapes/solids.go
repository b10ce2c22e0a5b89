package shapes

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tessellate meshes a signed distance function with marching cubes on a
// uniform grid with the given number of cells along the longest side and
// welds the resulting triangle soup into an indexed mesh.
func Tessellate(s sdf.SDF3, cells int) (mesh.Indexed, error) {
	if cells <= 0 {
		return mesh.Indexed{}, fmt.Errorf("shapes: cells must be positive, got %d", cells)
	}
	triangles := render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
	soup := make([]mesh.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		var t mesh.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		}
		soup = append(soup, t)
	}
	return mesh.Weld(soup, 0)
}

// Sphere returns a tessellated sphere.
func Sphere(radius float64, cells int) (mesh.Indexed, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return mesh.Indexed{}, fmt.Errorf("shapes: sphere: %w", err)
	}
	return Tessellate(s, cells)
}

// Box returns a tessellated box with rounded edges.
func Box(size r3.Vec, round float64, cells int) (mesh.Indexed, error) {
	s, err := sdf.Box3D(v3.Vec{X: size.X, Y: size.Y, Z: size.Z}, round)
	if err != nil {
		return mesh.Indexed{}, fmt.Errorf("shapes: box: %w", err)
	}
	return Tessellate(s, cells)
}

// Cylinder returns a tessellated cylinder along Z with rounded rims.
func Cylinder(height, radius, round float64, cells int) (mesh.Indexed, error) {
	s, err := sdf.Cylinder3D(height, radius, round)
	if err != nil {
		return mesh.Indexed{}, fmt.Errorf("shapes: cylinder: %w", err)
	}
	return Tessellate(s, cells)
}

// Names lists the shapes accepted by ByName.
var Names = []string{"triangle", "octahedron", "icosphere", "grid", "sphere", "box", "cylinder"}

// ByName returns a sample shape of unit scale. resolution controls the
// subdivision level of the icosphere, the cell count of the grid and the
// marching cubes cell count of the tessellated solids. A non-positive
// resolution selects a default suited to each shape.
func ByName(name string, resolution int) (mesh.Indexed, error) {
	res := func(def int) int {
		if resolution <= 0 {
			return def
		}
		return resolution
	}
	switch name {
	case "triangle":
		return Triangle(), nil
	case "octahedron":
		return Octahedron(), nil
	case "icosphere":
		return Icosphere(1, res(3)), nil
	case "grid":
		n := res(16)
		return Grid(n, n, 1/float64(n)), nil
	case "sphere":
		return Sphere(1, res(48))
	case "box":
		return Box(r3.Vec{X: 2, Y: 1.5, Z: 1}, 0.2, res(48))
	case "cylinder":
		return Cylinder(2, 0.6, 0.1, res(48))
	}
	return mesh.Indexed{}, fmt.Errorf("shapes: unknown shape %q, want one of %v", name, Names)
}
