package mesh

import (
	"github.com/soypat/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// VertexNormals returns one unit normal per vertex, the normalized sum of the
// unit normals of its incident triangles. Degenerate triangles do not
// contribute. Vertices without a usable triangle get +Z.
func VertexNormals(vertices []r3.Vec, tris [][3]int) []r3.Vec {
	normals := make([]r3.Vec, len(vertices))
	for _, tri := range tris {
		n := Triangle{vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]}.Normal()
		if !d3.IsFinite(n) {
			continue
		}
		for _, v := range tri {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if r3.Norm2(n) < 1e-24 {
			normals[i] = r3.Vec{Z: 1}
			continue
		}
		normals[i] = r3.Unit(n)
	}
	return normals
}
