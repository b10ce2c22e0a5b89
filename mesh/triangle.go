package mesh

import (
	"github.com/soypat/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle in 3D space. Counter clockwise winding
// when viewed from the side its normal points towards.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle. It is not finite for degenerate triangles.
func (t Triangle) Normal() r3.Vec {
	return r3.Unit(t.cross())
}

// Area returns the area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(t.cross())
}

// Centroid returns the average of the triangle's vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(r3.Add(t[0], t[1]), t[2]))
}

// Degenerate returns true if two of the triangle's vertices are equal within tol.
func (t Triangle) Degenerate(tol float64) bool {
	return d3.EqualWithin(t[0], t[1], tol) ||
		d3.EqualWithin(t[1], t[2], tol) ||
		d3.EqualWithin(t[2], t[0], tol)
}

func (t Triangle) cross() r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}
