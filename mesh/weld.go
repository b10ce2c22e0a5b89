package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weld builds an indexed mesh from a triangle soup such as the one read from
// an STL file or produced by marching cubes. Vertices are shared among
// triangles when they fall in the same cell of a grid of size tol.
// If tol is zero it is inferred from the shortest edge. Triangles that
// collapse after welding are dropped. Normals are computed with VertexNormals.
func Weld(soup []Triangle, tol float64) (Indexed, error) {
	if len(soup) == 0 {
		return Indexed{}, errors.New("weld: empty triangle slice")
	}
	bb := d3.Empty()
	minDist2 := math.MaxFloat64
	maxDist2 := 0.0
	for i := range soup {
		for j, vert := range soup[i] {
			if !d3.IsFinite(vert) {
				return Indexed{}, fmt.Errorf("weld: triangle %d has non-finite vertex %v", i, vert)
			}
			bb = bb.Include(vert)
			side2 := r3.Norm2(r3.Sub(soup[i][(j+1)%3], vert))
			if side2 > 0 {
				minDist2 = math.Min(minDist2, side2)
			}
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	if maxDist2 == 0 {
		return Indexed{}, errors.New("weld: all triangles are degenerate")
	}
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return Indexed{}, fmt.Errorf("weld: vertex tolerance too large for model, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	div := int64(d3.Max(bb.Size())/tol + 1e-12)
	if div > math.MaxInt64/2 {
		return Indexed{}, errors.New("weld: tolerance too small, overflowed int64")
	}
	var out Indexed
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	for _, tri := range soup {
		var idx [3]int
		for j, vert := range tri {
			// Snap to integer grid in tolerance space.
			v := r3.Scale(ri, r3.Sub(vert, bb.Min))
			key := [3]int64{int64(math.Round(v.X)), int64(math.Round(v.Y)), int64(math.Round(v.Z))}
			vi, ok := cache[key]
			if !ok {
				vi = len(out.Vertices)
				cache[key] = vi
				out.Vertices = append(out.Vertices, vert)
			}
			idx[j] = vi
		}
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[2] == idx[0] {
			continue
		}
		out.Triangles = append(out.Triangles, idx)
	}
	out.Normals = VertexNormals(out.Vertices, out.Triangles)
	return out, nil
}
