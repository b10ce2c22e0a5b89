// Package mesh implements the surface representation consumed by the
// hierarchy builder and field solver: an indexed triangle mesh with per-vertex
// outgoing-edge adjacency and a circumcentric dual area.
package mesh

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/soypat/flowguide/internal/ctxlog"
	"github.com/soypat/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoFace marks adjacency entries that do not originate from a triangle,
// which is the case for every edge of a coarsened mesh.
const NoFace = -1

// ErrInvalidMesh is returned when mesh input violates its structural invariants.
var ErrInvalidMesh = errors.New("invalid mesh")

// Indexed is raw indexed triangle data as produced by a mesh loader.
// Normals are expected to be unit length.
type Indexed struct {
	Vertices  []r3.Vec
	Normals   []r3.Vec
	Triangles [][3]int
}

// Validate checks array lengths, triangle index ranges and vertex coordinates.
func (in Indexed) Validate() error {
	nv := len(in.Vertices)
	if len(in.Normals) != nv {
		return fmt.Errorf("%w: %d vertices but %d normals", ErrInvalidMesh, nv, len(in.Normals))
	}
	for i, v := range in.Vertices {
		if !d3.IsFinite(v) {
			return fmt.Errorf("%w: vertex %d is not finite: %v", ErrInvalidMesh, i, v)
		}
	}
	for i, tri := range in.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= nv {
				return fmt.Errorf("%w: triangle %d index %d out of range [0, %d)", ErrInvalidMesh, i, idx, nv)
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[2] == tri[0] {
			return fmt.Errorf("%w: triangle %d has repeated vertex %v", ErrInvalidMesh, i, tri)
		}
	}
	return nil
}

// Edge is a directed adjacency entry. Face is the triangle the edge was
// taken from, or NoFace.
type Edge struct {
	To   int
	Face int
}

// Surface is a triangle mesh with derived adjacency and dual area.
// A Surface is not modified after construction.
type Surface struct {
	Vertices  []r3.Vec
	Normals   []r3.Vec
	Triangles [][3]int
	// Adjacency lists, for each vertex, its outgoing edge within each incident
	// triangle in triangle order.
	Adjacency [][]Edge
	DualArea  []float64
	// Fallback holds the vertices whose one-ring could not be closed and
	// were assigned FallbackDualArea.
	Fallback []int
}

// NewSurface validates in and derives adjacency and dual areas. The surface
// takes ownership of in's slices. Vertices for which the dual area cannot be
// computed are logged and degrade to FallbackDualArea. A nil logger discards output.
func NewSurface(in Indexed, logger *slog.Logger) (*Surface, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s := &Surface{
		Vertices:  in.Vertices,
		Normals:   in.Normals,
		Triangles: in.Triangles,
		Adjacency: buildAdjacency(len(in.Vertices), in.Triangles),
	}
	s.computeDualArea(ctxlog.OrDiscard(logger))
	return s, nil
}

func buildAdjacency(nv int, tris [][3]int) [][]Edge {
	adj := make([][]Edge, nv)
	for i, tri := range tris {
		a, b, c := tri[0], tri[1], tri[2]
		adj[a] = append(adj[a], Edge{To: b, Face: i})
		adj[b] = append(adj[b], Edge{To: c, Face: i})
		adj[c] = append(adj[c], Edge{To: a, Face: i})
	}
	return adj
}

// NumVertices returns the number of vertices.
func (s *Surface) NumVertices() int { return len(s.Vertices) }

// NumEdges returns the number of directed adjacency entries.
func (s *Surface) NumEdges() (n int) {
	for _, a := range s.Adjacency {
		n += len(a)
	}
	return n
}

// Triangle returns the geometry of the ith triangle.
func (s *Surface) Triangle(i int) Triangle {
	t := s.Triangles[i]
	return Triangle{s.Vertices[t[0]], s.Vertices[t[1]], s.Vertices[t[2]]}
}

// Area returns the summed area of all triangles. Coarsened surfaces
// have no triangles and report zero.
func (s *Surface) Area() (area float64) {
	for i := range s.Triangles {
		area += s.Triangle(i).Area()
	}
	return area
}

// Bounds returns the axis aligned bounding box of the vertices.
func (s *Surface) Bounds() r3.Box {
	return r3.Box(d3.Set(s.Vertices).BoundingBox())
}

// IsolatedVertices returns the vertices that belong to no edge.
func (s *Surface) IsolatedVertices() (iso []int) {
	for i, a := range s.Adjacency {
		if len(a) == 0 {
			iso = append(iso, i)
		}
	}
	return iso
}
