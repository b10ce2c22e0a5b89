package mesh

import (
	"log/slog"
	"math"

	"github.com/soypat/flowguide/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// FallbackDualArea is assigned to vertices whose one-ring of triangles
// does not close, such as boundary and non-manifold vertices, and to
// vertices touching degenerate triangles.
const FallbackDualArea = 1.0

func (s *Surface) computeDualArea(logger *slog.Logger) {
	s.DualArea = make([]float64, len(s.Vertices))
	s.Fallback = s.Fallback[:0]
	isolated := 0
	var ring []r3.Vec
	for i := range s.Vertices {
		if len(s.Adjacency[i]) == 0 {
			isolated++
			continue // isolated point, no area.
		}
		var ok bool
		ring = s.circumcenterRing(ring[:0], i)
		if ring != nil {
			s.DualArea[i], ok = loopArea(ring)
		}
		if !ok {
			logger.Warn("non manifold vertex", slog.Int("vertex", i))
			s.DualArea[i] = FallbackDualArea
			s.Fallback = append(s.Fallback, i)
		}
	}
	if isolated > 0 {
		logger.Debug("isolated vertices have zero dual area", slog.Int("count", isolated))
	}
}

// circumcenterRing walks the triangle fan around vertex i starting at its
// first adjacency entry and appends the circumcenter of every triangle
// visited, relative to vertex i. It returns nil if the walk cannot return
// to its starting edge.
func (s *Surface) circumcenterRing(dst []r3.Vec, i int) []r3.Vec {
	adj := s.Adjacency[i]
	start := adj[0].To
	dest, face := start, adj[0].Face
	origin := s.Vertices[i]
	for {
		tri := s.Triangles[face]
		dest = tri[(slot(tri, dest)+1)%3]
		// Edge vectors from vertex i to the other two corners, in winding order.
		si := slot(tri, i)
		a := r3.Sub(s.Vertices[tri[(si+1)%3]], origin)
		b := r3.Sub(s.Vertices[tri[(si+2)%3]], origin)
		dst = append(dst, circumcenter(a, b))
		if dest == start {
			return dst
		}
		if len(dst) >= len(adj) {
			return nil // revisiting triangles, fan does not close on start.
		}
		face = NoFace
		for _, e := range adj {
			if e.To == dest {
				face = e.Face
				break
			}
		}
		if face == NoFace {
			return nil
		}
	}
}

// circumcenter returns the circumcenter of the triangle (0, a, b).
func circumcenter(a, b r3.Vec) r3.Vec {
	axb := r3.Cross(a, b)
	num := r3.Cross(r3.Sub(r3.Scale(r3.Norm2(a), b), r3.Scale(r3.Norm2(b), a)), axb)
	return r3.Scale(1/(2*r3.Norm2(axb)), num)
}

// loopArea returns the magnitude of the vector area of the closed polygon
// with the given vertices.
func loopArea(loop []r3.Vec) (float64, bool) {
	var sum r3.Vec
	for k := range loop {
		sum = r3.Add(sum, r3.Cross(loop[k], loop[(k+1)%len(loop)]))
	}
	area := 0.5 * r3.Norm(sum)
	if !d3.IsFinite(sum) || math.IsNaN(area) {
		return 0, false
	}
	return area, true
}

func slot(tri [3]int, v int) int {
	switch v {
	case tri[0]:
		return 0
	case tri[1]:
		return 1
	case tri[2]:
		return 2
	}
	panic("vertex not in triangle")
}
