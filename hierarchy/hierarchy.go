// Package hierarchy builds a multigrid hierarchy of a surface by repeatedly
// merging pairs of neighbouring vertices.
package hierarchy

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Level is one mesh of the hierarchy. UpMapping holds, for every vertex of
// Mesh, the index of the vertex of the next coarser level it was merged
// into. It is empty for the coarsest level.
type Level struct {
	Mesh      *mesh.Surface
	UpMapping []int
}

// Build coarsens m until no edges remain and returns the levels ordered from
// coarsest (index 0) to finest. The last level holds m itself.
func Build(m *mesh.Surface) []Level {
	coarse, up := Coarsen(m)
	if coarse == nil {
		return []Level{{Mesh: m}}
	}
	levels := Build(coarse)
	return append(levels, Level{Mesh: m, UpMapping: up})
}

type candidate struct {
	i, j  int
	score float64
}

// Coarsen performs a single greedy agglomeration step over m. It returns the
// coarse surface and the fine to coarse vertex mapping, or nil if m has no
// edges to collapse.
func Coarsen(m *mesh.Surface) (*mesh.Surface, []int) {
	var ranking []candidate
	for i, adj := range m.Adjacency {
		for _, e := range adj {
			ranking = append(ranking, candidate{i: i, j: e.To, score: mergeScore(m, i, e.To)})
		}
	}
	if len(ranking) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(ranking, func(a, b candidate) int { return descending(a.score, b.score) })

	const unclaimed = -1
	nv := m.NumVertices()
	up := make([]int, nv)
	for i := range up {
		up[i] = unclaimed
	}
	coarse := &mesh.Surface{
		Vertices: make([]r3.Vec, 0, nv/2+1),
		Normals:  make([]r3.Vec, 0, nv/2+1),
		DualArea: make([]float64, 0, nv/2+1),
	}
	for _, c := range ranking {
		i, j := c.i, c.j
		if up[i] != unclaimed || up[j] != unclaimed {
			continue
		}
		up[i] = len(coarse.Vertices)
		up[j] = len(coarse.Vertices)
		pos, normal, area := merge(m, i, j)
		coarse.Vertices = append(coarse.Vertices, pos)
		coarse.Normals = append(coarse.Normals, normal)
		coarse.DualArea = append(coarse.DualArea, area)
	}
	for i, u := range up {
		if u != unclaimed {
			continue
		}
		up[i] = len(coarse.Vertices)
		coarse.Vertices = append(coarse.Vertices, m.Vertices[i])
		coarse.Normals = append(coarse.Normals, m.Normals[i])
		coarse.DualArea = append(coarse.DualArea, m.DualArea[i])
	}

	coarse.Adjacency = make([][]mesh.Edge, len(coarse.Vertices))
	for i, adj := range m.Adjacency {
		iu := up[i]
		for _, e := range adj {
			if ju := up[e.To]; ju != iu {
				coarse.Adjacency[iu] = append(coarse.Adjacency[iu], mesh.Edge{To: ju, Face: mesh.NoFace})
			}
		}
	}
	for i, adj := range coarse.Adjacency {
		slices.SortFunc(adj, func(a, b mesh.Edge) int { return a.To - b.To })
		coarse.Adjacency[i] = slices.Compact(adj)
	}
	return coarse, up
}

// mergeScore ranks the collapse of edge (i, j). It is the ratio of the larger
// to the smaller dual area multiplied by the cosine between the normals.
func mergeScore(m *mesh.Surface, i, j int) float64 {
	ai, aj := m.DualArea[i], m.DualArea[j]
	lo, hi := math.Min(ai, aj), math.Max(ai, aj)
	ratio := 1.0
	switch {
	case lo == hi:
	case lo == 0:
		ratio = math.Inf(1)
	default:
		ratio = hi / lo
	}
	return ratio * r3.Dot(m.Normals[i], m.Normals[j])
}

// descending orders scores from largest to smallest with NaN last.
func descending(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && !bn:
		return 1
	case bn && !an:
		return -1
	}
	return 0
}

// merge returns the dual area weighted position and normal of vertices i
// and j, and their summed dual area.
func merge(m *mesh.Surface, i, j int) (pos, normal r3.Vec, area float64) {
	ai, aj := m.DualArea[i], m.DualArea[j]
	area = ai + aj
	wi, wj := 0.5, 0.5
	if area > 0 {
		wi, wj = ai/area, aj/area
	}
	pos = r3.Add(r3.Scale(wi, m.Vertices[i]), r3.Scale(wj, m.Vertices[j]))
	normal = r3.Add(r3.Scale(wi, m.Normals[i]), r3.Scale(wj, m.Normals[j]))
	if r3.Norm2(normal) < 1e-24 {
		// Opposing normals cancel out, keep the dominant one.
		if ai >= aj {
			return pos, m.Normals[i], area
		}
		return pos, m.Normals[j], area
	}
	return pos, r3.Unit(normal), area
}

// Validate checks that levels form a well formed hierarchy: the coarsest
// level is terminal and every other level maps each of its vertices to a
// vertex of the level before it.
func Validate(levels []Level) error {
	if len(levels) == 0 {
		return errors.New("hierarchy: no levels")
	}
	terminal := levels[0]
	if len(terminal.UpMapping) != 0 {
		return fmt.Errorf("hierarchy: coarsest level has %d mapping entries", len(terminal.UpMapping))
	}
	if terminal.Mesh.NumVertices() > 1 && terminal.Mesh.NumEdges() != 0 {
		return fmt.Errorf("hierarchy: coarsest level has %d edges", terminal.Mesh.NumEdges())
	}
	for k := 1; k < len(levels); k++ {
		nv := levels[k].Mesh.NumVertices()
		ncoarse := levels[k-1].Mesh.NumVertices()
		up := levels[k].UpMapping
		if len(up) != nv {
			return fmt.Errorf("hierarchy: level %d has %d vertices but %d mapping entries", k, nv, len(up))
		}
		for v, u := range up {
			if u < 0 || u >= ncoarse {
				return fmt.Errorf("hierarchy: level %d vertex %d maps to %d, out of range [0, %d)", k, v, u, ncoarse)
			}
		}
	}
	return nil
}

// LevelStats summarizes one level of a hierarchy.
type LevelStats struct {
	Vertices    int
	Edges       int
	DualArea    float64
	MinDualArea float64
	MaxDualArea float64
}

// Stats returns a summary of each level, coarsest first.
func Stats(levels []Level) []LevelStats {
	stats := make([]LevelStats, len(levels))
	for k, l := range levels {
		st := LevelStats{
			Vertices: l.Mesh.NumVertices(),
			Edges:    l.Mesh.NumEdges(),
		}
		if len(l.Mesh.DualArea) > 0 {
			st.DualArea = floats.Sum(l.Mesh.DualArea)
			st.MinDualArea = floats.Min(l.Mesh.DualArea)
			st.MaxDualArea = floats.Max(l.Mesh.DualArea)
		}
		stats[k] = st
	}
	return stats
}
