package field

import (
	"math"

	"github.com/soypat/flowguide/internal/d3"
	"github.com/soypat/flowguide/mesh"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compat returns the representatives of the cross fields o0 at normal n0 and
// o1 at normal n1 that are best aligned. Candidates are o0 and its rotations
// by 90, 180 and 270 degrees paired with o1 and its 90 degree rotation; the
// pair with the largest dot product wins, the later one on ties.
func Compat(o0, n0, o1, n1 r3.Vec) (r0, r1 r3.Vec) {
	p0 := r3.Cross(n0, o0)
	p1 := r3.Cross(n1, o1)
	candidates := [8][2]r3.Vec{
		{o0, o1},
		{p0, o1},
		{r3.Scale(-1, o0), o1},
		{r3.Scale(-1, p0), o1},
		{o0, p1},
		{p0, p1},
		{r3.Scale(-1, o0), p1},
		{r3.Scale(-1, p0), p1},
	}
	best, bestDot := 0, math.Inf(-1)
	for k, c := range candidates {
		if d := r3.Dot(c[0], c[1]); d >= bestDot {
			best, bestDot = k, d
		}
	}
	return candidates[best][0], candidates[best][1]
}

// Smooth runs one relaxation sweep over field in place. Vertices are visited
// in a random order drawn from rng and each update sees the values already
// updated earlier in the same sweep.
//
// The new direction of a vertex is a running average over its adjacency list:
// the k-th neighbour (0-based) is blended with weight 1 against weight k for
// the accumulated value, after matching both under four-fold symmetry.
// Each step is projected onto the tangent plane and normalized.
func Smooth(m *mesh.Surface, field []r3.Vec, rng *rand.Rand) {
	order := make([]int, len(field))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, i := range order {
		oi := field[i]
		ni := m.Normals[i]
		for weight, e := range m.Adjacency[i] {
			j := e.To
			c0, c1 := Compat(oi, ni, field[j], m.Normals[j])
			next := d3.Reject(r3.Add(r3.Scale(float64(weight), c0), c1), ni)
			if l := r3.Norm(next); l > 1e-12 && !math.IsInf(l, 0) {
				oi = r3.Scale(1/l, next)
			}
		}
		field[i] = oi
	}
}

// Stats describes how well a field satisfies its constraints.
type Stats struct {
	// Energy is the mean over directed edges of one minus the dot product of
	// the best aligned representatives. Zero for a perfectly smooth field.
	Energy float64
	// MaxUnitError is the largest deviation of a direction's length from one.
	MaxUnitError float64
	// MaxTangentError is the largest absolute dot product of a direction
	// with its vertex normal.
	MaxTangentError float64
}

// Measure computes Stats for field over m.
func Measure(m *mesh.Surface, field []r3.Vec) Stats {
	var st Stats
	if len(field) == 0 {
		return st
	}
	unitErr := make([]float64, len(field))
	tangentErr := make([]float64, len(field))
	var misalign []float64
	for i, o := range field {
		n := m.Normals[i]
		unitErr[i] = math.Abs(r3.Norm(o) - 1)
		tangentErr[i] = math.Abs(r3.Dot(o, n))
		for _, e := range m.Adjacency[i] {
			c0, c1 := Compat(o, n, field[e.To], m.Normals[e.To])
			misalign = append(misalign, 1-r3.Dot(c0, c1))
		}
	}
	st.MaxUnitError = floats.Max(unitErr)
	st.MaxTangentError = floats.Max(tangentErr)
	if len(misalign) > 0 {
		st.Energy = floats.Sum(misalign) / float64(len(misalign))
	}
	return st
}
