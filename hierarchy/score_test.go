package hierarchy

import (
	"math"
	"slices"
	"testing"

	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMergeScore(t *testing.T) {
	m := &mesh.Surface{
		Normals:  []r3.Vec{{Z: 1}, {Z: 1}, {X: 1}, {Z: -1}, {Z: 1}},
		DualArea: []float64{1, 4, 1, 2, 0},
	}
	tests := []struct {
		i, j int
		want float64
	}{
		{0, 1, 4},
		{1, 0, 4},
		{0, 2, 0},
		{0, 3, -2},
		{0, 4, math.Inf(1)},
	}
	for _, test := range tests {
		if got := mergeScore(m, test.i, test.j); got != test.want {
			t.Errorf("mergeScore(%d, %d) = %g, want %g", test.i, test.j, got, test.want)
		}
	}
}

func TestDescendingNaNLast(t *testing.T) {
	scores := []float64{1, math.NaN(), 3, math.Inf(-1), 2}
	slices.SortStableFunc(scores, descending)
	want := []float64{3, 2, 1, math.Inf(-1)}
	for i, w := range want {
		if scores[i] != w {
			t.Fatalf("got order %v", scores)
		}
	}
	if !math.IsNaN(scores[4]) {
		t.Errorf("NaN should sort last, got %v", scores)
	}
}

func TestMergeOpposingNormals(t *testing.T) {
	m := &mesh.Surface{
		Vertices: []r3.Vec{{}, {X: 2}},
		Normals:  []r3.Vec{{Z: 1}, {Z: -1}},
		DualArea: []float64{1, 1},
	}
	pos, n, area := merge(m, 0, 1)
	if pos != (r3.Vec{X: 1}) || area != 2 {
		t.Errorf("got position %v area %g", pos, area)
	}
	if n != (r3.Vec{Z: 1}) {
		t.Errorf("got normal %v, want the first vertex normal", n)
	}
}
