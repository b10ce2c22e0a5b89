package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestReject(t *testing.T) {
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	v := r3.Vec{X: 3, Y: -1, Z: 0.5}
	got := Reject(v, n)
	if d := r3.Dot(got, n); math.Abs(d) > 1e-14 {
		t.Errorf("rejection not orthogonal to n: dot=%g", d)
	}
	if !EqualWithin(r3.Add(got, r3.Scale(r3.Dot(v, n), n)), v, 1e-14) {
		t.Error("rejection plus projection should recover v")
	}
}

func TestBoundingBox(t *testing.T) {
	set := Set{{X: 1, Y: -2, Z: 3}, {X: -1, Y: 5, Z: 0}, {Z: 4}}
	box := set.BoundingBox()
	want := Box{Min: r3.Vec{X: -1, Y: -2}, Max: r3.Vec{X: 1, Y: 5, Z: 4}}
	if box != want {
		t.Errorf("got %v, want %v", box, want)
	}
	inc := Empty()
	for _, v := range set {
		inc = inc.Include(v)
	}
	if inc != want {
		t.Errorf("Include built %v, want %v", inc, want)
	}
	if Max(box.Size()) != 7 {
		t.Errorf("largest side %g, want 7", Max(box.Size()))
	}
	if (Set{}).BoundingBox() != (Box{}) {
		t.Error("empty set should give a zero box")
	}
	if IsFinite(r3.Vec{Y: math.Inf(-1)}) || !IsFinite(r3.Vec{}) {
		t.Error("IsFinite misclassified")
	}
}
