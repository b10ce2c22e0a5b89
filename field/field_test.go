package field

import (
	"math"
	"testing"

	"github.com/soypat/flowguide/hierarchy"
	"github.com/soypat/flowguide/internal/d3"
	"github.com/soypat/flowguide/mesh"
	"github.com/soypat/flowguide/shapes"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func buildLevels(t *testing.T, in mesh.Indexed) []hierarchy.Level {
	t.Helper()
	s, err := mesh.NewSurface(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	return hierarchy.Build(s)
}

func TestTangentBasis(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	normals := []r3.Vec{{Z: 1}, {Z: -1}, {X: 1}, {X: -1}, {Y: 1}, {Y: -1}, r3.Unit(r3.Vec{X: 1, Y: 1, Z: -1e-12})}
	for i := 0; i < 100; i++ {
		normals = append(normals, r3.Unit(r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}))
	}
	for _, n := range normals {
		x, y := TangentBasis(n)
		if math.Abs(r3.Norm(x)-1) > tol || math.Abs(r3.Norm(y)-1) > tol {
			t.Errorf("n=%v: basis not unit: |x|=%g |y|=%g", n, r3.Norm(x), r3.Norm(y))
		}
		if math.Abs(r3.Dot(x, n)) > tol || math.Abs(r3.Dot(y, n)) > tol || math.Abs(r3.Dot(x, y)) > tol {
			t.Errorf("n=%v: basis not orthogonal: x=%v y=%v", n, x, y)
		}
		if !d3.EqualWithin(r3.Cross(x, y), n, tol) {
			t.Errorf("n=%v: basis not right handed, x cross y = %v", n, r3.Cross(x, y))
		}
	}
}

func TestCompat(t *testing.T) {
	z := r3.Vec{Z: 1}
	// Orthogonal directions are equivalent; the last maximal candidate wins.
	r0, r1 := Compat(r3.Vec{X: 1}, z, r3.Vec{Y: 1}, z)
	if r0 != (r3.Vec{X: -1}) || r1 != (r3.Vec{X: -1}) {
		t.Errorf("got (%v, %v), want both -X", r0, r1)
	}

	s, c := math.Sincos(math.Pi / 6)
	o1 := r3.Vec{X: c, Y: s}
	r0, r1 = Compat(r3.Vec{X: 1}, z, o1, z)
	if r0 != (r3.Vec{Y: 1}) || !d3.EqualWithin(r1, r3.Vec{X: -s, Y: c}, tol) {
		t.Errorf("got (%v, %v), want rotated pair", r0, r1)
	}

	// For any pair of tangent directions sharing a normal the best
	// representatives differ by at most 45 degrees.
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a := rng.Float64() * 2 * math.Pi
		b := rng.Float64() * 2 * math.Pi
		sa, ca := math.Sincos(a)
		sb, cb := math.Sincos(b)
		r0, r1 := Compat(r3.Vec{X: ca, Y: sa}, z, r3.Vec{X: cb, Y: sb}, z)
		if d := r3.Dot(r0, r1); d < math.Sqrt2/2-tol {
			t.Fatalf("angles %g %g: best dot %g below cos(45)", a, b, d)
		}
	}
}

func checkField(t *testing.T, m *mesh.Surface, f []r3.Vec, where string) {
	t.Helper()
	if len(f) != m.NumVertices() {
		t.Fatalf("%s: field has %d entries for %d vertices", where, len(f), m.NumVertices())
	}
	st := Measure(m, f)
	if st.MaxUnitError > tol || st.MaxTangentError > tol {
		t.Fatalf("%s: field off constraints: unit error %g tangent error %g", where, st.MaxUnitError, st.MaxTangentError)
	}
}

func TestSolveInvariantsEverySweep(t *testing.T) {
	in := shapes.Icosphere(1, 2)
	// Add an isolated vertex with a tilted normal.
	in.Vertices = append(in.Vertices, r3.Vec{X: 3})
	in.Normals = append(in.Normals, r3.Unit(r3.Vec{X: 1, Y: 2, Z: 3}))
	levels := buildLevels(t, in)
	sweeps := 0
	s := Solver{
		Config: Config{Iterations: 3, Seed: 42},
		Observer: func(level, sweep int, f []r3.Vec) {
			sweeps++
			checkField(t, levels[level].Mesh, f, "observer")
		},
	}
	f, err := s.Solve(levels)
	if err != nil {
		t.Fatal(err)
	}
	if want := 3 * len(levels); sweeps != want {
		t.Errorf("observer called %d times, want %d", sweeps, want)
	}
	checkField(t, levels[len(levels)-1].Mesh, f, "result")
}

func TestSolveZeroIterations(t *testing.T) {
	levels := buildLevels(t, shapes.Icosphere(1, 1))
	f, err := Solve(levels, Config{})
	if err != nil {
		t.Fatal(err)
	}
	checkField(t, levels[len(levels)-1].Mesh, f, "zero iterations")
}

func TestSolveDeterministic(t *testing.T) {
	levels := buildLevels(t, shapes.Icosphere(1, 2))
	cfg := Config{Iterations: DefaultIterations, Seed: 7}
	a, err := Solve(levels, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Solve(levels, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vertex %d differs between runs: %v != %v", i, a[i], b[i])
		}
	}
	cfg.Seed = 8
	c, err := Solve(levels, cfg)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if !d3.EqualWithin(a[i], c[i], 1e-6) {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced the same field")
	}
}

func TestSolveSmooths(t *testing.T) {
	levels := buildLevels(t, shapes.Icosphere(1, 3))
	finest := levels[len(levels)-1].Mesh
	random := Measure(finest, initialize(finest, rand.New(rand.NewSource(3))))
	f, err := Solve(levels, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	smooth := Measure(finest, f)
	if smooth.Energy > 0.5*random.Energy {
		t.Errorf("relaxed energy %g not well below random field energy %g", smooth.Energy, random.Energy)
	}
}

func TestSolveEndToEnd(t *testing.T) {
	tests := []struct {
		name string
		in   mesh.Indexed
	}{
		{"triangle", shapes.Triangle()},
		{"octahedron", shapes.Octahedron()},
		{"grid", shapes.Grid(5, 3, 0.25)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			levels := buildLevels(t, test.in)
			f, err := Solve(levels, DefaultConfig())
			if err != nil {
				t.Fatal(err)
			}
			checkField(t, levels[len(levels)-1].Mesh, f, test.name)
		})
	}
}

func TestSolveErrors(t *testing.T) {
	if _, err := Solve(nil, DefaultConfig()); err == nil {
		t.Error("expected error for empty hierarchy")
	}
	levels := buildLevels(t, shapes.Octahedron())
	if _, err := Solve(levels, Config{Iterations: -1}); err == nil {
		t.Error("expected error for negative iterations")
	}
	bad := append([]hierarchy.Level(nil), levels...)
	last := bad[len(bad)-1]
	bad[len(bad)-1] = hierarchy.Level{Mesh: last.Mesh, UpMapping: last.UpMapping[:1]}
	if _, err := Solve(bad, DefaultConfig()); err == nil {
		t.Error("expected error for truncated mapping")
	}
}
