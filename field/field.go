// Package field computes a smooth four-fold rotationally symmetric tangent
// direction field (cross field) over a mesh hierarchy.
//
// The field is initialized with random directions at the coarsest level and
// relaxed with randomized Gauss-Seidel sweeps, then inherited by each finer
// level and relaxed again until the finest level is reached.
package field

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/soypat/flowguide/hierarchy"
	"github.com/soypat/flowguide/internal/ctxlog"
	"github.com/soypat/flowguide/internal/d3"
	"github.com/soypat/flowguide/mesh"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultIterations is the number of relaxation sweeps run at every level.
const DefaultIterations = 10

// Config holds the solver parameters.
type Config struct {
	// Iterations is the number of relaxation sweeps per level.
	Iterations int
	// Seed seeds the random source used for initialization and sweep order.
	Seed uint64
}

// DefaultConfig returns the default solver configuration.
func DefaultConfig() Config {
	return Config{Iterations: DefaultIterations}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("field: negative iteration count %d", c.Iterations)
	}
	return nil
}

// Observer is called after every sweep with the level index (0 is the
// coarsest), the sweep index and the current field of that level.
// The field must not be modified or retained.
type Observer func(level, sweep int, field []r3.Vec)

// Solver computes orientation fields over mesh hierarchies.
type Solver struct {
	Config
	// Logger receives per level progress. Nil discards.
	Logger *slog.Logger
	// Observer, if not nil, is called after every sweep.
	Observer Observer
}

// Solve runs the hierarchical relaxation with the given configuration.
func Solve(levels []hierarchy.Level, cfg Config) ([]r3.Vec, error) {
	s := Solver{Config: cfg}
	return s.Solve(levels)
}

// Solve returns one unit tangent direction per vertex of the finest level of
// levels. levels must be ordered coarsest first as returned by hierarchy.Build.
// A single random source seeded with s.Seed is used throughout, so the
// result is reproducible.
func (s *Solver) Solve(levels []hierarchy.Level) ([]r3.Vec, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, errors.New("field: empty hierarchy")
	}
	logger := ctxlog.OrDiscard(s.Logger)
	rng := rand.New(rand.NewSource(s.Seed))
	var field []r3.Vec
	for k, level := range levels {
		start := time.Now()
		m := level.Mesh
		if k == 0 {
			field = initialize(m, rng)
		} else {
			var err error
			field, err = upsample(m, level.UpMapping, field)
			if err != nil {
				return nil, fmt.Errorf("field: level %d: %w", k, err)
			}
		}
		for it := 0; it < s.Iterations; it++ {
			Smooth(m, field, rng)
			if s.Observer != nil {
				s.Observer(k, it, field)
			}
		}
		logger.Debug("relaxed level",
			slog.Int("level", k),
			slog.Int("vertices", m.NumVertices()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return field, nil
}

// initialize returns a field of uniformly random tangent directions.
func initialize(m *mesh.Surface, rng *rand.Rand) []r3.Vec {
	field := make([]r3.Vec, m.NumVertices())
	for i, n := range m.Normals {
		x, y := TangentBasis(n)
		theta := rng.Float64() * 2 * math.Pi
		field[i] = r3.Add(r3.Scale(math.Cos(theta), x), r3.Scale(math.Sin(theta), y))
	}
	return field
}

// upsample transfers the coarse field to the vertices of m through the up
// mapping. Inherited directions are not copied verbatim: each is projected
// onto the tangent plane of the receiving vertex and renormalized, falling
// back to the TangentBasis x axis when the projection vanishes. A solve with
// zero smoothing iterations therefore still returns unit tangent vectors.
func upsample(m *mesh.Surface, up []int, coarse []r3.Vec) ([]r3.Vec, error) {
	if len(up) != m.NumVertices() {
		return nil, fmt.Errorf("mapping has %d entries for %d vertices", len(up), m.NumVertices())
	}
	field := make([]r3.Vec, len(up))
	for v, u := range up {
		if u < 0 || u >= len(coarse) {
			return nil, fmt.Errorf("vertex %d maps to %d, out of range [0, %d)", v, u, len(coarse))
		}
		n := m.Normals[v]
		o := d3.Reject(coarse[u], n)
		if l := r3.Norm(o); l > 1e-12 {
			field[v] = r3.Scale(1/l, o)
		} else {
			field[v], _ = TangentBasis(n)
		}
	}
	return field, nil
}

// TangentBasis returns two unit vectors that together with the unit vector n
// form a right handed orthonormal basis. The construction only branches on
// the sign of n.Z and is stable for all unit n.
func TangentBasis(n r3.Vec) (x, y r3.Vec) {
	sign := 1.0
	if n.Z < 0 {
		sign = -1
	}
	a := -1 / (sign + n.Z)
	b := n.X * n.Y * a
	x = r3.Vec{X: 1 + sign*n.X*n.X*a, Y: sign * b, Z: -sign * n.X}
	y = r3.Vec{X: b, Y: sign + n.Y*n.Y*a, Z: -n.Y}
	return x, y
}
