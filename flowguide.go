// Package flowguide computes smooth cross fields over triangle meshes.
//
// A cross field assigns every vertex a tangent direction that is defined up
// to rotations by 90 degrees about the vertex normal. Such fields guide
// quad remeshing and texture synthesis. Orient runs the full pipeline:
//
//  1. build adjacency and dual areas (package mesh),
//  2. coarsen the mesh into a hierarchy of levels (package hierarchy),
//  3. relax a random field from the coarsest level down to the input
//     mesh (package field).
//
// Mesh files are read and written with package meshio.
package flowguide

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soypat/flowguide/field"
	"github.com/soypat/flowguide/hierarchy"
	"github.com/soypat/flowguide/internal/ctxlog"
	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Result holds the products of Orient.
type Result struct {
	// Surface is the input mesh with adjacency and dual areas.
	Surface *mesh.Surface
	// Levels is the hierarchy, coarsest first. Its last level holds Surface.
	Levels []hierarchy.Level
	// Field holds one unit tangent direction per vertex of Surface.
	Field []r3.Vec

	locator *mesh.Locator
}

// Orient computes a cross field over in. The logger carried by ctx (see
// ctxlog) receives stage timings. ctx is checked between stages.
func Orient(ctx context.Context, in mesh.Indexed, cfg field.Config) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	s, err := mesh.NewSurface(in, logger)
	if err != nil {
		return nil, fmt.Errorf("flowguide: %w", err)
	}
	logger.Info("processed mesh",
		slog.Int("vertices", s.NumVertices()),
		slog.Int("triangles", len(s.Triangles)),
		slog.Int("fallbacks", len(s.Fallback)),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	levels := hierarchy.Build(s)
	logger.Info("built hierarchy",
		slog.Int("levels", len(levels)),
		slog.Int("coarsest", levels[0].Mesh.NumVertices()),
		slog.Duration("elapsed", time.Since(start)),
	)
	if logger.Enabled(ctx, slog.LevelDebug) {
		if err := hierarchy.Validate(levels); err != nil {
			return nil, fmt.Errorf("flowguide: %w", err)
		}
		for k, st := range hierarchy.Stats(levels) {
			logger.Debug("level",
				slog.Int("level", k),
				slog.Int("vertices", st.Vertices),
				slog.Int("edges", st.Edges),
				slog.Float64("dual_area", st.DualArea),
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	solver := field.Solver{Config: cfg, Logger: logger}
	f, err := solver.Solve(levels)
	if err != nil {
		return nil, fmt.Errorf("flowguide: %w", err)
	}
	logger.Info("oriented mesh",
		slog.Int("iterations", cfg.Iterations),
		slog.Duration("elapsed", time.Since(start)),
	)
	return &Result{Surface: s, Levels: levels, Field: f}, nil
}

// Probe returns the vertex of the result's surface nearest to p, its
// distance to p and its field direction. It returns -1 for an empty surface.
func (r *Result) Probe(p r3.Vec) (vertex int, dist float64, dir r3.Vec) {
	if r.locator == nil {
		r.locator = mesh.NewLocator(r.Surface)
	}
	vertex, dist = r.locator.Nearest(p)
	if vertex < 0 {
		return -1, dist, r3.Vec{}
	}
	return vertex, dist, r.Field[vertex]
}

// Stats measures the smoothness of the result's field.
func (r *Result) Stats() field.Stats {
	return field.Measure(r.Surface, r.Field)
}
