package flowguide_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/soypat/flowguide"
	"github.com/soypat/flowguide/field"
	"github.com/soypat/flowguide/internal/ctxlog"
	"github.com/soypat/flowguide/mesh"
	"github.com/soypat/flowguide/shapes"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestOrient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	in := shapes.Icosphere(1, 2)
	res, err := flowguide.Orient(ctx, in, field.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Field) != len(in.Vertices) {
		t.Fatalf("got %d directions for %d vertices", len(res.Field), len(in.Vertices))
	}
	if res.Levels[len(res.Levels)-1].Mesh != res.Surface {
		t.Error("finest level should hold the result surface")
	}
	st := res.Stats()
	if st.MaxUnitError > 1e-9 || st.MaxTangentError > 1e-9 {
		t.Errorf("field not unit tangent: %+v", st)
	}
	for _, msg := range []string{"processed mesh", "built hierarchy", "oriented mesh", "relaxed level"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("log missing %q", msg)
		}
	}

	v, dist, dir := res.Probe(r3.Scale(2, in.Vertices[5]))
	if v != 5 || math.Abs(dist-1) > 1e-12 {
		t.Fatalf("probe returned vertex %d at distance %g", v, dist)
	}
	if dir != res.Field[v] {
		t.Error("probe direction does not match the field")
	}
}

func TestOrientErrors(t *testing.T) {
	ctx := context.Background()
	bad := shapes.Triangle()
	bad.Triangles = [][3]int{{0, 1, 5}}
	if _, err := flowguide.Orient(ctx, bad, field.DefaultConfig()); !errors.Is(err, mesh.ErrInvalidMesh) {
		t.Errorf("got %v, want ErrInvalidMesh", err)
	}
	if _, err := flowguide.Orient(ctx, shapes.Triangle(), field.Config{Iterations: -1}); err == nil {
		t.Error("expected configuration error")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := flowguide.Orient(canceled, shapes.Octahedron(), field.DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestOrientDeterministic(t *testing.T) {
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.OrDiscard(nil))
	cfg := field.Config{Iterations: 5, Seed: 99}
	a, err := flowguide.Orient(ctx, shapes.Grid(6, 6, 0.2), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := flowguide.Orient(ctx, shapes.Grid(6, 6, 0.2), cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Field {
		if a.Field[i] != b.Field[i] {
			t.Fatalf("vertex %d differs between runs: %v != %v", i, a.Field[i], b.Field[i])
		}
	}
}
