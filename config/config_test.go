package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const fullHCL = `
input      = "models/bunny.ply"
plot       = "levels.svg"
probe      = [0.5, 0, 1]
log_level  = "DEBUG"

solver {
  iterations = 0
  seed       = 42
}

preview {
  path        = "bunny.png"
  width       = 320
  supersample = 3
}
`

func TestParseAndApply(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(fullHCL), "flowguide.hcl")
	require.NoError(t, err)

	cfg := Default()
	cfg.Apply(f)
	cfg.Resolve(Flags{})
	require.NoError(t, cfg.Validate())

	require.Equal(t, "models/bunny.ply", cfg.Input)
	require.Equal(t, "models/bunny_field.ply", cfg.Output, "output should be derived from the input")
	require.Equal(t, "levels.svg", cfg.Plot)
	require.Equal(t, &r3.Vec{X: 0.5, Z: 1}, cfg.Probe)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat, "unset values keep their defaults")
	require.Equal(t, 0, cfg.Solver.Iterations, "an explicit zero must override the default")
	require.Equal(t, uint64(42), cfg.Solver.Seed)
	require.Equal(t, "bunny.png", cfg.Preview)
	require.Equal(t, 320, cfg.View.Width)
	require.Equal(t, 512, cfg.View.Height)
	require.Equal(t, 3, cfg.View.Supersample)
}

func TestFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	f, err := Parse([]byte(fullHCL), "flowguide.hcl")
	require.NoError(t, err)

	iterations := 25
	seed := uint64(7)
	cfg := Default()
	cfg.Apply(f)
	cfg.Resolve(Flags{
		Shape:      "box",
		Resolution: 40,
		Iterations: &iterations,
		Seed:       &seed,
		LogLevel:   "warn",
		Probe:      &r3.Vec{Y: 1},
	})
	require.NoError(t, cfg.Validate())

	require.Empty(t, cfg.Input, "a shape flag replaces the input file")
	require.Equal(t, "box", cfg.Shape)
	require.Equal(t, "box_field.ply", cfg.Output)
	require.Equal(t, 40, cfg.Resolution)
	require.Equal(t, 25, cfg.Solver.Iterations)
	require.Equal(t, uint64(7), cfg.Solver.Seed)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, &r3.Vec{Y: 1}, cfg.Probe)
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Apply(nil)
	cfg.Resolve(Flags{Shape: "icosphere"})
	require.NoError(t, cfg.Validate())
	require.Equal(t, 10, cfg.Solver.Iterations)
	require.Equal(t, uint64(0), cfg.Solver.Seed)
	require.Zero(t, cfg.Resolution, "zero selects the shape's own default")
	require.Nil(t, cfg.Probe)
	require.Empty(t, cfg.Preview)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flowguide.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`shape = "cylinder"`+"\n"), 0o600))
	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "cylinder", f.Shape)
	require.Nil(t, f.Solver)
	require.Nil(t, f.Preview)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", "solver {\n", "failed to parse"},
		{"unknown attribute", `colour = "red"`, "failed to decode"},
		{"wrong type", `resolution = "high"`, "failed to decode"},
		{"preview without path", "preview {\n  width = 3\n}\n", "failed to decode"},
		{"short probe", `probe = [1, 2]`, "probe must have 3 coordinates"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.src), "bad.hcl")
			require.Error(t, err)
			require.Contains(t, err.Error(), test.want)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	negative := -1
	tests := []struct {
		name  string
		flags Flags
		want  string
	}{
		{"no source", Flags{}, "no input mesh"},
		{"negative iterations", Flags{Shape: "grid", Iterations: &negative}, "negative iteration"},
		{"log level", Flags{Shape: "grid", LogLevel: "verbose"}, "invalid log level"},
		{"log format", Flags{Shape: "grid", LogFormat: "xml"}, "invalid log format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolve(test.flags)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), test.want)
		})
	}

	cfg := Default()
	cfg.Input, cfg.Shape = "a.ply", "box"
	require.ErrorContains(t, cfg.Validate(), "mutually exclusive")
}
