// Command flowguide computes a cross field over a triangle mesh and writes
// it as a PLY file with the direction stored in the ox, oy and oz vertex
// properties.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/flowguide"
	"github.com/soypat/flowguide/config"
	"github.com/soypat/flowguide/field"
	"github.com/soypat/flowguide/hierarchy"
	"github.com/soypat/flowguide/internal/ctxlog"
	"github.com/soypat/flowguide/mesh"
	"github.com/soypat/flowguide/meshio"
	"github.com/soypat/flowguide/preview"
	"github.com/soypat/flowguide/report"
	"github.com/soypat/flowguide/shapes"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, outW)
	if err != nil || shouldExit {
		return err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	in, err := loadMesh(cfg)
	if err != nil {
		return err
	}
	res, err := flowguide.Orient(ctx, in, cfg.Solver)
	if err != nil {
		return err
	}
	st := res.Stats()
	logger.Info("field quality",
		slog.Float64("energy", st.Energy),
		slog.Float64("max_unit_error", st.MaxUnitError),
		slog.Float64("max_tangent_error", st.MaxTangentError),
	)

	if err := writeField(cfg.Output, res); err != nil {
		return err
	}
	logger.Info("wrote field", slog.String("path", cfg.Output))

	if cfg.Preview != "" {
		img, err := preview.Render(res.Surface, res.Field, cfg.View)
		if err != nil {
			return err
		}
		if err := preview.SavePNG(cfg.Preview, img); err != nil {
			return err
		}
		logger.Info("wrote preview", slog.String("path", cfg.Preview))
	}
	if cfg.Plot != "" {
		p, err := report.Levels(hierarchy.Stats(res.Levels))
		if err != nil {
			return err
		}
		if err := report.Save(p, cfg.Plot); err != nil {
			return err
		}
		logger.Info("wrote plot", slog.String("path", cfg.Plot))
	}
	if cfg.Probe != nil {
		v, dist, dir := res.Probe(*cfg.Probe)
		fmt.Fprintf(outW, "probe vertex=%d dist=%g dir=(%g, %g, %g)\n", v, dist, dir.X, dir.Y, dir.Z)
	}
	return nil
}

// parse processes command line arguments into a resolved configuration.
// It reports whether the program should exit without error, as after -h.
func parse(args []string, output io.Writer) (config.Config, bool, error) {
	flagSet := flag.NewFlagSet("flowguide", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprintf(output, `
flowguide - smooth cross fields over triangle meshes.

Usage:
  flowguide [options] [MESH]

Arguments:
  MESH
    Path to a .ply or .stl triangle mesh. Use -shape for a built in mesh.

Shapes:
  %s

Options:
`, strings.Join(shapes.Names, ", "))
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL configuration file.")
	shapeFlag := flagSet.String("shape", "", "Generate a built in shape instead of reading a mesh.")
	resolutionFlag := flagSet.Int("resolution", 0, "Shape resolution: subdivisions, grid cells or marching cubes cells. 0 picks a per shape default.")
	iterationsFlag := flagSet.Int("iterations", field.DefaultIterations, "Relaxation sweeps per level.")
	seedFlag := flagSet.Uint64("seed", 0, "Random seed.")
	outFlag := flagSet.String("o", "", "Output field PLY path. Defaults to the mesh name with a _field.ply suffix.")
	pngFlag := flagSet.String("png", "", "Write a PNG preview of the field to this path.")
	plotFlag := flagSet.String("plot", "", "Write a per level vertex count plot to this path (png, svg, pdf).")
	probeFlag := flagSet.String("probe", "", "Print the direction at the vertex nearest to the point x,y,z.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.Config{}, true, nil
		}
		return config.Config{}, false, err
	}

	flags := config.Flags{
		Shape:      *shapeFlag,
		Resolution: *resolutionFlag,
		Output:     *outFlag,
		Preview:    *pngFlag,
		Plot:       *plotFlag,
		LogLevel:   *logLevelFlag,
		LogFormat:  *logFormatFlag,
	}
	if flagSet.NArg() > 0 {
		flags.Input = flagSet.Arg(0)
	}
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iterations":
			flags.Iterations = iterationsFlag
		case "seed":
			flags.Seed = seedFlag
		}
	})
	if *probeFlag != "" {
		p, err := parseVec(*probeFlag)
		if err != nil {
			return config.Config{}, false, fmt.Errorf("invalid -probe: %w", err)
		}
		flags.Probe = &p
	}

	cfg := config.Default()
	if *configFlag != "" {
		file, err := config.Load(*configFlag)
		if err != nil {
			return cfg, false, err
		}
		cfg.Apply(file)
	}
	cfg.Resolve(flags)
	if cfg.Input == "" && cfg.Shape == "" {
		flagSet.Usage()
		return cfg, true, nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}
	return cfg, false, nil
}

func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, err
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func loadMesh(cfg config.Config) (mesh.Indexed, error) {
	if cfg.Input != "" {
		return meshio.Load(cfg.Input)
	}
	return shapes.ByName(cfg.Shape, cfg.Resolution)
}

func writeField(path string, res *flowguide.Result) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := meshio.WriteFieldPLY(fp, res.Surface, res.Field); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// newLogger creates a logger writing to outW with the given level and format.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}
