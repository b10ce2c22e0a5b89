// Package config loads flowguide settings from an HCL file and merges them
// with command line flags. Command line flags override the file, which
// overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/soypat/flowguide/field"
	"github.com/soypat/flowguide/preview"
	"gonum.org/v1/gonum/spatial/r3"
)

// File is the structure of an HCL configuration file:
//
//	input  = "bunny.ply"
//	output = "bunny_field.ply"
//	plot   = "levels.png"
//
//	solver {
//	  iterations = 20
//	  seed       = 42
//	}
//
//	preview {
//	  path  = "bunny.png"
//	  width = 800
//	}
type File struct {
	Input      string        `hcl:"input,optional"`
	Output     string        `hcl:"output,optional"`
	Shape      string        `hcl:"shape,optional"`
	Resolution int           `hcl:"resolution,optional"`
	Plot       string        `hcl:"plot,optional"`
	Probe      []float64     `hcl:"probe,optional"`
	LogLevel   string        `hcl:"log_level,optional"`
	LogFormat  string        `hcl:"log_format,optional"`
	Solver     *SolverBlock  `hcl:"solver,block"`
	Preview    *PreviewBlock `hcl:"preview,block"`
}

// SolverBlock configures the field solver.
type SolverBlock struct {
	Iterations *int    `hcl:"iterations,optional"`
	Seed       *uint64 `hcl:"seed,optional"`
}

// PreviewBlock configures the PNG preview.
type PreviewBlock struct {
	Path        string  `hcl:"path"`
	Width       int     `hcl:"width,optional"`
	Height      int     `hcl:"height,optional"`
	Supersample int     `hcl:"supersample,optional"`
	GlyphScale  float64 `hcl:"glyph_scale,optional"`
	MaxGlyphs   int     `hcl:"max_glyphs,optional"`
}

// Load parses the HCL file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, diags)
	}
	return decode(hclFile, path)
}

// Parse parses HCL source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, diags)
	}
	return decode(hclFile, filename)
}

func decode(hclFile *hcl.File, filename string) (*File, error) {
	var f File
	diags := gohcl.DecodeBody(hclFile.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to decode %s: %w", filename, diags)
	}
	if f.Probe != nil && len(f.Probe) != 3 {
		return nil, fmt.Errorf("config: %s: probe must have 3 coordinates, got %d", filename, len(f.Probe))
	}
	return &f, nil
}

// Config is the resolved configuration of a flowguide run.
type Config struct {
	Input      string
	Output     string
	Shape      string
	Resolution int
	Solver     field.Config
	Preview    string
	View       preview.View
	Plot       string
	Probe      *r3.Vec
	LogLevel   string
	LogFormat  string
}

// Default returns the configuration used when neither file nor flags set a value.
func Default() Config {
	return Config{
		Solver:    field.DefaultConfig(),
		View:      preview.DefaultView,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Apply overrides c with the values set in f.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if f.Input != "" {
		c.Input = f.Input
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.Shape != "" {
		c.Shape = f.Shape
	}
	if f.Resolution > 0 {
		c.Resolution = f.Resolution
	}
	if f.Plot != "" {
		c.Plot = f.Plot
	}
	if len(f.Probe) == 3 {
		c.Probe = &r3.Vec{X: f.Probe[0], Y: f.Probe[1], Z: f.Probe[2]}
	}
	if f.LogLevel != "" {
		c.LogLevel = strings.ToLower(f.LogLevel)
	}
	if f.LogFormat != "" {
		c.LogFormat = strings.ToLower(f.LogFormat)
	}
	if s := f.Solver; s != nil {
		if s.Iterations != nil {
			c.Solver.Iterations = *s.Iterations
		}
		if s.Seed != nil {
			c.Solver.Seed = *s.Seed
		}
	}
	if p := f.Preview; p != nil {
		c.Preview = p.Path
		if p.Width > 0 {
			c.View.Width = p.Width
		}
		if p.Height > 0 {
			c.View.Height = p.Height
		}
		if p.Supersample > 0 {
			c.View.Supersample = p.Supersample
		}
		if p.GlyphScale > 0 {
			c.View.GlyphScale = p.GlyphScale
		}
		if p.MaxGlyphs > 0 {
			c.View.MaxGlyphs = p.MaxGlyphs
		}
	}
}

// Flags holds CLI flag values that override config file settings.
// Empty strings, non-positive sizes and nil pointers are unset.
type Flags struct {
	Input      string
	Output     string
	Shape      string
	Resolution int
	Iterations *int
	Seed       *uint64
	Preview    string
	Plot       string
	Probe      *r3.Vec
	LogLevel   string
	LogFormat  string
}

// Resolve applies flags over c and fills in derived defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Input != "" {
		c.Input = flags.Input
		c.Shape = ""
	}
	if flags.Shape != "" {
		c.Shape = flags.Shape
		c.Input = ""
	}
	if flags.Output != "" {
		c.Output = flags.Output
	}
	if flags.Resolution > 0 {
		c.Resolution = flags.Resolution
	}
	if flags.Iterations != nil {
		c.Solver.Iterations = *flags.Iterations
	}
	if flags.Seed != nil {
		c.Solver.Seed = *flags.Seed
	}
	if flags.Preview != "" {
		c.Preview = flags.Preview
	}
	if flags.Plot != "" {
		c.Plot = flags.Plot
	}
	if flags.Probe != nil {
		c.Probe = flags.Probe
	}
	if flags.LogLevel != "" {
		c.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		c.LogFormat = strings.ToLower(flags.LogFormat)
	}

	// Derive output name from the mesh source.
	if c.Output == "" {
		switch {
		case c.Input != "":
			c.Output = strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + "_field.ply"
		case c.Shape != "":
			c.Output = c.Shape + "_field.ply"
		}
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Input == "" && c.Shape == "" {
		return errors.New("config: no input mesh or shape given")
	}
	if c.Input != "" && c.Shape != "" {
		return errors.New("config: input and shape are mutually exclusive")
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}
