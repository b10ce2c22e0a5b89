// Package report plots summaries of a mesh hierarchy.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/flowguide/hierarchy"
	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default figure size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Levels returns a bar chart of the vertex count of each level, coarsest first.
func Levels(stats []hierarchy.LevelStats) (*plot.Plot, error) {
	if len(stats) == 0 {
		return nil, errors.New("report: no levels")
	}
	values := make(plotter.Values, len(stats))
	names := make([]string, len(stats))
	for i, st := range stats {
		values[i] = float64(st.Vertices)
		names[i] = strconv.Itoa(i)
	}
	p := plot.New()
	p.Title.Text = "Vertices per level"
	p.X.Label.Text = "level"
	p.Y.Label.Text = "vertices"
	bars, err := plotter.NewBarChart(values, vg.Points(16))
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// DualArea returns a histogram of the dual area of the vertices of s.
// Fallback vertices are included.
func DualArea(s *mesh.Surface, bins int) (*plot.Plot, error) {
	if len(s.DualArea) == 0 {
		return nil, errors.New("report: surface has no vertices")
	}
	h, err := plotter.NewHist(plotter.Values(s.DualArea), bins)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	p := plot.New()
	p.Title.Text = "Dual area distribution"
	p.X.Label.Text = "dual area"
	p.Y.Label.Text = "vertices"
	p.Add(h)
	return p, nil
}

// Save writes p to path in the format given by its extension.
func Save(p *plot.Plot, path string) error {
	return p.Save(Width, Height, path)
}

// Write writes p to w in the given format such as "png" or "svg".
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
