// Package preview rasterizes a surface and its cross field to an image
// using the fauxgl software renderer.
package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/flowguide/internal/d3"
	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// View configures the camera and output size of a preview.
type View struct {
	Width, Height int
	// Supersample renders at Supersample times the output size and
	// downsamples for antialiasing.
	Supersample int
	Eye, LookAt r3.Vec
	Up          r3.Vec
	Near, Far   float64
	// GlyphScale is the half length of a cross arm relative to the mean edge length.
	GlyphScale float64
	// MaxGlyphs limits the number of crosses drawn. Zero draws one per vertex.
	MaxGlyphs int
}

// DefaultView is an isometric view of the bi-unit cube.
var DefaultView = View{
	Width:       512,
	Height:      512,
	Supersample: 2,
	Eye:         d3.Elem(2.4),
	Up:          r3.Vec{Z: 1},
	Near:        1,
	Far:         10,
	GlyphScale:  0.35,
	MaxGlyphs:   4000,
}

var (
	background = fauxgl.HexColor("#FFF8E3")
	surface    = fauxgl.HexColor("#468966")
	glyph      = fauxgl.HexColor("#B64926")
)

// Render draws the triangles of s fitted in a bi-unit cube with a cross at
// vertices carrying the direction field, which may be nil.
func Render(s *mesh.Surface, field []r3.Vec, view View) (image.Image, error) {
	if len(s.Triangles) == 0 {
		return nil, errors.New("preview: surface has no triangles")
	}
	if field != nil && len(field) != s.NumVertices() {
		return nil, fmt.Errorf("preview: field has %d entries for %d vertices", len(field), s.NumVertices())
	}
	if view.Width <= 0 || view.Height <= 0 {
		return nil, fmt.Errorf("preview: bad image size %dx%d", view.Width, view.Height)
	}
	scale := max(view.Supersample, 1)
	const fovy = 30 // vertical field of view in degrees

	tris := make([]*fauxgl.Triangle, 0, len(s.Triangles))
	for i := range s.Triangles {
		t := s.Triangle(i)
		tris = append(tris, fauxgl.NewTriangleForPoints(vec(t[0]), vec(t[1]), vec(t[2])))
	}
	model := fauxgl.NewTriangleMesh(tris)
	// fit mesh in a bi-unit cube centered at the origin
	fit := model.BiUnitCube()

	var (
		eye    = vec(view.Eye)
		center = vec(view.LookAt)
		up     = vec(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(view.Width*scale, view.Height*scale)
	context.ClearColorBufferWith(background)
	aspect := float64(view.Width) / float64(view.Height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = surface
	context.Shader = shader
	context.DrawMesh(model)

	if field != nil {
		lines := glyphs(s, field, view)
		for _, l := range lines {
			l.V1.Position = fit.MulPosition(l.V1.Position)
			l.V2.Position = fit.MulPosition(l.V2.Position)
		}
		context.Shader = fauxgl.NewSolidColorShader(matrix, glyph)
		context.LineWidth = float64(scale)
		context.DrawLines(lines)
	}
	// downsample image for antialiasing
	img := context.Image()
	return resize.Resize(uint(view.Width), uint(view.Height), img, resize.Bilinear), nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	return fauxgl.SavePNG(path, img)
}

// glyphs returns the line segments of a cross at every stride'th vertex,
// lifted slightly off the surface along the normal.
func glyphs(s *mesh.Surface, field []r3.Vec, view View) []*fauxgl.Line {
	arm := view.GlyphScale * meanEdgeLength(s)
	stride := 1
	if view.MaxGlyphs > 0 && s.NumVertices() > view.MaxGlyphs {
		stride = (s.NumVertices() + view.MaxGlyphs - 1) / view.MaxGlyphs
	}
	var lines []*fauxgl.Line
	for i := 0; i < s.NumVertices(); i += stride {
		if len(s.Adjacency[i]) == 0 {
			continue
		}
		n := s.Normals[i]
		p := r3.Add(s.Vertices[i], r3.Scale(0.1*arm, n))
		o := r3.Scale(arm, field[i])
		q := r3.Cross(n, o)
		lines = append(lines,
			fauxgl.NewLineForPoints(vec(r3.Sub(p, o)), vec(r3.Add(p, o))),
			fauxgl.NewLineForPoints(vec(r3.Sub(p, q)), vec(r3.Add(p, q))),
		)
	}
	return lines
}

func meanEdgeLength(s *mesh.Surface) float64 {
	var sum float64
	var n int
	for i, adj := range s.Adjacency {
		for _, e := range adj {
			sum += r3.Norm(r3.Sub(s.Vertices[e.To], s.Vertices[i]))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func vec(v r3.Vec) fauxgl.Vector {
	return fauxgl.V(v.X, v.Y, v.Z)
}
