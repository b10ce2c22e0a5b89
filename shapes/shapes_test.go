package shapes_test

import (
	"math"
	"testing"

	"github.com/soypat/flowguide/mesh"
	"github.com/soypat/flowguide/shapes"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPolyhedraCounts(t *testing.T) {
	tests := []struct {
		name        string
		in          mesh.Indexed
		nv, ntri    int
		closed      bool
		wantNormals bool
	}{
		{"triangle", shapes.Triangle(), 3, 1, false, true},
		{"octahedron", shapes.Octahedron(), 6, 8, true, true},
		{"icosahedron", shapes.Icosphere(1, 0), 12, 20, true, true},
		{"icosphere", shapes.Icosphere(2, 2), 162, 320, true, true},
		{"grid", shapes.Grid(3, 2, 0.5), 12, 12, false, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if len(test.in.Vertices) != test.nv || len(test.in.Triangles) != test.ntri {
				t.Fatalf("got %d vertices and %d triangles, want %d and %d",
					len(test.in.Vertices), len(test.in.Triangles), test.nv, test.ntri)
			}
			s, err := mesh.NewSurface(test.in, nil)
			if err != nil {
				t.Fatal(err)
			}
			for i, n := range s.Normals {
				if math.Abs(r3.Norm(n)-1) > 1e-12 {
					t.Errorf("normal %d not unit: %v", i, n)
				}
			}
			if test.closed && len(s.Fallback) != 0 {
				t.Errorf("closed surface has fallback vertices %v", s.Fallback)
			}
			// Consistent winding: the geometric normal of every triangle
			// agrees with the vertex normals.
			for i := range s.Triangles {
				fn := s.Triangle(i).Normal()
				for _, v := range s.Triangles[i] {
					if r3.Dot(fn, s.Normals[v]) <= 0 {
						t.Fatalf("triangle %d is wound against vertex %d normal", i, v)
					}
				}
			}
		})
	}
}

func TestIcosphereRadius(t *testing.T) {
	in := shapes.Icosphere(3, 1)
	for i, v := range in.Vertices {
		if math.Abs(r3.Norm(v)-3) > 1e-12 {
			t.Fatalf("vertex %d at radius %g", i, r3.Norm(v))
		}
	}
}

func TestSphere(t *testing.T) {
	in, err := shapes.Sphere(1, 24)
	if err != nil {
		t.Fatal(err)
	}
	s, err := mesh.NewSurface(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range s.Vertices {
		if r := r3.Norm(v); math.Abs(r-1) > 0.1 {
			t.Fatalf("vertex %d at radius %g", i, r)
		}
	}
	if area := s.Area(); math.Abs(area-4*math.Pi) > 0.1*4*math.Pi {
		t.Errorf("sphere area %g too far from %g", area, 4*math.Pi)
	}
}

func TestByName(t *testing.T) {
	for _, name := range shapes.Names {
		t.Run(name, func(t *testing.T) {
			in, err := shapes.ByName(name, 0)
			if err != nil {
				t.Fatal(err)
			}
			if err := in.Validate(); err != nil {
				t.Fatal(err)
			}
			if len(in.Triangles) == 0 {
				t.Error("no triangles")
			}
		})
	}
	in, err := shapes.ByName("icosphere", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(in.Vertices) != 42 {
		t.Errorf("icosphere resolution 1 has %d vertices, want 42", len(in.Vertices))
	}
	if _, err := shapes.ByName("torus", 3); err == nil {
		t.Error("expected error for unknown shape")
	}
	if _, err := shapes.Sphere(1, 0); err == nil {
		t.Error("expected error for zero cells")
	}
}
