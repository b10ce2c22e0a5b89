package meshio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/flowguide/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrPLYHeader is returned when a PLY header cannot be parsed.
var ErrPLYHeader = errors.New("bad ply header")

// LoadPLY reads a PLY file from disk. See ReadPLY.
func LoadPLY(path string) (mesh.Indexed, error) {
	fp, err := os.Open(path)
	if err != nil {
		return mesh.Indexed{}, err
	}
	defer fp.Close()
	in, _, err := ReadFieldPLY(bufio.NewReader(fp))
	if err != nil {
		return mesh.Indexed{}, fmt.Errorf("meshio: %s: %w", path, err)
	}
	return in, nil
}

// Load reads a mesh from path, choosing the format by file extension.
func Load(path string) (mesh.Indexed, error) {
	switch ext := strings.ToLower(extension(path)); ext {
	case ".ply":
		return LoadPLY(path)
	case ".stl":
		return LoadSTL(path)
	default:
		return mesh.Indexed{}, fmt.Errorf("meshio: unsupported mesh format %q", ext)
	}
}

func extension(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || strings.ContainsAny(path[i:], `/\`) {
		return ""
	}
	return path[i:]
}

// ReadPLY reads an ascii or binary PLY stream. Only the vertex positions,
// optional nx/ny/nz normals and the face vertex lists are used; polygons
// with more than three corners are fan triangulated and faces that repeat
// a vertex are dropped. Normals are computed from the faces when absent.
func ReadPLY(r io.Reader) (mesh.Indexed, error) {
	in, _, err := ReadFieldPLY(r)
	return in, err
}

// ReadFieldPLY is ReadPLY that also returns the ox/oy/oz vertex properties
// written by WriteFieldPLY. The returned field is nil when they are absent.
func ReadFieldPLY(r io.Reader) (mesh.Indexed, []r3.Vec, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	hdr, err := readPLYHeader(br)
	if err != nil {
		return mesh.Indexed{}, nil, err
	}
	var vr plyValueReader
	switch hdr.format {
	case plyASCII:
		sc := bufio.NewScanner(br)
		sc.Split(bufio.ScanWords)
		vr = &asciiValues{sc: sc}
	case plyBinaryLE:
		vr = &binaryValues{r: br, order: binary.LittleEndian}
	case plyBinaryBE:
		vr = &binaryValues{r: br, order: binary.BigEndian}
	}
	var (
		in        mesh.Indexed
		dirs      []r3.Vec
		hasNormal bool
		hasDir    bool
	)
	for _, el := range hdr.elements {
		switch el.name {
		case "vertex":
			prealloc := min(el.count, plyPrealloc)
			in.Vertices = make([]r3.Vec, 0, prealloc)
			normals := make([]r3.Vec, 0, prealloc)
			dirs = make([]r3.Vec, 0, prealloc)
			for _, p := range el.props {
				switch p.name {
				case "nx", "ny", "nz":
					hasNormal = true
				case "ox", "oy", "oz":
					hasDir = true
				}
			}
			for i := 0; i < el.count; i++ {
				var pos, normal, dir r3.Vec
				for _, p := range el.props {
					vals, err := p.read(vr)
					if err != nil {
						return in, nil, fmt.Errorf("ply: vertex %d: %w", i, err)
					}
					if p.list {
						continue
					}
					v := vals[0]
					switch p.name {
					case "x":
						pos.X = v
					case "y":
						pos.Y = v
					case "z":
						pos.Z = v
					case "nx":
						normal.X = v
					case "ny":
						normal.Y = v
					case "nz":
						normal.Z = v
					case "ox":
						dir.X = v
					case "oy":
						dir.Y = v
					case "oz":
						dir.Z = v
					}
				}
				in.Vertices = append(in.Vertices, pos)
				normals = append(normals, normal)
				dirs = append(dirs, dir)
			}
			if hasNormal {
				in.Normals = normals
			}
		case "face":
			for i := 0; i < el.count; i++ {
				for _, p := range el.props {
					vals, err := p.read(vr)
					if err != nil {
						return in, nil, fmt.Errorf("ply: face %d: %w", i, err)
					}
					if !p.list || (p.name != "vertex_indices" && p.name != "vertex_index") {
						continue
					}
					in.Triangles = appendFan(in.Triangles, vals)
				}
			}
		default:
			for i := 0; i < el.count; i++ {
				for _, p := range el.props {
					if _, err := p.read(vr); err != nil {
						return in, nil, fmt.Errorf("ply: %s %d: %w", el.name, i, err)
					}
				}
			}
		}
	}
	if in.Normals == nil {
		in.Normals = mesh.VertexNormals(in.Vertices, in.Triangles)
	} else {
		for i, n := range in.Normals {
			if r3.Norm(n) > 0 {
				in.Normals[i] = r3.Unit(n)
			}
		}
	}
	if err := in.Validate(); err != nil {
		return in, nil, fmt.Errorf("ply: %w", err)
	}
	if !hasDir {
		dirs = nil
	}
	return in, dirs, nil
}

// appendFan triangulates polygon as a fan around its first corner.
func appendFan(dst [][3]int, polygon []float64) [][3]int {
	for k := 1; k+1 < len(polygon); k++ {
		t := [3]int{int(polygon[0]), int(polygon[k]), int(polygon[k+1])}
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			continue
		}
		dst = append(dst, t)
	}
	return dst
}

// WriteFieldPLY writes the surface vertices with their normals, the
// direction field as ox/oy/oz properties and the triangles as an ascii PLY.
func WriteFieldPLY(w io.Writer, s *mesh.Surface, field []r3.Vec) error {
	if len(field) != s.NumVertices() {
		return fmt.Errorf("meshio: field has %d entries for %d vertices", len(field), s.NumVertices())
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat ascii 1.0\ncomment flowguide cross field\n")
	fmt.Fprintf(bw, "element vertex %d\n", s.NumVertices())
	for _, name := range []string{"x", "y", "z", "nx", "ny", "nz", "ox", "oy", "oz"} {
		fmt.Fprintf(bw, "property double %s\n", name)
	}
	fmt.Fprintf(bw, "element face %d\n", len(s.Triangles))
	fmt.Fprintf(bw, "property list uchar int vertex_indices\nend_header\n")
	var buf []byte
	for i, v := range s.Vertices {
		buf = buf[:0]
		for _, vec := range [3]r3.Vec{v, s.Normals[i], field[i]} {
			buf = appendFloat(buf, vec.X)
			buf = appendFloat(buf, vec.Y)
			buf = appendFloat(buf, vec.Z)
		}
		buf[len(buf)-1] = '\n'
		bw.Write(buf)
	}
	for _, t := range s.Triangles {
		fmt.Fprintf(bw, "3 %d %d %d\n", t[0], t[1], t[2])
	}
	return bw.Flush()
}

func appendFloat(b []byte, f float64) []byte {
	b = strconv.AppendFloat(b, f, 'g', -1, 64)
	return append(b, ' ')
}

// Element counts are taken from the header and are not trusted for
// allocation: slices grow as records are decoded.
const (
	maxPLYElements = math.MaxInt32
	plyPrealloc    = 1 << 16
)

type plyFormat int

const (
	plyASCII plyFormat = iota
	plyBinaryLE
	plyBinaryBE
)

type plyScalar int

const (
	plyInvalid plyScalar = iota
	plyInt8
	plyUint8
	plyInt16
	plyUint16
	plyInt32
	plyUint32
	plyFloat32
	plyFloat64
)

func parsePLYScalar(s string) plyScalar {
	switch s {
	case "char", "int8":
		return plyInt8
	case "uchar", "uint8":
		return plyUint8
	case "short", "int16":
		return plyInt16
	case "ushort", "uint16":
		return plyUint16
	case "int", "int32":
		return plyInt32
	case "uint", "uint32":
		return plyUint32
	case "float", "float32":
		return plyFloat32
	case "double", "float64":
		return plyFloat64
	}
	return plyInvalid
}

func (s plyScalar) size() int {
	switch s {
	case plyInt8, plyUint8:
		return 1
	case plyInt16, plyUint16:
		return 2
	case plyInt32, plyUint32, plyFloat32:
		return 4
	case plyFloat64:
		return 8
	}
	return 0
}

type plyProperty struct {
	name  string
	list  bool
	count plyScalar // list length type.
	typ   plyScalar
}

// read returns the property's values: one for scalars, the list otherwise.
func (p plyProperty) read(vr plyValueReader) ([]float64, error) {
	if !p.list {
		v, err := vr.next(p.typ)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	}
	n, err := vr.next(p.count)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > math.MaxUint16 {
		return nil, fmt.Errorf("bad list length %v for %s", n, p.name)
	}
	vals := make([]float64, int(n))
	for i := range vals {
		vals[i], err = vr.next(p.typ)
		if err != nil {
			return nil, err
		}
	}
	return vals, nil
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   plyFormat
	elements []plyElement
}

func readPLYHeader(br *bufio.Reader) (hdr plyHeader, err error) {
	line, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ply" {
		return hdr, fmt.Errorf("%w: missing ply magic", ErrPLYHeader)
	}
	gotFormat := false
	for {
		line, err = br.ReadString('\n')
		if err != nil {
			return hdr, fmt.Errorf("%w: unterminated header: %v", ErrPLYHeader, err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "end_header":
			if !gotFormat {
				return hdr, fmt.Errorf("%w: missing format line", ErrPLYHeader)
			}
			return hdr, nil
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return hdr, fmt.Errorf("%w: %q", ErrPLYHeader, line)
			}
			switch fields[1] {
			case "ascii":
				hdr.format = plyASCII
			case "binary_little_endian":
				hdr.format = plyBinaryLE
			case "binary_big_endian":
				hdr.format = plyBinaryBE
			default:
				return hdr, fmt.Errorf("%w: unknown format %q", ErrPLYHeader, fields[1])
			}
			gotFormat = true
		case "element":
			if len(fields) != 3 {
				return hdr, fmt.Errorf("%w: %q", ErrPLYHeader, line)
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 || n > maxPLYElements {
				return hdr, fmt.Errorf("%w: bad element count %q", ErrPLYHeader, fields[2])
			}
			hdr.elements = append(hdr.elements, plyElement{name: fields[1], count: n})
		case "property":
			if len(hdr.elements) == 0 {
				return hdr, fmt.Errorf("%w: property before element", ErrPLYHeader)
			}
			var p plyProperty
			switch {
			case len(fields) == 5 && fields[1] == "list":
				p = plyProperty{name: fields[4], list: true, count: parsePLYScalar(fields[2]), typ: parsePLYScalar(fields[3])}
				if p.count == plyInvalid || p.count == plyFloat32 || p.count == plyFloat64 {
					return hdr, fmt.Errorf("%w: bad list count type %q", ErrPLYHeader, fields[2])
				}
			case len(fields) == 3:
				p = plyProperty{name: fields[2], typ: parsePLYScalar(fields[1])}
			default:
				return hdr, fmt.Errorf("%w: %q", ErrPLYHeader, line)
			}
			if p.typ == plyInvalid {
				return hdr, fmt.Errorf("%w: unknown property type in %q", ErrPLYHeader, strings.TrimSpace(line))
			}
			last := &hdr.elements[len(hdr.elements)-1]
			last.props = append(last.props, p)
		default:
			return hdr, fmt.Errorf("%w: unknown keyword %q", ErrPLYHeader, fields[0])
		}
	}
}

type plyValueReader interface {
	next(typ plyScalar) (float64, error)
}

type asciiValues struct {
	sc *bufio.Scanner
}

func (a *asciiValues) next(typ plyScalar) (float64, error) {
	if !a.sc.Scan() {
		if err := a.sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	tok := a.sc.Text()
	if typ == plyFloat32 || typ == plyFloat64 {
		return strconv.ParseFloat(tok, 64)
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	return float64(v), err
}

type binaryValues struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryValues) next(typ plyScalar) (float64, error) {
	buf := b.buf[:typ.size()]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	switch typ {
	case plyInt8:
		return float64(int8(buf[0])), nil
	case plyUint8:
		return float64(buf[0]), nil
	case plyInt16:
		return float64(int16(b.order.Uint16(buf))), nil
	case plyUint16:
		return float64(b.order.Uint16(buf)), nil
	case plyInt32:
		return float64(int32(b.order.Uint32(buf))), nil
	case plyUint32:
		return float64(b.order.Uint32(buf)), nil
	case plyFloat32:
		f := math32.Float32frombits(b.order.Uint32(buf))
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return 0, errors.New("inf/NaN float32 value")
		}
		return float64(f), nil
	case plyFloat64:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
	return 0, fmt.Errorf("unsupported ply type %d", typ)
}
