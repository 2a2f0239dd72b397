package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// plyPrealloc caps how many points ReadPLY reserves up front.
const plyPrealloc = 1 << 16

type plyEncoding int

const (
	plyASCII plyEncoding = iota
	plyBinaryLE
	plyBinaryBE
)

// plyScalar decodes one fixed-size property value.
type plyScalar struct {
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
}

var (
	plyInt8    = plyScalar{1, func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) }}
	plyUint8   = plyScalar{1, func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) }}
	plyInt16   = plyScalar{2, func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) }}
	plyUint16  = plyScalar{2, func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) }}
	plyInt32   = plyScalar{4, func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) }}
	plyUint32  = plyScalar{4, func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) }}
	plyFloat32 = plyScalar{4, func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) }}
	plyFloat64 = plyScalar{8, func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) }}
)

// plyTypes maps both PLY type vocabularies onto decoders.
var plyTypes = map[string]plyScalar{
	"char": plyInt8, "int8": plyInt8,
	"uchar": plyUint8, "uint8": plyUint8,
	"short": plyInt16, "int16": plyInt16,
	"ushort": plyUint16, "uint16": plyUint16,
	"int": plyInt32, "int32": plyInt32,
	"uint": plyUint32, "uint32": plyUint32,
	"float": plyFloat32, "float32": plyFloat32,
	"double": plyFloat64, "float64": plyFloat64,
}

type plyProperty struct {
	name string
	typ  plyScalar
}

type plyHeader struct {
	encoding    plyEncoding
	vertexCount int
	properties  []plyProperty
}

// column returns the index of the named vertex property.
func (h *plyHeader) column(name string) (int, error) {
	for i, p := range h.properties {
		if p.name == name {
			return i, nil
		}
	}
	return 0, errors.Wrapf(ErrMissingProperty, "property %q", name)
}

// readPLYHeader parses everything up to and including end_header. Only the
// vertex element's layout is kept; it must come before any other element.
func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	h := &plyHeader{vertexCount: -1}
	var (
		element    string
		sawFormat  bool
		afterVerts bool
	)
	for n := 1; ; n++ {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "read ply header")
		}
		fields := strings.Fields(line)
		if n == 1 {
			if len(fields) != 1 || fields[0] != "ply" {
				return nil, errors.New("read ply header: missing ply magic")
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) != 3 {
				return nil, errors.Errorf("read ply header: line %d: malformed format", n)
			}
			switch fields[1] {
			case "ascii":
				h.encoding = plyASCII
			case "binary_little_endian":
				h.encoding = plyBinaryLE
			case "binary_big_endian":
				h.encoding = plyBinaryBE
			default:
				return nil, errors.Wrapf(ErrUnknownFormat, "read ply header: encoding %q", fields[1])
			}
			sawFormat = true
		case "element":
			if len(fields) != 3 {
				return nil, errors.Errorf("read ply header: line %d: malformed element", n)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, errors.Errorf("read ply header: line %d: bad element count %q", n, fields[2])
			}
			if element == "vertex" {
				afterVerts = true
			}
			element = fields[1]
			if element == "vertex" {
				h.vertexCount = count
			} else if !afterVerts && count > 0 {
				return nil, errors.Errorf("read ply header: element %q precedes vertex", element)
			}
		case "property":
			if element != "vertex" {
				continue
			}
			if len(fields) >= 2 && fields[1] == "list" {
				return nil, errors.Errorf("read ply header: line %d: list property in vertex element", n)
			}
			if len(fields) != 3 {
				return nil, errors.Errorf("read ply header: line %d: malformed property", n)
			}
			typ, ok := plyTypes[fields[1]]
			if !ok {
				return nil, errors.Errorf("read ply header: line %d: unknown type %q", n, fields[1])
			}
			h.properties = append(h.properties, plyProperty{name: fields[2], typ: typ})
		case "end_header":
			if !sawFormat {
				return nil, errors.New("read ply header: missing format")
			}
			if h.vertexCount < 0 {
				return nil, errors.New("read ply header: missing vertex element")
			}
			return h, nil
		default:
			return nil, errors.Errorf("read ply header: line %d: unexpected %q", n, fields[0])
		}
	}
}

// ReadPLY reads the vertex element of a PLY file as oriented points. The
// vertex element must carry x, y, z, nx, ny and nz; other properties are
// skipped, as are all elements after it.
func ReadPLY(r io.Reader) ([]pivot.Point, error) {
	br := bufio.NewReader(r)
	h, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	var cols [6]int
	for i, name := range []string{"x", "y", "z", "nx", "ny", "nz"} {
		if cols[i], err = h.column(name); err != nil {
			return nil, errors.Wrap(err, "read ply")
		}
	}

	row := make([]float64, len(h.properties))
	var next func() error
	switch h.encoding {
	case plyASCII:
		next = asciiRows(br, row)
	case plyBinaryLE:
		next = binaryRows(br, h.properties, binary.LittleEndian, row)
	default:
		next = binaryRows(br, h.properties, binary.BigEndian, row)
	}

	// The declared count is only trusted as far as rows actually arrive.
	points := make([]pivot.Point, 0, min(h.vertexCount, plyPrealloc))
	for i := 0; i < h.vertexCount; i++ {
		if err := next(); err != nil {
			return nil, errors.Wrapf(err, "read ply: vertex %d", i)
		}
		points = append(points, pivot.Point{
			Pos:    v3.Vec{X: row[cols[0]], Y: row[cols[1]], Z: row[cols[2]]},
			Normal: v3.Vec{X: row[cols[3]], Y: row[cols[4]], Z: row[cols[5]]},
		})
	}
	return points, nil
}

// asciiRows returns a reader that fills row from the next non-blank line.
func asciiRows(br *bufio.Reader, row []float64) func() error {
	return func() error {
		for {
			line, err := br.ReadString('\n')
			fields := strings.Fields(line)
			if len(fields) == 0 {
				if err != nil {
					return err
				}
				continue
			}
			if len(fields) != len(row) {
				return errors.Errorf("want %d values, got %d", len(row), len(fields))
			}
			for i, f := range fields {
				v, perr := strconv.ParseFloat(f, 64)
				if perr != nil {
					return perr
				}
				row[i] = v
			}
			return nil
		}
	}
}

// binaryRows returns a reader that decodes one fixed-layout record into row.
func binaryRows(r io.Reader, props []plyProperty, order binary.ByteOrder, row []float64) func() error {
	size := 0
	for _, p := range props {
		size += p.typ.size
	}
	buf := make([]byte, size)
	return func() error {
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		off := 0
		for i, p := range props {
			row[i] = p.typ.decode(buf[off:off+p.typ.size], order)
			off += p.typ.size
		}
		return nil
	}
}

// WritePLYPoints writes points as a binary little-endian PLY vertex element
// with float positions and, if withNormals is set, float normals.
func WritePLYPoints(w io.Writer, points []pivot.Point, withNormals bool) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat binary_little_endian 1.0\nelement vertex %d\n", len(points))
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	if withNormals {
		bw.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	}
	bw.WriteString("end_header\n")

	var buf [24]byte
	for _, p := range points {
		putVec(buf[0:12], p.Pos)
		n := 12
		if withNormals {
			putVec(buf[12:24], p.Normal)
			n = 24
		}
		bw.Write(buf[:n])
	}
	return errors.Wrap(bw.Flush(), "write ply")
}

// WritePLYMesh writes an indexed mesh as binary little-endian PLY with
// per-vertex normals and a vertex_indices face list.
func WritePLYMesh(w io.Writer, m *kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("ply\nformat binary_little_endian 1.0\n")
	if m.Name != "" {
		fmt.Fprintf(bw, "comment %s\n", m.Name)
	}
	fmt.Fprintf(bw, "element vertex %d\n", m.VertexCount())
	bw.WriteString("property float x\nproperty float y\nproperty float z\n")
	bw.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	fmt.Fprintf(bw, "element face %d\n", m.TriangleCount())
	bw.WriteString("property list uchar int vertex_indices\nend_header\n")

	le := binary.LittleEndian
	var buf [24]byte
	for i := 0; i < m.VertexCount(); i++ {
		for j := 0; j < 3; j++ {
			le.PutUint32(buf[j*4:], math.Float32bits(m.Vertices[i*3+j]))
			le.PutUint32(buf[12+j*4:], math.Float32bits(m.Normals[i*3+j]))
		}
		bw.Write(buf[:24])
	}
	var face [13]byte
	face[0] = 3
	for t := 0; t < m.TriangleCount(); t++ {
		for j := 0; j < 3; j++ {
			le.PutUint32(face[1+j*4:], m.Indices[t*3+j])
		}
		bw.Write(face[:])
	}
	return errors.Wrap(bw.Flush(), "write ply")
}

func putVec(b []byte, v v3.Vec) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	le.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	le.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}
