package meshio

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// samplePoints uses values exactly representable as float32 so binary
// round trips compare equal.
func samplePoints() []pivot.Point {
	return []pivot.Point{
		{Pos: v3.Vec{X: 0.5, Y: -1.25, Z: 3}, Normal: v3.Vec{Z: 1}},
		{Pos: v3.Vec{X: -2, Y: 0, Z: 0.125}, Normal: v3.Vec{X: -1}},
		{Pos: v3.Vec{X: 1024, Y: 7.5, Z: -0.75}, Normal: v3.Vec{Y: 1}},
	}
}

func tetraTriangles() []pivot.Triangle {
	o, x, y, z := v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1}, v3.Vec{Z: 1}
	return []pivot.Triangle{{y, z, x}, {x, o, y}, {o, z, y}, {o, x, z}}
}

func equalPoints(t *testing.T, got, want []pivot.Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// --- XYZ ---

func TestXYZRoundTrip(t *testing.T) {
	points := []pivot.Point{
		{Pos: v3.Vec{X: 0.1, Y: 0.2, Z: 0.3}, Normal: v3.Vec{X: 1 / math.Sqrt(3), Y: 1 / math.Sqrt(3), Z: 1 / math.Sqrt(3)}},
		{Pos: v3.Vec{X: -1e-9, Y: 12345.678}, Normal: v3.Vec{Z: -1}},
	}
	var buf bytes.Buffer
	if err := WriteXYZ(&buf, points); err != nil {
		t.Fatalf("WriteXYZ: %v", err)
	}
	got, err := ReadXYZ(&buf)
	if err != nil {
		t.Fatalf("ReadXYZ: %v", err)
	}
	equalPoints(t, got, points)
}

func TestReadXYZ(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"plain", "0 0 0 0 0 1\n1 0 0 0 0 1\n", 2, false},
		{"comments and blanks", "# exported\n\n0 0 0 0 0 1\n   \n1 1 1 0 1 0", 2, false},
		{"short lines skipped", "0 0\n0 0 0 0 0 1\n", 1, false},
		{"extra columns", "0 0 0 0 0 1 255 128 0\n", 1, false},
		{"tabs", "0\t0\t0\t0\t0\t1\n", 1, false},
		{"crlf", "0 0 0 0 0 1\r\n1 0 0 0 0 1\r\n", 2, false},
		{"missing normal", "0 0 0 0 0\n", 0, true},
		{"position only", "0 0 0\n", 0, true},
		{"bad number", "0 0 zero 0 0 1\n", 0, true},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadXYZ(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ReadXYZ() succeeded with %d points, want error", len(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadXYZ(): %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ReadXYZ() returned %d points, want %d", len(got), tt.want)
			}
		})
	}
}

// --- PLY ---

func TestPLYPointsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePLYPoints(&buf, samplePoints(), true); err != nil {
		t.Fatalf("WritePLYPoints: %v", err)
	}
	got, err := ReadPLY(&buf)
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	equalPoints(t, got, samplePoints())
}

func TestPLYPointsWithoutNormals(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePLYPoints(&buf, samplePoints(), false); err != nil {
		t.Fatalf("WritePLYPoints: %v", err)
	}
	_, err := ReadPLY(&buf)
	if errors.Cause(err) != ErrMissingProperty {
		t.Errorf("ReadPLY() error = %v, want ErrMissingProperty", err)
	}
}

func TestReadPLYASCII(t *testing.T) {
	input := `ply
format ascii 1.0
comment from a scanner
element vertex 2
property float x
property float y
property float z
property uchar red
property float nz
property float ny
property float nx
end_header
1 2 3 255 0 0 1
-1 -2 -3 7 1 0 0
`
	got, err := ReadPLY(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	equalPoints(t, got, []pivot.Point{
		{Pos: v3.Vec{X: 1, Y: 2, Z: 3}, Normal: v3.Vec{X: 1}},
		{Pos: v3.Vec{X: -1, Y: -2, Z: -3}, Normal: v3.Vec{Z: 1}},
	})
}

func TestReadPLYBigEndianTypes(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_big_endian 1.0\nelement vertex 1\n" +
		"property double x\nproperty int16 y\nproperty int z\n" +
		"property char nx\nproperty uint8 ny\nproperty float32 nz\nend_header\n")
	be := binary.BigEndian
	binary.Write(&buf, be, float64(-2.5))
	binary.Write(&buf, be, int16(-300))
	binary.Write(&buf, be, int32(70000))
	binary.Write(&buf, be, int8(-1))
	binary.Write(&buf, be, uint8(0))
	binary.Write(&buf, be, float32(0.5))

	got, err := ReadPLY(&buf)
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	equalPoints(t, got, []pivot.Point{
		{Pos: v3.Vec{X: -2.5, Y: -300, Z: 70000}, Normal: v3.Vec{X: -1, Y: 0, Z: 0.5}},
	})
}

func TestPLYMeshRoundTrip(t *testing.T) {
	m := kernel.FromTriangles("tetra", tetraTriangles())
	var buf bytes.Buffer
	if err := WritePLYMesh(&buf, m); err != nil {
		t.Fatalf("WritePLYMesh: %v", err)
	}
	if !strings.Contains(buf.String(), "element face 4\n") {
		t.Error("header missing face element")
	}
	// The vertex element reads back as a cloud; the face element is ignored.
	got, err := ReadPLY(&buf)
	if err != nil {
		t.Fatalf("ReadPLY: %v", err)
	}
	if len(got) != m.VertexCount() {
		t.Fatalf("read %d vertices, want %d", len(got), m.VertexCount())
	}
	for i, p := range got {
		if p.Normal.Length() < 0.99 {
			t.Errorf("vertex %d normal %v is not unit", i, p.Normal)
		}
	}
}

func TestReadPLYErrors(t *testing.T) {
	const vertexXYZ = "element vertex 1\nproperty float x\nproperty float y\nproperty float z\n"
	tests := []struct {
		name  string
		input string
		cause error
	}{
		{"no magic", "format ascii 1.0\nend_header\n", nil},
		{"unknown encoding", "ply\nformat binary_middle_endian 1.0\n" + vertexXYZ + "end_header\n", ErrUnknownFormat},
		{"missing format", "ply\n" + vertexXYZ + "end_header\n", nil},
		{"missing vertex", "ply\nformat ascii 1.0\nend_header\n", nil},
		{"list in vertex", "ply\nformat ascii 1.0\nelement vertex 1\nproperty list uchar int idx\nend_header\n", nil},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty half x\nend_header\n", nil},
		{"face first", "ply\nformat ascii 1.0\nelement face 1\nproperty list uchar int vertex_indices\n" + vertexXYZ + "end_header\n", nil},
		{"missing normals", "ply\nformat ascii 1.0\n" + vertexXYZ + "end_header\n0 0 0\n", ErrMissingProperty},
		{"truncated header", "ply\nformat ascii 1.0\n", nil},
		{"short row", "ply\nformat ascii 1.0\n" + vertexXYZ + "property float nx\nproperty float ny\nproperty float nz\nend_header\n0 0 0 1\n", nil},
		{"truncated body", "ply\nformat binary_little_endian 1.0\n" + vertexXYZ + "property float nx\nproperty float ny\nproperty float nz\nend_header\n\x00\x00", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ReadPLY() succeeded, want error")
			}
			if tt.cause != nil && errors.Cause(err) != tt.cause {
				t.Errorf("ReadPLY() error = %v, want cause %v", err, tt.cause)
			}
		})
	}
}

func TestReadPLYHugeDeclaredCount(t *testing.T) {
	input := "ply\nformat ascii 1.0\nelement vertex 100000000000\n" +
		"property float x\nproperty float y\nproperty float z\n" +
		"property float nx\nproperty float ny\nproperty float nz\nend_header\n" +
		"0 0 0 0 0 1\n"
	_, err := ReadPLY(strings.NewReader(input))
	if err == nil {
		t.Fatal("ReadPLY() succeeded, want error")
	}
	if errors.Cause(err) != io.EOF {
		t.Errorf("ReadPLY() error = %v, want cause io.EOF", err)
	}
	if !strings.Contains(err.Error(), "vertex 1") {
		t.Errorf("ReadPLY() error = %v, want it to name vertex 1", err)
	}
}

// --- STL ---

func TestSTLRoundTrip(t *testing.T) {
	tris := tetraTriangles()
	path := filepath.Join(t.TempDir(), "tetra.stl")
	if err := SaveSTL(path, "bpa test", tris); err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(stlHeaderSize + 4 + stlRecordSize*len(tris)); info.Size() != want {
		t.Fatalf("STL size = %d, want %d", info.Size(), want)
	}

	header, got, err := ReadSTL(path)
	if err != nil {
		t.Fatalf("ReadSTL: %v", err)
	}
	if !strings.HasPrefix(header, "bpa test ") || len(header) != stlHeaderSize {
		t.Errorf("header = %q", header)
	}
	if len(got) != len(tris) {
		t.Fatalf("read %d triangles, want %d", len(got), len(tris))
	}
	for i := range tris {
		if got[i] != tris[i] {
			t.Errorf("triangle %d = %v, want %v", i, got[i], tris[i])
		}
	}
}

func TestSTLRecordLayout(t *testing.T) {
	tri := pivot.Triangle{{}, {X: 1}, {Y: 1}}
	path := filepath.Join(t.TempDir(), "tri.stl")
	if err := SaveSTL(path, "", []pivot.Triangle{tri}); err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	if got := le.Uint32(b[80:84]); got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
	n := [3]float32{
		math.Float32frombits(le.Uint32(b[84:])),
		math.Float32frombits(le.Uint32(b[88:])),
		math.Float32frombits(le.Uint32(b[92:])),
	}
	if n != [3]float32{0, 0, 1} {
		t.Errorf("normal = %v, want +Z", n)
	}
	if attr := le.Uint16(b[132:134]); attr != 0 {
		t.Errorf("attribute count = %d, want 0", attr)
	}
	if b[0] != ' ' || b[79] != ' ' {
		t.Error("empty header not space padded")
	}
}

func TestReadSTLSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tetra.stl")
	if err := SaveSTL(path, "", tetraTriangles()); err != nil {
		t.Fatalf("SaveSTL: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated record", b[:len(b)-10]},
		{"trailing bytes", append(append([]byte{}, b...), 0, 0)},
		{"short header", b[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, "bad.stl")
			if err := os.WriteFile(p, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := ReadSTL(p); err == nil {
				t.Error("ReadSTL() succeeded, want error")
			}
		})
	}
}

func TestWriteSTLASCII(t *testing.T) {
	var buf bytes.Buffer
	tri := pivot.Triangle{{}, {X: 1}, {Y: 1}}
	if err := WriteSTLASCII(&buf, "part", []pivot.Triangle{tri}); err != nil {
		t.Fatalf("WriteSTLASCII: %v", err)
	}
	want := `solid part
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid part
`
	if got := buf.String(); got != want {
		t.Errorf("WriteSTLASCII() =\n%s\nwant\n%s", got, want)
	}
}

// --- files ---

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatSTL, false},
		{"stl", FormatSTL, false},
		{"STL-ASCII", FormatSTLASCII, false},
		{"ply", FormatPLY, false},
		{"obj", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if tt.wantErr && errors.Cause(err) != ErrUnknownFormat {
			t.Errorf("ParseFormat(%q) cause = %v, want ErrUnknownFormat", tt.in, errors.Cause(err))
		}
	}
}

func TestSaveAndLoadCloud(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cloud.xyz", "nested/cloud.PLY"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveCloud(path, samplePoints()); err != nil {
				t.Fatalf("SaveCloud: %v", err)
			}
			got, err := LoadCloud(path)
			if err != nil {
				t.Fatalf("LoadCloud: %v", err)
			}
			equalPoints(t, got, samplePoints())
		})
	}
}

func TestLoadCloudUnknownExtension(t *testing.T) {
	_, err := LoadCloud(filepath.Join(t.TempDir(), "cloud.obj"))
	if errors.Cause(err) != ErrUnknownFormat {
		t.Errorf("LoadCloud() error = %v, want ErrUnknownFormat", err)
	}
	if err := SaveCloud(filepath.Join(t.TempDir(), "cloud.obj"), samplePoints()); errors.Cause(err) != ErrUnknownFormat {
		t.Errorf("SaveCloud() error = %v, want ErrUnknownFormat", err)
	}
}

func TestSaveMesh(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format Format
		prefix string
	}{
		{FormatSTL, "tetra"},
		{FormatSTLASCII, "solid tetra"},
		{FormatPLY, "ply\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			path := filepath.Join(dir, "out", "mesh"+tt.format.Ext())
			if err := SaveMesh(path, tt.format, "tetra", tetraTriangles()); err != nil {
				t.Fatalf("SaveMesh: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !strings.HasPrefix(string(data), tt.prefix) {
				t.Errorf("file starts with %q, want prefix %q", data[:min(len(data), 16)], tt.prefix)
			}
		})
	}

	bad := filepath.Join(dir, "bad.stl")
	if err := SaveMesh(bad, Format("obj"), "", tetraTriangles()); errors.Cause(err) != ErrUnknownFormat {
		t.Errorf("SaveMesh(obj) error = %v, want ErrUnknownFormat", err)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("failed SaveMesh left a file behind")
	}
}
