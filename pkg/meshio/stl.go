package meshio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/pivot"
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50 // normal, three vertices, attribute count
)

// SaveSTL writes triangles to path as binary STL. The header is truncated
// or space-padded to 80 bytes. Facet normals are recomputed from vertex
// order.
func SaveSTL(path, header string, tris []pivot.Triangle) error {
	if uint64(len(tris)) > math.MaxUint32 {
		return errors.Errorf("write stl: %d triangles exceed the format limit", len(tris))
	}
	mesh := make([]*sdf.Triangle3, len(tris))
	for i, t := range tris {
		mesh[i] = &sdf.Triangle3{t[0], t[1], t[2]}
	}
	if err := render.SaveSTL(path, mesh); err != nil {
		return errors.Wrap(err, "write stl")
	}
	return stampSTLHeader(path, header)
}

// stampSTLHeader overwrites the blank header render.SaveSTL leaves.
func stampSTLHeader(path, header string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrap(err, "write stl header")
	}
	var head [stlHeaderSize]byte
	for i := range head {
		head[i] = ' '
	}
	copy(head[:], header)
	if _, err := f.WriteAt(head[:], 0); err != nil {
		f.Close()
		return errors.Wrap(err, "write stl header")
	}
	return errors.Wrap(f.Close(), "write stl header")
}

// WriteSTLASCII writes triangles as an ASCII STL solid.
func WriteSTLASCII(w io.Writer, name string, tris []pivot.Triangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range tris {
		n := t.Normal()
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", float32(n.X), float32(n.Y), float32(n.Z))
		bw.WriteString("    outer loop\n")
		for _, v := range t {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", float32(v.X), float32(v.Y), float32(v.Z))
		}
		bw.WriteString("    endloop\n  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return errors.Wrap(bw.Flush(), "write stl")
}

// ReadSTL reads a binary STL file, returning its header and triangles.
// Stored facet normals are discarded. A file whose size does not match its
// triangle count is rejected.
func ReadSTL(path string) (string, []pivot.Triangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, errors.Wrap(err, "read stl")
	}
	defer f.Close()

	var head [stlHeaderSize]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return "", nil, errors.Wrap(err, "read stl header")
	}
	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return "", nil, errors.Wrap(err, "read stl triangle count")
	}
	info, err := f.Stat()
	if err != nil {
		return "", nil, errors.Wrap(err, "read stl")
	}
	if want := int64(stlHeaderSize+4) + int64(count)*stlRecordSize; info.Size() != want {
		return "", nil, errors.Errorf("read stl: %d bytes, want %d for %d triangles", info.Size(), want, count)
	}

	mesh, err := render.LoadSTL(path)
	if err != nil {
		return "", nil, errors.Wrap(err, "read stl")
	}
	tris := make([]pivot.Triangle, len(mesh))
	for i, t := range mesh {
		tris[i] = pivot.Triangle{t[0], t[1], t[2]}
	}
	return string(head[:]), tris, nil
}
