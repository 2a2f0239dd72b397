package meshio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// Format names a mesh output encoding.
type Format string

const (
	FormatSTL      Format = "stl"       // binary STL
	FormatSTLASCII Format = "stl-ascii" // ASCII STL
	FormatPLY      Format = "ply"       // binary little-endian PLY mesh
)

// ParseFormat validates a format name. The empty string selects FormatSTL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatSTL, nil
	case FormatSTL, FormatSTLASCII, FormatPLY:
		return f, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "mesh format %q", s)
	}
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	if f == FormatPLY {
		return ".ply"
	}
	return ".stl"
}

// LoadCloud reads an oriented point cloud, choosing the reader by file
// extension: .xyz or .ply.
func LoadCloud(path string) ([]pivot.Point, error) {
	var read func(io.Reader) ([]pivot.Point, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xyz":
		read = ReadXYZ
	case ".ply":
		read = ReadPLY
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "load %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load cloud")
	}
	defer f.Close()

	points, err := read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return points, nil
}

// SaveMesh writes triangles to path in the given format, creating parent
// directories as needed. name is stored in the file header.
func SaveMesh(path string, format Format, name string, tris []pivot.Triangle) error {
	if format == FormatSTL {
		if err := makeParent(path); err != nil {
			return err
		}
		if err := SaveSTL(path, name, tris); err != nil {
			os.Remove(path)
			return errors.Wrapf(err, "save %s", path)
		}
		return nil
	}
	return create(path, func(w io.Writer) error {
		switch format {
		case FormatSTLASCII:
			return WriteSTLASCII(w, name, tris)
		case FormatPLY:
			return WritePLYMesh(w, kernel.FromTriangles(name, tris))
		default:
			return errors.Wrapf(ErrUnknownFormat, "mesh format %q", format)
		}
	})
}

// SaveCloud writes points to path, choosing the writer by file extension:
// .xyz or .ply (with normals).
func SaveCloud(path string, points []pivot.Point) error {
	var write func(io.Writer) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xyz":
		write = func(w io.Writer) error { return WriteXYZ(w, points) }
	case ".ply":
		write = func(w io.Writer) error { return WritePLYPoints(w, points, true) }
	default:
		return errors.Wrapf(ErrUnknownFormat, "save %s", path)
	}
	return create(path, write)
}

func makeParent(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}
	return nil
}

func create(path string, write func(io.Writer) error) error {
	if err := makeParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrapf(err, "save %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
