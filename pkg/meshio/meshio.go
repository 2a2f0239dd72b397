// Package meshio reads oriented point clouds (XYZ, PLY) and writes
// reconstructed meshes (STL, PLY).
package meshio

import "github.com/pkg/errors"

var (
	// ErrUnknownFormat is returned for unsupported file extensions, format
	// names and PLY encodings.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrMissingProperty is returned when a PLY vertex element lacks a
	// position or normal coordinate.
	ErrMissingProperty = errors.New("missing vertex property")
)
