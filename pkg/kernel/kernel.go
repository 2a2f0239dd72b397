// Package kernel defines the implicit-solid interface used to synthesize
// oriented point clouds, and the indexed mesh that reconstructions are
// welded into for output and topology checks.
package kernel

import "github.com/chazu/ballpivot/pkg/pivot"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds solids and turns their surfaces into geometry.
type Kernel interface {
	// Primitives, centered on the origin
	Sphere(radius float64) Solid
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh polygonizes the surface.
	ToMesh(s Solid) (*Mesh, error)

	// Sample returns points on the surface roughly spacing apart, each with
	// its outward unit normal.
	Sample(s Solid, spacing float64) ([]pivot.Point, error)
}
