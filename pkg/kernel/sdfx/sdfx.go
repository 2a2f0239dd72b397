// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/ballpivot/pkg/kernel"
	"github.com/chazu/ballpivot/pkg/pivot"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// defaultMeshCells controls marching cubes tessellation resolution.
	defaultMeshCells = 200

	// maxSampleCells bounds the marching cubes lattice used by Sample.
	maxSampleCells = 400
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Sphere creates a sphere centered on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Box creates a box with the given dimensions, centered on the origin.
func (k *SdfxKernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder along Z, centered on the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a welded triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	return kernel.FromTriangles("", polygonize(unwrap(s), defaultMeshCells)), nil
}

// Sample polygonizes the surface on a lattice of roughly spacing-sized
// cells and keeps one marching cubes vertex per spacing/2 cell. Each point's
// normal is the normalized SDF gradient there.
func (k *SdfxKernel) Sample(s kernel.Solid, spacing float64) ([]pivot.Point, error) {
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return nil, fmt.Errorf("sdfx: sample spacing %v is not a positive finite number", spacing)
	}
	sdf3 := unwrap(s)
	bb := sdf3.BoundingBox()
	size := bb.Max.Sub(bb.Min)
	cells := int(math.Ceil(max(size.X, size.Y, size.Z) / spacing))
	if cells > maxSampleCells {
		return nil, fmt.Errorf("sdfx: sample spacing %v needs %d cells, limit is %d", spacing, cells, maxSampleCells)
	}

	thin := spacing / 2
	h := spacing * 1e-3
	seen := make(map[[3]int64]bool)
	var points []pivot.Point
	for _, tri := range polygonize(sdf3, max(cells, 2)) {
		for _, v := range tri {
			key := [3]int64{
				int64(math.Floor(v.X / thin)),
				int64(math.Floor(v.Y / thin)),
				int64(math.Floor(v.Z / thin)),
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			n := gradient(sdf3, v, h)
			if n.Length2() == 0 {
				n = tri.Normal()
				if n.Length2() == 0 {
					continue
				}
			}
			points = append(points, pivot.Point{Pos: v, Normal: n.Normalize()})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("sdfx: solid has no surface at spacing %v", spacing)
	}
	return points, nil
}

// polygonize runs uniform marching cubes over s.
func polygonize(s sdf.SDF3, cells int) []pivot.Triangle {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	out := make([]pivot.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		out = append(out, pivot.Triangle{tri[0], tri[1], tri[2]})
	}
	return out
}

// gradient estimates the SDF gradient at p by central differences.
func gradient(s sdf.SDF3, p v3.Vec, h float64) v3.Vec {
	dx := v3.Vec{X: h}
	dy := v3.Vec{Y: h}
	dz := v3.Vec{Z: h}
	return v3.Vec{
		X: s.Evaluate(p.Add(dx)) - s.Evaluate(p.Sub(dx)),
		Y: s.Evaluate(p.Add(dy)) - s.Evaluate(p.Sub(dy)),
		Z: s.Evaluate(p.Add(dz)) - s.Evaluate(p.Sub(dz)),
	}
}
