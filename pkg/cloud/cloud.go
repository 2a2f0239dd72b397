// Package cloud provides reference point clouds and checks on oriented
// clouds before they are handed to the reconstructor.
package cloud

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/ballpivot/pkg/pivot"
)

// UVSphere samples the unit sphere on a latitude/longitude lattice. The
// result starts at the south pole, continues with stacks-1 rings for each of
// the slices meridians, and ends at the north pole. Normals equal positions.
func UVSphere(slices, stacks int) []pivot.Point {
	points := []pivot.Point{{Pos: v3.Vec{Z: -1}, Normal: v3.Vec{Z: -1}}}
	for slice := 0; slice < slices; slice++ {
		yaw := float64(slice) / float64(slices) * 2 * math.Pi
		for stack := 1; stack < stacks; stack++ {
			z := math.Sin((float64(stack)/float64(stacks) - 0.5) * math.Pi)
			r := math.Sqrt(1 - z*z)
			p := v3.Vec{X: r * math.Sin(yaw), Y: r * math.Cos(yaw), Z: z}
			points = append(points, pivot.Point{Pos: p, Normal: p})
		}
	}
	return append(points, pivot.Point{Pos: v3.Vec{Z: 1}, Normal: v3.Vec{Z: 1}})
}

// Tetrahedron returns the origin corner of the unit cube and its three axis
// neighbours, with outward normals.
func Tetrahedron() []pivot.Point {
	return []pivot.Point{
		{Pos: v3.Vec{}, Normal: v3.Vec{X: -1, Y: -1, Z: -1}.Normalize()},
		{Pos: v3.Vec{Y: 1}, Normal: v3.Vec{Y: 1}},
		{Pos: v3.Vec{X: 1}, Normal: v3.Vec{X: 1}},
		{Pos: v3.Vec{Z: 1}, Normal: v3.Vec{Z: 1}},
	}
}

// Cube returns the eight corners of the cube [-1,1]³ with normals pointing
// away from its center.
func Cube() []pivot.Point {
	corners := []v3.Vec{
		{X: -1, Y: -1, Z: -1},
		{X: -1, Y: 1, Z: -1},
		{X: 1, Y: 1, Z: -1},
		{X: 1, Y: -1, Z: -1},
		{X: -1, Y: -1, Z: 1},
		{X: -1, Y: 1, Z: 1},
		{X: 1, Y: 1, Z: 1},
		{X: 1, Y: -1, Z: 1},
	}
	points := make([]pivot.Point, len(corners))
	for i, c := range corners {
		points[i] = pivot.Point{Pos: c, Normal: c.Normalize()}
	}
	return points
}

// Translate returns a copy of points moved by offset.
func Translate(points []pivot.Point, offset v3.Vec) []pivot.Point {
	out := make([]pivot.Point, len(points))
	for i, p := range points {
		out[i] = pivot.Point{Pos: p.Pos.Add(offset), Normal: p.Normal}
	}
	return out
}

// Scale returns a copy of points scaled uniformly about the origin.
func Scale(points []pivot.Point, factor float64) []pivot.Point {
	out := make([]pivot.Point, len(points))
	for i, p := range points {
		out[i] = pivot.Point{Pos: p.Pos.MulScalar(factor), Normal: p.Normal}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of a non-empty cloud.
func Bounds(points []pivot.Point) (lower, upper v3.Vec) {
	lower, upper = points[0].Pos, points[0].Pos
	for _, p := range points[1:] {
		lower = lower.Min(p.Pos)
		upper = upper.Max(p.Pos)
	}
	return lower, upper
}
