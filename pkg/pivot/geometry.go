package pivot

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/exp/constraints"
)

// emptinessEpsilon is the absolute tolerance on squared distance used when
// testing whether a ball is empty. Samples lying on the ball surface, such as
// the triangle's own vertices, must not count as inside.
const emptinessEpsilon = 1e-4

// degenerateSine2 is the squared sine of the smallest corner angle below which
// a triangle is treated as degenerate.
const degenerateSine2 = 1e-12

// Point is an input sample: a position and its unit surface normal.
type Point struct {
	Pos    v3.Vec
	Normal v3.Vec
}

// Triangle is an output face given by three absolute positions. Vertex order
// determines the outward normal.
type Triangle [3]v3.Vec

// Normal returns the unit normal (v0-v1)×(v0-v2), or the zero vector for a
// degenerate triangle.
func (t Triangle) Normal() v3.Vec {
	return faceNormal(t[0], t[1], t[2])
}

// Segment is a mesh edge given by its two endpoints.
type Segment [2]v3.Vec

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// faceNormal returns the normalized (a-b)×(a-c), or the zero vector when the
// points are collinear.
func faceNormal(a, b, c v3.Vec) v3.Vec {
	n := a.Sub(b).Cross(a.Sub(c))
	if n.Length2() == 0 {
		return v3.Vec{}
	}
	return n.Normalize()
}

// BallCenter returns the center of the ball of the given radius that touches
// a, b and c and lies on the side of the triangle's normal. It reports false
// when the triangle is degenerate or its circumradius exceeds radius.
func BallCenter(a, b, c v3.Vec, radius float64) (v3.Vec, bool) {
	ac := c.Sub(a)
	ab := b.Sub(a)
	abXac := ab.Cross(ac)

	cross2 := abXac.Length2()
	if cross2 <= degenerateSine2*ab.Length2()*ac.Length2() {
		return v3.Vec{}, false
	}

	toCirc := abXac.Cross(ab).MulScalar(ac.Length2()).
		Add(ac.Cross(abXac).MulScalar(ab.Length2())).
		DivScalar(2 * cross2)

	height2 := radius*radius - toCirc.Length2()
	if height2 < 0 {
		return v3.Vec{}, false
	}

	circumcenter := a.Add(toCirc)
	return circumcenter.Add(faceNormal(a, b, c).MulScalar(math.Sqrt(height2))), true
}

// ballIsEmpty reports whether no point lies strictly inside the ball, up to
// emptinessEpsilon.
func ballIsEmpty(center v3.Vec, points []*meshPoint, radius float64) bool {
	limit := radius*radius - emptinessEpsilon
	for _, p := range points {
		if p.pos.Sub(center).Length2() < limit {
			return false
		}
	}
	return true
}
