package pivot

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ballPivot rotates the ball of edge e around the edge axis, starting from
// e.center, and returns the first point it touches together with the new ball
// center. It reports false when no candidate yields an empty ball.
func (s *state) ballPivot(e *meshEdge) (*meshPoint, v3.Vec, bool) {
	m := e.a.pos.Add(e.b.pos).MulScalar(0.5)
	oldCenterVec := e.center.Sub(m).Normalize()
	axis := e.a.pos.Sub(e.b.pos)

	neighbors := s.grid.neighborhood(m, e.a, e.b, e.opposite)

	smallest := math.Inf(1)
	var (
		best       *meshPoint
		bestCenter v3.Vec
	)
	for _, p := range neighbors {
		n := faceNormal(e.b.pos, e.a.pos, p.pos)
		if p.normal.Dot(n) < 0 {
			continue
		}
		c, ok := BallCenter(e.b.pos, e.a.pos, p.pos, s.radius)
		if !ok {
			continue
		}
		newCenterVec := c.Sub(m).Normalize()
		if newCenterVec.Dot(n) < 0 {
			continue
		}
		if p.hasInnerEdgeTo(e.a) || p.hasInnerEdgeTo(e.b) {
			continue
		}

		angle := math.Acos(clamp(oldCenterVec.Dot(newCenterVec), -1, 1))
		if newCenterVec.Cross(oldCenterVec).Dot(axis) < 0 {
			angle += math.Pi
		}
		if angle < smallest {
			smallest = angle
			best = p
			bestCenter = c
		}
	}

	if best == nil {
		s.log.Debug("pivot found no candidate", "edge", e, "neighbors", len(neighbors))
		return nil, v3.Vec{}, false
	}
	if !ballIsEmpty(bestCenter, neighbors, s.radius) {
		s.log.Debug("pivot ball not empty", "edge", e, "point", best.index)
		return nil, v3.Vec{}, false
	}
	s.log.Debug("pivot", "edge", e, "point", best.index, "angle", smallest)
	return best, bestCenter, true
}
