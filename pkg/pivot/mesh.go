package pivot

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// EdgeStatus is the lifecycle state of a front edge.
type EdgeStatus int

const (
	Active   EdgeStatus = iota // eligible for pivoting
	Inner                      // consumed, interior to the mesh
	Boundary                   // no empty ball pivots around it
)

func (s EdgeStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Inner:
		return "inner"
	case Boundary:
		return "boundary"
	default:
		return fmt.Sprintf("EdgeStatus(%d)", int(s))
	}
}

// meshPoint is the reconstruction-time vertex for one input sample.
type meshPoint struct {
	pos    v3.Vec
	normal v3.Vec
	index  int // position in the input slice
	used   bool
	edges  []*meshEdge
}

// onFront reports whether the point has at least one active incident edge.
func (p *meshPoint) onFront() bool {
	for _, e := range p.edges {
		if e.status == Active {
			return true
		}
	}
	return false
}

// hasInnerEdgeTo reports whether an inner edge already connects p and q.
func (p *meshPoint) hasInnerEdgeTo(q *meshPoint) bool {
	for _, e := range p.edges {
		if e.status != Inner {
			continue
		}
		if (e.a == p && e.b == q) || (e.a == q && e.b == p) {
			return true
		}
	}
	return false
}

// meshEdge is a directed edge a→b of the front. opposite is the third vertex
// of the triangle the edge was created from and center is that triangle's
// ball center.
type meshEdge struct {
	a, b     *meshPoint
	opposite *meshPoint
	center   v3.Vec
	prev     *meshEdge
	next     *meshEdge
	status   EdgeStatus
}

func (e *meshEdge) String() string {
	return fmt.Sprintf("%d->%d (%s)", e.a.index, e.b.index, e.status)
}

func (e *meshEdge) segment() Segment {
	return Segment{e.a.pos, e.b.pos}
}
