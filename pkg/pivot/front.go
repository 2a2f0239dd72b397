package pivot

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Glue cases, in the order glue tests them.
const (
	glueLoop     = iota // the two edges form an isolated 2-cycle
	glueForward         // a.next == b
	glueBackward        // a.prev == b
	glueGeneral         // non-adjacent fold, splits the loop in two
)

// activeEdge returns the most recently pushed active edge, discarding any
// consumed or boundary edges sitting above it. It returns nil once the front
// holds no active edge.
func (s *state) activeEdge() *meshEdge {
	for len(s.front) > 0 {
		e := s.front[len(s.front)-1]
		if e.status == Active {
			return e
		}
		s.front = s.front[:len(s.front)-1]
	}
	return nil
}

// newEdge creates an edge, records it and pushes it onto the front stack.
func (s *state) newEdge(a, b, opposite *meshPoint, center v3.Vec) *meshEdge {
	e := &meshEdge{a: a, b: b, opposite: opposite, center: center}
	s.edges = append(s.edges, e)
	s.front = append(s.front, e)
	return e
}

// join replaces eij on the front with eik and ekj, incorporating k.
func (s *state) join(eij *meshEdge, k *meshPoint, center v3.Vec) (eik, ekj *meshEdge) {
	if eij.prev == nil || eij.next == nil {
		panic(fmt.Sprintf("pivot: join on unlinked edge %v", eij))
	}

	eik = s.newEdge(eij.a, k, eij.b, center)
	ekj = s.newEdge(k, eij.b, eij.a, center)

	eik.next = ekj
	ekj.prev = eik

	eik.prev = eij.prev
	eij.prev.next = eik

	ekj.next = eij.next
	eij.next.prev = ekj

	eij.a.edges = append(eij.a.edges, eik)
	eij.b.edges = append(eij.b.edges, ekj)
	k.edges = append(k.edges, eik, ekj)
	k.used = true

	eij.status = Inner
	return eik, ekj
}

// findReverseEdge returns the live edge running opposite to e between the
// same two points, if the front has folded onto itself there.
func findReverseEdge(e *meshEdge) *meshEdge {
	for _, c := range e.a.edges {
		if c.status != Inner && c.a == e.b && c.b == e.a {
			return c
		}
	}
	return nil
}

// glue removes the reverse pair a, b from the front, reconnecting their
// neighbours, and marks both inner.
func (s *state) glue(a, b *meshEdge) {
	if a.prev == nil || a.next == nil || b.prev == nil || b.next == nil {
		panic(fmt.Sprintf("pivot: glue on unlinked edges %v, %v", a, b))
	}

	switch {
	case a.next == b && a.prev == b && b.next == a && b.prev == a:
		s.stats.Glues[glueLoop]++
	case a.next == b && b.prev == a:
		a.prev.next = b.next
		b.next.prev = a.prev
		s.stats.Glues[glueForward]++
	case a.prev == b && b.next == a:
		// Mirror of the forward case: splice b.prev to a.next.
		b.prev.next = a.next
		a.next.prev = b.prev
		s.stats.Glues[glueBackward]++
	default:
		a.prev.next = b.next
		b.next.prev = a.prev
		a.next.prev = b.prev
		b.prev.next = a.next
		s.stats.Glues[glueGeneral]++
	}

	a.status = Inner
	b.status = Inner
}

// checkFront verifies that every live edge is consistently linked to its
// neighbours.
func checkFront(edges []*meshEdge) error {
	for _, e := range edges {
		if e.status == Inner {
			continue
		}
		if e.next == nil || e.prev == nil {
			return fmt.Errorf("edge %v is unlinked", e)
		}
		if e.next.prev != e {
			return fmt.Errorf("edge %v: next.prev is %v", e, e.next.prev)
		}
		if e.prev.next != e {
			return fmt.Errorf("edge %v: prev.next is %v", e, e.prev.next)
		}
	}
	return nil
}
