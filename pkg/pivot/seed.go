package pivot

import (
	"cmp"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// seed is the first triangle of a reconstruction and its ball center.
type seed struct {
	face   [3]*meshPoint
	center v3.Vec
}

// averageNormal returns the normalized sum of the cell's normals and whether
// that sum is usable as an orientation reference.
func averageNormal(cell []*meshPoint) (v3.Vec, bool) {
	var sum v3.Vec
	for _, p := range cell {
		sum = sum.Add(p.normal)
	}
	if sum.Length2() == 0 {
		return v3.Vec{}, false
	}
	return sum.Normalize(), true
}

// findSeedTriangle scans the cells in storage order and returns the first
// triangle whose ball is empty and whose normal agrees with the cell's
// average normal. The three vertices are marked used.
func (s *state) findSeedTriangle() (seed, bool) {
	for _, cell := range s.grid.cells {
		if len(cell) == 0 {
			continue
		}
		avg, oriented := averageNormal(cell)

		for _, p1 := range cell {
			neighbors := s.grid.neighborhood(p1.pos, p1)
			slices.SortStableFunc(neighbors, func(a, b *meshPoint) int {
				return cmp.Compare(a.pos.Sub(p1.pos).Length2(), b.pos.Sub(p1.pos).Length2())
			})

			for _, p2 := range neighbors {
				for _, p3 := range neighbors {
					if p2 == p3 {
						continue
					}
					s.stats.SeedCandidates++

					if oriented && faceNormal(p1.pos, p2.pos, p3.pos).Dot(avg) < 0 {
						continue
					}
					center, ok := BallCenter(p1.pos, p2.pos, p3.pos, s.radius)
					if !ok {
						continue
					}
					if !ballIsEmpty(center, neighbors, s.radius) {
						continue
					}

					p1.used, p2.used, p3.used = true, true, true
					return seed{face: [3]*meshPoint{p1, p2, p3}, center: center}, true
				}
			}
		}
	}
	return seed{}, false
}
