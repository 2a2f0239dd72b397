package pivot

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

type cellCoord struct {
	x, y, z int
}

// grid buckets points into cubic cells of edge 2*radius so that every point
// within a ball's reach of a query lies in the 3x3x3 block around it.
type grid struct {
	cellSize float64
	lower    v3.Vec
	dims     cellCoord
	cells    [][]*meshPoint
	points   []*meshPoint
}

// newGrid builds the grid over points. It panics on an empty cloud or a
// radius that is not a positive finite number.
func newGrid(points []Point, radius float64) *grid {
	if len(points) == 0 {
		panic("pivot: grid over an empty point cloud")
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		panic("pivot: radius must be a positive finite number")
	}

	lower, upper := points[0].Pos, points[0].Pos
	for _, p := range points[1:] {
		lower = lower.Min(p.Pos)
		upper = upper.Max(p.Pos)
	}

	g := &grid{
		cellSize: 2 * radius,
		lower:    lower,
	}
	extent := upper.Sub(lower)
	g.dims = cellCoord{
		x: max(int(math.Ceil(extent.X/g.cellSize)), 1),
		y: max(int(math.Ceil(extent.Y/g.cellSize)), 1),
		z: max(int(math.Ceil(extent.Z/g.cellSize)), 1),
	}
	g.cells = make([][]*meshPoint, g.dims.x*g.dims.y*g.dims.z)
	g.points = make([]*meshPoint, len(points))

	for i, p := range points {
		mp := &meshPoint{pos: p.Pos, normal: p.Normal, index: i}
		g.points[i] = mp
		k := g.storageIndex(g.cellIndex(p.Pos))
		g.cells[k] = append(g.cells[k], mp)
	}
	return g
}

// cellIndex returns the cell containing p, clamped to the grid bounds.
func (g *grid) cellIndex(p v3.Vec) cellCoord {
	rel := p.Sub(g.lower).DivScalar(g.cellSize)
	return cellCoord{
		x: clamp(int(math.Floor(rel.X)), 0, g.dims.x-1),
		y: clamp(int(math.Floor(rel.Y)), 0, g.dims.y-1),
		z: clamp(int(math.Floor(rel.Z)), 0, g.dims.z-1),
	}
}

func (g *grid) storageIndex(c cellCoord) int {
	return c.z*g.dims.x*g.dims.y + c.y*g.dims.x + c.x
}

func (g *grid) inBounds(c cellCoord) bool {
	return c.x >= 0 && c.x < g.dims.x &&
		c.y >= 0 && c.y < g.dims.y &&
		c.z >= 0 && c.z < g.dims.z
}

// neighborhood returns the points of the 3x3x3 cell block around p that lie
// strictly closer than one cell size, excluding the ignored points.
func (g *grid) neighborhood(p v3.Vec, ignore ...*meshPoint) []*meshPoint {
	center := g.cellIndex(p)
	limit := g.cellSize * g.cellSize

	var result []*meshPoint
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				c := cellCoord{center.x + dx, center.y + dy, center.z + dz}
				if !g.inBounds(c) {
					continue
				}
			cell:
				for _, q := range g.cells[g.storageIndex(c)] {
					if q.pos.Sub(p).Length2() >= limit {
						continue
					}
					for _, skip := range ignore {
						if q == skip {
							continue cell
						}
					}
					result = append(result, q)
				}
			}
		}
	}
	return result
}
