package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/ballpivot/pkg/pivot"
)

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 // [nx0,ny0,nz0, ...]
	Indices  []uint32  // [i0,i1,i2, ...] triangles
	Name     string
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// FromTriangles welds a triangle soup into an indexed mesh. Vertices are
// merged when their float32 positions are identical, in first-seen order.
// Vertex normals are the normalized sum of the incident face normals.
func FromTriangles(name string, tris []pivot.Triangle) *Mesh {
	m := &Mesh{Name: name, Indices: make([]uint32, 0, len(tris)*3)}
	index := make(map[[3]float32]uint32)

	for _, t := range tris {
		for _, v := range t {
			key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
			i, ok := index[key]
			if !ok {
				i = uint32(len(m.Vertices) / 3)
				index[key] = i
				m.Vertices = append(m.Vertices, key[0], key[1], key[2])
			}
			m.Indices = append(m.Indices, i)
		}
	}
	m.Normals = vertexNormals(m.Vertices, m.Indices)
	return m
}

// vertexNormals averages the area-weighted face normals incident on each
// vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	sums := make([]v3.Vec, len(vertices)/3)
	for t := 0; t+2 < len(indices); t += 3 {
		a := vertexAt(vertices, indices[t])
		b := vertexAt(vertices, indices[t+1])
		c := vertexAt(vertices, indices[t+2])
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range indices[t : t+3] {
			sums[idx] = sums[idx].Add(n)
		}
	}

	normals := make([]float32, len(vertices))
	for i, n := range sums {
		if l := n.Length(); l > 1e-12 {
			n = n.DivScalar(l)
		}
		normals[i*3+0] = float32(n.X)
		normals[i*3+1] = float32(n.Y)
		normals[i*3+2] = float32(n.Z)
	}
	return normals
}

func vertexAt(vertices []float32, i uint32) v3.Vec {
	return v3.Vec{
		X: float64(vertices[i*3]),
		Y: float64(vertices[i*3+1]),
		Z: float64(vertices[i*3+2]),
	}
}

// Triangles expands the mesh back into a triangle soup.
func (m *Mesh) Triangles() []pivot.Triangle {
	tris := make([]pivot.Triangle, 0, m.TriangleCount())
	for t := 0; t+2 < len(m.Indices); t += 3 {
		tris = append(tris, pivot.Triangle{
			vertexAt(m.Vertices, m.Indices[t]),
			vertexAt(m.Vertices, m.Indices[t+1]),
			vertexAt(m.Vertices, m.Indices[t+2]),
		})
	}
	return tris
}

// Edge is an undirected mesh edge, lower vertex index first.
type Edge [2]uint32

func makeEdge(a, b uint32) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeUse counts how many triangles use each undirected edge.
func (m *Mesh) EdgeUse() map[Edge]int {
	use := make(map[Edge]int)
	for t := 0; t+2 < len(m.Indices); t += 3 {
		i, j, k := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		use[makeEdge(i, j)]++
		use[makeEdge(j, k)]++
		use[makeEdge(k, i)]++
	}
	return use
}

// IsClosedManifold reports whether the mesh is non-empty and every edge is
// shared by exactly two triangles.
func (m *Mesh) IsClosedManifold() bool {
	use := m.EdgeUse()
	if len(use) == 0 {
		return false
	}
	for _, n := range use {
		if n != 2 {
			return false
		}
	}
	return true
}

// BoundaryEdgeCount returns the number of edges used by a single triangle.
func (m *Mesh) BoundaryEdgeCount() int {
	count := 0
	for _, n := range m.EdgeUse() {
		if n == 1 {
			count++
		}
	}
	return count
}

// IsConsistentlyOriented reports whether no directed edge appears in more
// than one triangle, i.e. adjacent triangles wind the same way.
func (m *Mesh) IsConsistentlyOriented() bool {
	seen := make(map[[2]uint32]bool)
	for t := 0; t+2 < len(m.Indices); t += 3 {
		tri := m.Indices[t : t+3]
		for i := range tri {
			e := [2]uint32{tri[i], tri[(i+1)%3]}
			if seen[e] {
				return false
			}
			seen[e] = true
		}
	}
	return true
}

// Bounds returns the axis-aligned bounding box of the vertices, or zero
// vectors for an empty mesh.
func (m *Mesh) Bounds() (lower, upper v3.Vec) {
	if m.IsEmpty() {
		return v3.Vec{}, v3.Vec{}
	}
	lower = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	upper = lower.MulScalar(-1)
	for i := 0; i < m.VertexCount(); i++ {
		v := vertexAt(m.Vertices, uint32(i))
		lower = lower.Min(v)
		upper = upper.Max(v)
	}
	return lower, upper
}
