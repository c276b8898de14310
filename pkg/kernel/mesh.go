package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Label    string    `json:"label"`    // which surface this came from
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

// Vertex returns vertex i as a vector.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[i*3]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// Triangle returns the vertex indices of triangle t.
func (m *Mesh) Triangle(t int) [3]uint32 {
	return [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
}

// Bounds returns the per-axis minimum and maximum vertex coordinates. Both
// are zero for an empty mesh.
func (m *Mesh) Bounds() (lo, hi [3]float32) {
	if m.IsEmpty() {
		return lo, hi
	}
	copy(lo[:], m.Vertices[:3])
	copy(hi[:], m.Vertices[:3])
	for i := 3; i < len(m.Vertices); i++ {
		a := i % 3
		lo[a] = min(lo[a], m.Vertices[i])
		hi[a] = max(hi[a], m.Vertices[i])
	}
	return lo, hi
}

// ComputeNormals replaces Normals with per-vertex normals obtained by
// summing the (area-weighted) face normals of all triangles incident on
// each vertex.
func (m *Mesh) ComputeNormals() {
	numVerts := m.VertexCount()
	normals := make([]float64, numVerts*3)

	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := m.Vertex(int(tri[0])), m.Vertex(int(tri[1])), m.Vertex(int(tri[2]))
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range tri {
			normals[idx*3+0] += n.X
			normals[idx*3+1] += n.Y
			normals[idx*3+2] += n.Z
		}
	}

	m.Normals = make([]float32, numVerts*3)
	for i := 0; i < numVerts; i++ {
		nx, ny, nz := normals[i*3], normals[i*3+1], normals[i*3+2]
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length > 1e-12 {
			m.Normals[i*3+0] = float32(nx / length)
			m.Normals[i*3+1] = float32(ny / length)
			m.Normals[i*3+2] = float32(nz / length)
		}
	}
}

// Builder accumulates a mesh triangle by triangle.
type Builder struct {
	mesh Mesh
}

// NewBuilder returns a builder for a mesh with the given label.
func NewBuilder(label string) *Builder {
	return &Builder{mesh: Mesh{Label: label}}
}

// AddVertex appends a vertex and returns its index.
func (b *Builder) AddVertex(p v3.Vec) uint32 {
	idx := uint32(len(b.mesh.Vertices) / 3)
	b.mesh.Vertices = append(b.mesh.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	return idx
}

// AddTriangle appends a triangle over existing vertices.
func (b *Builder) AddTriangle(i0, i1, i2 uint32) {
	b.mesh.Indices = append(b.mesh.Indices, i0, i1, i2)
}

// Mesh finishes the mesh, computing normals. The builder must not be used
// afterwards.
func (b *Builder) Mesh() *Mesh {
	m := &b.mesh
	if m.Vertices == nil {
		m.Vertices = []float32{}
		m.Indices = []uint32{}
	}
	m.ComputeNormals()
	return m
}
