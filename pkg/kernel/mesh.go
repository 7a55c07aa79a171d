package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Vertices are not shared between triangles so each triangle can be
// colored independently; Triangles[i] is the ID of the i-th triangle.
type Mesh struct {
	Vertices  []float32    `json:"vertices"`  // [x0,y0,z0, x1,y1,z1, ...]
	Normals   []float32    `json:"normals"`   // [nx0,ny0,nz0, ...]
	Indices   []uint32     `json:"indices"`   // [i0,i1,i2, ...] triangles
	Triangles []TriangleID `json:"triangles"` // one per index triple
}

// NewMesh flattens triangles into render buffers. Normals are radial, which
// is exact for vertices on a sphere centered at the origin.
func NewMesh(tris []Triangle) *Mesh {
	m := &Mesh{
		Vertices:  make([]float32, 0, len(tris)*9),
		Normals:   make([]float32, 0, len(tris)*9),
		Indices:   make([]uint32, 0, len(tris)*3),
		Triangles: make([]TriangleID, 0, len(tris)),
	}
	for i, t := range tris {
		for j, v := range t.Face {
			l := v.Length()
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			if l == 0 {
				m.Normals = append(m.Normals, 0, 0, 0)
			} else {
				m.Normals = append(m.Normals, float32(v.X/l), float32(v.Y/l), float32(v.Z/l))
			}
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
		m.Triangles = append(m.Triangles, t.ID)
	}
	return m
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
