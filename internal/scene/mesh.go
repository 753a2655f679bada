// internal/scene/mesh.go
//
// CPU-side mesh construction and the GPU buffers behind it
package scene

import (
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is a triangle mesh on the CPU: interleaved position (3) and
// normal (3) per vertex, indexed.
type MeshData struct {
	Vertices []float32 // x y z nx ny nz
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (m *MeshData) VertexCount() int {
	return len(m.Vertices) / 6
}

// UnitSphere builds a UV sphere of radius 1 centered on the origin.
// rings and sectors must each be at least 3.
func UnitSphere(rings, sectors int) *MeshData {
	if rings < 3 {
		rings = 3
	}
	if sectors < 3 {
		sectors = 3
	}

	m := &MeshData{
		Vertices: make([]float32, 0, (rings+1)*(sectors+1)*6),
		Indices:  make([]uint32, 0, rings*sectors*6),
	}

	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= sectors; s++ {
			theta := 2 * math.Pi * float64(s) / float64(sectors)

			x := float32(math.Sin(phi) * math.Cos(theta))
			y := float32(math.Cos(phi))
			z := float32(math.Sin(phi) * math.Sin(theta))

			// unit sphere: the normal is the position
			m.Vertices = append(m.Vertices, x, y, z, x, y, z)
		}
	}

	stride := uint32(sectors + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(sectors); s++ {
			i0 := r*stride + s
			i1 := i0 + 1
			i2 := i0 + stride
			i3 := i2 + 1
			m.Indices = append(m.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return m
}

// Bounds returns the axis-aligned bounding box of the mesh.
func (m *MeshData) Bounds() (min, max mgl32.Vec3) {
	if m.VertexCount() == 0 {
		return
	}
	min = mgl32.Vec3{m.Vertices[0], m.Vertices[1], m.Vertices[2]}
	max = min
	for i := 0; i < len(m.Vertices); i += 6 {
		for c := 0; c < 3; c++ {
			v := m.Vertices[i+c]
			if v < min[c] {
				min[c] = v
			}
			if v > max[c] {
				max[c] = v
			}
		}
	}
	return min, max
}

// Mesh is a MeshData uploaded to the GPU.
type Mesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
}

// Upload creates the GPU buffers for the mesh. Attribute 0 is position,
// attribute 1 is normal; instance attributes start at 2.
func (m *MeshData) Upload() *Mesh {
	mesh := &Mesh{indexCount: int32(len(m.Indices))}

	gl.GenVertexArrays(1, &mesh.vao)
	gl.BindVertexArray(mesh.vao)

	gl.GenBuffers(1, &mesh.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, mesh.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(m.Vertices)*4, gl.Ptr(m.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &mesh.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, mesh.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 6*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 6*4, 3*4)

	gl.BindVertexArray(0)
	return mesh
}

// Destroy releases the GPU buffers.
func (m *Mesh) Destroy() {
	if m.vao != 0 {
		gl.DeleteVertexArrays(1, &m.vao)
		m.vao = 0
	}
	if m.vbo != 0 {
		gl.DeleteBuffers(1, &m.vbo)
		m.vbo = 0
	}
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
		m.ebo = 0
	}
}
