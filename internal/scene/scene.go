// internal/scene/scene.go
//
// Scene contents and the geometry pass that fills the G-buffer
package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mdview/mdview/internal/render"
)

// Atom is one pickable sphere instance. Index is the value the picking
// attachment carries for pixels this atom covers.
type Atom struct {
	Position mgl32.Vec3
	Radius   float32
	Color    mgl32.Vec4
	Index    uint32
}

// atomInstance is the GPU layout of one instance: position+radius,
// color, picking index.
type atomInstance struct {
	posRadius [4]float32
	color     [4]float32
	index     uint32
	_         [3]uint32
}

const atomInstanceStride = int32(48)

// Scene holds the drawable content and the geometry-pass program. It draws
// into a bound G-buffer with all five color attachments active.
type Scene struct {
	sphere    *Mesh
	instances uint32
	atomCount int32

	meshes     []meshEntry
	shader     *render.Shader
	meshShader *render.Shader

	// previous-frame view-projection for per-object velocity
	prevMVP mgl32.Mat4
	hasPrev bool
}

// meshEntry is one surface mesh with its fixed color and picking index.
type meshEntry struct {
	mesh  *Mesh
	color mgl32.Vec4
	index uint32
}

// New creates an empty scene. Requires a current GL context.
func New() (*Scene, error) {
	sh, err := render.NewShaderFromSource(geometryVertSrc, geometryFragSrc)
	if err != nil {
		return nil, fmt.Errorf("geometry shader: %w", err)
	}
	msh, err := render.NewShaderFromSource(meshVertSrc, geometryFragSrc)
	if err != nil {
		sh.Delete()
		return nil, fmt.Errorf("mesh shader: %w", err)
	}

	s := &Scene{shader: sh, meshShader: msh}
	s.sphere = UnitSphere(24, 32).Upload()

	gl.GenBuffers(1, &s.instances)

	// instance attributes live in the sphere's VAO
	gl.BindVertexArray(s.sphere.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.instances)

	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, atomInstanceStride, 0)
	gl.VertexAttribDivisor(2, 1)

	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointerWithOffset(3, 4, gl.FLOAT, false, atomInstanceStride, 16)
	gl.VertexAttribDivisor(3, 1)

	gl.EnableVertexAttribArray(4)
	gl.VertexAttribIPointerWithOffset(4, 1, gl.UNSIGNED_INT, atomInstanceStride, 32)
	gl.VertexAttribDivisor(4, 1)

	gl.BindVertexArray(0)
	return s, nil
}

// SetAtoms replaces the instanced sphere set.
func (s *Scene) SetAtoms(atoms []Atom) {
	s.atomCount = int32(len(atoms))
	if len(atoms) == 0 {
		return
	}

	data := make([]atomInstance, len(atoms))
	for i, a := range atoms {
		data[i] = atomInstance{
			posRadius: [4]float32{a.Position.X(), a.Position.Y(), a.Position.Z(), a.Radius},
			color:     [4]float32{a.Color.X(), a.Color.Y(), a.Color.Z(), a.Color.W()},
			index:     a.Index,
		}
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, s.instances)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*int(atomInstanceStride), gl.Ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// AddMesh uploads a surface mesh drawn with a fixed color; index is the
// picking value its pixels report.
func (s *Scene) AddMesh(data *MeshData, color mgl32.Vec4, index uint32) {
	s.meshes = append(s.meshes, meshEntry{
		mesh:  data.Upload(),
		color: color,
		index: index,
	})
}

// Draw renders all atoms and meshes into the currently bound G-buffer.
// Depth testing must be enabled by the caller.
func (s *Scene) Draw(view render.ViewParam) {
	mvp := view.Proj.Mul4(view.View)
	if !s.hasPrev {
		s.prevMVP = mvp
		s.hasPrev = true
	}
	jitter := mgl32.Vec4{
		view.Jitter.X(), view.Jitter.Y(),
		view.PrevJitter.X(), view.PrevJitter.Y(),
	}

	if s.atomCount > 0 {
		s.shader.Use()
		s.shader.SetMat4("uView", view.View)
		s.shader.SetMat4("uMVP", mvp)
		s.shader.SetMat4("uPrevMVP", s.prevMVP)
		s.shader.SetVec4("uJitterUV", jitter)

		gl.BindVertexArray(s.sphere.vao)
		gl.DrawElementsInstanced(gl.TRIANGLES, s.sphere.indexCount, gl.UNSIGNED_INT, nil, s.atomCount)
		gl.BindVertexArray(0)
	}

	if len(s.meshes) > 0 {
		s.meshShader.Use()
		s.meshShader.SetMat4("uView", view.View)
		s.meshShader.SetMat4("uMVP", mvp)
		s.meshShader.SetMat4("uPrevMVP", s.prevMVP)
		s.meshShader.SetVec4("uJitterUV", jitter)

		for _, e := range s.meshes {
			s.meshShader.SetVec4("uColor", e.color)
			s.meshShader.SetInt("uPickIndex", int32(e.index))
			gl.BindVertexArray(e.mesh.vao)
			gl.DrawElements(gl.TRIANGLES, e.mesh.indexCount, gl.UNSIGNED_INT, nil)
		}
		gl.BindVertexArray(0)
	}

	s.prevMVP = mvp
}

// Destroy releases all GPU resources.
func (s *Scene) Destroy() {
	if s.sphere != nil {
		s.sphere.Destroy()
	}
	for _, e := range s.meshes {
		e.mesh.Destroy()
	}
	if s.instances != 0 {
		gl.DeleteBuffers(1, &s.instances)
		s.instances = 0
	}
	s.shader.Delete()
	s.meshShader.Delete()
}

// DemoAtoms builds a small helix of colored atoms, enough to exercise
// picking and selection without loading a file.
func DemoAtoms(n int) []Atom {
	palette := []mgl32.Vec4{
		{0.85, 0.85, 0.85, 1}, // carbon-ish
		{0.9, 0.2, 0.2, 1},    // oxygen-ish
		{0.2, 0.4, 0.9, 1},    // nitrogen-ish
	}

	atoms := make([]Atom, n)
	for i := range atoms {
		t := float64(i) * 0.35
		atoms[i] = Atom{
			Position: mgl32.Vec3{
				float32(6 * math.Cos(t)),
				float32(0.4*float64(i) - 0.2*float64(n)),
				float32(6 * math.Sin(t)),
			},
			Radius: 1.0,
			Color:  palette[i%len(palette)],
			Index:  uint32(i),
		}
	}
	return atoms
}

// The geometry program writes all five G-buffer attachments: lit-input
// color, octahedral view-space normal, per-object velocity, transparency
// (unused by opaque spheres), and the BGRA-packed picking index.
const geometryVertSrc = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec4 aInstPosRadius;
layout(location = 3) in vec4 aInstColor;
layout(location = 4) in uint aInstIndex;

uniform mat4 uView;
uniform mat4 uMVP;
uniform mat4 uPrevMVP;
uniform vec4 uJitterUV; // xy = current jitter, zw = previous jitter

out vec3 vViewNormal;
out vec4 vColor;
flat out uint vIndex;
out vec4 vClipPos;
out vec4 vPrevClipPos;

void main() {
    vec3 world = aPosition * aInstPosRadius.w + aInstPosRadius.xyz;

    vViewNormal = mat3(uView) * aNormal;
    vColor = aInstColor;
    vIndex = aInstIndex;

    vClipPos = uMVP * vec4(world, 1.0);
    vPrevClipPos = uPrevMVP * vec4(world, 1.0);

    // jitter applies to the rasterized position only; velocity is computed
    // from the unjittered clip coordinates
    gl_Position = vClipPos + vec4(uJitterUV.xy * 2.0 * vClipPos.w, 0.0, 0.0);
}
` + "\x00"

// Non-instanced variant for surface meshes; color and picking index come
// from uniforms instead of instance attributes.
const meshVertSrc = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uView;
uniform mat4 uMVP;
uniform mat4 uPrevMVP;
uniform vec4 uJitterUV;
uniform vec4 uColor;
uniform int uPickIndex;

out vec3 vViewNormal;
out vec4 vColor;
flat out uint vIndex;
out vec4 vClipPos;
out vec4 vPrevClipPos;

void main() {
    vViewNormal = mat3(uView) * aNormal;
    vColor = uColor;
    vIndex = uint(uPickIndex);

    vClipPos = uMVP * vec4(aPosition, 1.0);
    vPrevClipPos = uPrevMVP * vec4(aPosition, 1.0);

    gl_Position = vClipPos + vec4(uJitterUV.xy * 2.0 * vClipPos.w, 0.0, 0.0);
}
` + "\x00"

const geometryFragSrc = `#version 410 core

in vec3 vViewNormal;
in vec4 vColor;
flat in uint vIndex;
in vec4 vClipPos;
in vec4 vPrevClipPos;

layout(location = 0) out vec4 OutColor;
layout(location = 1) out vec2 OutNormal;
layout(location = 2) out vec2 OutVelocity;
layout(location = 3) out vec4 OutTransparency;
layout(location = 4) out vec4 OutPicking;

vec2 octahedralEncode(vec3 n) {
    n /= abs(n.x) + abs(n.y) + abs(n.z);
    vec2 f = n.z >= 0.0
        ? n.xy
        : (1.0 - abs(n.yx)) * vec2(n.x >= 0.0 ? 1.0 : -1.0, n.y >= 0.0 ? 1.0 : -1.0);
    return f * 0.5 + 0.5;
}

vec4 encodePickingIndex(uint idx) {
    return vec4(
        float(idx & 0xFFu) / 255.0,
        float((idx >> 8) & 0xFFu) / 255.0,
        float((idx >> 16) & 0xFFu) / 255.0,
        float((idx >> 24) & 0xFFu) / 255.0
    );
}

void main() {
    OutColor = vColor;
    OutNormal = octahedralEncode(normalize(vViewNormal));

    vec2 uv = (vClipPos.xy / vClipPos.w) * 0.5 + 0.5;
    vec2 prevUV = (vPrevClipPos.xy / vPrevClipPos.w) * 0.5 + 0.5;
    OutVelocity = uv - prevUV;

    OutTransparency = vec4(0.0);
    OutPicking = encodePickingIndex(vIndex);
}
` + "\x00"
