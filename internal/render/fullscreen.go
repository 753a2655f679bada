package render

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// fullscreenVertSrc draws a single triangle covering the screen via
// gl_VertexID; no vertex buffer is needed, only an empty VAO.
const fullscreenVertSrc = `#version 410 core

out vec2 vTexCoord;

void main() {
    vec2 positions[3] = vec2[](
        vec2(-1.0, -1.0),
        vec2(3.0, -1.0),
        vec2(-1.0, 3.0)
    );

    gl_Position = vec4(positions[gl_VertexID], 0.0, 1.0);
    vTexCoord = (positions[gl_VertexID] + 1.0) * 0.5;
}
` + "\x00"

// fullscreenQuad wraps the empty VAO all post-process passes draw with.
type fullscreenQuad struct {
	vao uint32
}

func newFullscreenQuad() fullscreenQuad {
	var q fullscreenQuad
	gl.GenVertexArrays(1, &q.vao)
	return q
}

func (q fullscreenQuad) draw() {
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

func (q *fullscreenQuad) destroy() {
	if q.vao != 0 {
		gl.DeleteVertexArrays(1, &q.vao)
		q.vao = 0
	}
}
