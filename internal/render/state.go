package render

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// glState captures the pieces of GL state the post-process chain touches.
// The chain is invoked from inside a larger render loop that assumes no
// side effects leak, so whatever is captured on entry must be restored
// bit-for-bit on exit.
type glState struct {
	drawFBO     int32
	readFBO     int32
	viewport    [4]int32
	scissorBox  [4]int32
	scissorTest bool
	depthTest   bool
	blend       bool

	// one entry per draw buffer slot so MRT callers round-trip intact;
	// GL 4.x guarantees at least 8 slots
	drawBuffers [8]int32
}

// captureGLState snapshots the current GL state.
func captureGLState() glState {
	var s glState
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &s.drawFBO)
	gl.GetIntegerv(gl.READ_FRAMEBUFFER_BINDING, &s.readFBO)
	gl.GetIntegerv(gl.VIEWPORT, &s.viewport[0])
	gl.GetIntegerv(gl.SCISSOR_BOX, &s.scissorBox[0])
	s.scissorTest = gl.IsEnabled(gl.SCISSOR_TEST)
	s.depthTest = gl.IsEnabled(gl.DEPTH_TEST)
	s.blend = gl.IsEnabled(gl.BLEND)
	for i := range s.drawBuffers {
		gl.GetIntegerv(gl.DRAW_BUFFER0+uint32(i), &s.drawBuffers[i])
	}
	return s
}

// restore puts back everything captureGLState recorded. Intended for use
// with defer so early error returns cannot leak altered state.
func (s glState) restore() {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(s.drawFBO))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(s.readFBO))
	gl.Viewport(s.viewport[0], s.viewport[1], s.viewport[2], s.viewport[3])
	gl.Scissor(s.scissorBox[0], s.scissorBox[1], s.scissorBox[2], s.scissorBox[3])
	setCap(gl.SCISSOR_TEST, s.scissorTest)
	setCap(gl.DEPTH_TEST, s.depthTest)
	setCap(gl.BLEND, s.blend)

	if s.drawFBO == 0 {
		// the default framebuffer rejects glDrawBuffers with GL_BACK
		gl.DrawBuffer(uint32(s.drawBuffers[0]))
	} else {
		bufs := make([]uint32, len(s.drawBuffers))
		for i, b := range s.drawBuffers {
			bufs[i] = uint32(b)
		}
		gl.DrawBuffers(int32(len(bufs)), &bufs[0])
	}
}

func setCap(cap uint32, enabled bool) {
	if enabled {
		gl.Enable(cap)
	} else {
		gl.Disable(cap)
	}
}
