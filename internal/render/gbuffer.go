// internal/render/gbuffer.go
//
// Geometry buffer: the render targets one frame of deferred shading reads
// from, plus the asynchronous picking readback ring
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// G-buffer color attachment order. The geometry pass binds its outputs in
// this order and every consumer indexes attachments through these.
const (
	gbufAttachColor = iota
	gbufAttachNormal
	gbufAttachVelocity
	gbufAttachTransparency
	gbufAttachPicking
	gbufAttachCount
)

// PickingRingSize is the depth of the pixel-pack-buffer ring used for
// picking readback. It must exceed the maximum number of frames the driver
// keeps in flight; with a typical double/triple-buffered swapchain three
// slots means a slot is never remapped before the GPU has drained it.
const PickingRingSize = 3

// PickingSentinel is the decoded picking value of a pixel no atom was
// drawn to. Clear writes all-ones to the picking attachment, which decodes
// to this.
const PickingSentinel uint32 = 0xFFFFFFFF

// GBuffer owns the GPU resources of one frame's geometry pass: the
// attachment textures, the framebuffer, and the picking readback ring.
// Created once, resized by Init, released by Destroy.
type GBuffer struct {
	fbo uint32

	Depth        uint32 // depth24 + stencil8
	Color        uint32 // rgba8
	Normal       uint32 // rg16f, octahedral-encoded view-space normal
	Velocity     uint32 // rg16f, screen-space velocity in UV units
	Transparency uint32 // rgba8
	Picking      uint32 // rgba8, encodes a 32-bit atom index

	width  int32
	height int32

	// picking readback ring; frame counts round-robin through the slots
	pboPickingColor [PickingRingSize]uint32
	pboPickingDepth [PickingRingSize]uint32
	frame           uint64
}

// NewGBuffer allocates a G-buffer at the given size.
func NewGBuffer(width, height int32) (*GBuffer, error) {
	g := &GBuffer{}
	if err := g.Init(width, height); err != nil {
		g.Destroy()
		return nil, err
	}
	return g, nil
}

// Init (re)allocates every attachment and the PBO ring at width×height.
// The framebuffer object and texture handles are created on the first call
// and reused afterwards; only the storage is reallocated on resize. Not
// meant to be called per frame.
func (g *GBuffer) Init(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gbuffer: invalid size %dx%d", width, height)
	}

	firstInit := g.fbo == 0
	if firstInit {
		gl.GenFramebuffers(1, &g.fbo)
		gl.GenTextures(1, &g.Depth)
		gl.GenTextures(1, &g.Color)
		gl.GenTextures(1, &g.Normal)
		gl.GenTextures(1, &g.Velocity)
		gl.GenTextures(1, &g.Transparency)
		gl.GenTextures(1, &g.Picking)
		gl.GenBuffers(PickingRingSize, &g.pboPickingColor[0])
		gl.GenBuffers(PickingRingSize, &g.pboPickingDepth[0])
	} else if g.width == width && g.height == height {
		return nil
	}

	g.width = width
	g.height = height

	alloc := func(tex uint32, internal int32, format, xtype uint32) {
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, width, height, 0, format, xtype, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}

	alloc(g.Depth, gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8)
	alloc(g.Color, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE)
	alloc(g.Normal, gl.RG16F, gl.RG, gl.FLOAT)
	alloc(g.Velocity, gl.RG16F, gl.RG, gl.FLOAT)
	alloc(g.Transparency, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE)
	alloc(g.Picking, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	for i := 0; i < PickingRingSize; i++ {
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingColor[i])
		gl.BufferData(gl.PIXEL_PACK_BUFFER, 4, nil, gl.STREAM_READ)
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingDepth[i])
		gl.BufferData(gl.PIXEL_PACK_BUFFER, 4, nil, gl.STREAM_READ)
	}
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)

	if firstInit {
		gl.BindFramebuffer(gl.FRAMEBUFFER, g.fbo)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.TEXTURE_2D, g.Depth, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+gbufAttachColor, gl.TEXTURE_2D, g.Color, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+gbufAttachNormal, gl.TEXTURE_2D, g.Normal, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+gbufAttachVelocity, gl.TEXTURE_2D, g.Velocity, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+gbufAttachTransparency, gl.TEXTURE_2D, g.Transparency, 0)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+gbufAttachPicking, gl.TEXTURE_2D, g.Picking, 0)

		if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
			gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
			return fmt.Errorf("gbuffer: framebuffer incomplete (0x%X)", status)
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}

	return nil
}

// Dimensions returns the current attachment size.
func (g *GBuffer) Dimensions() (width, height int32) {
	return g.width, g.height
}

// FBO returns the framebuffer handle the geometry pass renders into.
func (g *GBuffer) FBO() uint32 {
	return g.fbo
}

// Bind makes the G-buffer the draw target with all attachments enabled.
func (g *GBuffer) Bind() {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, g.fbo)
	bufs := [gbufAttachCount]uint32{}
	for i := range bufs {
		bufs[i] = uint32(gl.COLOR_ATTACHMENT0 + i)
	}
	gl.DrawBuffers(gbufAttachCount, &bufs[0])
	gl.Viewport(0, 0, g.width, g.height)
}

// Clear resets every attachment for a new frame: color, normal, velocity
// and transparency to zero, picking to the all-ones sentinel, depth to 1.0
// and stencil to 0x01. Must run once per frame before any geometry draws.
func (g *GBuffer) Clear() {
	g.Bind()

	zero := [4]float32{0, 0, 0, 0}
	ones := [4]float32{1, 1, 1, 1}
	gl.ClearBufferfv(gl.COLOR, gbufAttachColor, &zero[0])
	gl.ClearBufferfv(gl.COLOR, gbufAttachNormal, &zero[0])
	gl.ClearBufferfv(gl.COLOR, gbufAttachVelocity, &zero[0])
	gl.ClearBufferfv(gl.COLOR, gbufAttachTransparency, &zero[0])
	gl.ClearBufferfv(gl.COLOR, gbufAttachPicking, &ones[0])
	gl.ClearBufferfi(gl.DEPTH_STENCIL, 0, 1.0, 0x01)
}

// Destroy releases every GPU object. Safe on a zero-value GBuffer: each
// deletion is guarded.
func (g *GBuffer) Destroy() {
	if g.fbo != 0 {
		gl.DeleteFramebuffers(1, &g.fbo)
		g.fbo = 0
	}
	for _, tex := range []*uint32{&g.Depth, &g.Color, &g.Normal, &g.Velocity, &g.Transparency, &g.Picking} {
		if *tex != 0 {
			gl.DeleteTextures(1, tex)
			*tex = 0
		}
	}
	if g.pboPickingColor[0] != 0 {
		gl.DeleteBuffers(PickingRingSize, &g.pboPickingColor[0])
		g.pboPickingColor = [PickingRingSize]uint32{}
	}
	if g.pboPickingDepth[0] != 0 {
		gl.DeleteBuffers(PickingRingSize, &g.pboPickingDepth[0])
		g.pboPickingDepth = [PickingRingSize]uint32{}
	}
}

// pickingSlot returns the ring slot frame f cycles onto. The slot being
// written this frame is the one whose previous contents were queued exactly
// PickingRingSize frames ago, so reading before writing yields the delayed
// result without ever waiting on the GPU.
func pickingSlot(frame uint64) int {
	return int(frame % PickingRingSize)
}

// DecodePickingIndex recovers the 32-bit atom index from a BGRA-ordered
// pixel readback: (B<<16)|(G<<8)|R|(A<<24). This layout mirrors how the
// geometry pass packs the index into the rgba8 picking attachment; the
// all-ones pixel decodes to PickingSentinel.
func DecodePickingIndex(px [4]byte) uint32 {
	b, g, r, a := uint32(px[0]), uint32(px[1]), uint32(px[2]), uint32(px[3])
	return b<<16 | g<<8 | r | a<<24
}

// ExtractPickingData queues an asynchronous read of the picking index and
// depth under pixel (x, y) and returns the result of the read queued
// PickingRingSize frames ago. ok is false until the ring has filled, and
// whenever the delayed result is the no-atom sentinel.
//
// The deliberate tradeoff: a synchronous glReadPixels would stall the
// pipeline every frame, so picking results lag input by PickingRingSize
// frames instead.
func (g *GBuffer) ExtractPickingData(x, y int32) (idx uint32, depth float32, ok bool) {
	slot := pickingSlot(g.frame)

	// consume the slot's previous contents before remapping it
	if g.frame >= PickingRingSize {
		var px [4]byte
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingColor[slot])
		gl.GetBufferSubData(gl.PIXEL_PACK_BUFFER, 0, 4, gl.Ptr(&px[0]))

		var d float32
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingDepth[slot])
		gl.GetBufferSubData(gl.PIXEL_PACK_BUFFER, 0, 4, gl.Ptr(&d))

		idx = DecodePickingIndex(px)
		depth = d
		ok = idx != PickingSentinel
	}

	if x < 0 {
		x = 0
	} else if x >= g.width {
		x = g.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.height {
		y = g.height - 1
	}

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, g.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0 + gbufAttachPicking)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingColor[slot])
	gl.ReadPixels(x, y, 1, 1, gl.BGRA, gl.UNSIGNED_BYTE, gl.PtrOffset(0))

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, g.pboPickingDepth[slot])
	gl.ReadPixels(x, y, 1, 1, gl.DEPTH_COMPONENT, gl.FLOAT, gl.PtrOffset(0))

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	g.frame++
	return idx, depth, ok
}
