// Package camera maintains the orbiting view used by the viewer and
// produces the per-frame parameters the render pipeline consumes.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mdview/mdview/internal/render"
)

// jitterPeriod is the length of the Halton jitter cycle. Sixteen samples
// cover the pixel evenly before repeating; longer cycles gain nothing once
// temporal feedback has converged.
const jitterPeriod = 16

// Camera is an orbit camera around a focus point. Call Params once per
// frame to obtain the view parameters, then Commit after the frame is
// rendered so the next frame sees correct previous-frame state.
type Camera struct {
	Focus    mgl32.Vec3
	Distance float32
	Yaw      float32 // radians around world Y
	Pitch    float32 // radians, clamped short of the poles

	FovY float32
	Near float32
	Far  float32

	Orthographic bool

	frame      uint64
	prevView   mgl32.Mat4
	prevProj   mgl32.Mat4
	prevJitter mgl32.Vec2
	hasPrev    bool
}

// New returns a camera looking at the origin from a sensible distance.
func New() *Camera {
	return &Camera{
		Distance: 30,
		Pitch:    0.3,
		FovY:     mgl32.DegToRad(45),
		Near:     0.1,
		Far:      1000,
	}
}

// Orbit rotates around the focus point by the given deltas in radians.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw += dYaw
	c.Pitch += dPitch

	const limit = math.Pi/2 - 0.01
	if c.Pitch > limit {
		c.Pitch = limit
	} else if c.Pitch < -limit {
		c.Pitch = -limit
	}
}

// Zoom scales the orbit distance; factor > 1 moves away.
func (c *Camera) Zoom(factor float32) {
	c.Distance *= factor
	if c.Distance < c.Near*2 {
		c.Distance = c.Near * 2
	}
}

// Pan shifts the focus point in the camera's screen plane.
func (c *Camera) Pan(dx, dy float32) {
	view := c.ViewMatrix()
	right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	up := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}
	c.Focus = c.Focus.Add(right.Mul(dx)).Add(up.Mul(dy))
}

// Position returns the camera's world-space position.
func (c *Camera) Position() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	dir := mgl32.Vec3{
		cp * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		cp * float32(math.Cos(float64(c.Yaw))),
	}
	return c.Focus.Add(dir.Mul(c.Distance))
}

// ViewMatrix returns the current world-to-view transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Focus, mgl32.Vec3{0, 1, 0})
}

// ProjMatrix returns the projection for the given viewport size.
func (c *Camera) ProjMatrix(width, height int32) mgl32.Mat4 {
	aspect := float32(width) / float32(height)
	if c.Orthographic {
		h := c.Distance * float32(math.Tan(float64(c.FovY)/2))
		return mgl32.Ortho(-h*aspect, h*aspect, -h, h, c.Near, c.Far)
	}
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// Params assembles the frame's view parameters. With jitter enabled the
// projection origin is offset by the frame's Halton sample, scaled to UV
// units. The first frame uses the current matrices as previous state so
// reprojection starts out as the identity.
func (c *Camera) Params(width, height int32, jitter bool) render.ViewParam {
	view := c.ViewMatrix()
	proj := c.ProjMatrix(width, height)

	var j mgl32.Vec2
	if jitter {
		x, y := render.HaltonJitter(int(c.frame % jitterPeriod))
		j = mgl32.Vec2{x / float32(width), y / float32(height)}
	}

	if !c.hasPrev {
		c.prevView = view
		c.prevProj = proj
		c.prevJitter = j
		c.hasPrev = true
	}

	return render.ViewParam{
		View:         view,
		Proj:         proj,
		ViewInv:      view.Inv(),
		ProjInv:      proj.Inv(),
		PrevView:     c.prevView,
		PrevProj:     c.prevProj,
		Near:         c.Near,
		Far:          c.Far,
		Jitter:       j,
		PrevJitter:   c.prevJitter,
		Width:        width,
		Height:       height,
		Orthographic: c.Orthographic,
	}
}

// Commit records this frame's matrices as the next frame's previous state.
// Call exactly once per rendered frame, after Params.
func (c *Camera) Commit(p render.ViewParam) {
	c.prevView = p.View
	c.prevProj = p.Proj
	c.prevJitter = p.Jitter
	c.frame++
}
