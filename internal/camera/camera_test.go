package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsFirstFramePrevEqualsCurrent(t *testing.T) {
	c := New()
	p := c.Params(1920, 1080, true)

	assert.Equal(t, p.View, p.PrevView)
	assert.Equal(t, p.Proj, p.PrevProj)
	assert.Equal(t, p.Jitter, p.PrevJitter)
}

func TestParamsPrevLagsByExactlyOneFrame(t *testing.T) {
	c := New()

	p0 := c.Params(800, 600, true)
	c.Commit(p0)

	c.Orbit(0.1, 0.05)
	p1 := c.Params(800, 600, true)
	c.Commit(p1)

	assert.Equal(t, p0.View, p1.PrevView)
	assert.Equal(t, p0.Jitter, p1.PrevJitter)

	c.Zoom(1.5)
	p2 := c.Params(800, 600, true)

	// previous state is frame 1's, not frame 0's
	assert.Equal(t, p1.View, p2.PrevView)
	assert.NotEqual(t, p0.View, p2.PrevView)
}

func TestParamsJitterCycles(t *testing.T) {
	c := New()

	seen := map[mgl32.Vec2]bool{}
	for i := 0; i < jitterPeriod; i++ {
		p := c.Params(1000, 1000, true)
		c.Commit(p)
		seen[p.Jitter] = true

		// jitter stays under half a pixel in UV units
		assert.Less(t, float32(abs64(float64(p.Jitter.X()))), float32(0.5/1000))
		assert.Less(t, float32(abs64(float64(p.Jitter.Y()))), float32(0.5/1000))
	}
	assert.Len(t, seen, jitterPeriod, "each frame in the cycle has a distinct offset")

	// the cycle repeats
	p := c.Params(1000, 1000, true)
	first := New().Params(1000, 1000, true)
	assert.Equal(t, first.Jitter, p.Jitter)
}

func TestParamsJitterDisabled(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		p := c.Params(640, 480, false)
		assert.Equal(t, mgl32.Vec2{}, p.Jitter)
		c.Commit(p)
	}
}

func TestOrbitPitchClamped(t *testing.T) {
	c := New()
	c.Orbit(0, 10)
	assert.Less(t, c.Pitch, float32(1.58))
	c.Orbit(0, -20)
	assert.Greater(t, c.Pitch, float32(-1.58))
}

func TestZoomClamped(t *testing.T) {
	c := New()
	c.Zoom(1e-9)
	assert.GreaterOrEqual(t, c.Distance, c.Near*2)
}

func TestProjMatrixOrthographic(t *testing.T) {
	c := New()
	c.Orthographic = true
	p := c.Params(800, 800, false)

	require.True(t, p.Orthographic)
	// orthographic projections have no perspective divide terms
	assert.Equal(t, float32(0), p.Proj.At(3, 0))
	assert.Equal(t, float32(0), p.Proj.At(3, 2))
	assert.Equal(t, float32(1), p.Proj.At(3, 3))
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
