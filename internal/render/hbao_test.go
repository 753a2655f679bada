package render

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupHBAODataDeterministic(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 1000)

	a := setupHBAOData(1920, 1080, proj, false, 2.5, 6.0, 0.1)
	b := setupHBAOData(1920, 1080, proj, false, 2.5, 6.0, 0.1)
	assert.Equal(t, a, b, "identical inputs must produce identical uniform data")
}

func TestSetupHBAODataRadiusClamp(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)

	for _, radius := range []float32{0, -1, -100} {
		d := setupHBAOData(800, 600, proj, false, 1, radius, 0.1)
		clamped := setupHBAOData(800, 600, proj, false, 1, aoMinRadius, 0.1)
		assert.Equal(t, clamped, d, "radius %v", radius)

		require.False(t, math.IsInf(float64(d.NegInvR2), 0))
		require.False(t, math.IsNaN(float64(d.NegInvR2)))
		assert.Less(t, d.NegInvR2, float32(0))
	}
}

func TestSetupHBAODataBiasClamp(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)

	d := setupHBAOData(800, 600, proj, false, 1, 2, -0.5)
	assert.Equal(t, float32(0), d.NDotVBias)
	assert.Equal(t, float32(1), d.AOMultiplier)

	d = setupHBAOData(800, 600, proj, false, 1, 2, 5)
	assert.Less(t, d.NDotVBias, float32(1))
	require.False(t, math.IsInf(float64(d.AOMultiplier), 0))
}

func TestSetupHBAODataFields(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 2, 0.5, 500)
	d := setupHBAOData(1000, 500, proj, false, 3, 4, 0.1)

	assert.Equal(t, [4]float32(ProjInfo(proj, false)), d.ProjInfo)
	assert.InDelta(t, 1.0/1000, d.InvFullRes[0], 1e-9)
	assert.InDelta(t, 1.0/500, d.InvFullRes[1], 1e-9)
	assert.InDelta(t, -1.0/16, d.NegInvR2, 1e-6)
	assert.Equal(t, float32(3), d.PowExponent)
	assert.Equal(t, float32(0), d.IsOrtho)

	// negative intensity clamps to zero rather than brightening
	d = setupHBAOData(1000, 500, proj, false, -2, 4, 0.1)
	assert.Equal(t, float32(0), d.PowExponent)
}

func TestHBAOSamplePattern(t *testing.T) {
	dirs := hbaoSamplePattern()
	for i, d := range dirs {
		// xy is a unit rotation, z a radius fraction in (0,1)
		mag := math.Sqrt(float64(d[0]*d[0] + d[1]*d[1]))
		assert.InDelta(t, 1.0, mag, 1e-5, "entry %d", i)
		assert.Greater(t, d[2], float32(0), "entry %d", i)
		assert.Less(t, d[2], float32(1), "entry %d", i)
	}

	// deterministic across calls
	assert.Equal(t, dirs, hbaoSamplePattern())
}

func TestHBAORandomPattern(t *testing.T) {
	data := hbaoRandomPattern()

	angles := make(map[float32]bool)
	sector := math.Pi / 4 // one of the 8 ray-direction sectors
	for i := 0; i < aoRandomTexSize*aoRandomTexSize; i++ {
		c, s := data[i*4], data[i*4+1]
		mag := math.Sqrt(float64(c*c + s*s))
		assert.InDelta(t, 1.0, mag, 1e-5, "texel %d", i)

		// rotations stay inside one sector; anything wider just repeats
		// what stepping the direction loop already covers
		angle := math.Atan2(float64(s), float64(c))
		assert.GreaterOrEqual(t, angle, 0.0, "texel %d", i)
		assert.Less(t, angle, sector, "texel %d", i)
		angles[float32(angle)] = true

		assert.Greater(t, data[i*4+2], float32(0), "texel %d", i)
		assert.Less(t, data[i*4+2], float32(1), "texel %d", i)
	}

	// every texel rotates differently so neighboring pixels decorrelate
	assert.Len(t, angles, aoRandomTexSize*aoRandomTexSize)
}

func TestBlurSharpness(t *testing.T) {
	assert.InDelta(t, 20.0/math.Sqrt(4), blurSharpness(4), 1e-4)
	assert.InDelta(t, 20.0, blurSharpness(1), 1e-4)

	// non-positive radii fall back to the clamped minimum
	assert.Equal(t, blurSharpness(aoMinRadius), blurSharpness(0))
	assert.Equal(t, blurSharpness(aoMinRadius), blurSharpness(-3))
}
