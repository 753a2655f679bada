package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearizeDepthPerspective(t *testing.T) {
	near, far := float32(0.1), float32(1000.0)

	assert.InDelta(t, near, LinearizeDepth(0, near, far, false), 1e-4,
		"device depth 0 maps to the near plane")
	// float32 cancellation in d*(near-far)+far leaves a few tenths of
	// absolute error at the far plane, so compare relatively
	assert.InEpsilon(t, far, LinearizeDepth(1, near, far, false), 1e-3,
		"device depth 1 maps to the far plane")

	// monotonically increasing in d
	prev := LinearizeDepth(0, near, far, false)
	for _, d := range []float32{0.1, 0.5, 0.9, 0.99, 1.0} {
		z := LinearizeDepth(d, near, far, false)
		assert.Greater(t, z, prev)
		prev = z
	}
}

func TestLinearizeDepthOrthographic(t *testing.T) {
	near, far := float32(1.0), float32(500.0)

	assert.InDelta(t, near, LinearizeDepth(0, near, far, true), 1e-4)
	assert.InDelta(t, far, LinearizeDepth(1, near, far, true), 1e-3)

	// linear in d: the midpoint lands halfway between near and far
	assert.InDelta(t, (near+far)/2, LinearizeDepth(0.5, near, far, true), 1e-3)
}

func TestClipInfo(t *testing.T) {
	c := ClipInfo(0.1, 100)
	assert.InDelta(t, 10.0, c.X(), 1e-5)
	assert.InDelta(t, -99.9, c.Y(), 1e-4)
	assert.InDelta(t, 100.0, c.Z(), 1e-5)
	assert.Zero(t, c.W())
}

func TestProjInfoPerspectiveUnprojects(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.5, 200)
	info := ProjInfo(proj, false)

	// A view-space point projected and then unprojected through the
	// proj_info coefficients must land back where it started. The shader
	// computes pos.xy = (uv * info.xy + info.zw) * z with z = -view.z.
	pts := []mgl32.Vec3{
		{0, 0, -10},
		{3, -2, -25},
		{-8, 5.5, -100},
	}
	for _, p := range pts {
		clip := proj.Mul4x1(p.Vec4(1))
		ndc := clip.Mul(1 / clip.W())
		uv := mgl32.Vec2{ndc.X()*0.5 + 0.5, ndc.Y()*0.5 + 0.5}

		z := -p.Z()
		x := (uv.X()*info.X() + info.Z()) * z
		y := (uv.Y()*info.Y() + info.W()) * z

		assert.InDelta(t, p.X(), x, 1e-3)
		assert.InDelta(t, p.Y(), y, 1e-3)
	}
}

func TestProjInfoOrthographicUnprojects(t *testing.T) {
	proj := mgl32.Ortho(-20, 20, -10, 10, 0.1, 300)
	info := ProjInfo(proj, true)

	pts := []mgl32.Vec3{
		{0, 0, -5},
		{12, -7, -150},
	}
	for _, p := range pts {
		clip := proj.Mul4x1(p.Vec4(1))
		uv := mgl32.Vec2{clip.X()*0.5 + 0.5, clip.Y()*0.5 + 0.5}

		x := uv.X()*info.X() + info.Z()
		y := uv.Y()*info.Y() + info.W()

		assert.InDelta(t, p.X(), x, 1e-3)
		assert.InDelta(t, p.Y(), y, 1e-3)
	}
}

func TestReprojectionMatrixStaticCamera(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 2, 8}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1.5, 0.1, 100)

	vp := ViewParam{
		View:     view,
		Proj:     proj,
		ViewInv:  view.Inv(),
		ProjInv:  proj.Inv(),
		PrevView: view,
		PrevProj: proj,
	}

	// with no camera motion the reprojection is the identity
	m := ReprojectionMatrix(vp)
	id := mgl32.Ident4()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, id[i], m[i], 1e-4)
	}
}

func TestDefaultDescriptor(t *testing.T) {
	desc := DefaultDescriptor()
	require.True(t, desc.AO.Enabled)
	assert.Greater(t, desc.AO.Radius, float32(0))
	assert.Equal(t, TonemapACES, desc.Tonemap.Mode)
	assert.Greater(t, desc.Temporal.FeedbackMax, desc.Temporal.FeedbackMin)
}
