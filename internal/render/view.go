// internal/render/view.go
//
// Per-frame view parameters and the depth/projection math shared between
// the Go side and the GLSL passes
package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewParam carries the camera state the post-process chain needs for one
// frame. The Prev* fields must hold the values of the immediately preceding
// frame: temporal reprojection double-reprojects silently if they lag by
// more than one frame.
type ViewParam struct {
	View    mgl32.Mat4
	Proj    mgl32.Mat4
	ViewInv mgl32.Mat4
	ProjInv mgl32.Mat4

	PrevView mgl32.Mat4
	PrevProj mgl32.Mat4

	Near float32
	Far  float32

	// Sub-pixel jitter in UV units, current and previous frame
	Jitter     mgl32.Vec2
	PrevJitter mgl32.Vec2

	Width  int32
	Height int32

	Orthographic bool
}

// ClipInfo packs the constants the depth-linearization shader consumes:
// (near*far, near-far, far, 0).
func ClipInfo(near, far float32) mgl32.Vec4 {
	return mgl32.Vec4{near * far, near - far, far, 0}
}

// LinearizeDepth converts a hardware depth value d in [0,1] to view-space Z.
func LinearizeDepth(d, near, far float32, orthographic bool) float32 {
	c := ClipInfo(near, far)
	if orthographic {
		return c.Y() + c.Z() - d*c.Y()
	}
	return c.X() / (d*c.Y() + c.Z())
}

// ProjInfo derives the four unprojection coefficients HBAO uses to turn a
// (uv, linear depth) pair back into a view-space position. The perspective
// and orthographic forms differ; both are read straight off the projection
// matrix.
func ProjInfo(proj mgl32.Mat4, orthographic bool) mgl32.Vec4 {
	if orthographic {
		return mgl32.Vec4{
			2.0 / proj.At(0, 0),
			2.0 / proj.At(1, 1),
			-(1.0 + proj.At(0, 3)) / proj.At(0, 0),
			-(1.0 - proj.At(1, 3)) / proj.At(1, 1),
		}
	}
	return mgl32.Vec4{
		2.0 / proj.At(0, 0),
		2.0 / proj.At(1, 1),
		-(1.0 - proj.At(0, 2)) / proj.At(0, 0),
		-(1.0 + proj.At(1, 2)) / proj.At(1, 1),
	}
}

// ReprojectionMatrix maps current-frame clip space into previous-frame clip
// space. Used by the static-velocity pass when no per-object velocity was
// rendered.
func ReprojectionMatrix(v ViewParam) mgl32.Mat4 {
	return v.PrevProj.Mul4(v.PrevView).Mul4(v.ViewInv).Mul4(v.ProjInv)
}

// TonemapMode selects the display transform applied to the lit HDR color.
type TonemapMode int

const (
	TonemapPassthrough TonemapMode = iota
	TonemapExposureGamma
	TonemapFilmic
	TonemapACES
)

func (m TonemapMode) String() string {
	switch m {
	case TonemapPassthrough:
		return "passthrough"
	case TonemapExposureGamma:
		return "exposure-gamma"
	case TonemapFilmic:
		return "filmic"
	case TonemapACES:
		return "aces"
	}
	return "unknown"
}

// ParseTonemapMode maps a config string onto a TonemapMode.
func ParseTonemapMode(s string) (TonemapMode, error) {
	for _, m := range []TonemapMode{TonemapPassthrough, TonemapExposureGamma, TonemapFilmic, TonemapACES} {
		if s == m.String() {
			return m, nil
		}
	}
	return TonemapPassthrough, fmt.Errorf("unknown tonemap mode %q", s)
}

// AOParams configures the ambient-occlusion pass.
type AOParams struct {
	Enabled   bool
	Radius    float32
	Intensity float32
	Bias      float32
}

// DOFParams configures the depth-of-field pass.
type DOFParams struct {
	Enabled    bool
	FocusDepth float32
	FocusScale float32
}

// TemporalParams configures temporal antialiasing and motion blur.
// MotionScale of zero disables the motion-blur variant of the resolve.
type TemporalParams struct {
	Enabled     bool
	FeedbackMin float32
	FeedbackMax float32
	MotionScale float32
}

// TonemapParams selects and parameterizes the tonemapping operator.
type TonemapParams struct {
	Mode     TonemapMode
	Exposure float32
	Gamma    float32
}

// SharpenParams configures the unsharp-mask pass.
type SharpenParams struct {
	Enabled bool
	Weight  float32
}

// Descriptor is the caller-supplied, per-frame description of which passes
// run and with what parameters.
type Descriptor struct {
	Background mgl32.Vec3

	AO       AOParams
	DOF      DOFParams
	Temporal TemporalParams
	Tonemap  TonemapParams
	Sharpen  SharpenParams

	FXAA bool

	// Transparency is the texture handle of an externally rendered
	// transparency layer, alpha-blended into the chain after DOF.
	// Zero means no transparency input.
	Transparency uint32

	// Time in seconds, consumed by dithering in the DOF and compose passes
	Time float32
}

// DefaultDescriptor returns the settings the application starts with.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Background: mgl32.Vec3{0.09, 0.11, 0.13},
		AO: AOParams{
			Enabled:   true,
			Radius:    6.0,
			Intensity: 2.5,
			Bias:      0.1,
		},
		DOF: DOFParams{
			Enabled:    false,
			FocusDepth: 10.0,
			FocusScale: 10.0,
		},
		Temporal: TemporalParams{
			Enabled:     true,
			FeedbackMin: 0.88,
			FeedbackMax: 0.97,
			MotionScale: 0.0,
		},
		Tonemap: TonemapParams{
			Mode:     TonemapACES,
			Exposure: 1.0,
			Gamma:    2.2,
		},
		Sharpen: SharpenParams{
			Enabled: true,
			Weight:  0.25,
		},
		FXAA: true,
	}
}
