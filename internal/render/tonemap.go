// internal/render/tonemap.go
//
// HDR display transforms plus the invertible fast operator used to run
// antialiasing in a perceptual space
package render

import (
	"fmt"
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// tonemapPass applies the selected display transform. The fast/fastInvert
// program pair brackets FXAA when it runs on HDR input: FXAA wants
// perceptual luma, so color is compressed with the cheap Reinhard-style
// curve first and expanded again afterwards.
type tonemapPass struct {
	shader     *Shader
	fast       *Shader
	fastInvert *Shader
	quad       fullscreenQuad
}

func newTonemapPass(quad fullscreenQuad) (*tonemapPass, error) {
	p := &tonemapPass{quad: quad}

	var err error
	p.shader, err = NewShaderFromSource(fullscreenVertSrc, tonemapFragSrc)
	if err != nil {
		return nil, fmt.Errorf("tonemap shader: %w", err)
	}
	p.fast, err = NewShaderFromSource(fullscreenVertSrc, tonemapFastFragSrc)
	if err != nil {
		p.shader.Delete()
		return nil, fmt.Errorf("fast tonemap shader: %w", err)
	}
	p.fastInvert, err = NewShaderFromSource(fullscreenVertSrc, tonemapFastInvertFragSrc)
	if err != nil {
		p.shader.Delete()
		p.fast.Delete()
		return nil, fmt.Errorf("fast tonemap invert shader: %w", err)
	}
	return p, nil
}

// render tonemaps srcTex into the currently bound draw framebuffer.
func (p *tonemapPass) render(srcTex uint32, params TonemapParams) {
	p.shader.Use()
	p.shader.SetInt("uColorTex", 0)
	p.shader.SetInt("uMode", int32(params.Mode))
	p.shader.SetFloat("uExposure", params.Exposure)
	p.shader.SetFloat("uGamma", params.Gamma)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	p.quad.draw()
}

// renderFast applies the forward (invert=false) or inverse (invert=true)
// fast operator to srcTex.
func (p *tonemapPass) renderFast(srcTex uint32, invert bool) {
	sh := p.fast
	if invert {
		sh = p.fastInvert
	}
	sh.Use()
	sh.SetInt("uColorTex", 0)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	p.quad.draw()
}

func (p *tonemapPass) destroy() {
	p.shader.Delete()
	p.fast.Delete()
	p.fastInvert.Delete()
}

// ---------------------------------------------------------------------------
// CPU mirrors of the GLSL operators. Kept in lockstep with tonemapFragSrc;
// the tests exercise these.

// ApplyTonemap runs the selected operator on a linear HDR color.
// TonemapPassthrough returns its input unchanged.
func ApplyTonemap(c mgl32.Vec3, params TonemapParams) mgl32.Vec3 {
	switch params.Mode {
	case TonemapPassthrough:
		return c
	case TonemapExposureGamma:
		return tonemapExposureGamma(c, params.Exposure, params.Gamma)
	case TonemapFilmic:
		return tonemapFilmic(c, params.Exposure)
	case TonemapACES:
		return tonemapACES(c, params.Exposure, params.Gamma)
	}
	return c
}

func tonemapExposureGamma(c mgl32.Vec3, exposure, gamma float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		v := 1 - float32(math.Exp(float64(-c[i]*exposure)))
		out[i] = float32(math.Pow(float64(v), float64(1/gamma)))
	}
	return out
}

// Hejl/Burgess-Dawson filmic curve; gamma is folded into the fit.
func tonemapFilmic(c mgl32.Vec3, exposure float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		x := max32(c[i]*exposure-0.004, 0)
		out[i] = (x * (6.2*x + 0.5)) / (x*(6.2*x+1.7) + 0.06)
	}
	return out
}

// Narkowicz's ACES approximation followed by the gamma encode.
func tonemapACES(c mgl32.Vec3, exposure, gamma float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		x := c[i] * exposure
		v := (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = float32(math.Pow(float64(v), float64(1/gamma)))
	}
	return out
}

// TonemapFast and TonemapFastInvert form the reversible pair bracketing
// FXAA on HDR input.
func TonemapFast(c mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = c[i] / (c[i] + 1)
	}
	return out
}

func TonemapFastInvert(c mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		v := c[i]
		if v > 1-1e-4 {
			v = 1 - 1e-4
		}
		out[i] = v / (1 - v)
	}
	return out
}

const tonemapFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform int uMode;
uniform float uExposure;
uniform float uGamma;

#define MODE_PASSTHROUGH    0
#define MODE_EXPOSURE_GAMMA 1
#define MODE_FILMIC         2
#define MODE_ACES           3

vec3 exposureGamma(vec3 c) {
    vec3 v = vec3(1.0) - exp(-c * uExposure);
    return pow(v, vec3(1.0 / uGamma));
}

vec3 filmic(vec3 c) {
    vec3 x = max(c * uExposure - 0.004, vec3(0.0));
    return (x * (6.2 * x + 0.5)) / (x * (6.2 * x + 1.7) + 0.06);
}

vec3 aces(vec3 c) {
    vec3 x = c * uExposure;
    vec3 v = clamp((x * (2.51 * x + 0.03)) / (x * (2.43 * x + 0.59) + 0.14), 0.0, 1.0);
    return pow(v, vec3(1.0 / uGamma));
}

void main() {
    vec4 color = texture(uColorTex, vTexCoord);
    vec3 c = color.rgb;

    switch (uMode) {
    case MODE_EXPOSURE_GAMMA: c = exposureGamma(c); break;
    case MODE_FILMIC:         c = filmic(c); break;
    case MODE_ACES:           c = aces(c); break;
    default: break;
    }

    FragColor = vec4(c, color.a);
}
` + "\x00"

const tonemapFastFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;

void main() {
    vec4 c = texture(uColorTex, vTexCoord);
    FragColor = vec4(c.rgb / (c.rgb + 1.0), c.a);
}
` + "\x00"

const tonemapFastInvertFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;

void main() {
    vec4 c = texture(uColorTex, vTexCoord);
    vec3 v = min(c.rgb, vec3(1.0 - 1e-4));
    FragColor = vec4(v / (1.0 - v), c.a);
}
` + "\x00"
