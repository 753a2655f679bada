// internal/render/dof.go
//
// Depth of field: half-resolution circle-of-confusion prepass, then a
// scatter-as-gather bokeh blur upsampled to full resolution
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// dofPass renders its prepass at half resolution into an owned target; the
// caller's viewport is halved for the prepass and restored for the bokeh
// gather, which writes full-resolution into the bound framebuffer.
type dofPass struct {
	fbo     uint32
	halfTex uint32 // rgb = prefiltered color, a = signed CoC

	prepass *Shader
	bokeh   *Shader
	quad    fullscreenQuad

	width      int32
	height     int32
	halfWidth  int32
	halfHeight int32
}

func newDOFPass(quad fullscreenQuad) (*dofPass, error) {
	p := &dofPass{quad: quad}

	var err error
	p.prepass, err = NewShaderFromSource(fullscreenVertSrc, dofPrepassFragSrc)
	if err != nil {
		return nil, fmt.Errorf("dof prepass shader: %w", err)
	}
	p.bokeh, err = NewShaderFromSource(fullscreenVertSrc, dofBokehFragSrc)
	if err != nil {
		p.prepass.Delete()
		return nil, fmt.Errorf("dof bokeh shader: %w", err)
	}

	gl.GenFramebuffers(1, &p.fbo)
	return p, nil
}

func (p *dofPass) resize(width, height int32) {
	if p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height
	p.halfWidth = max32i(width/2, 1)
	p.halfHeight = max32i(height/2, 1)

	if p.halfTex == 0 {
		gl.GenTextures(1, &p.halfTex)
	}
	gl.BindTexture(gl.TEXTURE_2D, p.halfTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, p.halfWidth, p.halfHeight, 0, gl.RGBA, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindFramebuffer(gl.FRAMEBUFFER, p.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.halfTex, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func max32i(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// render blurs srcTex by depth into the framebuffer bound by the caller.
// The prepass temporarily halves the viewport; the full-resolution viewport
// is restored before the gather.
func (p *dofPass) render(srcTex, linearDepthTex uint32, params DOFParams, time float32) {
	var prevFBO int32
	gl.GetIntegerv(gl.DRAW_FRAMEBUFFER_BINDING, &prevFBO)

	// half-res color + CoC
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.fbo)
	gl.Viewport(0, 0, p.halfWidth, p.halfHeight)

	p.prepass.Use()
	p.prepass.SetInt("uColorTex", 0)
	p.prepass.SetInt("uLinearDepthTex", 1)
	p.prepass.SetFloat("uFocusDepth", params.FocusDepth)
	p.prepass.SetFloat("uFocusScale", params.FocusScale)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)
	p.quad.draw()

	// full-res bokeh gather
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(prevFBO))
	gl.Viewport(0, 0, p.width, p.height)

	p.bokeh.Use()
	p.bokeh.SetInt("uColorTex", 0)
	p.bokeh.SetInt("uHalfTex", 1)
	p.bokeh.SetInt("uLinearDepthTex", 2)
	p.bokeh.SetFloat("uFocusDepth", params.FocusDepth)
	p.bokeh.SetFloat("uFocusScale", params.FocusScale)
	p.bokeh.SetFloat("uTime", time)
	p.bokeh.SetVec2("uInvHalfRes", mgl32.Vec2{1 / float32(p.halfWidth), 1 / float32(p.halfHeight)})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, p.halfTex)
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)
	p.quad.draw()
}

func (p *dofPass) destroy() {
	if p.fbo != 0 {
		gl.DeleteFramebuffers(1, &p.fbo)
		p.fbo = 0
	}
	if p.halfTex != 0 {
		gl.DeleteTextures(1, &p.halfTex)
		p.halfTex = 0
	}
	p.prepass.Delete()
	p.bokeh.Delete()
}

const dofPrepassFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform sampler2D uLinearDepthTex;
uniform float uFocusDepth;
uniform float uFocusScale;

#define MAX_COC 0.02

float cocFromDepth(float d) {
    float coc = clamp((1.0 / uFocusDepth - 1.0 / d) * uFocusScale, -1.0, 1.0);
    return coc * MAX_COC;
}

void main() {
    vec3 color = texture(uColorTex, vTexCoord).rgb;
    float d = texture(uLinearDepthTex, vTexCoord).r;
    FragColor = vec4(color, cocFromDepth(d));
}
` + "\x00"

// Golden-angle spiral gather over the half-res prefilter. Taps whose CoC is
// smaller than their spiral radius contribute the sharp full-res color
// instead, which keeps in-focus detail crisp under a wide kernel.
const dofBokehFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform sampler2D uHalfTex;
uniform sampler2D uLinearDepthTex;
uniform float uFocusDepth;
uniform float uFocusScale;
uniform float uTime;
uniform vec2 uInvHalfRes;

#define GOLDEN_ANGLE 2.39996323
#define MAX_COC 0.02
#define TAP_COUNT 48

float cocFromDepth(float d) {
    float coc = clamp((1.0 / uFocusDepth - 1.0 / d) * uFocusScale, -1.0, 1.0);
    return coc * MAX_COC;
}

float interleavedGradientNoise(vec2 px) {
    return fract(52.9829189 * fract(dot(px, vec2(0.06711056, 0.00583715))));
}

void main() {
    float centerDepth = texture(uLinearDepthTex, vTexCoord).r;
    float centerCoC = abs(cocFromDepth(centerDepth));

    vec3 color = texture(uColorTex, vTexCoord).rgb;
    float wSum = 1.0;

    float angle = interleavedGradientNoise(gl_FragCoord.xy + uTime) * GOLDEN_ANGLE;
    float radiusStep = centerCoC / float(TAP_COUNT);
    float radius = radiusStep;

    for (int i = 0; i < TAP_COUNT; ++i) {
        vec2 offset = vec2(cos(angle), sin(angle)) * radius;
        vec2 suv = vTexCoord + offset;

        vec4 tap = texture(uHalfTex, suv);
        float tapCoC = abs(tap.a);

        vec3 c = tapCoC >= radius
            ? tap.rgb
            : texture(uColorTex, suv).rgb;

        float w = 1.0;
        color += c * w;
        wSum += w;

        radius += radiusStep;
        angle += GOLDEN_ANGLE;
    }

    FragColor = vec4(color / wSum, 1.0);
}
` + "\x00"
