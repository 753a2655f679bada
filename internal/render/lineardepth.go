// internal/render/lineardepth.go
//
// Reconstruction of view-space linear depth from the hardware depth buffer
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// linearDepthPass converts the nonlinear depth attachment into a mip-mapped
// R32F texture holding view-space Z. SSAO and DOF both sample it; SSAO also
// samples its coarser mip levels.
type linearDepthPass struct {
	fbo uint32
	tex uint32

	persp *Shader
	ortho *Shader
	quad  fullscreenQuad

	width  int32
	height int32
}

func newLinearDepthPass(quad fullscreenQuad) (*linearDepthPass, error) {
	p := &linearDepthPass{quad: quad}

	var err error
	p.persp, err = NewShaderFromSource(fullscreenVertSrc, linearDepthPerspFragSrc)
	if err != nil {
		return nil, fmt.Errorf("linear depth (perspective) shader: %w", err)
	}
	p.ortho, err = NewShaderFromSource(fullscreenVertSrc, linearDepthOrthoFragSrc)
	if err != nil {
		p.persp.Delete()
		return nil, fmt.Errorf("linear depth (orthographic) shader: %w", err)
	}

	gl.GenFramebuffers(1, &p.fbo)
	gl.GenTextures(1, &p.tex)
	return p, nil
}

func (p *linearDepthPass) resize(width, height int32) {
	if p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height

	gl.BindTexture(gl.TEXTURE_2D, p.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R32F, width, height, 0, gl.RED, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST_MIPMAP_NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.BindFramebuffer(gl.FRAMEBUFFER, p.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.tex, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// render linearizes depthTex. When withMips is set (SSAO active) the mip
// chain is regenerated afterwards so coarser levels are valid to sample.
func (p *linearDepthPass) render(depthTex uint32, view ViewParam, withMips bool) {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.fbo)
	gl.Viewport(0, 0, p.width, p.height)

	sh := p.persp
	if view.Orthographic {
		sh = p.ortho
	}
	sh.Use()
	sh.SetInt("uDepthTex", 0)
	sh.SetVec4("uClipInfo", ClipInfo(view.Near, view.Far))

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, depthTex)

	p.quad.draw()

	if withMips {
		gl.BindTexture(gl.TEXTURE_2D, p.tex)
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
}

func (p *linearDepthPass) destroy() {
	if p.fbo != 0 {
		gl.DeleteFramebuffers(1, &p.fbo)
		p.fbo = 0
	}
	if p.tex != 0 {
		gl.DeleteTextures(1, &p.tex)
		p.tex = 0
	}
	p.persp.Delete()
	p.ortho.Delete()
}

// uClipInfo = (near*far, near-far, far, 0); see ClipInfo. The two programs
// mirror LinearizeDepth exactly.
const linearDepthPerspFragSrc = `#version 410 core

in vec2 vTexCoord;
out float FragDepth;

uniform sampler2D uDepthTex;
uniform vec4 uClipInfo;

void main() {
    float d = texture(uDepthTex, vTexCoord).r;
    FragDepth = uClipInfo.x / (d * uClipInfo.y + uClipInfo.z);
}
` + "\x00"

const linearDepthOrthoFragSrc = `#version 410 core

in vec2 vTexCoord;
out float FragDepth;

uniform sampler2D uDepthTex;
uniform vec4 uClipInfo;

void main() {
    float d = texture(uDepthTex, vTexCoord).r;
    FragDepth = uClipInfo.y + uClipInfo.z - d * uClipInfo.y;
}
` + "\x00"
