// internal/render/highlight.go
//
// Selection and highlight tinting driven by the picking attachment
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Selection mask bits, one byte per pickable item.
const (
	MaskHighlight uint8 = 1 << 0
	MaskSelected  uint8 = 1 << 1
)

// highlightPass tints pixels whose picking index carries highlight or
// selection bits. The per-item mask lives in a buffer texture so the lookup
// is a single texelFetch keyed by the picking attachment.
type highlightPass struct {
	shader *Shader
	quad   fullscreenQuad

	maskBuf uint32
	maskTex uint32
	maskLen int

	HighlightColor mgl32.Vec4
	SelectionColor mgl32.Vec4
}

func newHighlightPass(quad fullscreenQuad) (*highlightPass, error) {
	sh, err := NewShaderFromSource(fullscreenVertSrc, highlightFragSrc)
	if err != nil {
		return nil, fmt.Errorf("highlight shader: %w", err)
	}

	p := &highlightPass{
		shader:         sh,
		quad:           quad,
		HighlightColor: mgl32.Vec4{1.0, 0.8, 0.2, 0.35},
		SelectionColor: mgl32.Vec4{0.2, 0.6, 1.0, 0.35},
	}

	gl.GenBuffers(1, &p.maskBuf)
	gl.GenTextures(1, &p.maskTex)
	return p, nil
}

// SetMask uploads one mask byte per pickable item; index i corresponds to
// picking index i. An empty slice clears the mask entirely.
func (p *highlightPass) SetMask(mask []uint8) {
	p.maskLen = len(mask)
	if len(mask) == 0 {
		return
	}
	gl.BindBuffer(gl.TEXTURE_BUFFER, p.maskBuf)
	gl.BufferData(gl.TEXTURE_BUFFER, len(mask), gl.Ptr(mask), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.TEXTURE_BUFFER, 0)

	gl.BindTexture(gl.TEXTURE_BUFFER, p.maskTex)
	gl.TexBuffer(gl.TEXTURE_BUFFER, gl.R8UI, p.maskBuf)
	gl.BindTexture(gl.TEXTURE_BUFFER, 0)
}

// active reports whether the pass has anything to draw.
func (p *highlightPass) active() bool {
	return p.maskLen > 0
}

func (p *highlightPass) render(srcTex, pickingTex uint32) {
	p.shader.Use()
	p.shader.SetInt("uColorTex", 0)
	p.shader.SetInt("uPickingTex", 1)
	p.shader.SetInt("uMaskTex", 2)
	p.shader.SetInt("uMaskLen", int32(p.maskLen))
	p.shader.SetVec4("uHighlightColor", p.HighlightColor)
	p.shader.SetVec4("uSelectionColor", p.SelectionColor)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, pickingTex)
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_BUFFER, p.maskTex)

	p.quad.draw()
}

func (p *highlightPass) destroy() {
	if p.maskBuf != 0 {
		gl.DeleteBuffers(1, &p.maskBuf)
		p.maskBuf = 0
	}
	if p.maskTex != 0 {
		gl.DeleteTextures(1, &p.maskTex)
		p.maskTex = 0
	}
	p.shader.Delete()
}

// Picking indices are encoded BGRA in the rgba8 attachment; the decode here
// matches DecodePickingIndex. 0xFFFFFFFF marks empty pixels.
const highlightFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform sampler2D uPickingTex;
uniform usamplerBuffer uMaskTex;
uniform int uMaskLen;
uniform vec4 uHighlightColor;
uniform vec4 uSelectionColor;

#define MASK_HIGHLIGHT 1u
#define MASK_SELECTED  2u

uint decodeIndex(vec4 px) {
    uvec4 c = uvec4(px * 255.0 + 0.5);
    return (c.b << 16) | (c.g << 8) | c.r | (c.a << 24);
}

void main() {
    vec4 color = texture(uColorTex, vTexCoord);

    uint idx = decodeIndex(texture(uPickingTex, vTexCoord));
    if (idx == 0xFFFFFFFFu || idx >= uint(uMaskLen)) {
        FragColor = color;
        return;
    }

    uint mask = texelFetch(uMaskTex, int(idx)).r;
    if ((mask & MASK_SELECTED) != 0u) {
        color.rgb = mix(color.rgb, uSelectionColor.rgb, uSelectionColor.a);
    }
    if ((mask & MASK_HIGHLIGHT) != 0u) {
        color.rgb = mix(color.rgb, uHighlightColor.rgb, uHighlightColor.a);
    }

    FragColor = color;
}
` + "\x00"
