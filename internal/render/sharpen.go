// internal/render/sharpen.go
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// sharpenPass applies a weighted 3x3 unsharp mask.
type sharpenPass struct {
	shader *Shader
	quad   fullscreenQuad
}

func newSharpenPass(quad fullscreenQuad) (*sharpenPass, error) {
	sh, err := NewShaderFromSource(fullscreenVertSrc, sharpenFragSrc)
	if err != nil {
		return nil, fmt.Errorf("sharpen shader: %w", err)
	}
	return &sharpenPass{shader: sh, quad: quad}, nil
}

func (p *sharpenPass) render(srcTex uint32, width, height int32, params SharpenParams) {
	p.shader.Use()
	p.shader.SetInt("uColorTex", 0)
	p.shader.SetFloat("uWeight", params.Weight)
	p.shader.SetVec2("uInvRes", mgl32.Vec2{1 / float32(width), 1 / float32(height)})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	p.quad.draw()
}

func (p *sharpenPass) destroy() {
	p.shader.Delete()
}

const sharpenFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform float uWeight;
uniform vec2 uInvRes;

void main() {
    vec4 center = texture(uColorTex, vTexCoord);

    vec3 blur = vec3(0.0);
    blur += texture(uColorTex, vTexCoord + vec2(-uInvRes.x, 0.0)).rgb;
    blur += texture(uColorTex, vTexCoord + vec2(uInvRes.x, 0.0)).rgb;
    blur += texture(uColorTex, vTexCoord + vec2(0.0, -uInvRes.y)).rgb;
    blur += texture(uColorTex, vTexCoord + vec2(0.0, uInvRes.y)).rgb;
    blur *= 0.25;

    vec3 sharpened = center.rgb + (center.rgb - blur) * uWeight;
    FragColor = vec4(max(sharpened, vec3(0.0)), center.a);
}
` + "\x00"
