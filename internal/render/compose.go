// internal/render/compose.go
//
// Deferred shading: G-buffer in, lit HDR color out
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// composePass evaluates the lighting model once per pixel from the G-buffer
// attachments. Pixels with no geometry resolve to the background color.
type composePass struct {
	shader *Shader
	quad   fullscreenQuad
}

func newComposePass(quad fullscreenQuad) (*composePass, error) {
	sh, err := NewShaderFromSource(fullscreenVertSrc, composeFragSrc)
	if err != nil {
		return nil, fmt.Errorf("compose shader: %w", err)
	}
	return &composePass{shader: sh, quad: quad}, nil
}

// render shades into whatever draw framebuffer and viewport the caller has
// bound. Depth test must be off; the pass covers every pixel.
func (p *composePass) render(colorTex, normalTex, linearDepthTex uint32, view ViewParam, background mgl32.Vec3) {
	p.shader.Use()
	p.shader.SetInt("uColorTex", 0)
	p.shader.SetInt("uNormalTex", 1)
	p.shader.SetInt("uLinearDepthTex", 2)
	p.shader.SetVec3("uBackground", background)
	p.shader.SetVec4("uProjInfo", ProjInfo(view.Proj, view.Orthographic))
	if view.Orthographic {
		p.shader.SetFloat("uIsOrtho", 1)
	} else {
		p.shader.SetFloat("uIsOrtho", 0)
	}
	p.shader.SetFloat("uFar", view.Far)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, colorTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, normalTex)
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)

	p.quad.draw()
}

func (p *composePass) destroy() {
	p.shader.Delete()
}

// Fixed-material deferred lighting: a single directional light down the
// (1,1,1) diagonal, Schlick fresnel with dielectric F0 = 0.04, fixed
// roughness 0.4, plus an ambient term of a quarter of the background color.
const composeFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform sampler2D uNormalTex;
uniform sampler2D uLinearDepthTex;
uniform vec3 uBackground;
uniform vec4 uProjInfo;
uniform float uIsOrtho;
uniform float uFar;

const vec3  LIGHT_DIR = vec3(0.57735027, 0.57735027, 0.57735027);
const float F0 = 0.04;
const float ROUGHNESS = 0.4;
const float SPEC_EXP = 2.0 / (ROUGHNESS * ROUGHNESS) - 2.0;

vec3 octahedralDecode(vec2 f) {
    f = f * 2.0 - 1.0;
    vec3 n = vec3(f.x, f.y, 1.0 - abs(f.x) - abs(f.y));
    float t = clamp(-n.z, 0.0, 1.0);
    n.x += n.x >= 0.0 ? -t : t;
    n.y += n.y >= 0.0 ? -t : t;
    return normalize(n);
}

vec3 fetchViewPos(vec2 uv, float z) {
    if (uIsOrtho != 0.0) {
        return vec3(uv * uProjInfo.xy + uProjInfo.zw, z);
    }
    return vec3((uv * uProjInfo.xy + uProjInfo.zw) * z, z);
}

float fresnelSchlick(float HdotV) {
    return F0 + (1.0 - F0) * pow(1.0 - HdotV, 5.0);
}

vec3 shade(vec3 albedo, vec3 P, vec3 N) {
    vec3 V = uIsOrtho != 0.0 ? vec3(0.0, 0.0, -1.0) : -normalize(P);
    vec3 L = LIGHT_DIR;
    vec3 H = normalize(L + V);

    float NdotL = max(dot(N, L), 0.0);
    float NdotH = max(dot(N, H), 0.0);
    float HdotV = max(dot(H, V), 0.0);

    vec3 ambient = uBackground * 0.25;
    vec3 diffuse = albedo * NdotL;
    float specular = fresnelSchlick(HdotV) * pow(NdotH, SPEC_EXP) * NdotL;

    return ambient * albedo + diffuse + vec3(specular);
}

void main() {
    float z = texture(uLinearDepthTex, vTexCoord).r;
    if (z >= uFar * 0.9999) {
        FragColor = vec4(uBackground, 1.0);
        return;
    }

    vec4 color = texture(uColorTex, vTexCoord);
    vec3 N = octahedralDecode(texture(uNormalTex, vTexCoord).rg);
    vec3 P = fetchViewPos(vTexCoord, z);

    FragColor = vec4(shade(color.rgb, P, N), color.a);
}
` + "\x00"
