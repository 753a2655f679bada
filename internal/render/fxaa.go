// internal/render/fxaa.go
//
// FXAA 3.11-style edge antialiasing with a separate luma precompute
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// fxaaPass runs in two programs: the first writes perceptual luma into the
// alpha channel, the second performs the edge search. FXAA reads luma from
// alpha, so the precompute has to land in an intermediate target before the
// AA program samples it.
type fxaaPass struct {
	luma   *Shader
	filter *Shader
	quad   fullscreenQuad
}

func newFXAAPass(quad fullscreenQuad) (*fxaaPass, error) {
	p := &fxaaPass{quad: quad}

	var err error
	p.luma, err = NewShaderFromSource(fullscreenVertSrc, fxaaLumaFragSrc)
	if err != nil {
		return nil, fmt.Errorf("fxaa luma shader: %w", err)
	}
	p.filter, err = NewShaderFromSource(fullscreenVertSrc, fxaaFilterFragSrc)
	if err != nil {
		p.luma.Delete()
		return nil, fmt.Errorf("fxaa shader: %w", err)
	}
	return p, nil
}

// renderLuma copies srcTex while replacing alpha with luma.
func (p *fxaaPass) renderLuma(srcTex uint32) {
	p.luma.Use()
	p.luma.SetInt("uColorTex", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	p.quad.draw()
}

// render antialiases srcTex (alpha = luma) into the bound framebuffer.
func (p *fxaaPass) render(srcTex uint32, width, height int32) {
	p.filter.Use()
	p.filter.SetInt("uColorTex", 0)
	p.filter.SetVec2("uInvRes", mgl32.Vec2{1 / float32(width), 1 / float32(height)})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, srcTex)
	p.quad.draw()
}

func (p *fxaaPass) destroy() {
	p.luma.Delete()
	p.filter.Delete()
}

const fxaaLumaFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;

void main() {
    vec3 c = texture(uColorTex, vTexCoord).rgb;
    float luma = sqrt(dot(c, vec3(0.299, 0.587, 0.114)));
    FragColor = vec4(c, luma);
}
` + "\x00"

// Console-style FXAA: edge detect on the luma cross, then a single blended
// tap along the perpendicular of the dominant gradient.
const fxaaFilterFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform vec2 uInvRes;

#define EDGE_THRESHOLD_MIN 0.0312
#define EDGE_THRESHOLD_MAX 0.125
#define SUBPIXEL_QUALITY 0.75
#define ITERATIONS 12

float lumaAt(vec2 uv) {
    return texture(uColorTex, uv).a;
}

void main() {
    vec3 colorCenter = texture(uColorTex, vTexCoord).rgb;
    float lumaCenter = lumaAt(vTexCoord);

    float lumaD = lumaAt(vTexCoord + vec2(0.0, -uInvRes.y));
    float lumaU = lumaAt(vTexCoord + vec2(0.0, uInvRes.y));
    float lumaL = lumaAt(vTexCoord + vec2(-uInvRes.x, 0.0));
    float lumaR = lumaAt(vTexCoord + vec2(uInvRes.x, 0.0));

    float lumaMin = min(lumaCenter, min(min(lumaD, lumaU), min(lumaL, lumaR)));
    float lumaMax = max(lumaCenter, max(max(lumaD, lumaU), max(lumaL, lumaR)));
    float lumaRange = lumaMax - lumaMin;

    if (lumaRange < max(EDGE_THRESHOLD_MIN, lumaMax * EDGE_THRESHOLD_MAX)) {
        FragColor = vec4(colorCenter, 1.0);
        return;
    }

    float lumaDL = lumaAt(vTexCoord + vec2(-uInvRes.x, -uInvRes.y));
    float lumaUR = lumaAt(vTexCoord + vec2(uInvRes.x, uInvRes.y));
    float lumaUL = lumaAt(vTexCoord + vec2(-uInvRes.x, uInvRes.y));
    float lumaDR = lumaAt(vTexCoord + vec2(uInvRes.x, -uInvRes.y));

    float lumaDU = lumaD + lumaU;
    float lumaLR = lumaL + lumaR;
    float lumaLeftCorners = lumaDL + lumaUL;
    float lumaDownCorners = lumaDL + lumaDR;
    float lumaRightCorners = lumaDR + lumaUR;
    float lumaUpCorners = lumaUR + lumaUL;

    float edgeHorizontal = abs(-2.0 * lumaL + lumaLeftCorners)
        + abs(-2.0 * lumaCenter + lumaDU) * 2.0
        + abs(-2.0 * lumaR + lumaRightCorners);
    float edgeVertical = abs(-2.0 * lumaU + lumaUpCorners)
        + abs(-2.0 * lumaCenter + lumaLR) * 2.0
        + abs(-2.0 * lumaD + lumaDownCorners);

    bool isHorizontal = edgeHorizontal >= edgeVertical;

    float luma1 = isHorizontal ? lumaD : lumaL;
    float luma2 = isHorizontal ? lumaU : lumaR;
    float gradient1 = luma1 - lumaCenter;
    float gradient2 = luma2 - lumaCenter;

    bool is1Steepest = abs(gradient1) >= abs(gradient2);
    float gradientScaled = 0.25 * max(abs(gradient1), abs(gradient2));

    float stepLength = isHorizontal ? uInvRes.y : uInvRes.x;
    float lumaLocalAverage;
    if (is1Steepest) {
        stepLength = -stepLength;
        lumaLocalAverage = 0.5 * (luma1 + lumaCenter);
    } else {
        lumaLocalAverage = 0.5 * (luma2 + lumaCenter);
    }

    vec2 currentUV = vTexCoord;
    if (isHorizontal) {
        currentUV.y += stepLength * 0.5;
    } else {
        currentUV.x += stepLength * 0.5;
    }

    vec2 offset = isHorizontal ? vec2(uInvRes.x, 0.0) : vec2(0.0, uInvRes.y);
    vec2 uv1 = currentUV - offset;
    vec2 uv2 = currentUV + offset;

    float lumaEnd1 = lumaAt(uv1) - lumaLocalAverage;
    float lumaEnd2 = lumaAt(uv2) - lumaLocalAverage;
    bool reached1 = abs(lumaEnd1) >= gradientScaled;
    bool reached2 = abs(lumaEnd2) >= gradientScaled;

    for (int i = 1; i < ITERATIONS && !(reached1 && reached2); ++i) {
        if (!reached1) {
            uv1 -= offset;
            lumaEnd1 = lumaAt(uv1) - lumaLocalAverage;
            reached1 = abs(lumaEnd1) >= gradientScaled;
        }
        if (!reached2) {
            uv2 += offset;
            lumaEnd2 = lumaAt(uv2) - lumaLocalAverage;
            reached2 = abs(lumaEnd2) >= gradientScaled;
        }
    }

    float distance1 = isHorizontal ? (vTexCoord.x - uv1.x) : (vTexCoord.y - uv1.y);
    float distance2 = isHorizontal ? (uv2.x - vTexCoord.x) : (uv2.y - vTexCoord.y);

    bool isDirection1 = distance1 < distance2;
    float distanceFinal = min(distance1, distance2);
    float edgeThickness = distance1 + distance2;

    bool isLumaCenterSmaller = lumaCenter < lumaLocalAverage;
    bool correctVariation = ((isDirection1 ? lumaEnd1 : lumaEnd2) < 0.0) != isLumaCenterSmaller;

    float pixelOffset = correctVariation ? -distanceFinal / edgeThickness + 0.5 : 0.0;

    float lumaAverage = (1.0 / 12.0) * (2.0 * (lumaDU + lumaLR) + lumaLeftCorners + lumaRightCorners);
    float subPixelOffset1 = clamp(abs(lumaAverage - lumaCenter) / lumaRange, 0.0, 1.0);
    float subPixelOffset2 = (-2.0 * subPixelOffset1 + 3.0) * subPixelOffset1 * subPixelOffset1;
    float subPixelOffsetFinal = subPixelOffset2 * subPixelOffset2 * SUBPIXEL_QUALITY;

    float finalOffset = max(pixelOffset, subPixelOffsetFinal);

    vec2 finalUV = vTexCoord;
    if (isHorizontal) {
        finalUV.y += finalOffset * stepLength;
    } else {
        finalUV.x += finalOffset * stepLength;
    }

    FragColor = vec4(texture(uColorTex, finalUV).rgb, 1.0);
}
` + "\x00"
