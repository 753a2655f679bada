// internal/render/hbao.go
//
// Horizon-based ambient occlusion over linear depth and view-space normals
package render

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// aoRandomTexSize is the edge length of the tiled rotation texture.
	aoRandomTexSize = 4

	// aoNumSamples is the length of the precomputed sample pattern.
	aoNumSamples = 32

	// aoNumDirections is the per-pixel ray direction count, kept in sync
	// with NUM_DIRECTIONS in the AO shader. The rotation texture only needs
	// to span one direction sector.
	aoNumDirections = 8

	// aoMinRadius is the smallest view-space radius accepted. A radius of
	// zero would drive NegInvR2 to -inf and the whole AO term to NaN, so
	// callers asking for less get this instead.
	aoMinRadius = 1e-3
)

// HBAOData mirrors the std140 uniform block consumed by the AO program.
// Immutable after construction except that every call derives a fresh one,
// because ProjInfo, InvFullRes and the radius scale depend on the current
// camera and viewport.
type HBAOData struct {
	ProjInfo       [4]float32
	InvFullRes     [2]float32
	InvQuarterRes  [2]float32
	RadiusToScreen float32
	NegInvR2       float32
	NDotVBias      float32
	AOMultiplier   float32
	PowExponent    float32
	IsOrtho        float32
	_              [2]float32
	SampleDirs     [aoNumSamples][4]float32
}

// hbaoSamplePattern builds the fixed Halton(2,3)-derived sample directions:
// (cos, sin, radius fraction, 0) per entry. Pure and deterministic.
func hbaoSamplePattern() [aoNumSamples][4]float32 {
	var dirs [aoNumSamples][4]float32
	for i := 0; i < aoNumSamples; i++ {
		angle := 2 * math.Pi * float64(Halton(i+1, 2))
		r := float32(math.Sqrt(float64(Halton(i+1, 3))))
		dirs[i] = [4]float32{
			float32(math.Cos(angle)),
			float32(math.Sin(angle)),
			r,
			0,
		}
	}
	return dirs
}

// setupHBAOData derives the per-call uniform block. Pure function of its
// inputs: identical arguments produce byte-identical output.
func setupHBAOData(width, height int32, proj mgl32.Mat4, orthographic bool, intensity, radius, bias float32) HBAOData {
	if radius < aoMinRadius {
		radius = aoMinRadius
	}
	if bias < 0 {
		bias = 0
	} else if bias > 1-1e-6 {
		bias = 1 - 1e-6
	}

	// proj.At(1,1) is 1/tan(fovy/2) for perspective and 2/(top-bottom)
	// for orthographic; either way it converts view-space extent at unit
	// depth into NDC, so the same expression scales the AO radius to
	// screen pixels.
	radiusToScreen := radius * 0.5 * proj.At(1, 1) * float32(height)

	var isOrtho float32
	if orthographic {
		isOrtho = 1
	}

	d := HBAOData{
		ProjInfo:       ProjInfo(proj, orthographic),
		InvFullRes:     [2]float32{1 / float32(width), 1 / float32(height)},
		InvQuarterRes:  [2]float32{float32(aoRandomTexSize) / float32(width), float32(aoRandomTexSize) / float32(height)},
		RadiusToScreen: radiusToScreen,
		NegInvR2:       -1 / (radius * radius),
		NDotVBias:      bias,
		AOMultiplier:   1 / (1 - bias),
		PowExponent:    max32(intensity, 0),
		IsOrtho:        isOrtho,
		SampleDirs:     hbaoSamplePattern(),
	}
	return d
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// hbaoPass owns the AO program pair, the rotation texture, the uniform
// buffer and the two single-channel blur targets.
type hbaoPass struct {
	fbo    uint32
	tex    [2]uint32 // raw AO, blur intermediate
	ubo    uint32
	random uint32

	calc       *Shader
	blurFirst  *Shader
	blurSecond *Shader
	quad       fullscreenQuad

	width  int32
	height int32
}

func newHBAOPass(quad fullscreenQuad) (*hbaoPass, error) {
	p := &hbaoPass{quad: quad}

	var err error
	p.calc, err = NewShaderFromSource(fullscreenVertSrc, hbaoCalcFragSrc)
	if err != nil {
		return nil, fmt.Errorf("hbao shader: %w", err)
	}
	p.blurFirst, err = NewShaderFromSource(fullscreenVertSrc, hbaoBlurFragSrc)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("hbao blur shader: %w", err)
	}
	p.blurSecond, err = NewShaderFromSource(fullscreenVertSrc, hbaoBlurFragSrc)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("hbao blur shader: %w", err)
	}

	gl.GenFramebuffers(1, &p.fbo)
	gl.GenBuffers(1, &p.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, p.ubo)
	var zero HBAOData
	gl.BufferData(gl.UNIFORM_BUFFER, int(unsafe.Sizeof(zero)), nil, gl.STREAM_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	idx := gl.GetUniformBlockIndex(p.calc.ID, gl.Str("HBAOData\x00"))
	gl.UniformBlockBinding(p.calc.ID, idx, 0)

	p.initRandomTexture()
	return p, nil
}

// hbaoRandomPattern builds the texel data for the tiled rotation texture
// from Halton(2,3): per texel a rotation (cos, sin) spanning one direction
// sector, plus a step jitter value. Pure and deterministic.
func hbaoRandomPattern() [aoRandomTexSize * aoRandomTexSize * 4]float32 {
	var data [aoRandomTexSize * aoRandomTexSize * 4]float32
	for i := 0; i < aoRandomTexSize*aoRandomTexSize; i++ {
		angle := 2 * math.Pi * float64(Halton(i+1, 2)) / float64(aoNumDirections)
		data[i*4+0] = float32(math.Cos(angle))
		data[i*4+1] = float32(math.Sin(angle))
		data[i*4+2] = Halton(i+1, 3)
		data[i*4+3] = 0
	}
	return data
}

// initRandomTexture uploads the 4x4 rotation texture. Tiled over the screen
// it decorrelates the sample pattern between neighboring pixels and avoids
// banding.
func (p *hbaoPass) initRandomTexture() {
	data := hbaoRandomPattern()

	gl.GenTextures(1, &p.random)
	gl.BindTexture(gl.TEXTURE_2D, p.random)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, aoRandomTexSize, aoRandomTexSize, 0,
		gl.RGBA, gl.FLOAT, gl.Ptr(&data[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (p *hbaoPass) resize(width, height int32) {
	if p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height

	for i := range p.tex {
		if p.tex[i] == 0 {
			gl.GenTextures(1, &p.tex[i])
		}
		gl.BindTexture(gl.TEXTURE_2D, p.tex[i])
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8, width, height, 0, gl.RED, gl.UNSIGNED_BYTE, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// blurSharpness keeps the bilateral blur from bleeding across depth
// discontinuities; smaller radii sharpen it further.
func blurSharpness(radius float32) float32 {
	if radius < aoMinRadius {
		radius = aoMinRadius
	}
	return 20 / float32(math.Sqrt(float64(radius)))
}

// render computes AO from linear depth + normals and multiplies it onto
// the color attachment bound in dstFBO. Runs strictly after the deferred
// compose (it modulates lit color) and before tonemapping.
func (p *hbaoPass) render(linearDepthTex, normalTex uint32, view ViewParam, params AOParams, dstFBO uint32) {
	data := setupHBAOData(p.width, p.height, view.Proj, view.Orthographic,
		params.Intensity, params.Radius, params.Bias)

	gl.BindBuffer(gl.UNIFORM_BUFFER, p.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, int(unsafe.Sizeof(data)), unsafe.Pointer(&data), gl.STREAM_DRAW)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, 0, p.ubo)

	// pass 1: raw AO into tex[0]
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.fbo)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.tex[0], 0)
	gl.Viewport(0, 0, p.width, p.height)

	p.calc.Use()
	p.calc.SetInt("uLinearDepthTex", 0)
	p.calc.SetInt("uNormalTex", 1)
	p.calc.SetInt("uRandomTex", 2)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, normalTex)
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_2D, p.random)
	p.quad.draw()

	sharpness := blurSharpness(params.Radius)
	invRes := mgl32.Vec2{1 / float32(p.width), 1 / float32(p.height)}

	// pass 2: horizontal bilateral blur into tex[1]
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.tex[1], 0)
	p.blurFirst.Use()
	p.blurFirst.SetInt("uAOTex", 0)
	p.blurFirst.SetInt("uLinearDepthTex", 1)
	p.blurFirst.SetFloat("uSharpness", sharpness)
	p.blurFirst.SetVec2("uInvResDir", mgl32.Vec2{invRes.X(), 0})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.tex[0])
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)
	p.quad.draw()

	// pass 3: vertical blur, multiplied straight onto the lit color
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dstFBO)
	gl.Viewport(0, 0, p.width, p.height)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ZERO, gl.SRC_COLOR)

	p.blurSecond.Use()
	p.blurSecond.SetInt("uAOTex", 0)
	p.blurSecond.SetInt("uLinearDepthTex", 1)
	p.blurSecond.SetFloat("uSharpness", sharpness)
	p.blurSecond.SetVec2("uInvResDir", mgl32.Vec2{0, invRes.Y()})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.tex[1])
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)
	p.quad.draw()

	gl.Disable(gl.BLEND)
}

func (p *hbaoPass) destroy() {
	if p.fbo != 0 {
		gl.DeleteFramebuffers(1, &p.fbo)
		p.fbo = 0
	}
	for i := range p.tex {
		if p.tex[i] != 0 {
			gl.DeleteTextures(1, &p.tex[i])
			p.tex[i] = 0
		}
	}
	if p.ubo != 0 {
		gl.DeleteBuffers(1, &p.ubo)
		p.ubo = 0
	}
	if p.random != 0 {
		gl.DeleteTextures(1, &p.random)
		p.random = 0
	}
	if p.calc != nil {
		p.calc.Delete()
	}
	if p.blurFirst != nil {
		p.blurFirst.Delete()
	}
	if p.blurSecond != nil {
		p.blurSecond.Delete()
	}
}

const hbaoCalcFragSrc = `#version 410 core

in vec2 vTexCoord;
out float FragAO;

uniform sampler2D uLinearDepthTex;
uniform sampler2D uNormalTex;
uniform sampler2D uRandomTex;

#define NUM_SAMPLES 32
#define NUM_DIRECTIONS 8
#define NUM_STEPS 4

layout(std140) uniform HBAOData {
    vec4  uProjInfo;
    vec2  uInvFullRes;
    vec2  uInvQuarterRes;
    float uRadiusToScreen;
    float uNegInvR2;
    float uNDotVBias;
    float uAOMultiplier;
    float uPowExponent;
    float uIsOrtho;
    vec2  _pad;
    vec4  uSampleDirs[NUM_SAMPLES];
};

vec3 octahedralDecode(vec2 f) {
    f = f * 2.0 - 1.0;
    vec3 n = vec3(f.x, f.y, 1.0 - abs(f.x) - abs(f.y));
    float t = clamp(-n.z, 0.0, 1.0);
    n.x += n.x >= 0.0 ? -t : t;
    n.y += n.y >= 0.0 ? -t : t;
    return normalize(n);
}

vec3 fetchViewPos(vec2 uv) {
    float z = texture(uLinearDepthTex, uv).r;
    if (uIsOrtho != 0.0) {
        return vec3((uv * uProjInfo.xy + uProjInfo.zw), z);
    }
    return vec3((uv * uProjInfo.xy + uProjInfo.zw) * z, z);
}

float falloff(float dist2) {
    return dist2 * uNegInvR2 + 1.0;
}

// Horizon-based per-sample contribution after McGuire/Bavoil: angle above
// the biased tangent plane, attenuated by squared distance.
float computeAO(vec3 p, vec3 n, vec3 s) {
    vec3 v = s - p;
    float vv = dot(v, v);
    float nv = dot(n, v) * inversesqrt(vv);
    return clamp(nv - uNDotVBias, 0.0, 1.0) * clamp(falloff(vv), 0.0, 1.0);
}

void main() {
    vec3 viewPos = fetchViewPos(vTexCoord);
    vec3 viewNormal = octahedralDecode(texture(uNormalTex, vTexCoord).rg);

    float radiusPixels = uRadiusToScreen;
    if (uIsOrtho == 0.0) {
        radiusPixels /= viewPos.z;
    }
    float stepSize = radiusPixels / (float(NUM_STEPS) + 1.0);

    // vTexCoord / uInvQuarterRes == gl_FragCoord.xy / 4: with REPEAT
    // wrapping the 4x4 rotation texture tiles per pixel
    vec4 rand = texture(uRandomTex, vTexCoord / uInvQuarterRes);
    mat2 rot = mat2(rand.x, rand.y, -rand.y, rand.x);

    float ao = 0.0;
    const float alpha = 2.0 * 3.14159265 / float(NUM_DIRECTIONS);

    for (int d = 0; d < NUM_DIRECTIONS; ++d) {
        float angle = alpha * float(d);
        vec2 dir = rot * vec2(cos(angle), sin(angle));

        float ray = (rand.z * stepSize + 1.0);
        for (int s = 0; s < NUM_STEPS; ++s) {
            vec2 suv = round(ray * dir) * uInvFullRes + vTexCoord;
            vec3 sp = fetchViewPos(suv);
            ao += computeAO(viewPos, viewNormal, sp);
            ray += stepSize;
        }
    }

    ao *= uAOMultiplier / float(NUM_DIRECTIONS * NUM_STEPS);
    ao = clamp(1.0 - ao * 2.0, 0.0, 1.0);

    FragAO = pow(ao, uPowExponent);
}
` + "\x00"

// Single-axis bilateral blur; uInvResDir selects the axis. Weighted by a
// gaussian in screen space times a depth-difference term scaled by
// uSharpness, so occlusion never bleeds across silhouettes.
const hbaoBlurFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uAOTex;
uniform sampler2D uLinearDepthTex;
uniform float uSharpness;
uniform vec2 uInvResDir;

#define KERNEL_RADIUS 3

float blurFunction(vec2 uv, float r, float centerD, inout float wTotal) {
    float ao = texture(uAOTex, uv).r;
    float d = texture(uLinearDepthTex, uv).r;

    const float sigma = float(KERNEL_RADIUS) * 0.5;
    const float falloff = 1.0 / (2.0 * sigma * sigma);

    float dDiff = (d - centerD) * uSharpness;
    float w = exp2(-r * r * falloff - dDiff * dDiff);
    wTotal += w;

    return ao * w;
}

void main() {
    float centerAO = texture(uAOTex, vTexCoord).r;
    float centerD = texture(uLinearDepthTex, vTexCoord).r;

    float total = centerAO;
    float wTotal = 1.0;

    for (float r = 1.0; r <= float(KERNEL_RADIUS); ++r) {
        total += blurFunction(vTexCoord + uInvResDir * r, r, centerD, wTotal);
        total += blurFunction(vTexCoord - uInvResDir * r, r, centerD, wTotal);
    }

    float ao = total / wTotal;
    FragColor = vec4(ao, ao, ao, 1.0);
}
` + "\x00"
