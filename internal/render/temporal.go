// internal/render/temporal.go
//
// Temporal antialiasing resolve with optional per-pixel motion blur
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// temporalPass blends the current frame against an exponentially-weighted
// history. Two history textures alternate by frame parity: the even frame
// reads history[1] and writes history[0], the odd frame the reverse. The
// freshly written history texture is also the pass output.
type temporalPass struct {
	fbo     uint32
	history [2]uint32

	resolve     *Shader // no motion blur
	resolveBlur *Shader // with motion blur
	quad        fullscreenQuad

	width  int32
	height int32
	frame  uint64
	reset  bool
}

func newTemporalPass(quad fullscreenQuad) (*temporalPass, error) {
	p := &temporalPass{quad: quad, reset: true}

	var err error
	p.resolve, err = NewShaderFromSource(fullscreenVertSrc, "#version 410 core\n#define USE_MOTION_BLUR 0\n"+temporalResolveFragSrc)
	if err != nil {
		return nil, fmt.Errorf("temporal resolve shader: %w", err)
	}
	p.resolveBlur, err = NewShaderFromSource(fullscreenVertSrc, "#version 410 core\n#define USE_MOTION_BLUR 1\n"+temporalResolveFragSrc)
	if err != nil {
		p.resolve.Delete()
		return nil, fmt.Errorf("temporal resolve (motion blur) shader: %w", err)
	}

	gl.GenFramebuffers(1, &p.fbo)
	return p, nil
}

func (p *temporalPass) resize(width, height int32) {
	if p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height
	p.reset = true

	for i := range p.history {
		if p.history[i] == 0 {
			gl.GenTextures(1, &p.history[i])
		}
		gl.BindTexture(gl.TEXTURE_2D, p.history[i])
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// render resolves colorTex against history and returns the texture holding
// the result. velocityTex is the full-resolution velocity; neighborMaxTex
// the dilated tile velocity, only sampled by the motion-blur variant.
func (p *temporalPass) render(colorTex, velocityTex, neighborMaxTex, linearDepthTex uint32, view ViewParam, params TemporalParams) uint32 {
	write := int(p.frame % 2)
	read := 1 - write
	p.frame++

	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.fbo)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.history[write], 0)
	gl.Viewport(0, 0, p.width, p.height)

	sh := p.resolve
	if params.MotionScale != 0 {
		sh = p.resolveBlur
	}
	sh.Use()
	sh.SetInt("uColorTex", 0)
	sh.SetInt("uHistoryTex", 1)
	sh.SetInt("uVelocityTex", 2)
	sh.SetInt("uNeighborMaxTex", 3)
	sh.SetInt("uLinearDepthTex", 4)
	sh.SetVec2("uInvRes", mgl32.Vec2{1 / float32(p.width), 1 / float32(p.height)})
	sh.SetVec4("uJitterUV", mgl32.Vec4{
		view.Jitter.X(), view.Jitter.Y(),
		view.PrevJitter.X(), view.PrevJitter.Y(),
	})
	sh.SetFloat("uFeedbackMin", params.FeedbackMin)
	sh.SetFloat("uFeedbackMax", params.FeedbackMax)
	sh.SetFloat("uMotionScale", params.MotionScale)
	if p.reset {
		// no valid history yet; take the current frame wholesale
		sh.SetFloat("uFeedbackMin", 0)
		sh.SetFloat("uFeedbackMax", 0)
		p.reset = false
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, colorTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, p.history[read])
	gl.ActiveTexture(gl.TEXTURE2)
	gl.BindTexture(gl.TEXTURE_2D, velocityTex)
	gl.ActiveTexture(gl.TEXTURE3)
	gl.BindTexture(gl.TEXTURE_2D, neighborMaxTex)
	gl.ActiveTexture(gl.TEXTURE4)
	gl.BindTexture(gl.TEXTURE_2D, linearDepthTex)

	p.quad.draw()
	return p.history[write]
}

func (p *temporalPass) destroy() {
	if p.fbo != 0 {
		gl.DeleteFramebuffers(1, &p.fbo)
		p.fbo = 0
	}
	for i := range p.history {
		if p.history[i] != 0 {
			gl.DeleteTextures(1, &p.history[i])
			p.history[i] = 0
		}
	}
	if p.resolve != nil {
		p.resolve.Delete()
	}
	if p.resolveBlur != nil {
		p.resolveBlur.Delete()
	}
}

// The #version line and the USE_MOTION_BLUR define are prepended at link
// time; the define has to precede everything except #version.
const temporalResolveFragSrc = `
in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;
uniform sampler2D uHistoryTex;
uniform sampler2D uVelocityTex;
uniform sampler2D uNeighborMaxTex;
uniform sampler2D uLinearDepthTex;
uniform vec2 uInvRes;
// xy = current jitter, zw = previous jitter. The history buffer stores the
// already-unjittered resolve and the velocity texture is computed between
// unjittered positions, so only the current offset is undone here.
uniform vec4 uJitterUV;
uniform float uFeedbackMin;
uniform float uFeedbackMax;
uniform float uMotionScale;

#define MOTION_BLUR_TAPS 8

// History clamp against the 3x3 neighborhood of the current frame. Keeps
// reprojection ghosts bounded without an explicit disocclusion test.
vec4 clampHistory(vec4 history, vec2 uv) {
    vec4 cmin = vec4(1e30);
    vec4 cmax = vec4(-1e30);
    for (int y = -1; y <= 1; ++y) {
        for (int x = -1; x <= 1; ++x) {
            vec4 c = texture(uColorTex, uv + vec2(x, y) * uInvRes);
            cmin = min(cmin, c);
            cmax = max(cmax, c);
        }
    }
    return clamp(history, cmin, cmax);
}

void main() {
    vec2 uvCurr = vTexCoord - uJitterUV.xy;
    vec2 vel = texture(uVelocityTex, vTexCoord).rg;
    vec2 uvPrev = uvCurr - vel;

    vec4 current = texture(uColorTex, uvCurr);
    vec4 history = texture(uHistoryTex, uvPrev);
    history = clampHistory(history, uvCurr);

    // faster motion trusts history less
    float velMag = length(vel / uInvRes);
    float feedback = mix(uFeedbackMax, uFeedbackMin, clamp(velMag / 40.0, 0.0, 1.0));

    vec4 resolved = mix(current, history, feedback);

#if USE_MOTION_BLUR
    vec2 maxVel = texture(uNeighborMaxTex, vTexCoord).rg * uMotionScale;
    if (dot(maxVel, maxVel) > dot(uInvRes, uInvRes)) {
        float centerD = texture(uLinearDepthTex, vTexCoord).r;
        vec4 sum = resolved;
        float wSum = 1.0;
        for (int i = 1; i < MOTION_BLUR_TAPS; ++i) {
            float t = (float(i) / float(MOTION_BLUR_TAPS - 1)) - 0.5;
            vec2 suv = vTexCoord + maxVel * t;
            float d = texture(uLinearDepthTex, suv).r;
            // soft depth comparison rejects foreground smearing background
            float w = clamp(1.0 - (centerD - d), 0.0, 1.0);
            sum += texture(uColorTex, suv - uJitterUV.xy) * w;
            wSum += w;
        }
        resolved = sum / wSum;
    }
#endif

    FragColor = resolved;
}
` + "\x00"
