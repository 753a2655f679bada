// internal/render/pipeline.go
//
// Orchestration of the post-process chain: owns the ping-pong color
// targets, executes the pass plan, and guards the caller's GL state
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/rs/zerolog"
)

// Pipeline owns every post-process pass and the shared ping-pong color
// targets they cycle through. One instance per GL context; all methods must
// run on the context thread.
type Pipeline struct {
	log  zerolog.Logger
	quad fullscreenQuad

	colorFBO uint32
	colorTex [2]uint32 // rgba16f ping-pong pair

	linearDepth *linearDepthPass
	velocity    *velocityPass
	compose     *composePass
	hbao        *hbaoPass
	highlight   *highlightPass
	temporal    *temporalPass
	dof         *dofPass
	tonemap     *tonemapPass
	fxaa        *fxaaPass
	sharpen     *sharpenPass

	blend *Shader // alpha-blended overlay of the transparency layer

	width  int32
	height int32

	// texture written by the temporal pass this frame; what TargetHistory
	// resolves to for the stages after it
	historyOut uint32

	warnedAORadius float32
	warnedAO       bool
}

// NewPipeline creates every pass. Requires a current GL context.
func NewPipeline(log zerolog.Logger) (*Pipeline, error) {
	p := &Pipeline{log: log, quad: newFullscreenQuad()}

	var err error
	build := []struct {
		name string
		fn   func() error
	}{
		{"linear depth", func() error { p.linearDepth, err = newLinearDepthPass(p.quad); return err }},
		{"velocity", func() error { p.velocity, err = newVelocityPass(p.quad); return err }},
		{"compose", func() error { p.compose, err = newComposePass(p.quad); return err }},
		{"hbao", func() error { p.hbao, err = newHBAOPass(p.quad); return err }},
		{"highlight", func() error { p.highlight, err = newHighlightPass(p.quad); return err }},
		{"temporal", func() error { p.temporal, err = newTemporalPass(p.quad); return err }},
		{"dof", func() error { p.dof, err = newDOFPass(p.quad); return err }},
		{"tonemap", func() error { p.tonemap, err = newTonemapPass(p.quad); return err }},
		{"fxaa", func() error { p.fxaa, err = newFXAAPass(p.quad); return err }},
		{"sharpen", func() error { p.sharpen, err = newSharpenPass(p.quad); return err }},
		{"blend", func() error { p.blend, err = NewShaderFromSource(fullscreenVertSrc, blendFragSrc); return err }},
	}
	for _, b := range build {
		if err := b.fn(); err != nil {
			p.Destroy()
			return nil, fmt.Errorf("pipeline: %s pass: %w", b.name, err)
		}
	}

	gl.GenFramebuffers(1, &p.colorFBO)
	return p, nil
}

// EnableShaderOverrides replaces embedded pass shaders with file-backed
// ones from dir and hot-reloads them on change. The directory must contain
// fullscreen.vert; any of compose.frag, tonemap.frag and sharpen.frag then
// override the corresponding pass. Intended for shader development only.
func (p *Pipeline) EnableShaderOverrides(dir string) (*ShaderWatcher, error) {
	vert := filepath.Join(dir, "fullscreen.vert")
	if _, err := os.Stat(vert); err != nil {
		return nil, fmt.Errorf("shader override dir %s: %w", dir, err)
	}

	sw, err := NewShaderWatcher(func(path string, err error) {
		p.log.Error().Err(err).Str("path", path).Msg("shader reload failed")
	})
	if err != nil {
		return nil, err
	}

	overrides := map[string]**Shader{
		"compose.frag": &p.compose.shader,
		"tonemap.frag": &p.tonemap.shader,
		"sharpen.frag": &p.sharpen.shader,
	}
	for name, slot := range overrides {
		frag := filepath.Join(dir, name)
		if _, err := os.Stat(frag); err != nil {
			continue
		}
		sh, err := NewShaderFromFiles(vert, frag)
		if err != nil {
			p.log.Warn().Err(err).Str("path", frag).Msg("shader override rejected")
			continue
		}
		if err := sw.Watch(sh); err != nil {
			sh.Delete()
			sw.Close()
			return nil, err
		}
		(*slot).Delete()
		*slot = sh
		p.log.Info().Str("path", frag).Msg("shader override active")
	}
	return sw, nil
}

// SetSelectionMask uploads the per-item highlight/selection bitfield; index
// i corresponds to picking index i. Empty disables the highlight pass.
func (p *Pipeline) SetSelectionMask(mask []uint8) {
	p.highlight.SetMask(mask)
}

func (p *Pipeline) resize(width, height int32) {
	if p.width != width || p.height != height {
		p.width = width
		p.height = height
		for i := range p.colorTex {
			if p.colorTex[i] == 0 {
				gl.GenTextures(1, &p.colorTex[i])
			}
			gl.BindTexture(gl.TEXTURE_2D, p.colorTex[i])
			gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, width, height, 0, gl.RGBA, gl.FLOAT, nil)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		}
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	p.linearDepth.resize(width, height)
	p.velocity.resize(width, height)
	p.hbao.resize(width, height)
	p.temporal.resize(width, height)
	p.dof.resize(width, height)
}

// texFor maps a plan target to the texture currently holding it.
func (p *Pipeline) texFor(t Target) uint32 {
	switch t {
	case TargetColor0:
		return p.colorTex[0]
	case TargetColor1:
		return p.colorTex[1]
	case TargetHistory:
		return p.historyOut
	}
	return 0
}

// bindDst makes t the draw target at full resolution.
func (p *Pipeline) bindDst(t Target) {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.colorFBO)
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.texFor(t), 0)
	gl.Viewport(0, 0, p.width, p.height)
}

// ShadeAndPostprocess shades the G-buffer and runs the configured chain,
// blitting the result into targetFBO. Every piece of GL state the chain
// touches is restored before returning, including on error paths.
func (p *Pipeline) ShadeAndPostprocess(gbuf *GBuffer, view ViewParam, desc Descriptor, targetFBO uint32) {
	saved := captureGLState()
	defer saved.restore()

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.SCISSOR_TEST)

	width, height := gbuf.Dimensions()
	p.resize(width, height)

	if desc.AO.Enabled && desc.AO.Radius < aoMinRadius {
		if !p.warnedAO || p.warnedAORadius != desc.AO.Radius {
			p.log.Warn().
				Float32("radius", desc.AO.Radius).
				Float32("clamped", aoMinRadius).
				Msg("non-positive AO radius clamped")
			p.warnedAO = true
			p.warnedAORadius = desc.AO.Radius
		}
	}

	plan := BuildPlan(desc, p.highlight.active())
	for _, step := range plan {
		switch step.Stage {
		case StageLinearDepth:
			p.linearDepth.render(gbuf.Depth, view, desc.AO.Enabled)

		case StageVelocity:
			p.velocity.render(gbuf.Depth, gbuf.Velocity, view)

		case StageCompose:
			p.bindDst(step.Dst)
			p.compose.render(gbuf.Color, gbuf.Normal, p.linearDepth.tex, view, desc.Background)

		case StageAO:
			p.bindDst(step.Dst)
			p.hbao.render(p.linearDepth.tex, gbuf.Normal, view, desc.AO, p.colorFBO)

		case StageHighlight:
			p.bindDst(step.Dst)
			p.highlight.render(p.texFor(step.Src), gbuf.Picking)

		case StageTemporal:
			p.historyOut = p.temporal.render(p.texFor(step.Src), p.velocity.tex,
				p.velocity.neighborMax, p.linearDepth.tex, view, desc.Temporal)

		case StageDOF:
			p.bindDst(step.Dst)
			p.dof.render(p.texFor(step.Src), p.linearDepth.tex, desc.DOF, desc.Time)

		case StageTransparency:
			p.bindDst(step.Dst)
			p.blendTransparency(desc.Transparency)

		case StageTonemap:
			p.bindDst(step.Dst)
			p.tonemap.render(p.texFor(step.Src), desc.Tonemap)

		case StageTonemapFast:
			p.bindDst(step.Dst)
			p.tonemap.renderFast(p.texFor(step.Src), false)

		case StageFXAALuma:
			p.bindDst(step.Dst)
			p.fxaa.renderLuma(p.texFor(step.Src))

		case StageFXAA:
			p.bindDst(step.Dst)
			p.fxaa.render(p.texFor(step.Src), width, height)

		case StageTonemapFastInvert:
			p.bindDst(step.Dst)
			p.tonemap.renderFast(p.texFor(step.Src), true)

		case StageSharpen:
			p.bindDst(step.Dst)
			p.sharpen.render(p.texFor(step.Src), width, height, desc.Sharpen)

		case StageBlit:
			gl.BindFramebuffer(gl.READ_FRAMEBUFFER, p.colorFBO)
			gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.texFor(step.Src), 0)
			gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
			gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, targetFBO)
			vp := saved.viewport
			gl.BlitFramebuffer(0, 0, width, height,
				vp[0], vp[1], vp[0]+vp[2], vp[1]+vp[3],
				gl.COLOR_BUFFER_BIT, gl.LINEAR)
		}
	}
}

// blendTransparency alpha-blends the caller-supplied transparency layer
// over the color target currently bound for drawing. Only planned when the
// descriptor carries a texture, so an absent layer costs nothing.
func (p *Pipeline) blendTransparency(tex uint32) {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	p.blend.Use()
	p.blend.SetInt("uColorTex", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	p.quad.draw()

	gl.Disable(gl.BLEND)
}

// Destroy releases all passes and shared targets. Safe on a partially
// constructed pipeline.
func (p *Pipeline) Destroy() {
	if p.linearDepth != nil {
		p.linearDepth.destroy()
	}
	if p.velocity != nil {
		p.velocity.destroy()
	}
	if p.compose != nil {
		p.compose.destroy()
	}
	if p.hbao != nil {
		p.hbao.destroy()
	}
	if p.highlight != nil {
		p.highlight.destroy()
	}
	if p.temporal != nil {
		p.temporal.destroy()
	}
	if p.dof != nil {
		p.dof.destroy()
	}
	if p.tonemap != nil {
		p.tonemap.destroy()
	}
	if p.fxaa != nil {
		p.fxaa.destroy()
	}
	if p.sharpen != nil {
		p.sharpen.destroy()
	}
	if p.blend != nil {
		p.blend.Delete()
	}
	if p.colorFBO != 0 {
		gl.DeleteFramebuffers(1, &p.colorFBO)
		p.colorFBO = 0
	}
	for i := range p.colorTex {
		if p.colorTex[i] != 0 {
			gl.DeleteTextures(1, &p.colorTex[i])
			p.colorTex[i] = 0
		}
	}
	p.quad.destroy()
}

const blendFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec4 FragColor;

uniform sampler2D uColorTex;

void main() {
    FragColor = texture(uColorTex, vTexCoord);
}
` + "\x00"
