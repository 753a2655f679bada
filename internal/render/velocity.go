// internal/render/velocity.go
//
// Screen-space velocity for temporal reprojection and motion blur
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// velocityTileSize is the tile edge for the max-velocity dilation chain.
const velocityTileSize = 8

// velocityPass produces three textures per frame: the full-resolution
// camera-motion velocity, a TileMax downsample where every tile carries its
// largest velocity, and a NeighborMax dilation over the 3x3 tile
// neighborhood. The resolve pass samples NeighborMax so blur reaches across
// object silhouettes.
type velocityPass struct {
	fbo uint32

	tex         uint32 // full-res static velocity
	tileMax     uint32
	neighborMax uint32

	static   *Shader
	tile     *Shader
	neighbor *Shader
	quad     fullscreenQuad

	width      int32
	height     int32
	tileWidth  int32
	tileHeight int32
}

func newVelocityPass(quad fullscreenQuad) (*velocityPass, error) {
	p := &velocityPass{quad: quad}

	var err error
	p.static, err = NewShaderFromSource(fullscreenVertSrc, velocityStaticFragSrc)
	if err != nil {
		return nil, fmt.Errorf("static velocity shader: %w", err)
	}
	p.tile, err = NewShaderFromSource(fullscreenVertSrc, velocityTileMaxFragSrc)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("tilemax shader: %w", err)
	}
	p.neighbor, err = NewShaderFromSource(fullscreenVertSrc, velocityNeighborMaxFragSrc)
	if err != nil {
		p.destroy()
		return nil, fmt.Errorf("neighbormax shader: %w", err)
	}

	gl.GenFramebuffers(1, &p.fbo)
	return p, nil
}

func velocityTexture(tex *uint32, width, height int32) {
	if *tex == 0 {
		gl.GenTextures(1, tex)
	}
	gl.BindTexture(gl.TEXTURE_2D, *tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RG16F, width, height, 0, gl.RG, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func (p *velocityPass) resize(width, height int32) {
	if p.width == width && p.height == height {
		return
	}
	p.width = width
	p.height = height
	p.tileWidth = (width + velocityTileSize - 1) / velocityTileSize
	p.tileHeight = (height + velocityTileSize - 1) / velocityTileSize

	velocityTexture(&p.tex, width, height)
	velocityTexture(&p.tileMax, p.tileWidth, p.tileHeight)
	velocityTexture(&p.neighborMax, p.tileWidth, p.tileHeight)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// render reconstructs camera motion from depth via the reprojection matrix,
// adds any per-object velocity rendered into the G-buffer, then runs the
// TileMax and NeighborMax reductions.
func (p *velocityPass) render(depthTex, objectVelocityTex uint32, view ViewParam) {
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, p.fbo)

	// full-res static velocity
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.tex, 0)
	gl.Viewport(0, 0, p.width, p.height)

	reproj := ReprojectionMatrix(view)
	p.static.Use()
	p.static.SetInt("uDepthTex", 0)
	p.static.SetInt("uObjectVelocityTex", 1)
	p.static.SetMat4("uCurrToPrevClip", reproj)
	p.static.SetVec4("uJitterUV", mgl32.Vec4{
		view.Jitter.X(), view.Jitter.Y(),
		view.PrevJitter.X(), view.PrevJitter.Y(),
	})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, depthTex)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, objectVelocityTex)
	p.quad.draw()

	// tilemax
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.tileMax, 0)
	gl.Viewport(0, 0, p.tileWidth, p.tileHeight)
	p.tile.Use()
	p.tile.SetInt("uVelocityTex", 0)
	p.tile.SetVec2("uInvRes", mgl32.Vec2{1 / float32(p.width), 1 / float32(p.height)})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.tex)
	p.quad.draw()

	// neighbormax
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, p.neighborMax, 0)
	p.neighbor.Use()
	p.neighbor.SetInt("uTileMaxTex", 0)
	p.neighbor.SetVec2("uInvTileRes", mgl32.Vec2{1 / float32(p.tileWidth), 1 / float32(p.tileHeight)})
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.tileMax)
	p.quad.draw()
}

func (p *velocityPass) destroy() {
	if p.fbo != 0 {
		gl.DeleteFramebuffers(1, &p.fbo)
		p.fbo = 0
	}
	for _, t := range []*uint32{&p.tex, &p.tileMax, &p.neighborMax} {
		if *t != 0 {
			gl.DeleteTextures(1, t)
			*t = 0
		}
	}
	if p.static != nil {
		p.static.Delete()
	}
	if p.tile != nil {
		p.tile.Delete()
	}
	if p.neighbor != nil {
		p.neighbor.Delete()
	}
}

// Camera-motion velocity: unjitter the current UV, reproject through
// uCurrToPrevClip, unjitter the previous UV, and take the difference.
// Where the G-buffer carries a per-object velocity it wins.
const velocityStaticFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec2 FragVelocity;

uniform sampler2D uDepthTex;
uniform sampler2D uObjectVelocityTex;
uniform mat4 uCurrToPrevClip;
uniform vec4 uJitterUV; // xy = current jitter, zw = previous jitter

void main() {
    vec2 objVel = texture(uObjectVelocityTex, vTexCoord).rg;
    if (dot(objVel, objVel) > 0.0) {
        FragVelocity = objVel;
        return;
    }

    float d = texture(uDepthTex, vTexCoord).r;
    vec2 uv = vTexCoord - uJitterUV.xy;
    vec4 clip = vec4(uv * 2.0 - 1.0, d * 2.0 - 1.0, 1.0);
    vec4 prevClip = uCurrToPrevClip * clip;
    vec2 prevUV = (prevClip.xy / prevClip.w) * 0.5 + 0.5 - uJitterUV.zw;

    FragVelocity = uv - prevUV;
}
` + "\x00"

const velocityTileMaxFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec2 FragVelocity;

uniform sampler2D uVelocityTex;
uniform vec2 uInvRes;

#define TILE_SIZE 8

void main() {
    vec2 base = (floor(gl_FragCoord.xy) * float(TILE_SIZE) + 0.5) * uInvRes;

    vec2 maxVel = vec2(0.0);
    float maxMag2 = -1.0;
    for (int y = 0; y < TILE_SIZE; ++y) {
        for (int x = 0; x < TILE_SIZE; ++x) {
            vec2 v = texture(uVelocityTex, base + vec2(x, y) * uInvRes).rg;
            float m2 = dot(v, v);
            if (m2 > maxMag2) {
                maxMag2 = m2;
                maxVel = v;
            }
        }
    }
    FragVelocity = maxVel;
}
` + "\x00"

const velocityNeighborMaxFragSrc = `#version 410 core

in vec2 vTexCoord;
out vec2 FragVelocity;

uniform sampler2D uTileMaxTex;
uniform vec2 uInvTileRes;

void main() {
    vec2 maxVel = vec2(0.0);
    float maxMag2 = -1.0;
    for (int y = -1; y <= 1; ++y) {
        for (int x = -1; x <= 1; ++x) {
            vec2 v = texture(uTileMaxTex, vTexCoord + vec2(x, y) * uInvTileRes).rg;
            float m2 = dot(v, v);
            if (m2 > maxMag2) {
                maxMag2 = m2;
                maxVel = v;
            }
        }
    }
    FragVelocity = maxVel;
}
` + "\x00"
