package main

import (
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mdview/mdview/internal/camera"
	"github.com/mdview/mdview/internal/config"
	"github.com/mdview/mdview/internal/logging"
	"github.com/mdview/mdview/internal/render"
	"github.com/mdview/mdview/internal/scene"
)

func init() {
	runtime.LockOSThread()
}

type app struct {
	window   *glfw.Window
	cam      *camera.Camera
	gbuf     *render.GBuffer
	pipeline *render.Pipeline
	scn      *scene.Scene

	desc      render.Descriptor
	selection []uint8

	dragging   bool
	panning    bool
	lastCursor mgl32.Vec2
	pressPos   mgl32.Vec2
	resized    bool

	hovered    uint32
	hasHovered bool
}

func main() {
	modelPath := flag.String("model", "", "glTF surface mesh to load alongside the demo atoms")
	atomCount := flag.Int("atoms", 200, "number of demo atoms")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(*logLevel)
	logger, err := logging.New(logCfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()
	log := logger.Component("main")

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("config load failed, using defaults")
		cfg = config.DefaultConfig()
	}

	if err := glfw.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize GLFW")
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if cfg.Window.Resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}
	if cfg.Window.MSAA > 0 {
		glfw.WindowHint(glfw.Samples, cfg.Window.MSAA)
	}

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create window")
	}
	window.MakeContextCurrent()
	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	}

	if err := gl.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OpenGL")
	}
	log.Info().
		Str("version", gl.GoStr(gl.GetString(gl.VERSION))).
		Str("renderer", gl.GoStr(gl.GetString(gl.RENDERER))).
		Msg("OpenGL context created")

	fbWidth, fbHeight := window.GetFramebufferSize()
	gbuf, err := render.NewGBuffer(int32(fbWidth), int32(fbHeight))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gbuffer")
	}
	defer gbuf.Destroy()

	pipeline, err := render.NewPipeline(logger.Component("render"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create render pipeline")
	}
	defer pipeline.Destroy()

	scn, err := scene.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scene")
	}
	defer scn.Destroy()

	atoms := scene.DemoAtoms(*atomCount)
	scn.SetAtoms(atoms)
	log.Info().Int("atoms", len(atoms)).Msg("demo scene loaded")

	selectable := len(atoms)
	if *modelPath != "" {
		mesh, err := scene.LoadGLTF(*modelPath)
		if err != nil {
			log.Error().Err(err).Str("path", *modelPath).Msg("failed to load model")
		} else {
			scn.AddMesh(mesh, mgl32.Vec4{0.7, 0.75, 0.8, 1}, uint32(selectable))
			selectable++
			log.Info().Str("path", *modelPath).Int("vertices", mesh.VertexCount()).Msg("model loaded")
		}
	}

	if cfg.Shaders.WatchDir != "" {
		watcher, err := pipeline.EnableShaderOverrides(cfg.Shaders.WatchDir)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Shaders.WatchDir).Msg("shader overrides unavailable")
		} else {
			defer watcher.Close()
			log.Info().Str("dir", cfg.Shaders.WatchDir).Msg("watching shader overrides")
		}
	}

	a := &app{
		window:    window,
		cam:       camera.New(),
		gbuf:      gbuf,
		pipeline:  pipeline,
		scn:       scn,
		desc:      descriptorFromConfig(cfg.Render, log),
		selection: make([]uint8, selectable),
	}
	a.installCallbacks()

	start := time.Now()
	for !window.ShouldClose() {
		glfw.PollEvents()

		if a.resized {
			w, h := window.GetFramebufferSize()
			if w > 0 && h > 0 {
				if err := gbuf.Init(int32(w), int32(h)); err != nil {
					log.Error().Err(err).Msg("gbuffer resize failed")
				}
			}
			a.resized = false
		}

		width, height := gbuf.Dimensions()
		view := a.cam.Params(width, height, a.desc.Temporal.Enabled)
		a.desc.Time = float32(time.Since(start).Seconds())

		// geometry pass
		gbuf.Clear()
		gl.Enable(gl.DEPTH_TEST)
		scn.Draw(view)
		gl.Disable(gl.DEPTH_TEST)

		// shading and post-processing into the default framebuffer
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
		gl.Viewport(0, 0, width, height)
		a.pipeline.ShadeAndPostprocess(gbuf, view, a.desc, 0)

		a.updatePicking(view)

		a.cam.Commit(view)
		window.SwapBuffers()
	}

	log.Info().Msg("shutting down")
}

// updatePicking queues this frame's picking readback under the cursor and
// applies the delayed result from the ring to the hover highlight.
func (a *app) updatePicking(view render.ViewParam) {
	cx, cy := a.window.GetCursorPos()
	// cursor coordinates are top-left origin, the framebuffer's are
	// bottom-left
	px := int32(cx)
	py := view.Height - 1 - int32(cy)

	idx, _, ok := a.gbuf.ExtractPickingData(px, py)
	a.hovered = idx
	a.hasHovered = ok && int(idx) < len(a.selection)

	for i := range a.selection {
		a.selection[i] &^= render.MaskHighlight
	}
	if a.hasHovered {
		a.selection[idx] |= render.MaskHighlight
	}
	a.pipeline.SetSelectionMask(a.selection)
}

func (a *app) installCallbacks() {
	a.window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		a.resized = true
	})

	a.window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		switch button {
		case glfw.MouseButtonLeft:
			if action == glfw.Press {
				a.dragging = true
				a.pressPos = a.lastCursor
			} else if action == glfw.Release {
				a.dragging = false
				// a click with no drag toggles the hovered selection
				if a.lastCursor.Sub(a.pressPos).Len() < 3 && a.hasHovered {
					a.selection[a.hovered] ^= render.MaskSelected
				}
			}
		case glfw.MouseButtonMiddle, glfw.MouseButtonRight:
			a.panning = action == glfw.Press
		}
	})

	a.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		pos := mgl32.Vec2{float32(x), float32(y)}
		delta := pos.Sub(a.lastCursor)
		a.lastCursor = pos

		if a.dragging {
			a.cam.Orbit(-delta.X()*0.008, delta.Y()*0.008)
		}
		if a.panning {
			scale := a.cam.Distance * 0.002
			a.cam.Pan(-delta.X()*scale, delta.Y()*scale)
		}
	})

	a.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if yoff > 0 {
			a.cam.Zoom(0.9)
		} else if yoff < 0 {
			a.cam.Zoom(1.1)
		}
	})

	a.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyA:
			a.desc.AO.Enabled = !a.desc.AO.Enabled
		case glfw.KeyT:
			a.desc.Temporal.Enabled = !a.desc.Temporal.Enabled
		case glfw.KeyF:
			a.desc.FXAA = !a.desc.FXAA
		case glfw.KeyD:
			a.desc.DOF.Enabled = !a.desc.DOF.Enabled
		case glfw.KeyO:
			a.cam.Orthographic = !a.cam.Orthographic
		}
	})
}

func descriptorFromConfig(rc config.RenderConfig, log zerolog.Logger) render.Descriptor {
	desc := render.DefaultDescriptor()

	desc.Background = mgl32.Vec3{rc.BackgroundR, rc.BackgroundG, rc.BackgroundB}
	desc.AO = render.AOParams{
		Enabled:   rc.AOEnabled,
		Radius:    rc.AORadius,
		Intensity: rc.AOIntensity,
		Bias:      rc.AOBias,
	}
	desc.DOF = render.DOFParams{
		Enabled:    rc.DOFEnabled,
		FocusDepth: rc.DOFFocusDepth,
		FocusScale: rc.DOFFocusScale,
	}
	desc.Temporal = render.TemporalParams{
		Enabled:     rc.TemporalEnabled,
		FeedbackMin: rc.TemporalFeedbackMin,
		FeedbackMax: rc.TemporalFeedbackMax,
		MotionScale: rc.MotionBlurScale,
	}

	mode, err := render.ParseTonemapMode(rc.Tonemap)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to aces tonemapping")
		mode = render.TonemapACES
	}
	desc.Tonemap = render.TonemapParams{
		Mode:     mode,
		Exposure: rc.Exposure,
		Gamma:    rc.Gamma,
	}

	desc.FXAA = rc.FXAAEnabled
	desc.Sharpen = render.SharpenParams{
		Enabled: rc.SharpenEnabled,
		Weight:  rc.SharpenWeight,
	}
	return desc
}
