// internal/render/shader.go
//
// Shader compilation, uniform handling, and hot-reload support
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Shader is a linked OpenGL program. Programs are usually built from the
// embedded sources in the pass files; NewShaderFromFiles exists so an
// on-disk override directory can be watched for live editing.
type Shader struct {
	ID uint32

	vertPath string
	fragPath string

	uniformCache map[string]int32
	mu           sync.RWMutex
}

// NewShaderFromSource compiles and links a program from GLSL source strings.
func NewShaderFromSource(vertSrc, fragSrc string) (*Shader, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		return nil, fmt.Errorf("link failed: %s", log)
	}

	return &Shader{
		ID:           program,
		uniformCache: make(map[string]int32),
	}, nil
}

// NewShaderFromFiles loads and compiles a program from on-disk sources,
// remembering the paths so the shader can be reloaded.
func NewShaderFromFiles(vertPath, fragPath string) (*Shader, error) {
	vertSrc, err := os.ReadFile(vertPath)
	if err != nil {
		return nil, fmt.Errorf("read vertex shader %s: %w", vertPath, err)
	}
	fragSrc, err := os.ReadFile(fragPath)
	if err != nil {
		return nil, fmt.Errorf("read fragment shader %s: %w", fragPath, err)
	}

	sh, err := NewShaderFromSource(terminate(string(vertSrc)), terminate(string(fragSrc)))
	if err != nil {
		return nil, err
	}
	sh.vertPath = vertPath
	sh.fragPath = fragPath
	return sh, nil
}

// terminate appends the NUL the GL binding expects.
func terminate(src string) string {
	if strings.HasSuffix(src, "\x00") {
		return src
	}
	return src + "\x00"
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		kind := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			kind = "fragment"
		}
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s compile error: %s", kind, log)
	}

	return shader, nil
}

// Use activates the program.
func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

// Delete releases the program.
func (s *Shader) Delete() {
	if s.ID != 0 {
		gl.DeleteProgram(s.ID)
		s.ID = 0
	}
}

// Reload recompiles from the original source files.
func (s *Shader) Reload() error {
	if s.vertPath == "" || s.fragPath == "" {
		return fmt.Errorf("shader was not loaded from files")
	}

	next, err := NewShaderFromFiles(s.vertPath, s.fragPath)
	if err != nil {
		return err
	}

	old := s.ID
	s.ID = next.ID

	s.mu.Lock()
	s.uniformCache = make(map[string]int32)
	s.mu.Unlock()

	gl.DeleteProgram(old)
	return nil
}

func (s *Shader) getUniformLocation(name string) int32 {
	s.mu.RLock()
	if loc, ok := s.uniformCache[name]; ok {
		s.mu.RUnlock()
		return loc
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	loc := gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
	s.uniformCache[name] = loc
	return loc
}

// SetBool sets a boolean uniform.
func (s *Shader) SetBool(name string, value bool) {
	var v int32
	if value {
		v = 1
	}
	gl.Uniform1i(s.getUniformLocation(name), v)
}

// SetInt sets an integer uniform.
func (s *Shader) SetInt(name string, value int32) {
	gl.Uniform1i(s.getUniformLocation(name), value)
}

// SetFloat sets a float uniform.
func (s *Shader) SetFloat(name string, value float32) {
	gl.Uniform1f(s.getUniformLocation(name), value)
}

// SetVec2 sets a vec2 uniform.
func (s *Shader) SetVec2(name string, v mgl32.Vec2) {
	gl.Uniform2fv(s.getUniformLocation(name), 1, &v[0])
}

// SetVec3 sets a vec3 uniform.
func (s *Shader) SetVec3(name string, v mgl32.Vec3) {
	gl.Uniform3fv(s.getUniformLocation(name), 1, &v[0])
}

// SetVec4 sets a vec4 uniform.
func (s *Shader) SetVec4(name string, v mgl32.Vec4) {
	gl.Uniform4fv(s.getUniformLocation(name), 1, &v[0])
}

// SetMat4 sets a mat4 uniform.
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.getUniformLocation(name), 1, false, &m[0])
}

// ShaderWatcher reloads shaders when their source files change.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	shaders map[string]*Shader
	onErr   func(path string, err error)
	mu      sync.RWMutex
	done    chan struct{}
}

// NewShaderWatcher starts a watcher. onErr receives reload failures; it may
// be nil.
func NewShaderWatcher(onErr func(path string, err error)) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sw := &ShaderWatcher{
		watcher: watcher,
		shaders: make(map[string]*Shader),
		onErr:   onErr,
		done:    make(chan struct{}),
	}
	go sw.watchLoop()
	return sw, nil
}

// Watch registers a file-backed shader for reload on change.
func (sw *ShaderWatcher) Watch(shader *Shader) error {
	if shader.vertPath == "" || shader.fragPath == "" {
		return fmt.Errorf("shader was not loaded from files")
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	vertDir := filepath.Dir(shader.vertPath)
	if err := sw.watcher.Add(vertDir); err != nil {
		return err
	}
	if fragDir := filepath.Dir(shader.fragPath); fragDir != vertDir {
		if err := sw.watcher.Add(fragDir); err != nil {
			return err
		}
	}

	sw.shaders[shader.vertPath] = shader
	sw.shaders[shader.fragPath] = shader
	return nil
}

func (sw *ShaderWatcher) watchLoop() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			sw.mu.RLock()
			shader, ok := sw.shaders[event.Name]
			sw.mu.RUnlock()
			if !ok {
				continue
			}
			if err := shader.Reload(); err != nil && sw.onErr != nil {
				sw.onErr(event.Name, err)
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			if sw.onErr != nil {
				sw.onErr("", err)
			}
		}
	}
}

// Close stops the watcher.
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
