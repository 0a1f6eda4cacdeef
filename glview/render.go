//go:build !tinygo && cgo

package glview

import (
	"fmt"
	"image"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"golang.org/x/image/draw"

	"github.com/shadegraph/shadegraph"
)

const vertexSrc = `#version 330
in vec2 aPos;
void main() {
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

// quad spans the whole viewport as two triangles.
var quad = []float32{
	-1.0, -1.0,
	1.0, -1.0,
	-1.0, 1.0,
	-1.0, 1.0,
	1.0, -1.0,
	1.0, 1.0,
}

func view(fragSrc string, pre *shadegraph.Prepared, cfg Config) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title, true)
	if err != nil {
		return err
	}
	defer term()
	prog, vao, err := setupProgram(fragSrc)
	if err != nil {
		return err
	}
	timeUniform, err := prog.UniformLocation("u_time\x00")
	if err != nil {
		return err
	}
	resUniform, err := prog.UniformLocation("u_resolution\x00")
	if err != nil {
		return err
	}
	uploadValues(prog, pre.UniformValues)

	bg := cfg.Background
	ctx := cfg.Context
	start := glfw.GetTime()
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(bg.X, bg.Y, bg.Z, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		prog.Bind()
		gl.Uniform1f(timeUniform, float32(glfw.GetTime()-start))
		gl.Uniform2f(resUniform, float32(width), float32(height))

		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()

		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func renderImage(fragSrc string, pre *shadegraph.Prepared, cfg ImageConfig) (*image.RGBA, error) {
	w := cfg.Width * cfg.SuperSample
	h := cfg.Height * cfg.SuperSample
	_, term, err := startGLFW(w, h, "shadegraph offscreen", false)
	if err != nil {
		return nil, err
	}
	defer term()
	prog, vao, err := setupProgram(fragSrc)
	if err != nil {
		return nil, err
	}
	timeUniform, err := prog.UniformLocation("u_time\x00")
	if err != nil {
		return nil, err
	}
	resUniform, err := prog.UniformLocation("u_resolution\x00")
	if err != nil {
		return nil, err
	}
	uploadValues(prog, pre.UniformValues)

	gl.Viewport(0, 0, int32(w), int32(h))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	prog.Bind()
	gl.Uniform1f(timeUniform, cfg.AtTime)
	gl.Uniform2f(resUniform, float32(w), float32(h))
	gl.BindVertexArray(vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.Finish()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	flipVertical(img)
	if cfg.SuperSample == 1 {
		return img, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

func setupProgram(fragSrc string) (glgl.Program, uint32, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexSrc,
		Fragment: fragSrc + "\x00",
	})
	if err != nil {
		return prog, 0, fmt.Errorf("%s\n\n%w", fragSrc, err)
	}
	prog.Bind()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(quad), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return prog, 0, err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	return prog, vao, nil
}

// uploadValues sets the initial value of every allocated parameter
// uniform. Uniforms the GLSL compiler stripped have no location and are
// skipped.
func uploadValues(prog glgl.Program, values map[string]float32) {
	for _, name := range sortedUniforms(values) {
		loc, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			continue
		}
		gl.Uniform1f(loc, values[name])
	}
}

func startGLFW(width, height int, title string, visible bool) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	if !visible {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}
	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}

// flipVertical converts GL's bottom-left origin readback to image space.
func flipVertical(img *image.RGBA) {
	h := img.Bounds().Dy()
	stride := img.Stride
	tmp := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*stride : (y+1)*stride]
		bot := img.Pix[(h-1-y)*stride : (h-y)*stride]
		copy(tmp, top)
		copy(top, bot)
		copy(bot, tmp)
	}
}
