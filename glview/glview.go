// Package glview compiles node graphs and puts the resulting fragment
// shader on screen or into an image. It is auxiliary plumbing: programs
// with their own render loop should use glgen directly and treat this
// package as example code.
package glview

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/soypat/geometry/ms3"

	"github.com/shadegraph/shadegraph"
	"github.com/shadegraph/shadegraph/glgen"
)

// Config parametrizes the interactive viewer.
type Config struct {
	Width, Height int
	Title         string
	// Registry supplies node specs. Nil uses the builtin catalog.
	Registry *glgen.Registry
	// Background clears the frame before the quad draws over it.
	Background ms3.Vec
	// Context cancels the render loop when done.
	Context context.Context
	// Silent suppresses compile warnings on standard error.
	Silent bool
}

// View compiles the graph and renders it to a window until closed.
// Requires cgo and a display.
func View(g *glgen.Graph, cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("bad viewport size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Title == "" {
		cfg.Title = "shadegraph"
	}
	src, pre, err := compile(cfg.Registry, g, cfg.Silent)
	if err != nil {
		return err
	}
	return view(src, pre, cfg)
}

// ImageConfig parametrizes offscreen rendering.
type ImageConfig struct {
	Width, Height int
	// SuperSample renders at N times the output size and downscales,
	// values below 1 mean no supersampling.
	SuperSample int
	// AtTime is the u_time value of the rendered frame.
	AtTime   float32
	Registry *glgen.Registry
	Silent   bool
}

// RenderImage compiles the graph and renders one frame offscreen.
// Requires cgo; the window stays hidden.
func RenderImage(g *glgen.Graph, cfg ImageConfig) (*image.RGBA, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("bad image size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.SuperSample < 1 {
		cfg.SuperSample = 1
	}
	src, pre, err := compile(cfg.Registry, g, cfg.Silent)
	if err != nil {
		return nil, err
	}
	return renderImage(src, pre, cfg)
}

// RenderPNG renders one frame and PNG-encodes it to w.
func RenderPNG(w io.Writer, g *glgen.Graph, cfg ImageConfig) error {
	img, err := RenderImage(g, cfg)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderPNGFile renders one frame into the named PNG file.
func RenderPNGFile(filename string, g *glgen.Graph, cfg ImageConfig) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	return RenderPNG(fp, g, cfg)
}

// compile prepares and generates the fragment source. Warnings go to the
// standard logger; diagnosed errors fail the whole render.
func compile(reg *glgen.Registry, g *glgen.Graph, silent bool) (string, *shadegraph.Prepared, error) {
	if reg == nil {
		reg = shadegraph.DefaultCatalog()
	}
	pre, err := shadegraph.Prepare(reg, g)
	if err != nil {
		return "", nil, err
	}
	src, diags := glgen.NewProgrammer(reg).Fragment(g, pre.Plan)
	if !silent {
		for _, w := range diags.Warnings {
			log.Println("glview:", w)
		}
	}
	if !diags.OK() {
		return "", nil, fmt.Errorf("compiling graph: %s", strings.Join(diags.Errors, "; "))
	}
	return src, pre, nil
}

// sortedUniforms returns the uniform names in upload order.
func sortedUniforms(values map[string]float32) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
