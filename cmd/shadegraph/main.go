// Command shadegraph compiles a JSON node graph to a GLSL fragment shader.
// It prints the generated source by default and renders a PNG frame when
// -png is given.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shadegraph/shadegraph"
	"github.com/shadegraph/shadegraph/glgen"
	"github.com/shadegraph/shadegraph/glview"
)

func main() {
	var (
		graphFile = flag.String("graph", "", "JSON graph file to compile (required)")
		pngFile   = flag.String("png", "", "render one frame to this PNG file instead of printing GLSL")
		width     = flag.Int("width", 800, "render width in pixels")
		height    = flag.Int("height", 600, "render height in pixels")
		atTime    = flag.Float64("time", 0, "u_time value of the rendered frame")
		ss        = flag.Int("supersample", 2, "supersampling factor for PNG output")
		view      = flag.Bool("view", false, "open an interactive window instead of printing GLSL")
		listNodes = flag.Bool("nodes", false, "list the node types of the builtin catalog and exit")
	)
	flag.Parse()
	if *listNodes {
		for _, id := range shadegraph.DefaultCatalog().IDs() {
			fmt.Println(id)
		}
		return
	}
	if *graphFile == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*graphFile, *pngFile, *width, *height, float32(*atTime), *ss, *view); err != nil {
		log.Fatal(err)
	}
}

func run(graphFile, pngFile string, width, height int, atTime float32, ss int, view bool) error {
	reg := shadegraph.DefaultCatalog()
	g, err := shadegraph.LoadGraph(reg, graphFile)
	if err != nil {
		return err
	}
	switch {
	case view:
		return glview.View(g, glview.Config{Width: width, Height: height})
	case pngFile != "":
		err := glview.RenderPNGFile(pngFile, g, glview.ImageConfig{
			Width: width, Height: height, SuperSample: ss, AtTime: atTime,
		})
		if err != nil {
			return err
		}
		fmt.Println("PNG file rendered to", pngFile)
		return nil
	}
	pre, err := shadegraph.Prepare(reg, g)
	if err != nil {
		return err
	}
	src, diags := glgen.NewProgrammer(reg).Fragment(g, pre.Plan)
	for _, w := range diags.Warnings {
		log.Println("warning:", w)
	}
	if !diags.OK() {
		for _, e := range diags.Errors {
			log.Println("error:", e)
		}
		return fmt.Errorf("graph compiled with %d errors", len(diags.Errors))
	}
	fmt.Print(src)
	return nil
}
