package shadegraph

import (
	"strings"
	"testing"

	"github.com/shadegraph/shadegraph/glgen"
)

func TestDefaultCatalogComplete(t *testing.T) {
	reg := DefaultCatalog()
	for _, id := range []string{
		"coordinate", "polar", "time", "resolution", "constant",
		"fbm-noise", "rotate", "scale-coord", "math", "swizzle",
		"mix-color", "palette", "analyzer", "output",
	} {
		if _, ok := reg.Spec(id); !ok {
			t.Errorf("catalog missing node type %q", id)
		}
	}
}

func compileOne(t *testing.T, g *glgen.Graph) (string, *glgen.Diagnostics) {
	t.Helper()
	reg := DefaultCatalog()
	pre, err := Prepare(reg, g)
	if err != nil {
		t.Fatal(err)
	}
	return glgen.NewProgrammer(reg).Fragment(g, pre.Plan)
}

func TestCoordinateNode(t *testing.T) {
	bld := NewGraphBuilder(nil)
	bld.AddNode("co", "coordinate")
	src, diags := compileOne(t, bld.Graph())
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "node_co_uv = gl_FragCoord.xy / u_resolution;") {
		t.Errorf("uv output wrong:\n%s", src)
	}
	if !strings.Contains(src, "node_co_pos = p;") {
		t.Errorf("pos output wrong:\n%s", src)
	}
}

func TestPolarNode(t *testing.T) {
	bld := NewGraphBuilder(nil)
	bld.AddNode("pol", "polar")
	src, diags := compileOne(t, bld.Graph())
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "node_pol_angle = atan(p.y, p.x);") {
		t.Errorf("angle output wrong:\n%s", src)
	}
}

func TestMathNodeOps(t *testing.T) {
	cases := []struct{ op, want string }{
		{"add", "(node_a_out + node_b_out)"},
		{"subtract", "(node_a_out - node_b_out)"},
		{"multiply", "(node_a_out * node_b_out)"},
		{"divide", "(node_a_out / max(abs(node_b_out), 1e-6))"},
		{"min", "min(node_a_out, node_b_out)"},
		{"pow", "pow(node_a_out, node_b_out)"},
	}
	for _, c := range cases {
		bld := NewGraphBuilder(nil)
		bld.AddNode("a", "constant")
		bld.AddNode("b", "constant")
		bld.AddNode("m", "math")
		bld.SetParam("m", "op", glgen.StringValue(c.op))
		bld.Connect("a", "out", "m", "a")
		bld.Connect("b", "out", "m", "b")
		if err := bld.Err(); err != nil {
			t.Fatal(err)
		}
		src, diags := compileOne(t, bld.Graph())
		if !diags.OK() {
			t.Fatalf("%s: errors: %v", c.op, diags.Errors)
		}
		if !strings.Contains(src, "node_m_out = "+c.want+";") {
			t.Errorf("op %s missing %q:\n%s", c.op, c.want, src)
		}
	}
}

func TestMathNodeUnknownOpDegrades(t *testing.T) {
	bld := NewGraphBuilder(nil)
	bld.AddNode("m", "math")
	bld.SetParam("m", "op", glgen.StringValue("frobnicate"))
	src, diags := compileOne(t, bld.Graph())
	if !diags.OK() {
		t.Fatalf("unknown op must degrade: %v", diags.Errors)
	}
	if len(diags.Warnings) == 0 {
		t.Error("unknown op produced no warning")
	}
	if !strings.Contains(src, "node_m_out = (0.0 + 0.0);") {
		t.Errorf("fallback op missing:\n%s", src)
	}
}

func TestSwizzleNode(t *testing.T) {
	bld := NewGraphBuilder(nil)
	bld.AddNode("sw", "swizzle")
	bld.SetParam("sw", "channels", glgen.StringValue("wzyx"))
	src, diags := compileOne(t, bld.Graph())
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "node_sw_out = vec4(0.0).wzyx;") {
		t.Errorf("swizzle missing:\n%s", src)
	}

	bld = NewGraphBuilder(nil)
	bld.AddNode("sw", "swizzle")
	bld.SetParam("sw", "channels", glgen.StringValue("xq!"))
	src, diags = compileOne(t, bld.Graph())
	if len(diags.Warnings) == 0 {
		t.Error("invalid swizzle produced no warning")
	}
	if !strings.Contains(src, "node_sw_out = vec4(0.0).xyzw;") {
		t.Errorf("invalid swizzle fallback missing:\n%s", src)
	}
}

func TestAnalyzerDynamicPorts(t *testing.T) {
	reg := DefaultCatalog()
	spec, _ := reg.Spec("analyzer")
	node := &glgen.NodeInstance{ID: "fft", Type: "analyzer",
		Params: map[string]glgen.ParamValue{"bands": glgen.IntValue(3)}}
	outs := spec.OutputsFor(node)
	if len(outs) != 3 {
		t.Fatalf("got %d bands, want 3", len(outs))
	}
	if outs[2].Name != "band2" || outs[2].Type != glgen.TypeFloat {
		t.Errorf("band port = %+v", outs[2])
	}
	// Out-of-range band count is clamped, not rejected.
	node.Params["bands"] = glgen.IntValue(99)
	if n := len(spec.OutputsFor(node)); n != 16 {
		t.Errorf("oversized band count gave %d ports", n)
	}
}

func TestGraphBuilderAccumulatesErrors(t *testing.T) {
	bld := NewGraphBuilder(nil)
	bld.AddNode("a", "nonesuch")
	bld.AddNode("b", "constant")
	bld.AddNode("b", "constant")
	bld.SetParam("b", "nope", glgen.FloatValue(1))
	bld.Connect("b", "out", "missing", "x")
	bld.ConnectParam("b", "out", "b", "value") // fine
	err := bld.Err()
	if err == nil {
		t.Fatal("builder misuse unreported")
	}
	for _, want := range []string{"unknown node type", "duplicate node id", "no parameter \"nope\"", "unknown node \"missing\""} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}
