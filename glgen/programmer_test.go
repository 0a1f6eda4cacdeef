package glgen

import (
	"strings"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	specs := []*NodeSpec{
		{
			ID:       "scalar",
			Outputs:  []PortSpec{{Name: "out", Type: TypeFloat}},
			Params:   []ParamSpec{{Name: "value", Type: TypeFloat, Default: FloatValue(1)}},
			MainCode: "$output.out = $param.value;",
		},
		{
			ID:             "circle",
			SelfSufficient: true,
			Outputs:        []PortSpec{{Name: "out", Type: TypeFloat}},
			Params:         []ParamSpec{{Name: "radius", Type: TypeFloat, Default: FloatValue(0.5), Uniform: true}},
			MainCode:       "$output.out = length($p) - $param.radius;",
		},
		{
			ID:       "offset",
			Inputs:   []PortSpec{{Name: "pos", Type: TypeVec2}},
			Outputs:  []PortSpec{{Name: "out", Type: TypeVec2}},
			MainCode: "$output.out = $input.pos + vec2($time, 0.0);",
		},
		{
			ID:       "colorize",
			Inputs:   []PortSpec{{Name: "x", Type: TypeFloat}},
			Outputs:  []PortSpec{{Name: "color", Type: TypeVec3}},
			MainCode: "$output.color = vec3($input.x, 0.0, 1.0 - $input.x);",
		},
		{
			ID:     "output",
			Kind:   KindSink,
			Inputs: []PortSpec{{Name: "color", Type: TypeVec3}},
		},
		{
			ID:        "wave",
			Inputs:    []PortSpec{{Name: "x", Type: TypeFloat}},
			Outputs:   []PortSpec{{Name: "out", Type: TypeFloat}},
			Params:    []ParamSpec{{Name: "freq", Type: TypeFloat, Default: FloatValue(2)}},
			MainCode:  "result = waveShape($input.x * $param.freq);",
			Functions: "float waveShape(float x) {\n    return 0.5 + 0.5*sin(x);\n}\n",
		},
		{
			ID:   "spectrum",
			Kind: KindExternal,
			DynamicOutputs: func(n *NodeInstance) []PortSpec {
				bands := 2
				if v, ok := n.Param("bands"); ok {
					bands = v.Int()
				}
				ports := make([]PortSpec, bands)
				for i := range ports {
					ports[i] = PortSpec{Name: "band" + string(rune('0'+i)), Type: TypeFloat}
				}
				return ports
			},
			Params: []ParamSpec{{Name: "bands", Type: TypeInt, Default: IntValue(2)}},
		},
	}
	for _, s := range specs {
		if err := reg.Register(s); err != nil {
			t.Fatalf("register %s: %v", s.ID, err)
		}
	}
	return reg
}

func plan(order ...string) *Plan {
	return &Plan{Order: order, Uniforms: map[string]string{}, FuncNames: map[string]map[string]string{}}
}

func TestFragmentDeterministic(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "c1", Type: "circle"},
			{ID: "col", Type: "colorize"},
			{ID: "sink", Type: "output"},
		},
		Conns: []Connection{
			{FromNode: "c1", FromPort: "out", ToNode: "col", ToPort: "x"},
			{FromNode: "col", FromPort: "color", ToNode: "sink", ToPort: "color"},
		},
	}
	pr := NewProgrammer(reg)
	a, da := pr.Fragment(g, plan("c1", "col", "sink"))
	b, db := pr.Fragment(g, plan("c1", "col", "sink"))
	if a != b {
		t.Error("repeated compilation of one graph differs")
	}
	if !da.OK() || !db.OK() {
		t.Errorf("unexpected errors: %v %v", da.Errors, db.Errors)
	}
}

func TestFragmentStructure(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "c1", Type: "circle"},
			{ID: "col", Type: "colorize"},
			{ID: "sink", Type: "output"},
		},
		Conns: []Connection{
			{FromNode: "c1", FromPort: "out", ToNode: "col", ToPort: "x"},
			{FromNode: "col", FromPort: "color", ToNode: "sink", ToPort: "color"},
		},
	}
	src, diags := NewProgrammer(reg).Fragment(g, plan("c1", "col", "sink"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	for _, want := range []string{
		"#version 330\n",
		"uniform float u_time;",
		"uniform vec2 u_resolution;",
		"float node_c1_out = 0.0;",
		"vec3 node_col_color = vec3(0.0);",
		"node_col_color = vec3(node_c1_out, 0.0, 1.0 - node_c1_out);",
		"out vec4 fragColor;",
		"fragColor = vec4(node_col_color, 1.0);",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("shader missing %q\n%s", want, src)
		}
	}
	if strings.Index(src, "node_c1_out = length(p)") > strings.Index(src, "node_col_color = vec3(") {
		t.Error("node blocks out of execution order")
	}
	// A sink contributes no block of its own.
	if strings.Count(src, "    {\n") != 2 {
		t.Errorf("want 2 node blocks, got %d", strings.Count(src, "    {\n"))
	}
}

func TestUnconnectedInputDefaults(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{Nodes: []*NodeInstance{{ID: "o1", Type: "offset"}}}
	src, diags := NewProgrammer(reg).Fragment(g, plan("o1"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "node_o1_out = vec2(0.0) + vec2(u_time, 0.0);") {
		t.Errorf("unconnected vec2 input not defaulted:\n%s", src)
	}
}

func TestInputCoercion(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "c1", Type: "circle"},
			{ID: "o1", Type: "offset"},
		},
		Conns: []Connection{
			{FromNode: "c1", FromPort: "out", ToNode: "o1", ToPort: "pos"},
		},
	}
	src, diags := NewProgrammer(reg).Fragment(g, plan("c1", "o1"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "vec2(node_c1_out, node_c1_out)") {
		t.Errorf("float source not broadcast to vec2 input:\n%s", src)
	}
}

func TestParamLiteralAndUniform(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{Nodes: []*NodeInstance{{ID: "c1", Type: "circle"}}}
	pl := plan("c1")
	pl.Uniforms["c1.radius"] = "u_node_c1_radius"
	src, diags := NewProgrammer(reg).Fragment(g, pl)
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "uniform float u_node_c1_radius;") {
		t.Errorf("bound uniform not declared:\n%s", src)
	}
	if !strings.Contains(src, "length(p) - u_node_c1_radius") {
		t.Errorf("parameter did not resolve to its uniform:\n%s", src)
	}

	// Without an allocation the authored value is inlined as a literal.
	g2 := &Graph{Nodes: []*NodeInstance{{ID: "c2", Type: "circle",
		Params: map[string]ParamValue{"radius": FloatValue(0.25)}}}}
	src2, _ := NewProgrammer(reg).Fragment(g2, plan("c2"))
	if !strings.Contains(src2, "length(p) - 0.25") {
		t.Errorf("parameter literal missing:\n%s", src2)
	}
}

func TestParamWireModes(t *testing.T) {
	reg := testRegistry(t)
	base := func(mode InputMode) (*Graph, *Plan) {
		g := &Graph{
			Nodes: []*NodeInstance{
				{ID: "s1", Type: "scalar"},
				{ID: "c1", Type: "circle", ParamModes: map[string]InputMode{"radius": mode}},
			},
			Conns: []Connection{
				{FromNode: "s1", FromPort: "out", ToNode: "c1", ToParam: "radius"},
			},
		}
		pl := plan("s1", "c1")
		pl.Uniforms["c1.radius"] = "u_node_c1_radius"
		return g, pl
	}

	g, pl := base(ModeOverride)
	src, _ := NewProgrammer(reg).Fragment(g, pl)
	if !strings.Contains(src, "length(p) - node_s1_out") {
		t.Errorf("override mode did not substitute wired value:\n%s", src)
	}
	if strings.Contains(src, "uniform float u_node_c1_radius;") {
		t.Error("override mode declared an unused uniform")
	}

	g, pl = base(ModeMultiply)
	src, _ = NewProgrammer(reg).Fragment(g, pl)
	if !strings.Contains(src, "length(p) - (u_node_c1_radius*node_s1_out)") {
		t.Errorf("multiply mode expression wrong:\n%s", src)
	}

	g, pl = base(ModeAdd)
	src, _ = NewProgrammer(reg).Fragment(g, pl)
	if !strings.Contains(src, "(u_node_c1_radius+node_s1_out)") {
		t.Errorf("add mode expression wrong:\n%s", src)
	}
}

func TestParamWireLatestSourceWins(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "a", Type: "scalar"},
			{ID: "b", Type: "scalar"},
			{ID: "late", Type: "scalar"},
			{ID: "c1", Type: "circle"},
		},
		Conns: []Connection{
			{FromNode: "a", FromPort: "out", ToNode: "c1", ToParam: "radius"},
			{FromNode: "b", FromPort: "out", ToNode: "c1", ToParam: "radius"},
			// Executes after the consumer, must not win.
			{FromNode: "late", FromPort: "out", ToNode: "c1", ToParam: "radius"},
		},
	}
	src, diags := NewProgrammer(reg).Fragment(g, plan("a", "b", "c1", "late"))
	if !strings.Contains(src, "length(p) - node_b_out") {
		t.Errorf("latest-executing source before consumer did not win:\n%s", src)
	}
	if len(diags.Warnings) == 0 {
		t.Error("ambiguous parameter wiring produced no warning")
	}
}

func TestNoSinkFallback(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{Nodes: []*NodeInstance{{ID: "c1", Type: "circle"}}}
	src, _ := NewProgrammer(reg).Fragment(g, plan("c1"))
	if !strings.Contains(src, "fragColor = vec4(vec3(node_c1_out), 1.0);") {
		t.Errorf("float output not grayscaled into fragColor:\n%s", src)
	}
}

func TestTwoSinksLeafWins(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "col", Type: "colorize"},
			{ID: "mid", Type: "output"},
			{ID: "leaf", Type: "output"},
		},
		Conns: []Connection{
			{FromNode: "col", FromPort: "color", ToNode: "mid", ToPort: "color"},
			{FromNode: "col", FromPort: "color", ToNode: "leaf", ToPort: "color"},
			// mid feeds something downstream; leaf is terminal.
			{FromNode: "mid", FromPort: "color", ToNode: "col", ToPort: "x"},
		},
	}
	src, diags := NewProgrammer(reg).Fragment(g, plan("col", "mid", "leaf"))
	if !strings.Contains(src, "fragColor = vec4(node_col_color, 1.0);") {
		t.Errorf("leaf sink not selected:\n%s", src)
	}
	if len(diags.Warnings) == 0 {
		t.Error("multiple sinks produced no warning")
	}
}

func TestEmptyGraphPaintsBlack(t *testing.T) {
	reg := testRegistry(t)
	src, diags := NewProgrammer(reg).Fragment(&Graph{}, plan())
	if !strings.Contains(src, "fragColor = vec4(vec3(0.0), 1.0);") {
		t.Errorf("empty graph fragColor wrong:\n%s", src)
	}
	if len(diags.Warnings) == 0 {
		t.Error("empty graph produced no warning")
	}
	if !diags.OK() {
		t.Errorf("empty graph must not error: %v", diags.Errors)
	}
}

func TestHelperFunctionDedup(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{Nodes: []*NodeInstance{
		{ID: "w1", Type: "wave"},
		{ID: "w2", Type: "wave"},
	}}
	src, diags := NewProgrammer(reg).Fragment(g, plan("w1", "w2"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if n := strings.Count(src, "float waveShape(float x)"); n != 1 {
		t.Errorf("helper emitted %d times, want 1", n)
	}
}

func TestFunctionSpecializationRenames(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "s1", Type: "scalar"},
			{ID: "w1", Type: "wave"},
			{ID: "w2", Type: "wave"},
		},
		Conns: []Connection{
			{FromNode: "s1", FromPort: "out", ToNode: "w2", ToParam: "freq"},
		},
	}
	pl := plan("s1", "w1", "w2")
	pl.FuncNames["w2"] = map[string]string{"waveShape": "waveShape_v1"}
	src, diags := NewProgrammer(reg).Fragment(g, pl)
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "float waveShape_v1(float x)") {
		t.Errorf("specialized helper definition missing:\n%s", src)
	}
	if !strings.Contains(src, "node_w2_out = waveShape_v1(") {
		t.Errorf("specialized call site missing:\n%s", src)
	}
	if !strings.Contains(src, "node_w1_out = waveShape(") {
		t.Errorf("base node must keep the original helper name:\n%s", src)
	}
}

func TestExternalNodeAssignsUniforms(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "fft", Type: "spectrum", Params: map[string]ParamValue{"bands": IntValue(2)}},
			{ID: "w1", Type: "wave"},
		},
		Conns: []Connection{
			{FromNode: "fft", FromPort: "band0", ToNode: "w1", ToPort: "x"},
		},
	}
	pl := plan("fft", "w1")
	pl.Uniforms["fft.band0"] = "u_node_fft_band0"
	pl.Uniforms["fft.band1"] = "u_node_fft_band1"
	src, diags := NewProgrammer(reg).Fragment(g, pl)
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	for _, want := range []string{
		"float node_fft_band0 = 0.0;",
		"float node_fft_band1 = 0.0;",
		"uniform float u_node_fft_band0;",
		"    node_fft_band0 = u_node_fft_band0;",
		"    node_fft_band1 = u_node_fft_band1;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("shader missing %q\n%s", want, src)
		}
	}
}

func TestMissingSpecDegrades(t *testing.T) {
	reg := testRegistry(t)
	g := &Graph{
		Nodes: []*NodeInstance{
			{ID: "mystery", Type: "nonesuch"},
			{ID: "c1", Type: "circle"},
		},
	}
	src, diags := NewProgrammer(reg).Fragment(g, plan("mystery", "c1"))
	if !diags.OK() {
		t.Fatalf("missing spec must degrade, not error: %v", diags.Errors)
	}
	if len(diags.Warnings) == 0 {
		t.Error("missing spec produced no warning")
	}
	if !strings.Contains(src, "node_c1_out = length(p)") {
		t.Errorf("healthy node not emitted:\n%s", src)
	}
}

func TestArrayParamDeclaration(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&NodeSpec{
		ID:       "palette",
		Inputs:   []PortSpec{{Name: "t", Type: TypeFloat}},
		Outputs:  []PortSpec{{Name: "color", Type: TypeVec3}},
		Params:   []ParamSpec{{Name: "stops", Type: TypeArray}},
		MainCode: "$output.color = vec3($param.stops[0], $param.stops[1], $param.stops[2]);",
	})
	if err != nil {
		t.Fatal(err)
	}
	g := &Graph{Nodes: []*NodeInstance{{
		ID: "pal", Type: "palette",
		Params: map[string]ParamValue{"stops": ArrayValue(1, 0.5, 0)},
	}}}
	src, diags := NewProgrammer(reg).Fragment(g, plan("pal"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "float array_pal_stops[3] = float[3](1.0, 0.5, 0.0);") {
		t.Errorf("array constant declaration missing:\n%s", src)
	}
	if !strings.Contains(src, "vec3(array_pal_stops[0], array_pal_stops[1], array_pal_stops[2])") {
		t.Errorf("array reference not substituted:\n%s", src)
	}
}

func TestInlineParamGenerator(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&NodeSpec{
		ID:      "swizzle",
		Inputs:  []PortSpec{{Name: "v", Type: TypeVec4}},
		Outputs: []PortSpec{{Name: "out", Type: TypeVec4}},
		Params: []ParamSpec{{
			Name: "sel", Type: TypeString, Default: StringValue("xyzw"),
			Inline: func(ctx *InlineContext, value string) string {
				return ctx.Input("v") + "." + value
			},
		}},
		MainCode: "$output.out = $param.sel;",
	})
	if err != nil {
		t.Fatal(err)
	}
	g := &Graph{Nodes: []*NodeInstance{{
		ID: "sw", Type: "swizzle",
		Params: map[string]ParamValue{"sel": StringValue("wzyx")},
	}}}
	src, diags := NewProgrammer(reg).Fragment(g, plan("sw"))
	if !diags.OK() {
		t.Fatalf("errors: %v", diags.Errors)
	}
	if !strings.Contains(src, "node_sw_out = vec4(0.0).wzyx;") {
		t.Errorf("inline generated expression missing:\n%s", src)
	}
}
