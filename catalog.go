package shadegraph

import (
	"strconv"
	"strings"

	"github.com/shadegraph/shadegraph/glgen"
)

// DefaultCatalog returns a registry with every builtin node type. Builtin
// templates are registered on first use and are known-good; a failure here
// is a programming error in this package.
func DefaultCatalog() *glgen.Registry {
	reg := glgen.NewRegistry()
	for _, spec := range builtinSpecs() {
		if err := reg.Register(spec); err != nil {
			panic("shadegraph: builtin node spec: " + err.Error())
		}
	}
	return reg
}

func builtinSpecs() []*glgen.NodeSpec {
	return []*glgen.NodeSpec{
		{
			ID:             "coordinate",
			DisplayName:    "Coordinate",
			Category:       "input",
			SelfSufficient: true,
			Outputs: []glgen.PortSpec{
				{Name: "uv", Type: glgen.TypeVec2},
				{Name: "pos", Type: glgen.TypeVec2},
			},
			MainCode: `$output.uv = gl_FragCoord.xy / $resolution;
$output.pos = $p;`,
		},
		{
			ID:             "polar",
			DisplayName:    "Polar Coordinate",
			Category:       "input",
			SelfSufficient: true,
			Outputs: []glgen.PortSpec{
				{Name: "radius", Type: glgen.TypeFloat},
				{Name: "angle", Type: glgen.TypeFloat},
			},
			MainCode: `$output.radius = length($p);
$output.angle = atan($p.y, $p.x);`,
		},
		{
			ID:             "time",
			DisplayName:    "Time",
			Category:       "input",
			SelfSufficient: true,
			Outputs:        []glgen.PortSpec{{Name: "out", Type: glgen.TypeFloat}},
			MainCode:       "$output.out = $time;",
		},
		{
			ID:             "resolution",
			DisplayName:    "Resolution",
			Category:       "input",
			SelfSufficient: true,
			Outputs:        []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec2}},
			MainCode:       "$output.out = $resolution;",
		},
		{
			ID:             "constant",
			DisplayName:    "Constant",
			Category:       "input",
			SelfSufficient: true,
			Outputs:        []glgen.PortSpec{{Name: "out", Type: glgen.TypeFloat}},
			Params: []glgen.ParamSpec{{
				Name: "value", Type: glgen.TypeFloat, Default: glgen.FloatValue(1),
				Min: -1e6, Max: 1e6, HasRange: true, Uniform: true,
			}},
			MainCode: "$output.out = $param.value;",
		},
		{
			ID:          "fbm-noise",
			DisplayName: "FBM Noise",
			Category:    "generate",
			Inputs:      []glgen.PortSpec{{Name: "pos", Type: glgen.TypeVec2}},
			Outputs:     []glgen.PortSpec{{Name: "out", Type: glgen.TypeFloat}},
			Params: []glgen.ParamSpec{
				{Name: "octaves", Type: glgen.TypeInt, Default: glgen.IntValue(4), Min: 1, Max: 8, HasRange: true},
				{Name: "lacunarity", Type: glgen.TypeFloat, Default: glgen.FloatValue(2), Min: 1, Max: 4, HasRange: true},
				{Name: "gain", Type: glgen.TypeFloat, Default: glgen.FloatValue(0.5), Min: 0, Max: 1, HasRange: true, Uniform: true},
			},
			MainCode: "$output.out = fbmNoise($input.pos, $param.lacunarity, $param.gain);",
			Functions: `float noiseHash21(vec2 q) {
    q = fract(q*vec2(123.34, 456.21));
    q += dot(q, q + 45.32);
    return fract(q.x*q.y);
}
float valueNoise(vec2 q) {
    vec2 i = floor(q);
    vec2 f = fract(q);
    vec2 u = f*f*(3.0 - 2.0*f);
    float a = noiseHash21(i);
    float b = noiseHash21(i + vec2(1.0, 0.0));
    float c = noiseHash21(i + vec2(0.0, 1.0));
    float d = noiseHash21(i + vec2(1.0, 1.0));
    return mix(mix(a, b, u.x), mix(c, d, u.x), u.y);
}
float fbmNoise(vec2 q, float lacunarity, float gain) {
    float sum = 0.0;
    float amp = 0.5;
    for (int i = 0; i < $param.octaves; i++) {
        sum += amp*valueNoise(q);
        q *= lacunarity;
        amp *= gain;
    }
    return sum;
}`,
		},
		{
			ID:          "rotate",
			DisplayName: "Rotate",
			Category:    "transform",
			Inputs:      []glgen.PortSpec{{Name: "pos", Type: glgen.TypeVec2}},
			Outputs:     []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec2}},
			Params: []glgen.ParamSpec{{
				Name: "angle", Type: glgen.TypeFloat, Default: glgen.FloatValue(0),
				Min: -6.2831853, Max: 6.2831853, HasRange: true, Uniform: true,
			}},
			MainCode: `float rc = cos($param.angle);
float rs = sin($param.angle);
vec2 rp = $input.pos;
$output.out = vec2(rc*rp.x - rs*rp.y, rs*rp.x + rc*rp.y);`,
		},
		{
			ID:          "scale-coord",
			DisplayName: "Scale Coordinate",
			Category:    "transform",
			Inputs:      []glgen.PortSpec{{Name: "pos", Type: glgen.TypeVec2}},
			Outputs:     []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec2}},
			Params: []glgen.ParamSpec{{
				Name: "factor", Type: glgen.TypeFloat, Default: glgen.FloatValue(1),
				Min: 0.01, Max: 100, HasRange: true, Uniform: true,
			}},
			MainCode: "$output.out = $input.pos * $param.factor;",
		},
		{
			ID:          "math",
			DisplayName: "Math",
			Category:    "math",
			Inputs: []glgen.PortSpec{
				{Name: "a", Type: glgen.TypeFloat},
				{Name: "b", Type: glgen.TypeFloat},
			},
			Outputs: []glgen.PortSpec{{Name: "out", Type: glgen.TypeFloat}},
			Params: []glgen.ParamSpec{{
				Name: "op", Type: glgen.TypeString, Default: glgen.StringValue("add"),
				Inline: mathOpInline,
			}},
			MainCode: "$output.out = $param.op;",
		},
		{
			ID:          "swizzle",
			DisplayName: "Swizzle",
			Category:    "math",
			Inputs:      []glgen.PortSpec{{Name: "v", Type: glgen.TypeVec4}},
			Outputs:     []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec4}},
			Params: []glgen.ParamSpec{{
				Name: "channels", Type: glgen.TypeString, Default: glgen.StringValue("xyzw"),
				Inline: swizzleInline,
			}},
			MainCode: "$output.out = $param.channels;",
		},
		{
			ID:          "mix-color",
			DisplayName: "Mix Color",
			Category:    "color",
			Inputs: []glgen.PortSpec{
				{Name: "a", Type: glgen.TypeVec3},
				{Name: "b", Type: glgen.TypeVec3},
				{Name: "t", Type: glgen.TypeFloat},
			},
			Outputs:  []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec3}},
			MainCode: "$output.out = mix($input.a, $input.b, clamp($input.t, 0.0, 1.0));",
		},
		{
			ID:          "palette",
			DisplayName: "Palette",
			Category:    "color",
			Inputs:      []glgen.PortSpec{{Name: "t", Type: glgen.TypeFloat}},
			Outputs:     []glgen.PortSpec{{Name: "out", Type: glgen.TypeVec3}},
			Params: []glgen.ParamSpec{{
				Name: "stops", Type: glgen.TypeArray,
				Default: glgen.ArrayValue(
					0.5, 0.5, 0.5,
					0.5, 0.5, 0.5,
					1.0, 1.0, 1.0,
					0.0, 0.33, 0.67,
				),
			}},
			MainCode: `float pt = clamp($input.t, 0.0, 1.0);
$output.out = vec3($param.stops[0], $param.stops[1], $param.stops[2])
    + vec3($param.stops[3], $param.stops[4], $param.stops[5])
    *cos(6.2831853*(vec3($param.stops[6], $param.stops[7], $param.stops[8])*pt
    + vec3($param.stops[9], $param.stops[10], $param.stops[11])));`,
		},
		{
			ID:          "analyzer",
			DisplayName: "Audio Analyzer",
			Category:    "input",
			Kind:        glgen.KindExternal,
			Params: []glgen.ParamSpec{{
				Name: "bands", Type: glgen.TypeInt, Default: glgen.IntValue(4), Min: 1, Max: 16, HasRange: true,
			}},
			DynamicOutputs: analyzerOutputs,
		},
		{
			ID:          "output",
			DisplayName: "Output",
			Category:    "output",
			Kind:        glgen.KindSink,
			Inputs:      []glgen.PortSpec{{Name: "color", Type: glgen.TypeVec3}},
		},
	}
}

func analyzerOutputs(n *glgen.NodeInstance) []glgen.PortSpec {
	bands := 4
	if v, ok := n.Param("bands"); ok {
		switch v.Type() {
		case glgen.TypeInt:
			bands = v.Int()
		case glgen.TypeFloat:
			bands = int(v.Float())
		}
	}
	if bands < 1 {
		bands = 1
	} else if bands > 16 {
		bands = 16
	}
	ports := make([]glgen.PortSpec, bands)
	for i := range ports {
		ports[i] = glgen.PortSpec{Name: "band" + strconv.Itoa(i), Type: glgen.TypeFloat}
	}
	return ports
}

func mathOpInline(ctx *glgen.InlineContext, value string) string {
	a, b := ctx.Input("a"), ctx.Input("b")
	switch value {
	case "add", "":
		return "(" + a + " + " + b + ")"
	case "subtract":
		return "(" + a + " - " + b + ")"
	case "multiply":
		return "(" + a + " * " + b + ")"
	case "divide":
		return "(" + a + " / max(abs(" + b + "), 1e-6))"
	case "pow":
		return "pow(" + a + ", " + b + ")"
	case "min":
		return "min(" + a + ", " + b + ")"
	case "max":
		return "max(" + a + ", " + b + ")"
	case "mod":
		return "mod(" + a + ", " + b + ")"
	case "atan":
		return "atan(" + a + ", " + b + ")"
	}
	ctx.Warnf("unknown math op %q; using add", value)
	return "(" + a + " + " + b + ")"
}

func swizzleInline(ctx *glgen.InlineContext, value string) string {
	sel := value
	if !validSwizzle(sel) {
		ctx.Warnf("invalid swizzle %q; using xyzw", value)
		sel = "xyzw"
	}
	return ctx.Input("v") + "." + sel
}

// validSwizzle accepts exactly four selectors from one component family,
// so the result stays a vec4.
func validSwizzle(s string) bool {
	if len(s) != 4 {
		return false
	}
	families := [...]string{"xyzw", "rgba", "stpq"}
	for _, fam := range families {
		all := true
		for i := 0; i < len(s); i++ {
			if !strings.ContainsRune(fam, rune(s[i])) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
