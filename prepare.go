package shadegraph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/shadegraph/shadegraph/glgen"
)

// Prepared bundles the compilation inputs the code generator consumes with
// the uniform values the render layer uploads.
type Prepared struct {
	Plan *glgen.Plan
	// UniformValues holds the initial value of every allocated float
	// uniform, keyed by uniform identifier. Analyzer band uniforms start
	// at zero and are driven externally each frame.
	UniformValues map[string]float32
}

// Prepare validates the graph and runs every preparation pass. The result
// feeds [glgen.Programmer.WriteFragment] directly.
func Prepare(reg *glgen.Registry, g *glgen.Graph) (*Prepared, error) {
	if reg == nil {
		reg = DefaultCatalog()
	}
	if err := Validate(reg, g); err != nil {
		return nil, err
	}
	order := SortNodes(g)
	uniforms, values := AllocateUniforms(reg, g)
	return &Prepared{
		Plan: &glgen.Plan{
			Order:     order,
			Uniforms:  uniforms,
			FuncNames: SpecializeFunctions(reg, g, order),
		},
		UniformValues: values,
	}, nil
}

// Validate checks the graph's structural health: known node types, unique
// ids, connections naming existing endpoints, parameter wires targeting
// float parameters, and acyclic data wiring. All findings are reported
// together.
func Validate(reg *glgen.Registry, g *glgen.Graph) error {
	var errs []error
	badf := func(msg string, args ...any) {
		errs = append(errs, fmt.Errorf(msg, args...))
	}
	seen := make(map[string]bool, len(g.Nodes))
	for _, node := range g.Nodes {
		if seen[node.ID] {
			badf("duplicate node id %q", node.ID)
		}
		seen[node.ID] = true
		if _, ok := reg.Spec(node.Type); !ok {
			badf("node %q: unknown node type %q", node.ID, node.Type)
		}
	}
	for _, conn := range g.Conns {
		from := g.Node(conn.FromNode)
		if from == nil {
			badf("connection references unknown source node %q", conn.FromNode)
			continue
		}
		to := g.Node(conn.ToNode)
		if to == nil {
			badf("connection references unknown target node %q", conn.ToNode)
			continue
		}
		fromSpec, ok := reg.Spec(from.Type)
		if ok && !hasOutput(fromSpec, from, conn.FromPort) {
			badf("node %q (%s) has no output %q", conn.FromNode, from.Type, conn.FromPort)
		}
		toSpec, ok := reg.Spec(to.Type)
		if !ok {
			continue
		}
		if conn.IsParamWire() {
			ps := toSpec.Param(conn.ToParam)
			if ps == nil {
				badf("node %q (%s) has no parameter %q", conn.ToNode, to.Type, conn.ToParam)
			} else if ps.Type != glgen.TypeFloat {
				badf("node %q parameter %q is %s; only float parameters accept wires", conn.ToNode, conn.ToParam, ps.Type)
			}
		} else if !hasInput(toSpec, conn.ToPort) {
			badf("node %q (%s) has no input %q", conn.ToNode, to.Type, conn.ToPort)
		}
	}
	if cyc := findDataCycle(g); len(cyc) > 0 {
		badf("data wiring is cyclic: %s", strings.Join(cyc, " -> "))
	}
	return errors.Join(errs...)
}

func hasOutput(spec *glgen.NodeSpec, node *glgen.NodeInstance, port string) bool {
	for _, o := range spec.OutputsFor(node) {
		if o.Name == port {
			return true
		}
	}
	return false
}

func hasInput(spec *glgen.NodeSpec, port string) bool {
	for _, in := range spec.Inputs {
		if in.Name == port {
			return true
		}
	}
	return false
}

// findDataCycle returns one cycle over data wires, or nil. Parameter wires
// are excluded: they tolerate cycles, the generator resolves them by
// execution order.
func findDataCycle(g *glgen.Graph) []string {
	succ := make(map[string][]string)
	for _, conn := range g.Conns {
		if conn.IsParamWire() {
			continue
		}
		succ[conn.FromNode] = append(succ[conn.FromNode], conn.ToNode)
	}
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var stack []string
	var cycle []string
	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = visiting
		stack = append(stack, id)
		for _, next := range succ[id] {
			switch state[next] {
			case visiting:
				for i, s := range stack {
					if s == next {
						cycle = append(append(cycle, stack[i:]...), next)
						return true
					}
				}
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited && visit(id) {
			return cycle
		}
	}
	return nil
}

// SortNodes produces a deterministic execution order: Kahn's algorithm
// over all connections with ties broken by node id. Nodes trapped in a
// parameter-wire cycle are appended in id order; the generator resolves
// their wiring by position.
func SortNodes(g *glgen.Graph) []string {
	indeg := make(map[string]int, len(g.Nodes))
	succ := make(map[string][]string)
	for _, n := range g.Nodes {
		indeg[n.ID] = 0
	}
	for _, conn := range g.Conns {
		if _, ok := indeg[conn.FromNode]; !ok {
			continue
		}
		if _, ok := indeg[conn.ToNode]; !ok {
			continue
		}
		succ[conn.FromNode] = append(succ[conn.FromNode], conn.ToNode)
		indeg[conn.ToNode]++
	}
	var ready []string
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		delete(indeg, id)
		var woken []string
		for _, next := range succ[id] {
			if d, ok := indeg[next]; ok {
				indeg[next] = d - 1
				if d-1 == 0 {
					woken = append(woken, next)
				}
			}
		}
		if len(woken) > 0 {
			ready = append(ready, woken...)
			sort.Strings(ready)
		}
	}
	if len(indeg) > 0 {
		rest := make([]string, 0, len(indeg))
		for id := range indeg {
			rest = append(rest, id)
		}
		sort.Strings(rest)
		order = append(order, rest...)
	}
	return order
}

// AllocateUniforms decides which parameters become uniforms and computes
// their initial values. A parameter is uniform-backed when its spec flags
// it animatable or when a wire combines with it (add, subtract, multiply
// need the authored value live at render time). Externally driven outputs
// always get one uniform per band. Values are clamped to the spec range
// and snapped to the spec step.
func AllocateUniforms(reg *glgen.Registry, g *glgen.Graph) (uniforms map[string]string, values map[string]float32) {
	uniforms = make(map[string]string)
	values = make(map[string]float32)
	for _, node := range g.Nodes {
		spec, ok := reg.Spec(node.Type)
		if !ok {
			continue
		}
		if spec.Kind == glgen.KindExternal {
			for _, port := range spec.OutputsFor(node) {
				name := glgen.UniformName(node.ID, port.Name)
				uniforms[node.ID+"."+port.Name] = name
				values[name] = 0
			}
			continue
		}
		for i := range spec.Params {
			ps := &spec.Params[i]
			if ps.Type != glgen.TypeFloat {
				continue
			}
			if !ps.Uniform && !hasCombineWire(g, node, ps) {
				continue
			}
			name := glgen.UniformName(node.ID, ps.Name)
			uniforms[node.ID+"."+ps.Name] = name
			values[name] = paramValue(node, ps)
		}
	}
	return uniforms, values
}

func hasCombineWire(g *glgen.Graph, node *glgen.NodeInstance, ps *glgen.ParamSpec) bool {
	for _, conn := range g.Conns {
		if conn.ToNode != node.ID || conn.ToParam != ps.Name {
			continue
		}
		if node.Mode(ps.Name, ps) != glgen.ModeOverride {
			return true
		}
	}
	return false
}

func paramValue(node *glgen.NodeInstance, ps *glgen.ParamSpec) float32 {
	v, ok := node.Param(ps.Name)
	if !ok {
		v = ps.Default
	}
	var f float32
	switch v.Type() {
	case glgen.TypeFloat:
		f = v.Float()
	case glgen.TypeInt:
		f = float32(v.Int())
	}
	if ps.Step > 0 {
		f = ps.Min + ps.Step*math32.Round((f-ps.Min)/ps.Step)
	}
	if ps.HasRange {
		f = math32.Max(ps.Min, math32.Min(ps.Max, f))
	}
	return f
}

// SpecializeFunctions builds the helper-function rename table. Instances
// of one node type whose helper bodies come out identical share the
// original names; every distinct configuration after the first gets
// _v<k>-suffixed copies. The configuration signature covers exactly the
// parameters the helper source references: a wire signature for wired
// parameters, the literal value otherwise.
func SpecializeFunctions(reg *glgen.Registry, g *glgen.Graph, order []string) map[string]map[string]string {
	type variantTable struct {
		next int
		seen map[string]int // signature → variant index
	}
	variants := make(map[string]*variantTable)
	out := make(map[string]map[string]string)
	for _, id := range order {
		node := g.Node(id)
		if node == nil {
			continue
		}
		spec, ok := reg.Spec(node.Type)
		if !ok || spec.Functions == "" {
			continue
		}
		affecting := spec.FunctionParams()
		if len(affecting) == 0 {
			continue // Bodies are configuration independent, dedup suffices.
		}
		sig := signature(g, node, spec, affecting)
		vt := variants[node.Type]
		if vt == nil {
			vt = &variantTable{seen: make(map[string]int)}
			variants[node.Type] = vt
		}
		k, ok := vt.seen[sig]
		if !ok {
			k = vt.next
			vt.next++
			vt.seen[sig] = k
		}
		if k == 0 {
			continue // First configuration keeps the original names.
		}
		renames := make(map[string]string)
		for _, fname := range glgen.FunctionNames(spec.Functions) {
			renames[fname] = fname + "_v" + strconv.Itoa(k)
		}
		out[id] = renames
	}
	return out
}

func signature(g *glgen.Graph, node *glgen.NodeInstance, spec *glgen.NodeSpec, params []string) string {
	var sb strings.Builder
	for _, name := range params {
		ps := spec.Param(name)
		sb.WriteString(name)
		sb.WriteByte('=')
		wired := false
		for _, conn := range g.Conns {
			if conn.ToNode == node.ID && conn.ToParam == name {
				sb.WriteString("wire:" + conn.FromNode + "." + conn.FromPort)
				sb.WriteString("/" + node.Mode(name, ps).String())
				wired = true
			}
		}
		if !wired {
			v, ok := node.Param(name)
			if !ok {
				v = ps.Default
			}
			switch v.Type() {
			case glgen.TypeFloat:
				sb.WriteString(glgen.FormatFloat(v.Float()))
			case glgen.TypeInt:
				sb.WriteString(strconv.Itoa(v.Int()))
			case glgen.TypeString:
				sb.WriteString(v.Str())
			}
		}
		sb.WriteByte(';')
	}
	return sb.String()
}
