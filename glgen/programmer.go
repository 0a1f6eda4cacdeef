package glgen

import (
	"io"
	"sort"
	"strconv"
	"strings"
)

// DefaultHeader is the version directive prepended to generated shaders.
const DefaultHeader = "#version 330\n"

// Programmer generates fragment shader source for node graphs. It is not
// safe for concurrent use: each WriteFragment call owns the Programmer's
// buffers for its duration. Successive calls never share state beyond the
// reused allocations, so identical inputs always produce identical source.
type Programmer struct {
	reg    *Registry
	header string

	// Per-compile state, rebuilt on every WriteFragment call.
	g        *Graph
	plan     *Plan
	diags    *Diagnostics
	orderIdx map[string]int
	names    map[string]map[string]string
	uniforms map[string]string // identifier → GLSL type
	fnHashes map[uint64]uint64 // function name hash → body hash
	globals  []byte
	funcs    []byte
	body     []byte
	scratch  []byte
}

// NewProgrammer returns a Programmer generating shaders for graphs whose
// node types are registered in reg.
func NewProgrammer(reg *Registry) *Programmer {
	return &Programmer{reg: reg, header: DefaultHeader}
}

// SetHeader overrides the version directive of generated shaders.
func (p *Programmer) SetHeader(header string) { p.header = header }

// Fragment compiles the graph to a fragment shader string. Convenience
// wrapper over [Programmer.WriteFragment].
func (p *Programmer) Fragment(g *Graph, plan *Plan) (string, *Diagnostics) {
	var sb strings.Builder
	_, diags, _ := p.WriteFragment(&sb, g, plan)
	return sb.String(), diags
}

// WriteFragment compiles the graph into one fragment shader and writes it
// to w. The returned diagnostics hold recoverable findings as warnings and
// graph-level failures as errors; err reports writer failures only. The
// whole pass is synchronous and touches no state outside the Programmer.
func (p *Programmer) WriteFragment(w io.Writer, g *Graph, plan *Plan) (n int, diags *Diagnostics, err error) {
	p.reset(g, plan)
	diags = p.diags

	p.declareGlobals()
	for _, id := range plan.Order {
		p.emitNode(id)
	}
	color := p.resolveFinalColor()
	return p.assemble(w, color)
}

func (p *Programmer) reset(g *Graph, plan *Plan) {
	p.g = g
	p.plan = plan
	p.diags = &Diagnostics{}
	p.names = make(map[string]map[string]string, len(g.Nodes))
	p.uniforms = make(map[string]string)
	p.fnHashes = make(map[uint64]uint64)
	p.globals = p.globals[:0]
	p.funcs = p.funcs[:0]
	p.body = p.body[:0]
	p.orderIdx = make(map[string]int, len(plan.Order))
	for i, id := range plan.Order {
		p.orderIdx[id] = i
	}
}

// declareGlobals is the first pass: one global variable per output port of
// every node in the graph, not only those in execution order, so
// disconnected-but-referenced nodes still resolve. Globals are declared at
// global scope because later nodes read earlier outputs from inside their
// own block scope, and externally driven values are reassigned between
// invocations.
func (p *Programmer) declareGlobals() {
	for _, node := range p.g.Nodes {
		if _, dup := p.names[node.ID]; dup {
			p.diags.warnf("duplicate node id %q; keeping first occurrence", node.ID)
			continue
		}
		spec, ok := p.reg.Spec(node.Type)
		if !ok {
			p.diags.warnf("node %q: no spec registered for type %q; node skipped", node.ID, node.Type)
			continue
		}
		ports := spec.OutputsFor(node)
		m := make(map[string]string, len(ports))
		for _, port := range ports {
			v := VarName(node.ID, port.Name)
			m[port.Name] = v
			p.globals = p.appendGlobalDecl(p.globals, port.Type, v)
		}
		p.names[node.ID] = m
	}
}

func (p *Programmer) appendGlobalDecl(b []byte, t ValueType, name string) []byte {
	b = append(b, t.GLSL()...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, " = "...)
	b = append(b, t.Zero()...)
	b = append(b, ";\n"...)
	return b
}

// sourceVar resolves the global variable holding (nodeID, port), force
// declaring it when the name table is missing an entry for a known port.
func (p *Programmer) sourceVar(nodeID, port string) (string, ValueType, bool) {
	node := p.g.Node(nodeID)
	if node == nil {
		return "", TypeInvalid, false
	}
	spec, ok := p.reg.Spec(node.Type)
	if !ok {
		return "", TypeInvalid, false
	}
	var pt PortSpec
	found := false
	for _, o := range spec.OutputsFor(node) {
		if o.Name == port {
			pt = o
			found = true
			break
		}
	}
	if !found {
		p.diags.warnf("node %q has no output %q", nodeID, port)
		return "", TypeInvalid, false
	}
	m := p.names[nodeID]
	if m == nil {
		m = make(map[string]string)
		p.names[nodeID] = m
	}
	v, ok := m[port]
	if !ok {
		v = VarName(nodeID, port)
		p.diags.warnf("force-declaring missing variable %s", v)
		p.globals = p.appendGlobalDecl(p.globals, pt.Type, v)
		m[port] = v
	}
	return v, pt.Type, true
}

// nodeState is the per-node emission context of the second pass.
type nodeState struct {
	node   *NodeInstance
	spec   *NodeSpec
	inputs map[string]string // port → resolved expression
	arrays map[string]string // array param → local array identifier
}

// emitNode is the second pass for one node, in execution order. Code nodes
// expand their template inside a dedicated block so same-named locals in
// different nodes never collide; external nodes emit uniform assignments;
// sinks emit nothing.
func (p *Programmer) emitNode(id string) {
	node := p.g.Node(id)
	if node == nil {
		p.diags.warnf("execution order references unknown node %q", id)
		return
	}
	spec, ok := p.reg.Spec(node.Type)
	if !ok {
		return // Missing spec already warned in the declaration pass.
	}
	switch spec.Kind {
	case KindSink:
		return
	case KindExternal:
		p.emitExternal(node, spec)
		return
	}
	if spec.main == nil {
		return
	}
	code, err := p.substituteNode(node, spec)
	if err != nil {
		p.diags.errorf("node %q (%s): %v", node.ID, node.Type, err)
		return
	}
	p.body = append(p.body, "    {\n"...)
	p.body = appendIndented(p.body, code)
	p.body = append(p.body, "    }\n"...)
}

// emitExternal assigns externally uploaded uniforms to the node's output
// globals. The node's template, if any, never runs.
func (p *Programmer) emitExternal(node *NodeInstance, spec *NodeSpec) {
	m := p.names[node.ID]
	for _, port := range spec.OutputsFor(node) {
		uname, ok := p.plan.Uniforms[node.ID+"."+port.Name]
		if !ok {
			p.diags.warnf("node %q: no uniform allocated for externally driven output %q", node.ID, port.Name)
			continue
		}
		p.bindUniform(uname, port.Type)
		p.body = append(p.body, "    "...)
		p.body = append(p.body, m[port.Name]...)
		p.body = append(p.body, " = "...)
		p.body = append(p.body, uname...)
		p.body = append(p.body, ";\n"...)
	}
}

// substituteNode expands the node's main template and, when present, its
// helper-function source, then applies the specialization rename table to
// both. A ConversionError aborts the node: neither its block nor its
// functions are emitted.
func (p *Programmer) substituteNode(node *NodeInstance, spec *NodeSpec) (string, error) {
	st := &nodeState{
		node:   node,
		spec:   spec,
		inputs: make(map[string]string, len(spec.Inputs)),
		arrays: make(map[string]string),
	}
	if err := p.resolveInputs(st); err != nil {
		return "", err
	}
	var pre []byte
	for i := range spec.Params {
		ps := &spec.Params[i]
		if ps.Type != TypeArray {
			continue
		}
		vals := p.paramArray(node, ps)
		if len(vals) == 0 {
			continue
		}
		name := ArrayName(node.ID, ps.Name)
		st.arrays[ps.Name] = name
		pre = appendFloatArrayDecl(pre, name, vals)
	}
	code := p.walk(spec.main, st)
	var fnSrc string
	if spec.funcs != nil {
		fnSrc = p.walk(spec.funcs, st)
	}
	if renames := p.plan.FuncNames[node.ID]; len(renames) > 0 {
		origs := make([]string, 0, len(renames))
		for orig := range renames {
			origs = append(origs, orig)
		}
		sort.Strings(origs)
		for _, orig := range origs {
			code = renameCalls(code, orig, renames[orig])
			if fnSrc != "" {
				fnSrc = renameCalls(fnSrc, orig, renames[orig])
			}
		}
	}
	if fnSrc != "" {
		p.addFunctions(fnSrc)
	}
	return string(pre) + code, nil
}

// resolveInputs binds every declared input port up front: the data-wire's
// coerced source variable when connected, the type's zero literal when not.
// Self-sufficient node types never receive defaults; their templates do
// not reference $input.
func (p *Programmer) resolveInputs(st *nodeState) error {
	if st.spec.SelfSufficient {
		return nil
	}
	for _, in := range st.spec.Inputs {
		conn, ok := p.g.dataWireInto(st.node.ID, in.Name)
		if !ok {
			st.inputs[in.Name] = in.Type.Zero()
			continue
		}
		srcVar, srcType, ok := p.sourceVar(conn.FromNode, conn.FromPort)
		if !ok {
			p.diags.warnf("node %q input %q: source %s.%s unavailable; using default",
				st.node.ID, in.Name, conn.FromNode, conn.FromPort)
			st.inputs[in.Name] = in.Type.Zero()
			continue
		}
		expr, err := Convert(srcVar, srcType, in.Type)
		if err != nil {
			return err
		}
		st.inputs[in.Name] = expr
	}
	return nil
}

func (p *Programmer) walk(t *template, st *nodeState) string {
	b := p.scratch[:0]
	for _, tk := range t.toks {
		switch tk.kind {
		case tokLiteral:
			b = append(b, tk.text...)
		case tokInput:
			expr, ok := st.inputs[tk.text]
			if !ok {
				p.diags.warnf("node %q references unresolved input %q; substituting zero", st.node.ID, tk.text)
				expr = "0.0"
			}
			b = append(b, expr...)
		case tokOutput:
			b = append(b, p.outputVar(st, tk.text)...)
		case tokParam:
			b = append(b, p.paramExpr(st, tk.text)...)
		case tokTime:
			b = append(b, "u_time"...)
		case tokResolution:
			b = append(b, "u_resolution"...)
		case tokCoord:
			b = append(b, 'p')
		case tokResult:
			b = append(b, p.resultVar(st)...)
		}
	}
	p.scratch = b[:0]
	return string(b)
}

// outputVar resolves $output.<port> to the port's global, force declaring
// structurally inconsistent outputs rather than failing the node.
func (p *Programmer) outputVar(st *nodeState, port string) string {
	if m := p.names[st.node.ID]; m != nil {
		if v, ok := m[port]; ok {
			return v
		}
	}
	v, _, ok := p.sourceVar(st.node.ID, port)
	if ok {
		return v
	}
	p.diags.warnf("node %q writes undeclared output %q", st.node.ID, port)
	return VarName(st.node.ID, port)
}

// resultVar resolves the legacy bare identifier "result": the node's "out"
// output when declared, else its first output. Kept for node templates
// authored before the $output placeholder existed.
func (p *Programmer) resultVar(st *nodeState) string {
	outs := st.spec.OutputsFor(st.node)
	if len(outs) == 0 {
		p.diags.warnf("node %q uses result but declares no outputs", st.node.ID)
		return "0.0"
	}
	for _, o := range outs {
		if o.Name == "out" {
			return p.outputVar(st, o.Name)
		}
	}
	return p.outputVar(st, outs[0].Name)
}

// paramExpr resolves $param.<name> per the resolution ladder: array
// reference, node-authored inline generator, wired expression combined by
// input mode, allocated uniform, formatted literal. A leftover reference
// that resolves to nothing substitutes a safe literal, never broken syntax.
func (p *Programmer) paramExpr(st *nodeState, name string) string {
	node, spec := st.node, st.spec
	ps := spec.Param(name)
	if ps == nil {
		p.diags.warnf("node %q references undeclared parameter %q; substituting zero", node.ID, name)
		return "0.0"
	}
	if ps.Type == TypeArray {
		if arr, ok := st.arrays[name]; ok {
			return arr
		}
		p.diags.warnf("node %q: array parameter %q is empty; substituting zero", node.ID, name)
		return "0.0"
	}
	if ps.Inline != nil && ps.Type == TypeString {
		return ps.Inline(&InlineContext{p: p, st: st}, p.paramString(node, ps))
	}
	uname, hasUniform := p.plan.Uniforms[node.ID+"."+name]
	wires := p.g.paramWires(node.ID, name)
	if len(wires) > 0 && ps.Type != TypeFloat {
		p.diags.warnf("node %q: parameter %q is wired but only float parameters accept connections", node.ID, name)
		wires = nil
	}
	if len(wires) > 0 {
		if expr, ok := p.wiredParamExpr(st, ps, uname, hasUniform, wires); ok {
			return expr
		}
	}
	if hasUniform {
		p.bindUniform(uname, ps.Type)
		return uname
	}
	return p.paramLiteral(node, ps)
}

// wiredParamExpr resolves a parameter driven by one or more connections.
// With several wires targeting one parameter the source executing latest,
// among sources strictly before the consumer, wins; the rest are dropped
// silently. That tolerated-but-invalid configuration matches the override
// intuition of chained adjustments.
func (p *Programmer) wiredParamExpr(st *nodeState, ps *ParamSpec, uname string, hasUniform bool, wires []Connection) (string, bool) {
	node := st.node
	targetIdx, ok := p.orderIdx[node.ID]
	if !ok {
		targetIdx = len(p.plan.Order)
	}
	if len(wires) > 1 {
		p.diags.warnf("parameter %q on node %q has %d connections; keeping the latest-executing source", ps.Name, node.ID, len(wires))
	}
	best := -1
	bestIdx := -1
	for i, wire := range wires {
		si, ok := p.orderIdx[wire.FromNode]
		if !ok || si >= targetIdx {
			continue
		}
		if si > bestIdx {
			bestIdx = si
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	wire := wires[best]
	srcVar, srcType, ok := p.sourceVar(wire.FromNode, wire.FromPort)
	if !ok {
		p.diags.warnf("node %q parameter %q: wired source %s.%s unavailable", node.ID, ps.Name, wire.FromNode, wire.FromPort)
		return "", false
	}
	wired, err := ConvertToFloat(srcVar, srcType)
	if err != nil {
		p.diags.warnf("node %q parameter %q: %v; ignoring wire", node.ID, ps.Name, err)
		return "", false
	}
	mode := node.Mode(ps.Name, ps)
	if mode == ModeOverride {
		return wired, true
	}
	var base string
	if hasUniform {
		p.bindUniform(uname, ps.Type)
		base = uname
	} else {
		p.diags.warnf("node %q parameter %q: no uniform allocated for %s mode; using literal", node.ID, ps.Name, mode)
		base = p.paramLiteral(node, ps)
	}
	return "(" + base + string(mode.operator()) + wired + ")", true
}

// paramLiteral formats the parameter's unwired value: the instance value
// when set, else the spec default, else the type's zero. Float literals
// always carry an explicit decimal point.
func (p *Programmer) paramLiteral(node *NodeInstance, ps *ParamSpec) string {
	v, ok := node.Param(ps.Name)
	if !ok {
		v = ps.Default
	}
	switch ps.Type {
	case TypeFloat:
		if v.Type() == TypeInt {
			return FormatFloat(float32(v.Int()))
		}
		return FormatFloat(v.Float())
	case TypeInt:
		if v.Type() == TypeFloat {
			return strconv.Itoa(int(v.Float()))
		}
		return strconv.Itoa(v.Int())
	case TypeString:
		return v.Str()
	}
	return "0.0"
}

func (p *Programmer) paramString(node *NodeInstance, ps *ParamSpec) string {
	if v, ok := node.Param(ps.Name); ok && v.Type() == TypeString {
		return v.Str()
	}
	return ps.Default.Str()
}

func (p *Programmer) paramArray(node *NodeInstance, ps *ParamSpec) []float32 {
	if v, ok := node.Param(ps.Name); ok && v.Type() == TypeArray {
		return v.Array()
	}
	return ps.Default.Array()
}

// bindUniform records a uniform referenced by emitted code so assembly can
// declare it. Conflicting redeclarations keep the first type.
func (p *Programmer) bindUniform(name string, t ValueType) {
	if prev, ok := p.uniforms[name]; ok {
		if prev != t.GLSL() {
			p.diags.warnf("uniform %q bound with conflicting types %s and %s", name, prev, t)
		}
		return
	}
	p.uniforms[name] = t.GLSL()
}

// addFunctions deduplicates and appends substituted helper functions. Two
// nodes of one type with identical configuration produce identical bodies
// and share one emission; distinct bodies under one name keep the first
// and warn, since the specialization table upstream should have renamed
// one of them.
func (p *Programmer) addFunctions(src string) {
	for _, sp := range functionSpans(src) {
		nameHash := hashString(sp.name, 0)
		bodyHash := hashString(sp.text, nameHash)
		if prev, exists := p.fnHashes[nameHash]; exists {
			if prev != bodyHash {
				p.diags.warnf("helper function %q emitted with conflicting bodies; keeping first", sp.name)
			}
			continue
		}
		p.fnHashes[nameHash] = bodyHash
		p.funcs = append(p.funcs, sp.text...)
		p.funcs = append(p.funcs, '\n')
	}
}

// appendIndented writes code into the body with block indentation, one
// trailing newline guaranteed.
func appendIndented(b []byte, code string) []byte {
	for len(code) > 0 {
		line := code
		if nl := strings.IndexByte(code, '\n'); nl >= 0 {
			line, code = code[:nl], code[nl+1:]
		} else {
			code = ""
		}
		if line != "" {
			b = append(b, "        "...)
			b = append(b, line...)
		}
		b = append(b, '\n')
	}
	return b
}

// InlineContext exposes the per-node emission state to node-authored
// inline parameter generators, which emit code rather than a literal.
type InlineContext struct {
	p  *Programmer
	st *nodeState
}

// Input returns the resolved expression for one of the node's input ports.
func (c *InlineContext) Input(port string) string {
	if v, ok := c.st.inputs[port]; ok {
		return v
	}
	c.p.diags.warnf("node %q inline generator references unresolved input %q", c.st.node.ID, port)
	return "0.0"
}

// Output returns the global variable of one of the node's output ports.
func (c *InlineContext) Output(port string) string {
	return c.p.outputVar(c.st, port)
}

// Coord returns the per-pixel coordinate local.
func (c *InlineContext) Coord() string { return "p" }

// Warnf records a diagnostic warning attributed to the node being emitted.
func (c *InlineContext) Warnf(format string, args ...any) {
	c.p.diags.warnf("node %q: "+format, append([]any{c.st.node.ID}, args...)...)
}
