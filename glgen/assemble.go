package glgen

import (
	"io"
	"sort"
)

// resolveFinalColor picks the expression driving fragColor. Sink nodes are
// preferred: a single sink wins outright, then a sink nothing reads from,
// then the sink executing last. Without sinks the latest vec3 or vec4
// output in execution order wins, then the latest output of any type, and
// an empty graph paints black.
func (p *Programmer) resolveFinalColor() string {
	if sink := p.pickSink(); sink != nil {
		return p.sinkColor(sink)
	}
	if expr, ok := p.lastOutput(true); ok {
		return expr
	}
	if expr, ok := p.lastOutput(false); ok {
		return expr
	}
	p.diags.warnf("graph produces no output; painting black")
	return "vec3(0.0)"
}

func (p *Programmer) pickSink() *NodeInstance {
	var sinks []*NodeInstance
	for _, node := range p.g.Nodes {
		spec, ok := p.reg.Spec(node.Type)
		if ok && spec.Kind == KindSink {
			sinks = append(sinks, node)
		}
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	total := len(sinks)
	var leaves []*NodeInstance
	for _, s := range sinks {
		if !p.g.hasOutgoing(s.ID) {
			leaves = append(leaves, s)
		}
	}
	if len(leaves) > 0 {
		sinks = leaves
	}
	best := sinks[0]
	for _, s := range sinks[1:] {
		if p.orderOf(s.ID) >= p.orderOf(best.ID) {
			best = s
		}
	}
	p.diags.warnf("graph has %d output nodes; using %q", total, best.ID)
	return best
}

func (p *Programmer) orderOf(id string) int {
	if i, ok := p.orderIdx[id]; ok {
		return i
	}
	return -1
}

// sinkColor resolves the data wire feeding the sink's first input to a
// vec3 color expression. An unconnected sink paints black.
func (p *Programmer) sinkColor(sink *NodeInstance) string {
	spec, _ := p.reg.Spec(sink.Type)
	port := "color"
	if len(spec.Inputs) > 0 {
		port = spec.Inputs[0].Name
	}
	conn, ok := p.g.dataWireInto(sink.ID, port)
	if !ok {
		p.diags.warnf("output node %q has no incoming color; painting black", sink.ID)
		return "vec3(0.0)"
	}
	srcVar, srcType, ok := p.sourceVar(conn.FromNode, conn.FromPort)
	if !ok {
		p.diags.warnf("output node %q: source %s.%s unavailable; painting black", sink.ID, conn.FromNode, conn.FromPort)
		return "vec3(0.0)"
	}
	return colorExpr(srcVar, srcType)
}

// lastOutput scans execution order backwards for the most recently
// computed output, optionally restricted to color-shaped types.
func (p *Programmer) lastOutput(colorOnly bool) (string, bool) {
	for i := len(p.plan.Order) - 1; i >= 0; i-- {
		node := p.g.Node(p.plan.Order[i])
		if node == nil {
			continue
		}
		spec, ok := p.reg.Spec(node.Type)
		if !ok || spec.Kind == KindSink {
			continue
		}
		outs := spec.OutputsFor(node)
		for j := len(outs) - 1; j >= 0; j-- {
			o := outs[j]
			if colorOnly && o.Type != TypeVec3 && o.Type != TypeVec4 {
				continue
			}
			v, t, ok := p.sourceVar(node.ID, o.Name)
			if !ok {
				continue
			}
			return colorExpr(v, t), true
		}
	}
	return "", false
}

// assemble stitches the final shader: version directive, uniforms, node
// output globals, deduplicated helper functions, and a main wiring the
// centered aspect-corrected coordinate through the node blocks into
// fragColor.
func (p *Programmer) assemble(w io.Writer, color string) (int, *Diagnostics, error) {
	b := p.scratch[:0]
	b = append(b, p.header...)
	b = append(b, "\nuniform float u_time;\nuniform vec2 u_resolution;\n"...)
	if len(p.uniforms) > 0 {
		names := make([]string, 0, len(p.uniforms))
		for name := range p.uniforms {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b = append(b, "uniform "...)
			b = append(b, p.uniforms[name]...)
			b = append(b, ' ')
			b = append(b, name...)
			b = append(b, ";\n"...)
		}
	}
	if len(p.globals) > 0 {
		b = append(b, '\n')
		b = append(b, p.globals...)
	}
	if len(p.funcs) > 0 {
		b = append(b, '\n')
		b = append(b, p.funcs...)
	}
	b = append(b, "\nout vec4 fragColor;\n\nvoid main() {\n"...)
	b = append(b, "    vec2 uv = gl_FragCoord.xy / u_resolution;\n"...)
	b = append(b, "    vec2 p = (2.0*gl_FragCoord.xy - u_resolution) / u_resolution.y;\n"...)
	b = append(b, p.body...)
	b = append(b, "    fragColor = vec4("...)
	b = append(b, color...)
	b = append(b, ", 1.0);\n}\n"...)
	p.scratch = b[:0]
	n, err := w.Write(b)
	return n, p.diags, err
}
