// Package shadegraph compiles node graphs to GLSL fragment shaders. The
// root package supplies the builtin node catalog and the graph-preparation
// passes (ordering, uniform allocation, function specialization); package
// glgen performs code generation; package glview renders the result.
package shadegraph

import (
	"errors"
	"fmt"

	"github.com/shadegraph/shadegraph/glgen"
)

// GraphBuilder constructs graphs against a node catalog with error
// accumulation: misuse is recorded and reported once by Err, so graph
// assembly code stays free of per-call error handling.
type GraphBuilder struct {
	reg       *glgen.Registry
	g         glgen.Graph
	accumErrs []error
}

// NewGraphBuilder returns a builder validating against reg. A nil registry
// uses the builtin catalog.
func NewGraphBuilder(reg *glgen.Registry) *GraphBuilder {
	if reg == nil {
		reg = DefaultCatalog()
	}
	return &GraphBuilder{reg: reg}
}

// Err returns all errors accumulated during graph assembly.
func (bld *GraphBuilder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *GraphBuilder) graphErrorf(msg string, args ...any) {
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

// AddNode adds a node instance of the named catalog type and returns its
// id for chaining into Connect calls.
func (bld *GraphBuilder) AddNode(id, nodeType string) string {
	if _, ok := bld.reg.Spec(nodeType); !ok {
		bld.graphErrorf("AddNode %q: unknown node type %q", id, nodeType)
		return id
	}
	if bld.g.Node(id) != nil {
		bld.graphErrorf("AddNode: duplicate node id %q", id)
		return id
	}
	bld.g.Nodes = append(bld.g.Nodes, &glgen.NodeInstance{ID: id, Type: nodeType})
	return id
}

// SetParam sets a parameter value on a node added earlier.
func (bld *GraphBuilder) SetParam(id, param string, v glgen.ParamValue) {
	node := bld.g.Node(id)
	if node == nil {
		bld.graphErrorf("SetParam: unknown node %q", id)
		return
	}
	spec, _ := bld.reg.Spec(node.Type)
	ps := spec.Param(param)
	if ps == nil {
		bld.graphErrorf("SetParam: node %q (%s) has no parameter %q", id, node.Type, param)
		return
	}
	if !compatibleParam(ps.Type, v.Type()) {
		bld.graphErrorf("SetParam: node %q parameter %q wants %s, got %s", id, param, ps.Type, v.Type())
		return
	}
	if node.Params == nil {
		node.Params = make(map[string]glgen.ParamValue)
	}
	node.Params[param] = v
}

// SetMode sets the combine mode used when a value is wired into the
// parameter.
func (bld *GraphBuilder) SetMode(id, param string, mode glgen.InputMode) {
	node := bld.g.Node(id)
	if node == nil {
		bld.graphErrorf("SetMode: unknown node %q", id)
		return
	}
	if node.ParamModes == nil {
		node.ParamModes = make(map[string]glgen.InputMode)
	}
	node.ParamModes[param] = mode
}

// Connect wires an output port to an input port.
func (bld *GraphBuilder) Connect(fromID, fromPort, toID, toPort string) {
	if !bld.checkOutput(fromID, fromPort, "Connect") {
		return
	}
	to := bld.g.Node(toID)
	if to == nil {
		bld.graphErrorf("Connect: unknown node %q", toID)
		return
	}
	spec, _ := bld.reg.Spec(to.Type)
	found := false
	for _, in := range spec.Inputs {
		if in.Name == toPort {
			found = true
			break
		}
	}
	if !found {
		bld.graphErrorf("Connect: node %q (%s) has no input %q", toID, to.Type, toPort)
		return
	}
	bld.g.Conns = append(bld.g.Conns, glgen.Connection{
		FromNode: fromID, FromPort: fromPort, ToNode: toID, ToPort: toPort,
	})
}

// ConnectParam wires an output port into a float parameter.
func (bld *GraphBuilder) ConnectParam(fromID, fromPort, toID, toParam string) {
	if !bld.checkOutput(fromID, fromPort, "ConnectParam") {
		return
	}
	to := bld.g.Node(toID)
	if to == nil {
		bld.graphErrorf("ConnectParam: unknown node %q", toID)
		return
	}
	spec, _ := bld.reg.Spec(to.Type)
	ps := spec.Param(toParam)
	if ps == nil {
		bld.graphErrorf("ConnectParam: node %q (%s) has no parameter %q", toID, to.Type, toParam)
		return
	}
	if ps.Type != glgen.TypeFloat {
		bld.graphErrorf("ConnectParam: node %q parameter %q is %s; only float parameters accept wires", toID, toParam, ps.Type)
		return
	}
	bld.g.Conns = append(bld.g.Conns, glgen.Connection{
		FromNode: fromID, FromPort: fromPort, ToNode: toID, ToParam: toParam,
	})
}

func (bld *GraphBuilder) checkOutput(id, port, op string) bool {
	node := bld.g.Node(id)
	if node == nil {
		bld.graphErrorf("%s: unknown node %q", op, id)
		return false
	}
	spec, _ := bld.reg.Spec(node.Type)
	for _, out := range spec.OutputsFor(node) {
		if out.Name == port {
			return true
		}
	}
	bld.graphErrorf("%s: node %q (%s) has no output %q", op, id, node.Type, port)
	return false
}

// Graph returns the assembled graph. The builder may keep being used; the
// returned graph aliases the builder's storage.
func (bld *GraphBuilder) Graph() *glgen.Graph { return &bld.g }

func compatibleParam(want, got glgen.ValueType) bool {
	if want == got {
		return true
	}
	// Numeric parameters accept either numeric literal form.
	return (want == glgen.TypeFloat && got == glgen.TypeInt) ||
		(want == glgen.TypeInt && got == glgen.TypeFloat)
}
