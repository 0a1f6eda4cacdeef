// Package glgen compiles node graphs into single-pass GLSL fragment shaders.
//
// The pipeline is a pure, synchronous function of a graph, its execution
// order and the lookup tables produced by graph preparation. Every call to
// [Programmer.WriteFragment] builds fresh state, so compiling identical
// inputs twice yields byte-identical source.
package glgen

// ValueType enumerates the shading-language value types handled by the
// generator. Float through Vec4 form the promotion chain used for port
// coercion; String and Array are parameter-only types.
type ValueType uint8

const (
	TypeInvalid ValueType = iota
	TypeFloat
	TypeInt
	TypeVec2
	TypeVec3
	TypeVec4
	TypeString
	TypeArray
)

// GLSL returns the type's name in shader source.
func (t ValueType) GLSL() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	}
	return "invalid"
}

func (t ValueType) String() string { return t.GLSL() }

// Zero returns the type's zero-value literal, used for globals and
// unconnected input defaulting.
func (t ValueType) Zero() string {
	switch t {
	case TypeFloat:
		return "0.0"
	case TypeInt:
		return "0"
	case TypeVec2:
		return "vec2(0.0)"
	case TypeVec3:
		return "vec3(0.0)"
	case TypeVec4:
		return "vec4(0.0)"
	}
	return "0.0"
}

func (t ValueType) isVector() bool { return t >= TypeVec2 && t <= TypeVec4 }

// isPortType reports whether t may appear on an input or output port.
func (t ValueType) isPortType() bool { return t >= TypeFloat && t <= TypeVec4 }

// InputMode selects how a value wired into a parameter combines with the
// parameter's authored value.
type InputMode uint8

const (
	ModeOverride InputMode = iota
	ModeAdd
	ModeSubtract
	ModeMultiply
)

func (m InputMode) String() string {
	switch m {
	case ModeOverride:
		return "override"
	case ModeAdd:
		return "add"
	case ModeSubtract:
		return "subtract"
	case ModeMultiply:
		return "multiply"
	}
	return "invalid"
}

// operator returns the GLSL binary operator for combining modes.
func (m InputMode) operator() byte {
	switch m {
	case ModeAdd:
		return '+'
	case ModeSubtract:
		return '-'
	default:
		return '*'
	}
}

// ParamValue is a concrete parameter value stored on a node instance.
// The zero ParamValue is "unset" and falls back to the spec default.
type ParamValue struct {
	typ ValueType
	f   float32
	i   int
	s   string
	arr []float32
}

func FloatValue(v float32) ParamValue    { return ParamValue{typ: TypeFloat, f: v} }
func IntValue(v int) ParamValue          { return ParamValue{typ: TypeInt, i: v} }
func StringValue(s string) ParamValue    { return ParamValue{typ: TypeString, s: s} }
func ArrayValue(v ...float32) ParamValue { return ParamValue{typ: TypeArray, arr: v} }

func (v ParamValue) Type() ValueType  { return v.typ }
func (v ParamValue) IsSet() bool      { return v.typ != TypeInvalid }
func (v ParamValue) Float() float32   { return v.f }
func (v ParamValue) Int() int         { return v.i }
func (v ParamValue) Str() string      { return v.s }
func (v ParamValue) Array() []float32 { return v.arr }

// PortSpec declares one typed input or output slot on a node type.
type PortSpec struct {
	Name string
	Type ValueType
}

// ParamSpec declares a named configuration value on a node type.
type ParamSpec struct {
	Name    string
	Type    ValueType
	Default ParamValue
	// Min, Max and Step bound the parameter when HasRange is set. They are
	// advisory for the generator and enforced by graph preparation.
	Min, Max, Step float32
	HasRange       bool
	// Mode is the default combination applied when the parameter is wired
	// to an upstream value. Instances may override it per parameter.
	Mode InputMode
	// Uniform marks the parameter as live-tweakable: graph preparation
	// allocates a shader uniform for it even when unwired.
	Uniform bool
	// Inline generates code for special string parameters in place of a
	// literal substitution, e.g. a swizzle parameter expanding to a
	// channel-select expression.
	Inline func(ctx *InlineContext, value string) string
}

// NodeKind classifies how a node type emits into the shader body.
type NodeKind uint8

const (
	// KindCode nodes expand their authored code template into a scoped
	// block in the shader body.
	KindCode NodeKind = iota
	// KindExternal nodes have their outputs supplied by externally
	// uploaded uniforms; they emit plain assignment statements.
	KindExternal
	// KindSink marks the graph's final color output. Sinks emit nothing;
	// assembly reads the value wired into their input.
	KindSink
)

// NodeSpec is the immutable description of one node type. Register specs
// with a [Registry] before compiling graphs that reference them.
type NodeSpec struct {
	ID          string
	DisplayName string
	Category    string
	Kind        NodeKind
	// SelfSufficient marks input-category node types (coordinate, time,
	// resolution, constant) whose templates are whole on their own: their
	// inputs are never resolved nor defaulted.
	SelfSufficient bool

	Inputs  []PortSpec
	Outputs []PortSpec
	Params  []ParamSpec

	// MainCode is the node's body template. Placeholder vocabulary:
	// $input.<port>, $output.<port>, $param.<name>, $time, $resolution,
	// $p and the legacy bare identifier "result".
	MainCode string
	// Functions holds shared helper-function source using the same
	// placeholder vocabulary, emitted once per distinct configuration.
	Functions string

	// DynamicOutputs overrides Outputs for node types whose output port
	// count depends on a parameter (the analyzer's band0..bandN ports).
	DynamicOutputs func(n *NodeInstance) []PortSpec

	main  *template
	funcs *template
}

// OutputsFor enumerates the output ports of a concrete instance,
// constructing synthetic ports for dynamic-output node types.
func (s *NodeSpec) OutputsFor(n *NodeInstance) []PortSpec {
	if s.DynamicOutputs != nil {
		return s.DynamicOutputs(n)
	}
	return s.Outputs
}

func (s *NodeSpec) input(name string) *PortSpec {
	for i := range s.Inputs {
		if s.Inputs[i].Name == name {
			return &s.Inputs[i]
		}
	}
	return nil
}

func (s *NodeSpec) output(name string) *PortSpec {
	for i := range s.Outputs {
		if s.Outputs[i].Name == name {
			return &s.Outputs[i]
		}
	}
	return nil
}

// Param returns the declared parameter by name, or nil.
func (s *NodeSpec) Param(name string) *ParamSpec {
	for i := range s.Params {
		if s.Params[i].Name == name {
			return &s.Params[i]
		}
	}
	return nil
}

// NodeInstance is one node in a graph.
type NodeInstance struct {
	ID   string
	Type string
	// Params holds concrete values keyed by parameter name. Missing
	// entries fall back to the spec default.
	Params map[string]ParamValue
	// ParamModes overrides the spec's per-parameter input mode.
	ParamModes map[string]InputMode
}

// Param returns the instance's value for name and whether it is set.
func (n *NodeInstance) Param(name string) (ParamValue, bool) {
	if n.Params == nil {
		return ParamValue{}, false
	}
	v, ok := n.Params[name]
	return v, ok && v.IsSet()
}

// Mode returns the effective input mode for a parameter.
func (n *NodeInstance) Mode(name string, spec *ParamSpec) InputMode {
	if n.ParamModes != nil {
		if m, ok := n.ParamModes[name]; ok {
			return m
		}
	}
	return spec.Mode
}

// Connection is a wire between nodes. Exactly one of ToPort and ToParam is
// set: ToPort makes a data-wire between ports, ToParam drives a parameter.
type Connection struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
	ToParam  string
}

// IsParamWire reports whether the connection targets a parameter.
func (c Connection) IsParamWire() bool { return c.ToParam != "" }

// Graph is a node graph. The subgraph reachable via data-wires must be
// acyclic; the compiler assumes it and consumes a topologically valid
// execution order through [Plan].
type Graph struct {
	Nodes []*NodeInstance
	Conns []Connection
}

// Node returns the instance with the given id, or nil.
func (g *Graph) Node(id string) *NodeInstance {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// dataWireInto returns the first data-wire targeting (node, port).
func (g *Graph) dataWireInto(nodeID, port string) (Connection, bool) {
	for _, c := range g.Conns {
		if !c.IsParamWire() && c.ToNode == nodeID && c.ToPort == port {
			return c, true
		}
	}
	return Connection{}, false
}

// paramWires returns all connections driving (node, param) in graph order.
func (g *Graph) paramWires(nodeID, param string) []Connection {
	var wires []Connection
	for _, c := range g.Conns {
		if c.IsParamWire() && c.ToNode == nodeID && c.ToParam == param {
			wires = append(wires, c)
		}
	}
	return wires
}

// hasOutgoing reports whether any connection originates at nodeID.
func (g *Graph) hasOutgoing(nodeID string) bool {
	for _, c := range g.Conns {
		if c.FromNode == nodeID {
			return true
		}
	}
	return false
}

// Plan carries the compilation inputs produced by graph preparation: a
// topologically valid execution order, the uniform-name table and the
// function-specialization rename table. The generator consumes all three
// read-only and degrades with warnings when entries are missing.
type Plan struct {
	// Order lists node IDs in execution order.
	Order []string
	// Uniforms maps "<nodeID>.<param>" (and "<nodeID>.<port>" for
	// externally driven outputs) to allocated uniform identifiers.
	Uniforms map[string]string
	// FuncNames maps node ID to originalName→specializedName renames for
	// shared helper functions whose behavior differs by instance.
	FuncNames map[string]map[string]string
}
