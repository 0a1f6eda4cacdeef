package shadegraph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shadegraph/shadegraph/glgen"
)

// JSON graph interchange. The on-disk shape mirrors the in-memory model:
//
//	{
//	  "nodes": [
//	    {"id": "n1", "type": "fbm-noise",
//	     "params": {"gain": 0.6, "octaves": 5},
//	     "modes": {"gain": "multiply"}}
//	  ],
//	  "connections": [
//	    {"from": "n1", "port": "out", "to": "n2", "input": "t"},
//	    {"from": "osc", "port": "out", "to": "n1", "param": "gain"}
//	  ]
//	}
//
// Parameter values are coerced by the target parameter's declared type, so
// JSON's single number type maps cleanly onto float and int parameters.

type graphFile struct {
	Nodes []struct {
		ID     string                     `json:"id"`
		Type   string                     `json:"type"`
		Params map[string]json.RawMessage `json:"params,omitempty"`
		Modes  map[string]string          `json:"modes,omitempty"`
	} `json:"nodes"`
	Connections []struct {
		From  string `json:"from"`
		Port  string `json:"port"`
		To    string `json:"to"`
		Input string `json:"input,omitempty"`
		Param string `json:"param,omitempty"`
	} `json:"connections"`
}

// ParseGraph decodes a JSON graph against the catalog in reg. Structural
// problems in the document are errors; graph-level health is checked
// separately by [Validate].
func ParseGraph(reg *glgen.Registry, data []byte) (*glgen.Graph, error) {
	if reg == nil {
		reg = DefaultCatalog()
	}
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	g := &glgen.Graph{}
	for _, n := range gf.Nodes {
		node := &glgen.NodeInstance{ID: n.ID, Type: n.Type}
		spec, haveSpec := reg.Spec(n.Type)
		for name, raw := range n.Params {
			if !haveSpec {
				break
			}
			ps := spec.Param(name)
			if ps == nil {
				return nil, fmt.Errorf("node %q: type %q has no parameter %q", n.ID, n.Type, name)
			}
			v, err := decodeParam(ps, raw)
			if err != nil {
				return nil, fmt.Errorf("node %q parameter %q: %w", n.ID, name, err)
			}
			if node.Params == nil {
				node.Params = make(map[string]glgen.ParamValue)
			}
			node.Params[name] = v
		}
		for name, mode := range n.Modes {
			m, err := parseMode(mode)
			if err != nil {
				return nil, fmt.Errorf("node %q parameter %q: %w", n.ID, name, err)
			}
			if node.ParamModes == nil {
				node.ParamModes = make(map[string]glgen.InputMode)
			}
			node.ParamModes[name] = m
		}
		g.Nodes = append(g.Nodes, node)
	}
	for _, c := range gf.Connections {
		if (c.Input == "") == (c.Param == "") {
			return nil, fmt.Errorf("connection %s.%s -> %s: exactly one of \"input\" or \"param\" required", c.From, c.Port, c.To)
		}
		g.Conns = append(g.Conns, glgen.Connection{
			FromNode: c.From, FromPort: c.Port,
			ToNode: c.To, ToPort: c.Input, ToParam: c.Param,
		})
	}
	return g, nil
}

// LoadGraph reads and parses a JSON graph file.
func LoadGraph(reg *glgen.Registry, filename string) (*glgen.Graph, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseGraph(reg, data)
}

func decodeParam(ps *glgen.ParamSpec, raw json.RawMessage) (glgen.ParamValue, error) {
	switch ps.Type {
	case glgen.TypeFloat:
		var f float32
		if err := json.Unmarshal(raw, &f); err != nil {
			return glgen.ParamValue{}, err
		}
		return glgen.FloatValue(f), nil
	case glgen.TypeInt:
		var i int
		if err := json.Unmarshal(raw, &i); err != nil {
			// Tolerate fractional JSON numbers on int parameters.
			var f float64
			if err2 := json.Unmarshal(raw, &f); err2 != nil {
				return glgen.ParamValue{}, err
			}
			i = int(f)
		}
		return glgen.IntValue(i), nil
	case glgen.TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return glgen.ParamValue{}, err
		}
		return glgen.StringValue(s), nil
	case glgen.TypeArray:
		var arr []float32
		if err := json.Unmarshal(raw, &arr); err != nil {
			return glgen.ParamValue{}, err
		}
		return glgen.ArrayValue(arr...), nil
	}
	return glgen.ParamValue{}, fmt.Errorf("parameter type %s not decodable", ps.Type)
}

func parseMode(s string) (glgen.InputMode, error) {
	switch s {
	case "", "override":
		return glgen.ModeOverride, nil
	case "add":
		return glgen.ModeAdd, nil
	case "subtract":
		return glgen.ModeSubtract, nil
	case "multiply":
		return glgen.ModeMultiply, nil
	}
	return 0, fmt.Errorf("unknown input mode %q", s)
}
