package glgen

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds the node-type catalog consulted during compilation.
type Registry struct {
	specs map[string]*NodeSpec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*NodeSpec)}
}

// Register validates a node spec, parses its templates and adds it to the
// registry. Registering two specs with one ID is an error.
func (r *Registry) Register(spec *NodeSpec) error {
	if spec == nil {
		return errors.New("nil node spec")
	}
	if spec.ID == "" {
		return errors.New("node spec with empty ID")
	}
	if _, exists := r.specs[spec.ID]; exists {
		return fmt.Errorf("node spec %q already registered", spec.ID)
	}
	if err := spec.validatePorts(); err != nil {
		return fmt.Errorf("spec %q: %w", spec.ID, err)
	}
	if err := spec.compile(); err != nil {
		return err
	}
	r.specs[spec.ID] = spec
	return nil
}

// Spec returns the registered spec for a node type.
func (r *Registry) Spec(id string) (*NodeSpec, bool) {
	s, ok := r.specs[id]
	return s, ok
}

// IDs returns all registered spec IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *NodeSpec) validatePorts() error {
	seen := make(map[string]bool)
	for _, in := range s.Inputs {
		if in.Name == "" {
			return errors.New("input port with empty name")
		}
		if !in.Type.isPortType() {
			return fmt.Errorf("input %q has non-port type %s", in.Name, in.Type)
		}
		if seen["i"+in.Name] {
			return fmt.Errorf("duplicate input %q", in.Name)
		}
		seen["i"+in.Name] = true
	}
	for _, out := range s.Outputs {
		if out.Name == "" {
			return errors.New("output port with empty name")
		}
		if !out.Type.isPortType() {
			return fmt.Errorf("output %q has non-port type %s", out.Name, out.Type)
		}
		if seen["o"+out.Name] {
			return fmt.Errorf("duplicate output %q", out.Name)
		}
		seen["o"+out.Name] = true
	}
	for i := range s.Params {
		ps := &s.Params[i]
		if ps.Name == "" {
			return errors.New("parameter with empty name")
		}
		if seen["p"+ps.Name] {
			return fmt.Errorf("duplicate parameter %q", ps.Name)
		}
		seen["p"+ps.Name] = true
		switch ps.Type {
		case TypeFloat, TypeInt, TypeString, TypeArray:
		default:
			return fmt.Errorf("parameter %q has invalid type %s", ps.Name, ps.Type)
		}
	}
	return nil
}
