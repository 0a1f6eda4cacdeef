package glgen

import "strings"

// SanitizeIdentifier replaces every character outside [A-Za-z0-9] with an
// underscore so arbitrary node and port IDs become valid GLSL identifiers.
func SanitizeIdentifier(s string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isAlnum(s[i]) {
			b.WriteByte(s[i])
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// VarName returns the global variable assigned to a node output port. It is
// a pure function of its two inputs: the same pair always produces the same
// identifier, with no global counter, so repeated compiles of one graph are
// byte-identical.
func VarName(nodeID, port string) string {
	return "node_" + SanitizeIdentifier(nodeID) + "_" + SanitizeIdentifier(port)
}

// ArrayName returns the identifier for a node's constant-array parameter.
func ArrayName(nodeID, param string) string {
	return "array_" + SanitizeIdentifier(nodeID) + "_" + SanitizeIdentifier(param)
}

// UniformName returns the uniform identifier graph preparation allocates
// for a node parameter or externally driven output port.
func UniformName(nodeID, name string) string {
	return "u_" + VarName(nodeID, name)
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isIdentByte(c byte) bool { return isAlnum(c) || c == '_' }

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isIdentByte(c) && c != '.' {
			return false
		}
	}
	return true
}
