package glgen

import (
	"bytes"
	"strconv"
)

const decimalDigits = 9

// AppendFloat appends v formatted for GLSL with trailing zeros trimmed.
// The decimal point and at least one fractional digit are always present:
// GLSL overload resolution is exact-type-sensitive, so a float value must
// never render as an int literal.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > start+idx+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// FormatFloat is the string form of [AppendFloat].
func FormatFloat(v float32) string {
	return string(AppendFloat(nil, v))
}

// appendFloatArrayDecl appends a local constant-array declaration:
//
//	float <name>[N] = float[N](v0, v1, ...);
func appendFloatArrayDecl(b []byte, name string, vals []float32) []byte {
	n := int64(len(vals))
	b = append(b, "float "...)
	b = append(b, name...)
	b = append(b, '[')
	b = strconv.AppendInt(b, n, 10)
	b = append(b, "] = float["...)
	b = strconv.AppendInt(b, n, 10)
	b = append(b, "]("...)
	for i, v := range vals {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = AppendFloat(b, v)
	}
	b = append(b, ");\n"...)
	return b
}
