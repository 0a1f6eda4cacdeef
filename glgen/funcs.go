package glgen

import (
	"encoding/binary"
	"strings"
)

// fnSpan is one top-level function definition inside a Functions source
// chunk, including any loose text preceding it (constants, comments).
type fnSpan struct {
	name string
	text string
}

// functionSpans splits helper-function source into its top-level function
// definitions. The scanner tracks brace depth only; GLSL helper chunks
// authored for nodes contain no strings or preprocessor tricks that would
// defeat it.
func functionSpans(src string) []fnSpan {
	var spans []fnSpan
	depth := 0
	chunkStart := 0
	name := ""
	lastIdentStart := -1
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 && name != "" {
				spans = append(spans, fnSpan{name: name, text: src[chunkStart : i+1]})
				chunkStart = i + 1
				name = ""
				lastIdentStart = -1
			}
		case depth == 0 && c == '(':
			if name == "" && lastIdentStart >= 0 {
				name = strings.TrimRight(src[lastIdentStart:i], " \t\r\n")
			}
		case depth == 0 && isIdentByte(c):
			if i == 0 || !isIdentByte(src[i-1]) {
				lastIdentStart = i
			}
		}
	}
	// Trailing loose text rides along with the final function.
	if len(spans) > 0 && chunkStart < len(src) {
		tail := strings.TrimSpace(src[chunkStart:])
		if tail != "" {
			last := &spans[len(spans)-1]
			last.text = last.text + src[chunkStart:]
		}
	}
	return spans
}

// FunctionNames returns the names of the top-level function definitions in
// a helper source chunk, in order of definition.
func FunctionNames(src string) []string {
	spans := functionSpans(src)
	names := make([]string, 0, len(spans))
	for _, sp := range spans {
		names = append(names, sp.name)
	}
	return names
}

// renameCalls rewrites every call site and definition "from(" to "to(" in
// code. The match is whole-word so a function named turbulence is never
// rewritten inside turbulence_helper.
func renameCalls(code, from, to string) string {
	var b strings.Builder
	i := 0
	for i < len(code) {
		j := strings.Index(code[i:], from)
		if j < 0 {
			break
		}
		j += i
		end := j + len(from)
		prevOK := j == 0 || !isIdentByte(code[j-1])
		nextOK := end < len(code) && code[end] == '('
		if prevOK && nextOK {
			b.WriteString(code[i:j])
			b.WriteString(to)
			i = end
		} else {
			b.WriteString(code[i : j+1])
			i = j + 1
		}
	}
	b.WriteString(code[i:])
	return b.String()
}

// hash mixes b into a 64-bit state. Used to deduplicate emitted helper
// functions by name and body.
func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}

func hashString(s string, in uint64) uint64 { return hash([]byte(s), in) }
