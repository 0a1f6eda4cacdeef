package glgen

import (
	"fmt"
	"sort"
)

// Node templates are parsed once at spec registration into a flat token
// list. Emission is then a single walk per node, which keeps substitution
// ordered (later rules can never re-enter earlier replacements' output) and
// avoids per-compile regex work and word-boundary edge cases.

type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokInput
	tokOutput
	tokParam
	tokTime
	tokResolution
	tokCoord
	tokResult
)

type token struct {
	kind tokenKind
	text string // literal text, or the port/parameter name
}

type template struct {
	src  string
	toks []token
}

// parseTemplate tokenizes a node code template. Placeholders are
// $input.<port>, $output.<port>, $param.<name>, $time, $resolution, $p and
// the legacy whole-word identifier "result". Unknown $-placeholders are a
// registration error.
func parseTemplate(src string) (*template, error) {
	t := &template{src: src}
	litStart := 0
	flush := func(end int) {
		if end > litStart {
			t.toks = append(t.toks, token{kind: tokLiteral, text: src[litStart:end]})
		}
	}
	i := 0
	for i < len(src) {
		c := src[i]
		if c == '$' {
			j := i + 1
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			word := src[i+1 : j]
			switch word {
			case "time":
				flush(i)
				t.toks = append(t.toks, token{kind: tokTime})
				i, litStart = j, j
				continue
			case "resolution":
				flush(i)
				t.toks = append(t.toks, token{kind: tokResolution})
				i, litStart = j, j
				continue
			case "p":
				flush(i)
				t.toks = append(t.toks, token{kind: tokCoord})
				i, litStart = j, j
				continue
			case "input", "output", "param":
				if j >= len(src) || src[j] != '.' {
					return nil, fmt.Errorf("template: $%s requires a .name selector", word)
				}
				k := j + 1
				for k < len(src) && isIdentByte(src[k]) {
					k++
				}
				name := src[j+1 : k]
				if name == "" {
					return nil, fmt.Errorf("template: $%s with empty name", word)
				}
				kind := tokInput
				switch word {
				case "output":
					kind = tokOutput
				case "param":
					kind = tokParam
				}
				flush(i)
				t.toks = append(t.toks, token{kind: kind, text: name})
				i, litStart = k, k
				continue
			default:
				return nil, fmt.Errorf("template: unknown placeholder $%s", word)
			}
		}
		if c == 'r' && wordAt(src, i, "result") {
			flush(i)
			t.toks = append(t.toks, token{kind: tokResult})
			i += len("result")
			litStart = i
			continue
		}
		i++
	}
	flush(len(src))
	return t, nil
}

// wordAt reports whether word occurs at src[i:] with identifier boundaries
// on both sides.
func wordAt(src string, i int, word string) bool {
	if i+len(word) > len(src) || src[i:i+len(word)] != word {
		return false
	}
	if i > 0 && isIdentByte(src[i-1]) {
		return false
	}
	if i+len(word) < len(src) && isIdentByte(src[i+len(word)]) {
		return false
	}
	return true
}

// compile parses the spec's templates and checks that every placeholder
// resolves to a declared input, output or parameter. Unresolved
// placeholders are rejected here, at registration, never at compile time.
func (s *NodeSpec) compile() error {
	var err error
	if s.MainCode != "" {
		s.main, err = parseTemplate(s.MainCode)
		if err != nil {
			return fmt.Errorf("spec %q main code: %w", s.ID, err)
		}
		if err = s.checkRefs(s.main); err != nil {
			return fmt.Errorf("spec %q main code: %w", s.ID, err)
		}
	}
	if s.Functions != "" {
		s.funcs, err = parseTemplate(s.Functions)
		if err != nil {
			return fmt.Errorf("spec %q functions: %w", s.ID, err)
		}
		if err = s.checkRefs(s.funcs); err != nil {
			return fmt.Errorf("spec %q functions: %w", s.ID, err)
		}
	}
	return nil
}

// FunctionParams returns the sorted names of parameters the spec's helper
// function source references. Parameters substituted into helper bodies
// make those bodies configuration dependent, which collaborators use to
// decide when instances need specialized copies.
func (s *NodeSpec) FunctionParams() []string {
	if s.funcs == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, tk := range s.funcs.toks {
		if tk.kind == tokParam && !seen[tk.text] {
			seen[tk.text] = true
			names = append(names, tk.text)
		}
	}
	sort.Strings(names)
	return names
}

func (s *NodeSpec) checkRefs(t *template) error {
	for _, tk := range t.toks {
		switch tk.kind {
		case tokInput:
			if s.input(tk.text) == nil {
				return fmt.Errorf("$input.%s does not name a declared input", tk.text)
			}
		case tokOutput:
			if s.output(tk.text) == nil && s.DynamicOutputs == nil {
				return fmt.Errorf("$output.%s does not name a declared output", tk.text)
			}
		case tokParam:
			if s.Param(tk.text) == nil {
				return fmt.Errorf("$param.%s does not name a declared parameter", tk.text)
			}
		case tokResult:
			if len(s.Outputs) == 0 && s.DynamicOutputs == nil {
				return fmt.Errorf("template references result but spec declares no outputs")
			}
		}
	}
	return nil
}
