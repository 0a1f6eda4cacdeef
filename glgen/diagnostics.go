package glgen

import "fmt"

// Diagnostics accumulates the findings of one compile. Warnings never
// block source generation; a non-empty Errors slice means the produced
// source must be treated as a graph-level compile failure. Severity is
// data here, never log output, so callers and tests can inspect it.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the compile produced no errors.
func (d *Diagnostics) OK() bool { return len(d.Errors) == 0 }

func (d *Diagnostics) errorf(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}
