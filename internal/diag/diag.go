// Package diag implements C1, the error accumulator: an append-only list
// of {line, message} diagnostics collected while walking a program, plus
// the machinery to turn a non-empty accumulator into the CompileError the
// pipeline (C8) hands back to a host. Grounded on welle/internal/diag,
// which uses the same Severity/Range/Diagnostic shape for its own
// compile-time reporting.
package diag

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Range identifies where a diagnostic applies. ElementaryJS source
// positions are line-only (spec.md §3), so Col/Length are best-effort.
type Range struct {
	Line   int
	Col    int
	Length int
}

// Diagnostic is the {line, message} pair spec.md §3 requires, generalized
// with a severity and an optional stable code.
type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

func (d Diagnostic) Format(path string) string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d: %s %s: %s", path, d.Range.Line, d.Severity.String(), d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", path, d.Range.Line, d.Severity.String(), d.Message)
}

// Line reports the diagnostic's 1-based source line, matching the
// {line, message} shape exposed to hosts (spec.md §3, §6).
func (d Diagnostic) Line() int { return d.Range.Line }

// Accumulator is C1: collect (line, message) diagnostics during a walk;
// never throw for a single bad node. At walk exit, a non-empty
// accumulator yields CompileError; otherwise the rewritten tree is
// returned (spec.md §4.1).
type Accumulator struct {
	diags []Diagnostic
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Error appends a diagnostic for node at the given line. It never panics
// or returns an error itself — callers keep walking after reporting.
func (a *Accumulator) Error(line int, message string) {
	a.diags = append(a.diags, Diagnostic{
		Message:  message,
		Severity: SeverityError,
		Range:    Range{Line: line, Length: 1},
	})
}

func (a *Accumulator) Errorf(line int, format string, args ...interface{}) {
	a.Error(line, fmt.Sprintf(format, args...))
}

func (a *Accumulator) Empty() bool { return len(a.diags) == 0 }

func (a *Accumulator) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(a.diags))
	copy(out, a.diags)
	return out
}

func (a *Accumulator) String() string {
	var b strings.Builder
	for i, d := range a.diags {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Line %d: %s", d.Range.Line, d.Message)
	}
	return b.String()
}

// ToString matches the naming the spec uses for C1's second exposed
// operation (spec.md §4.1: "error(node, message) and toString()").
func (a *Accumulator) ToString() string { return a.String() }

// AsError folds every diagnostic into a single Go error via
// github.com/hashicorp/go-multierror, giving host code that only wants a
// plain `error` (for logging or wrapping) something ordinary to hold,
// while CompileError.Errors keeps the structured, line-addressable list
// students and IDEs actually consume.
func (a *Accumulator) AsError() error {
	if a.Empty() {
		return nil
	}
	var merr *multierror.Error
	for _, d := range a.diags {
		merr = multierror.Append(merr, fmt.Errorf("line %d: %s", d.Range.Line, d.Message))
	}
	return merr.ErrorOrNil()
}
