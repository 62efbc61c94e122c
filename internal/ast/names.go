package ast

import "fmt"

// AnonymousFuncName returns a stable synthetic name for anonymous
// functions, used by arityCheck (spec.md §4.4) when a function literal has
// no binding to name it by.
func AnonymousFuncName(line int) string {
	if line > 0 {
		return fmt.Sprintf("<anonymous@%d>", line)
	}
	return "<anonymous>"
}
