// Package lower is the thin adapter standing in for the "downstream
// class/arrow-lowering pass used for backward-compat code emission" that
// spec.md §1 names as an external collaborator and places out of scope.
// Rather than re-lowering arrow functions and classes to plain function
// expressions for an older runtime, internal/interp supports closures
// (for arrows) and constructor functions (for classes) natively, so this
// package's only remaining job is the one piece of semantics a lowering
// pass would otherwise be responsible for: making sure an arrow function's
// captured `this` is resolved at definition time, not call time. That
// binding is implemented directly on values.Function.BoundThis in
// internal/interp; Bind here is the seam a future real lowering pass
// would replace.
package lower

import "welle/internal/values"

// Bind returns a copy of fn with BoundThis fixed to this, used when a
// class method is attached to an instance (internal/interp's class
// constructor) so later calls to the bound function can't observe a
// different receiver.
func Bind(fn *values.Function, this values.Value) *values.Function {
	bound := *fn
	bound.BoundThis = this
	return &bound
}
