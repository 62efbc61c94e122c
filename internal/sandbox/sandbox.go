// Package sandbox implements C7: the frozen global environment a compiled
// program runs against, and the `require(name)` builtin that resolves
// against a host-supplied whitelist of modules (spec.md §4.7). "Frozen"
// here means the top-level bindings themselves cannot be reassigned:
// internal/interp checks IsFrozenName on every assignment to a plain name
// and fails it. A student `let`/`const` of the same name is not rejected;
// it declares a new binding in the child scope Env returns. Grounded on
// welle/internal/module's name-to-loaded-module map, narrowed from "load
// any importable file" to "expose only a fixed whitelist."
package sandbox

import (
	"fmt"

	"welle/internal/values"
)

// Module is one whitelisted entry require() can resolve to (spec.md
// §4.7); Value is pre-evaluated once and shared by every `require` call
// for the same name within a run, matching CommonJS-style module caching.
type Module struct {
	Name  string
	Value values.Value
}

// Global is the frozen top-level environment: named built-ins plus a
// require() bound to a fixed whitelist, both installed once at sandbox
// construction time and never mutated afterward by student code.
type Global struct {
	env     *values.Environment
	modules map[string]Module
	frozen  map[string]bool
}

// New builds a frozen global environment pre-populated with builtins
// (typically internal/stdlib's Math/JSON/console surface) and a
// require() bound to the given whitelist.
func New(builtins map[string]values.Value, modules map[string]Module) *Global {
	g := &Global{
		env:     values.NewEnvironment(),
		modules: modules,
		frozen:  map[string]bool{},
	}
	for name, v := range builtins {
		g.env.Define(name, v)
		g.frozen[name] = true
	}
	g.env.Define("require", g.requireFn())
	g.frozen["require"] = true
	return g
}

// Env returns the environment a fresh program run should be evaluated
// against, as a child scope of the frozen globals — so top-level `let`/
// `const` in student code creates bindings in the child, never mutating
// the frozen parent (Environment.Define always writes to the innermost
// scope).
func (g *Global) Env() *values.Environment {
	return values.NewEnclosedEnvironment(g.env)
}

// IsFrozenName reports whether name is one of these global bindings;
// internal/compile passes it to internal/interp, which refuses any
// assignment to such a name.
func (g *Global) IsFrozenName(name string) bool {
	return g.frozen[name]
}

func (g *Global) requireFn() *values.Function {
	return &values.Function{
		Name: "require",
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("require expects exactly one argument")
			}
			name, ok := args[0].(*values.String)
			if !ok {
				return nil, fmt.Errorf("require expects a string module name")
			}
			mod, ok := g.modules[name.Value]
			if !ok {
				return nil, fmt.Errorf("'%s' not found.", name.Value)
			}
			return mod.Value, nil
		},
	}
}
