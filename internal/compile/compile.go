// Package compile implements C8, the compile pipeline, and the public
// CompileOK/CompileError result types a host program consumes (spec.md
// §4.8, §6): lex, parse, run the definite-assignment tracker (C2) and
// rewriter (C3) against a shared diagnostic accumulator (C1), and on
// success wire the runtime check library (C4) and scheduler (C5) around
// the rewritten tree. Grounded on welle/internal/evaluator/runner.go's
// "parse, then construct a Runner wired to everything it needs" shape.
package compile

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"welle/internal/assign"
	"welle/internal/ast"
	"welle/internal/diag"
	"welle/internal/elog"
	"welle/internal/harness"
	"welle/internal/interp"
	"welle/internal/lexer"
	"welle/internal/limits"
	"welle/internal/parser"
	"welle/internal/rewrite"
	"welle/internal/runtime"
	"welle/internal/sandbox"
	"welle/internal/scheduler"
	"welle/internal/stdlib"
	"welle/internal/values"
)

// Options configures a compile, mapping directly onto spec.md §4.8's
// opts: silent-mode ("ejsOff"), a per-test timeout for the harness, and
// an optional require() whitelist (C7).
type Options struct {
	Silent      bool
	TestTimeout time.Duration
	Modules     map[string]sandbox.Module

	// MemoryLimit caps, in bytes, the object properties a running program
	// adds through constructor `this.m = v` writes (0 means unlimited),
	// threaded into the runtime check library's Budget. Arrays are not
	// charged.
	MemoryLimit int64
}

// Result is CompileOK on success (program, Empty accumulator) or
// CompileError on failure (spec.md §4.8/§6); callers distinguish by
// checking Err.
type Result struct {
	Program   *ast.Program
	Scheduler *scheduler.Scheduler
	Harness   *harness.Harness
	Env       *values.Environment
	Err       *CompileError
}

// CompileError is the {line, message}[] shape spec.md §3/§6 reserves,
// folded into a single Go error via github.com/hashicorp/go-multierror
// (internal/diag.Accumulator.AsError) for hosts that just want an `error`.
type CompileError struct {
	Diagnostics []diag.Diagnostic
	Errors      error
}

func (e *CompileError) Error() string {
	if e.Errors != nil {
		return e.Errors.Error()
	}
	return "compile error"
}

// Compile runs the full pipeline over source and returns either a ready-
// to-run Result or a populated CompileError.
func Compile(source string, opts Options) *Result {
	accum := diag.NewAccumulator()

	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	accum = mergeAccum(accum, p.Diagnostics())
	if !accum.Empty() {
		return errorResult(accum)
	}

	tracker := assign.New(accum)
	tracker.Check(program)
	if !accum.Empty() && !opts.Silent {
		return errorResult(accum)
	}

	seed, _ := uuid.NewV4()
	rw := rewrite.New(accum, seed.String())
	program = rw.Rewrite(program)
	if !accum.Empty() {
		if !opts.Silent {
			return errorResult(accum)
		}
		for _, d := range accum.Diagnostics() {
			elog.Default.Info(d.Format("compile"))
		}
	}

	violationLog := elog.Default
	var onViolation func(line int, message string)
	if opts.Silent {
		onViolation = violationLog.Violation
	}
	rts := runtime.New(opts.Silent, onViolation).WithBudget(limits.NewBudget(opts.MemoryLimit))

	modules := opts.Modules
	if modules == nil {
		modules = map[string]sandbox.Module{}
	}

	h := harness.New(opts.TestTimeout)

	// ip is defined below, after global; the harness bindings close over
	// this variable by reference rather than a value captured now, since
	// they aren't invoked until well after Compile returns (spec.md §4.6
	// test()/assert()/summary() run during scheduler execution).
	var ip *interp.Interp

	builtins := stdlib.Builtins()
	builtins["Array"] = rts.ArrayConstructor()
	builtins["test"] = harnessTestFn(h, &ip)
	builtins["assert"] = harnessAssertFn()
	builtins["enableTests"] = harnessEnableTestsFn(h)
	builtins["summary"] = harnessSummaryFn(h)

	global := sandbox.New(builtins, modules)

	ip = interp.New(rts, global.IsFrozenName)
	env := global.Env()
	sched := scheduler.New(program, env, ip)

	return &Result{
		Program:   program,
		Scheduler: sched,
		Harness:   h,
		Env:       env,
	}
}

// harnessTestFn implements the `test(description, thunk)` builtin (spec.md
// §4.6): it runs thunk through the interpreter's own call machinery, under
// the ctx of whichever top-level Run is currently live, so a hang inside
// thunk is still subject to the harness's per-test deadline.
func harnessTestFn(h *harness.Harness, ip **interp.Interp) *values.Function {
	return &values.Function{
		Name: "test",
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			if len(args) < 2 {
				return values.UndefinedValue, nil
			}
			name, ok := args[0].(*values.String)
			if !ok {
				return values.UndefinedValue, nil
			}
			fn, ok := args[1].(*values.Function)
			if !ok {
				return values.UndefinedValue, nil
			}
			h.Test((*ip).Context(), name.Value, func(ctx context.Context) error {
				_, err := (*ip).Call(ctx, fn, values.UndefinedValue, nil)
				return err
			})
			return values.UndefinedValue, nil
		},
	}
}

// harnessAssertFn implements `assert(v)` (spec.md §4.6): a failing or
// non-boolean v raises an AssertionFailed the scheduler surfaces like any
// other runtime exception.
func harnessAssertFn() *values.Function {
	return &values.Function{
		Name: "assert",
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			var v values.Value = values.UndefinedValue
			if len(args) > 0 {
				v = args[0]
			}
			if err := harness.Assert(v); err != nil {
				return values.UndefinedValue, err
			}
			return values.UndefinedValue, nil
		},
	}
}

// harnessEnableTestsFn implements `enableTests(on, timeoutMs)` (spec.md
// §4.6).
func harnessEnableTestsFn(h *harness.Harness) *values.Function {
	return &values.Function{
		Name: "enableTests",
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			on := false
			if len(args) > 0 {
				if b, ok := args[0].(*values.Boolean); ok {
					on = b.Value
				}
			}
			timeoutMs := 0
			if len(args) > 1 {
				if n, ok := args[1].(*values.Number); ok {
					timeoutMs = int(n.Value)
				}
			}
			h.EnableTests(on, timeoutMs)
			return values.UndefinedValue, nil
		},
	}
}

// harnessSummaryFn implements `summary(hasStyles)` (spec.md §4.6).
func harnessSummaryFn(h *harness.Harness) *values.Function {
	return &values.Function{
		Name: "summary",
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			hasStyles := false
			if len(args) > 0 {
				hasStyles = values.IsTruthy(args[0])
			}
			return &values.String{Value: h.Summary(hasStyles)}, nil
		},
	}
}

// RunSync compiles and immediately runs source to completion on the
// caller's goroutine, returning the program's final value. It is used by
// internal/manifest to evaluate whitelist module sources once at load
// time, where there is no need for the scheduler's cancellation or
// concurrency (spec.md §4.7's module bodies are expected to be short,
// side-effect-free definitions).
func RunSync(source string) (values.Value, *CompileError) {
	result := Compile(source, Options{})
	if result.Err != nil {
		return nil, result.Err
	}
	ip := interp.New(runtime.New(false, nil), nil)
	v, err := ip.Run(context.Background(), result.Program, result.Env)
	if err != nil {
		return nil, &CompileError{Errors: err}
	}
	return v, nil
}

func mergeAccum(accum *diag.Accumulator, ds []diag.Diagnostic) *diag.Accumulator {
	for _, d := range ds {
		accum.Errorf(d.Line(), "%s", d.Message)
	}
	return accum
}

func errorResult(accum *diag.Accumulator) *Result {
	return &Result{Err: &CompileError{Diagnostics: accum.Diagnostics(), Errors: accum.AsError()}}
}
