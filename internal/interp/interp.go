package interp

import (
	"context"
	"fmt"

	"welle/internal/ast"
	"welle/internal/lower"
	"welle/internal/runtime"
	"welle/internal/values"
)

// Interrupted is returned (wrapped) whenever ctx.Err() is observed at one
// of the interpreter's polling points, satisfying the cooperative
// scheduler's stop() contract (spec.md §4.5: "stop() must be able to
// interrupt a running, possibly infinite, loop").
type Interrupted struct{ Cause error }

func (i *Interrupted) Error() string { return fmt.Sprintf("interrupted: %v", i.Cause) }
func (i *Interrupted) Unwrap() error { return i.Cause }

// Interp evaluates a rewritten program against an environment, threading
// ctx cancellation through every statement boundary and loop back-edge.
type Interp struct {
	RTS      *runtime.Library
	isFrozen func(name string) bool

	// ctx is the context the current top-level Run call is executing
	// under; the C6 test/assert/summary bindings (internal/compile) close
	// over the Interp itself rather than a ctx captured at bind time, so
	// they always observe the run that is actually live when a student
	// program calls test().
	ctx context.Context
}

// New builds an Interp. isFrozen reports whether name is one of the
// sandbox's frozen global library bindings (spec.md §4.7: internal/sandbox
// Global.IsFrozenName); a nil isFrozen treats no name as frozen, for
// callers that evaluate outside a sandboxed global environment.
func New(rts *runtime.Library, isFrozen func(name string) bool) *Interp {
	if isFrozen == nil {
		isFrozen = func(string) bool { return false }
	}
	return &Interp{RTS: rts, isFrozen: isFrozen}
}

func (ip *Interp) checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &Interrupted{Cause: ctx.Err()}
	default:
		return nil
	}
}

// Context returns the ctx the most recent Run call is executing under, or
// context.Background() if Run has not been called yet (e.g. a REPL host
// driving Eval before any top-level Run).
func (ip *Interp) Context() context.Context {
	if ip.ctx == nil {
		return context.Background()
	}
	return ip.ctx
}

// Call invokes fn with the given receiver and arguments, exposing
// internal/interp's own function-call machinery to the C6 test/assert
// bindings (internal/compile) so `test(name, thunk)` can run the
// student's thunk the same way an ordinary call would.
func (ip *Interp) Call(ctx context.Context, fn *values.Function, this values.Value, args []values.Value) (values.Value, error) {
	return callFunction(ctx, ip, fn, this, args)
}

// Run executes every top-level statement in program against env.
func (ip *Interp) Run(ctx context.Context, program *ast.Program, env *values.Environment) (values.Value, error) {
	ip.ctx = ctx
	res, err := ip.execStatements(ctx, program.Body, env)
	if err != nil {
		return nil, err
	}
	if res.sig == signalReturn {
		return res.value, nil
	}
	return values.UndefinedValue, nil
}

// Eval evaluates a single expression against env, for the scheduler's
// eval() operation (spec.md §4.5/§6) used by REPL-style hosts.
func (ip *Interp) Eval(ctx context.Context, expr ast.Expression, env *values.Environment) (values.Value, error) {
	return ip.evalExpr(ctx, expr, env)
}

func (ip *Interp) execStatements(ctx context.Context, stmts []ast.Statement, env *values.Environment) (execResult, error) {
	for _, s := range stmts {
		if err := ip.checkCtx(ctx); err != nil {
			return normal, err
		}
		res, err := ip.execStatement(ctx, s, env)
		if err != nil {
			return normal, err
		}
		if res.sig != signalNone {
			return res, nil
		}
	}
	return normal, nil
}

func (ip *Interp) execStatement(ctx context.Context, stmt ast.Statement, env *values.Environment) (execResult, error) {
	switch n := stmt.(type) {
	case *ast.VarDeclaration:
		for _, d := range n.Declarations {
			var v values.Value = values.UndefinedValue
			if d.Init != nil {
				var err error
				v, err = ip.evalExpr(ctx, d.Init, env)
				if err != nil {
					return normal, err
				}
			}
			env.Define(d.Name.Name, v)
		}
		return normal, nil
	case *ast.ExpressionStatement:
		if n.Expression != nil {
			_, err := ip.evalExpr(ctx, n.Expression, env)
			if err != nil {
				return normal, err
			}
		}
		return normal, nil
	case *ast.BlockStatement:
		inner := values.NewEnclosedEnvironment(env)
		return ip.execStatements(ctx, n.Body, inner)
	case *ast.ReturnStatement:
		if n.Argument == nil {
			return returning(values.UndefinedValue), nil
		}
		v, err := ip.evalExpr(ctx, n.Argument, env)
		if err != nil {
			return normal, err
		}
		return returning(v), nil
	case *ast.BreakStatement:
		return breaking, nil
	case *ast.ContinueStatement:
		return continuing, nil
	case *ast.IfStatement:
		return ip.execIf(ctx, n, env)
	case *ast.WhileStatement:
		return ip.execWhile(ctx, n, env)
	case *ast.DoWhileStatement:
		return ip.execDoWhile(ctx, n, env)
	case *ast.ForStatement:
		return ip.execFor(ctx, n, env)
	case *ast.SwitchStatement:
		return ip.execSwitch(ctx, n, env)
	case *ast.FunctionDeclaration:
		fn := &values.Function{Name: n.Id.Name, Params: n.Params, HasRest: n.RestParam != nil, Body: n.Body, Env: env}
		env.Define(n.Id.Name, fn)
		return normal, nil
	case *ast.ClassDeclaration:
		return ip.execClass(ctx, n, env)
	default:
		return normal, nil
	}
}

func (ip *Interp) execIf(ctx context.Context, n *ast.IfStatement, env *values.Environment) (execResult, error) {
	testVal, err := ip.evalExpr(ctx, n.Test, env)
	if err != nil {
		return normal, err
	}
	cond, err := ip.RTS.CheckIfBoolean(testVal, n.LineNo)
	if err != nil {
		return normal, err
	}
	if cond {
		return ip.execStatement(ctx, n.Consequent, env)
	}
	if n.Alternate != nil {
		return ip.execStatement(ctx, n.Alternate, env)
	}
	return normal, nil
}

func (ip *Interp) execWhile(ctx context.Context, n *ast.WhileStatement, env *values.Environment) (execResult, error) {
	for {
		if err := ip.checkCtx(ctx); err != nil {
			return normal, err
		}
		testVal, err := ip.evalExpr(ctx, n.Test, env)
		if err != nil {
			return normal, err
		}
		cond, err := ip.RTS.CheckIfBoolean(testVal, n.LineNo)
		if err != nil {
			return normal, err
		}
		if !cond {
			return normal, nil
		}
		res, err := ip.execStatement(ctx, n.Body, env)
		if err != nil {
			return normal, err
		}
		switch res.sig {
		case signalBreak:
			return normal, nil
		case signalReturn:
			return res, nil
		}
	}
}

func (ip *Interp) execDoWhile(ctx context.Context, n *ast.DoWhileStatement, env *values.Environment) (execResult, error) {
	for {
		if err := ip.checkCtx(ctx); err != nil {
			return normal, err
		}
		res, err := ip.execStatement(ctx, n.Body, env)
		if err != nil {
			return normal, err
		}
		switch res.sig {
		case signalBreak:
			return normal, nil
		case signalReturn:
			return res, nil
		}
		testVal, err := ip.evalExpr(ctx, n.Test, env)
		if err != nil {
			return normal, err
		}
		cond, err := ip.RTS.CheckIfBoolean(testVal, n.LineNo)
		if err != nil {
			return normal, err
		}
		if !cond {
			return normal, nil
		}
	}
}

func (ip *Interp) execFor(ctx context.Context, n *ast.ForStatement, env *values.Environment) (execResult, error) {
	forEnv := values.NewEnclosedEnvironment(env)
	if n.Init != nil {
		if _, err := ip.execStatement(ctx, n.Init, forEnv); err != nil {
			return normal, err
		}
	}
	for {
		if err := ip.checkCtx(ctx); err != nil {
			return normal, err
		}
		if n.Test != nil {
			testVal, err := ip.evalExpr(ctx, n.Test, forEnv)
			if err != nil {
				return normal, err
			}
			cond, err := ip.RTS.CheckIfBoolean(testVal, n.LineNo)
			if err != nil {
				return normal, err
			}
			if !cond {
				return normal, nil
			}
		}
		res, err := ip.execStatement(ctx, n.Body, forEnv)
		if err != nil {
			return normal, err
		}
		if res.sig == signalBreak {
			return normal, nil
		}
		if res.sig == signalReturn {
			return res, nil
		}
		if n.Update != nil {
			if _, err := ip.evalExpr(ctx, n.Update, forEnv); err != nil {
				return normal, err
			}
		}
	}
}

func (ip *Interp) execSwitch(ctx context.Context, n *ast.SwitchStatement, env *values.Environment) (execResult, error) {
	disc, err := ip.evalExpr(ctx, n.Discriminant, env)
	if err != nil {
		return normal, err
	}
	matched := false
	switchEnv := values.NewEnclosedEnvironment(env)
	for _, c := range n.Cases {
		if !matched {
			if c.Test == nil {
				matched = true
			} else {
				caseVal, err := ip.evalExpr(ctx, c.Test, switchEnv)
				if err != nil {
					return normal, err
				}
				eq, err := ip.RTS.Compare(disc, caseVal, "===", n.LineNo)
				if err != nil {
					return normal, err
				}
				if b, ok := eq.(*values.Boolean); ok && b.Value {
					matched = true
				}
			}
		}
		if matched {
			res, err := ip.execStatements(ctx, c.Body.Body, switchEnv)
			if err != nil {
				return normal, err
			}
			if res.sig == signalBreak {
				return normal, nil
			}
			if res.sig == signalReturn || res.sig == signalContinue {
				return res, nil
			}
		}
	}
	return normal, nil
}

func (ip *Interp) execClass(ctx context.Context, n *ast.ClassDeclaration, env *values.Environment) (execResult, error) {
	var superCtor *values.Function
	if n.Super != nil {
		if v, ok := env.Get(n.Super.Name); ok {
			superCtor, _ = v.(*values.Function)
		}
	}
	methods := map[string]*values.Function{}
	var ctor *values.Function
	for _, m := range n.Methods {
		fn := &values.Function{Name: m.Id.Name, Params: m.Params, HasRest: m.RestParam != nil, Body: m.Body, Env: env}
		if m.IsConstructor {
			ctor = fn
		} else {
			methods[m.Id.Name] = fn
		}
	}
	classCtor := &values.Function{
		Name:         n.Id.Name,
		Params:       ctorParams(ctor),
		HasRest:      ctor != nil && ctor.HasRest,
		ArityChecked: ctor != nil,
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			obj := values.NewObject()
			obj.Class = n.Id.Name
			for name, fn := range methods {
				obj.Set(name, lower.Bind(fn, obj))
			}
			if superCtor != nil {
				if _, err := callFunction(ctx, ip, superCtor, obj, args); err != nil {
					return nil, err
				}
			}
			if ctor != nil {
				if _, err := callFunction(ctx, ip, ctor, obj, args); err != nil {
					return nil, err
				}
			}
			return obj, nil
		},
	}
	env.Define(n.Id.Name, classCtor)
	return normal, nil
}

// ctorParams reports the parameter list CheckCall should arity-check a
// `new` call against: the explicit constructor's params, or nil (no
// check) for a class with no constructor of its own, which accepts any
// arguments the way an implicit default constructor does.
func ctorParams(ctor *values.Function) []*ast.Identifier {
	if ctor == nil {
		return nil
	}
	return ctor.Params
}
