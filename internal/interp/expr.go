package interp

import (
	"context"

	"welle/internal/ast"
	"welle/internal/values"
)

func (ip *Interp) evalExpr(ctx context.Context, expr ast.Expression, env *values.Environment) (values.Value, error) {
	if err := ip.checkCtx(ctx); err != nil {
		return nil, err
	}
	switch n := expr.(type) {
	case *ast.Identifier:
		if n.Name == "undefined" {
			return values.UndefinedValue, nil
		}
		if v, ok := env.Get(n.Name); ok {
			return v, nil
		}
		return values.UndefinedValue, ip.RTS.Fail(n.LineNo, "%s is not defined.", n.Name)
	case *ast.NumberLiteral:
		return &values.Number{Value: n.Value}, nil
	case *ast.StringLiteral:
		return &values.String{Value: n.Value}, nil
	case *ast.BooleanLiteral:
		return &values.Boolean{Value: n.Value}, nil
	case *ast.ThisExpression:
		if v, ok := env.Get("this"); ok {
			return v, nil
		}
		return values.UndefinedValue, nil
	case *ast.ArrayLiteral:
		elems := make([]values.Value, len(n.Elements))
		for i, e := range n.Elements {
			v, err := ip.evalExpr(ctx, e, env)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return values.NewArray(elems...), nil
	case *ast.ObjectLiteral:
		obj := values.NewObject()
		for _, p := range n.Properties {
			v, err := ip.evalExpr(ctx, p.Value, env)
			if err != nil {
				return nil, err
			}
			obj.Set(p.Key.Name, v)
		}
		return obj, nil
	case *ast.FunctionExpression:
		fn := &values.Function{Name: identName(n.Id), Params: n.Params, HasRest: n.RestParam != nil, Body: n.Body, Env: env, IsArrow: n.IsArrow}
		if n.IsArrow {
			if this, ok := env.Get("this"); ok {
				fn.BoundThis = this
			}
		}
		return fn, nil
	case *ast.UnaryExpression:
		return ip.evalUnary(ctx, n, env)
	case *ast.LogicalExpression:
		return ip.evalLogical(ctx, n, env)
	case *ast.ConditionalExpression:
		testVal, err := ip.evalExpr(ctx, n.Test, env)
		if err != nil {
			return nil, err
		}
		cond, err := ip.RTS.CheckIfBoolean(testVal, n.LineNo)
		if err != nil {
			return nil, err
		}
		if cond {
			return ip.evalExpr(ctx, n.Consequent, env)
		}
		return ip.evalExpr(ctx, n.Alternate, env)
	case *ast.AssignmentExpression:
		return ip.evalAssignment(ctx, n, env)
	case *ast.SequenceExpression:
		var last values.Value = values.UndefinedValue
		for _, e := range n.Expressions {
			v, err := ip.evalExpr(ctx, e, env)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	case *ast.MemberExpression:
		obj, err := ip.evalExpr(ctx, n.Object, env)
		if err != nil {
			return nil, err
		}
		if n.Computed {
			key, err := ip.evalExpr(ctx, n.Property, env)
			if err != nil {
				return nil, err
			}
			return ip.RTS.CheckMember(obj, key, n.LineNo)
		}
		prop := n.Property.(*ast.Identifier)
		return ip.RTS.Dot(obj, prop.Name, n.LineNo)
	case *ast.CallExpression:
		return ip.evalCall(ctx, n, env)
	case *ast.NewExpression:
		return ip.evalNew(ctx, n, env)
	case *ast.RuntimeCallExpression:
		return ip.evalRuntimeCall(ctx, n, env)
	default:
		return values.UndefinedValue, nil
	}
}

func identName(id *ast.Identifier) string {
	if id == nil {
		return ""
	}
	return id.Name
}

func (ip *Interp) evalUnary(ctx context.Context, n *ast.UnaryExpression, env *values.Environment) (values.Value, error) {
	if n.Operator == "typeof" {
		v, err := ip.evalExpr(ctx, n.Argument, env)
		if err != nil {
			return nil, err
		}
		return &values.String{Value: values.TypeOf(v)}, nil
	}
	v, err := ip.evalExpr(ctx, n.Argument, env)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "-":
		num, ok := v.(*values.Number)
		if !ok {
			return values.UndefinedValue, nil
		}
		return &values.Number{Value: -num.Value}, nil
	case "+":
		num, ok := v.(*values.Number)
		if !ok {
			return values.UndefinedValue, nil
		}
		return &values.Number{Value: num.Value}, nil
	case "!":
		return &values.Boolean{Value: !values.IsTruthy(v)}, nil
	case "void":
		return values.UndefinedValue, nil
	default:
		return values.UndefinedValue, nil
	}
}

func (ip *Interp) evalLogical(ctx context.Context, n *ast.LogicalExpression, env *values.Environment) (values.Value, error) {
	left, err := ip.evalExpr(ctx, n.Left, env)
	if err != nil {
		return nil, err
	}
	if n.Operator == "&&" {
		if !values.IsTruthy(left) {
			return left, nil
		}
		return ip.evalExpr(ctx, n.Right, env)
	}
	if values.IsTruthy(left) {
		return left, nil
	}
	return ip.evalExpr(ctx, n.Right, env)
}

func (ip *Interp) evalAssignment(ctx context.Context, n *ast.AssignmentExpression, env *values.Environment) (values.Value, error) {
	v, err := ip.evalExpr(ctx, n.Right, env)
	if err != nil {
		return nil, err
	}
	id, ok := n.Left.(*ast.Identifier)
	if !ok {
		return nil, &Interrupted{Cause: context.Canceled}
	}
	if ip.isFrozen(id.Name) {
		if err := ip.RTS.Fail(n.LineNo, "%s is part of the global library, and cannot be overwritten.", id.Name); err != nil {
			return nil, err
		}
		return v, nil
	}
	if !env.Assign(id.Name, v) {
		env.Define(id.Name, v)
	}
	return v, nil
}

func (ip *Interp) evalRuntimeCall(ctx context.Context, n *ast.RuntimeCallExpression, env *values.Environment) (values.Value, error) {
	args := make([]values.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := ip.evalExpr(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch n.Op {
	case "dot":
		return ip.RTS.Dot(args[0], stringArg(args[1]), n.LineNo)
	case "checkMember":
		return ip.RTS.CheckMember(args[0], args[1], n.LineNo)
	case "checkMemberAssign":
		return ip.RTS.CheckMemberAssign(args[0], args[1], args[2], n.LineNo)
	case "setMember":
		return ip.RTS.SetMember(args[0], args[1], args[2], n.LineNo)
	case "arrayConstructor":
		return ip.RTS.ArrayConstructor(), nil
	case "checkArray":
		return ip.RTS.CheckArray(args[0])
	case "checkUpdateOperand":
		v, err := ip.RTS.CheckUpdateOperand(args[0], stringArg(args[1]), n.LineNo)
		if id, ok := n.Arguments[0].(*ast.Identifier); ok && err == nil && v != values.UndefinedValue {
			env.Assign(id.Name, v)
		}
		return v, err
	case "applyNumOp":
		return ip.RTS.ApplyNumOp(args[0], args[1], stringArg(args[2]), n.LineNo)
	case "applyNumOrStringOp":
		return ip.RTS.ApplyNumOrStringOp(args[0], args[1], stringArg(args[2]), n.LineNo)
	case "compare":
		return ip.RTS.Compare(args[0], args[1], stringArg(args[2]), n.LineNo)
	case "checkCall":
		callee := args[0]
		callArgs := args[2:]
		if _, err := ip.RTS.CheckCall(callee, n.LineNo, callArgs...); err != nil {
			return nil, err
		}
		return callValue(ctx, ip, callee, values.UndefinedValue, callArgs)
	default:
		return values.UndefinedValue, nil
	}
}

func stringArg(v values.Value) string {
	if s, ok := v.(*values.String); ok {
		return s.Value
	}
	return ""
}

func (ip *Interp) evalCall(ctx context.Context, n *ast.CallExpression, env *values.Environment) (values.Value, error) {
	var this values.Value = values.UndefinedValue
	var calleeVal values.Value
	var err error
	if member, ok := n.Callee.(*ast.MemberExpression); ok {
		obj, e := ip.evalExpr(ctx, member.Object, env)
		if e != nil {
			return nil, e
		}
		this = obj
		if member.Computed {
			key, e := ip.evalExpr(ctx, member.Property, env)
			if e != nil {
				return nil, e
			}
			calleeVal, err = ip.RTS.CheckMember(obj, key, member.LineNo)
		} else {
			prop := member.Property.(*ast.Identifier)
			calleeVal, err = ip.RTS.Dot(obj, prop.Name, member.LineNo)
		}
	} else {
		calleeVal, err = ip.evalExpr(ctx, n.Callee, env)
	}
	if err != nil {
		return nil, err
	}
	args := make([]values.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := ip.evalExpr(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if _, err := ip.RTS.CheckCall(calleeVal, n.LineNo, args...); err != nil {
		return nil, err
	}
	return callValue(ctx, ip, calleeVal, this, args)
}

func (ip *Interp) evalNew(ctx context.Context, n *ast.NewExpression, env *values.Environment) (values.Value, error) {
	calleeVal, err := ip.evalExpr(ctx, n.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]values.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := ip.evalExpr(ctx, a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if _, err := ip.RTS.CheckCall(calleeVal, n.LineNo, args...); err != nil {
		return nil, err
	}
	return callValue(ctx, ip, calleeVal, values.UndefinedValue, args)
}

func callValue(ctx context.Context, ip *Interp, callee values.Value, this values.Value, args []values.Value) (values.Value, error) {
	fn, ok := callee.(*values.Function)
	if !ok {
		return values.UndefinedValue, nil
	}
	return callFunction(ctx, ip, fn, this, args)
}

func callFunction(ctx context.Context, ip *Interp, fn *values.Function, this values.Value, args []values.Value) (values.Value, error) {
	if fn.Native != nil {
		return fn.Native(this, args)
	}
	callEnv := values.NewEnclosedEnvironment(fn.Env)
	if fn.IsArrow {
		if fn.BoundThis != nil {
			callEnv.Define("this", fn.BoundThis)
		}
	} else if fn.BoundThis != nil {
		callEnv.Define("this", fn.BoundThis)
	} else {
		callEnv.Define("this", this)
	}
	for i, p := range fn.Params {
		if i < len(args) {
			callEnv.Define(p.Name, args[i])
		} else {
			callEnv.Define(p.Name, values.UndefinedValue)
		}
	}
	if fn.HasRest {
		rest := args[min(len(fn.Params), len(args)):]
		callEnv.Define("__rest__", values.NewArray(rest...))
	}
	res, err := ip.execStatements(ctx, fn.Body.Body, callEnv)
	if err != nil {
		return nil, err
	}
	if res.sig == signalReturn {
		return res.value, nil
	}
	return values.UndefinedValue, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
