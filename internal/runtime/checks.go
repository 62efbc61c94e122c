// Package runtime implements C4, the runtime check library: the small set
// of named functions the rewriter (C3) splices calls to around every
// load, store, arithmetic operation, call, and update, so that violations
// which cannot be caught statically (a property access on undefined, an
// arity mismatch, a non-numeric operand to `++`) fail with a specific
// runtime error message instead of Go's own panic/nil-deref behavior.
// Grounded on welle/internal/semantics.go's BinaryOp/Compare/BitwiseBinary
// free functions, generalized from "evaluate an operator" to "evaluate an
// operator and enforce ElementaryJS's restrictions around it."
package runtime

import (
	"fmt"
	"math"

	"welle/internal/limits"
	"welle/internal/values"
)

// CheckError is the error type every check function returns on failure;
// the scheduler (C5) records an unrecovered CheckError as the run's
// LastError as-is, without converting it to scheduler.Exception.
type CheckError struct {
	Line    int
	Message string
}

func (e *CheckError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

func errf(line int, format string, args ...interface{}) *CheckError {
	return &CheckError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Library is C4; it is constructed once per compiled program so silent
// mode (opts.ejsOff, spec.md §4.1/§4.4) can be threaded through every
// check without a package-level global.
type Library struct {
	// Silent, when true, makes every check log-and-continue instead of
	// returning an error (spec.md §4.1, §4.4, §9).
	Silent bool
	OnViolation func(line int, message string)

	// Budget caps the heap a running program may allocate through object
	// property writes: SetMember charges 32 bytes for each property it
	// adds; array writes are not charged. Grounded on the memory-budget
	// accounting welle's VM applies per-frame (internal/limits.Budget); a
	// nil Budget (the zero value from New) is unlimited, since
	// Budget.Charge is nil-receiver-safe.
	Budget *limits.Budget
}

func New(silent bool, onViolation func(line int, message string)) *Library {
	return &Library{Silent: silent, OnViolation: onViolation}
}

// WithBudget attaches a memory budget to the library, used by a host that
// wants to bound a student program's object growth (spec.md §9's
// resource-limit concerns, generalized from welle's fixed VM memory cap to
// an optional, host-configured one).
func (l *Library) WithBudget(b *limits.Budget) *Library {
	l.Budget = b
	return l
}

func (l *Library) fail(line int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if l.Silent {
		if l.OnViolation != nil {
			l.OnViolation(line, msg)
		}
		return nil
	}
	return &CheckError{Line: line, Message: msg}
}

// Fail exposes the same silent-mode-aware failure path to callers outside
// this package (internal/interp's C7 name-resolution and frozen-global
// checks) so every runtime violation, wherever it is detected, goes
// through one Silent/OnViolation branch.
func (l *Library) Fail(line int, format string, args ...interface{}) error {
	return l.fail(line, format, args...)
}

// Dot implements property access `o.x` (spec.md §4.3/§4.4): reading a
// property of undefined is a runtime error naming the property.
func (l *Library) Dot(obj values.Value, prop string, line int) (values.Value, error) {
	switch o := obj.(type) {
	case *values.Object:
		if v, ok := o.Get(prop); ok {
			return v, nil
		}
		if err := l.fail(line, "Object does not have member '%s'.", prop); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	case *values.Array:
		if v, ok := arrayBuiltinProp(o, prop); ok {
			return v, nil
		}
		if err := l.fail(line, "Object does not have member '%s'.", prop); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	case *values.String:
		if prop == "length" {
			return &values.Number{Value: float64(len([]rune(o.Value)))}, nil
		}
		if err := l.fail(line, "Object does not have member '%s'.", prop); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	case *values.Undefined, nil:
		if err := l.fail(line, "cannot read property %q of undefined", prop); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	case *values.Function:
		if v, ok := o.Get(prop); ok {
			return v, nil
		}
		if err := l.fail(line, "Object does not have member '%s'.", prop); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	default:
		return values.UndefinedValue, nil
	}
}

func arrayBuiltinProp(a *values.Array, prop string) (values.Value, bool) {
	if prop == "length" {
		return &values.Number{Value: float64(len(a.Elements))}, true
	}
	return nil, false
}

// CheckMember implements computed access `o[i]` including array-bounds
// checking (spec.md §4.3/§4.4: arrayBoundsCheck).
func (l *Library) CheckMember(obj values.Value, key values.Value, line int) (values.Value, error) {
	switch o := obj.(type) {
	case *values.Array:
		idx, ok := numericIndex(key)
		if !ok {
			if err := l.fail(line, "array index must be a number"); err != nil {
				return values.UndefinedValue, err
			}
			return values.UndefinedValue, nil
		}
		if idx < 0 || idx >= len(o.Elements) {
			if err := l.fail(line, "Index '%d' is out of array bounds.", idx); err != nil {
				return values.UndefinedValue, err
			}
			return values.UndefinedValue, nil
		}
		return o.Elements[idx], nil
	case *values.Object:
		k := stringKey(key)
		if v, ok := o.Get(k); ok {
			return v, nil
		}
		if err := l.fail(line, "Object does not have member '%s'.", k); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	case *values.String:
		idx, ok := numericIndex(key)
		runes := []rune(o.Value)
		if !ok || idx < 0 || idx >= len(runes) {
			if err := l.fail(line, "Index '%d' is out of array bounds.", idx); err != nil {
				return values.UndefinedValue, err
			}
			return values.UndefinedValue, nil
		}
		return &values.String{Value: string(runes[idx])}, nil
	case *values.Undefined, nil:
		if err := l.fail(line, "cannot read index of undefined"); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	default:
		return values.UndefinedValue, nil
	}
}

// CheckMemberAssign implements `o.x = v` / `o[i] = v` (spec.md §4.3/§4.4),
// including bounds checking for array index assignment and rejecting
// writes to a frozen object (spec.md SUPPLEMENTED FEATURES #2a).
func (l *Library) CheckMemberAssign(obj values.Value, key values.Value, val values.Value, line int) (values.Value, error) {
	switch o := obj.(type) {
	case *values.Array:
		idx, ok := numericIndex(key)
		if !ok {
			if err := l.fail(line, "array index must be a number"); err != nil {
				return values.UndefinedValue, err
			}
			return val, nil
		}
		if idx < 0 || idx >= len(o.Elements) {
			if err := l.fail(line, "Index '%d' is out of array bounds.", idx); err != nil {
				return values.UndefinedValue, err
			}
			return val, nil
		}
		o.Elements[idx] = val
		return val, nil
	case *values.Object:
		k := stringKey(key)
		if _, exists := o.Get(k); !exists {
			if err := l.fail(line, "Object does not have member '%s'.", k); err != nil {
				return values.UndefinedValue, err
			}
			return val, nil
		}
		if err := o.Set(k, val); err != nil {
			if ferr := l.fail(line, "%s", err.Error()); ferr != nil {
				return values.UndefinedValue, ferr
			}
		}
		return val, nil
	case *values.Undefined, nil:
		if err := l.fail(line, "cannot set property of undefined"); err != nil {
			return values.UndefinedValue, err
		}
		return val, nil
	default:
		return val, nil
	}
}

// SetMember writes a property unconditionally, bypassing the own-property
// existence check CheckMemberAssign otherwise enforces. The rewriter (C3)
// routes here instead of CheckMemberAssign only for `this.m = v` inside a
// constructor body (spec.md §4.3/§9's constructor-local relaxation), since
// the constructor is what defines those members in the first place.
func (l *Library) SetMember(obj values.Value, key values.Value, val values.Value, line int) (values.Value, error) {
	o, ok := obj.(*values.Object)
	if !ok {
		return l.CheckMemberAssign(obj, key, val, line)
	}
	k := stringKey(key)
	newProp := false
	if _, exists := o.Get(k); !exists {
		newProp = true
	}
	if err := o.Set(k, val); err != nil {
		if ferr := l.fail(line, "%s", err.Error()); ferr != nil {
			return values.UndefinedValue, ferr
		}
		return val, nil
	}
	if newProp {
		if err := l.Budget.Charge(32); err != nil {
			if ferr := l.fail(line, "%s", err.Error()); ferr != nil {
				return values.UndefinedValue, ferr
			}
		}
	}
	return val, nil
}

func numericIndex(v values.Value) (int, bool) {
	n, ok := v.(*values.Number)
	if !ok {
		return 0, false
	}
	return int(n.Value), true
}

func stringKey(v values.Value) string {
	if s, ok := v.(*values.String); ok {
		return s.Value
	}
	if n, ok := v.(*values.Number); ok {
		return n.Inspect()
	}
	return v.Inspect()
}

// CheckArray implements Array.create/array-literal scheduler-awareness
// (spec.md §4.3, §4.4, glossary §5): it returns v unchanged (there is no
// GC-relevant wrapping needed beyond values.Array itself) and stays a
// named check point that the rewriter routes every array literal
// through.
func (l *Library) CheckArray(v values.Value) (values.Value, error) {
	return v, nil
}

// CheckUpdateOperand implements `++x`/`--x` (spec.md §4.3/§4.4,
// updateOnlyNumbers): only numbers may be incremented/decremented.
func (l *Library) CheckUpdateOperand(v values.Value, op string, line int) (values.Value, error) {
	n, ok := v.(*values.Number)
	if !ok {
		if err := l.fail(line, "operand of %s must be a number", op); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	}
	if op == "++" {
		return &values.Number{Value: n.Value + 1}, nil
	}
	return &values.Number{Value: n.Value - 1}, nil
}

// ApplyNumOp implements arithmetic restricted to numbers: `-`, `*`, `/`,
// `%` (spec.md §4.4, applyNumOp).
func (l *Library) ApplyNumOp(left, right values.Value, op string, line int) (values.Value, error) {
	ln, lok := left.(*values.Number)
	rn, rok := right.(*values.Number)
	if !lok || !rok {
		if err := l.fail(line, "arguments of operator '%s' must both be numbers", op); err != nil {
			return values.UndefinedValue, err
		}
		return &values.Number{Value: math.NaN()}, nil
	}
	switch op {
	case "-":
		return &values.Number{Value: ln.Value - rn.Value}, nil
	case "*":
		return &values.Number{Value: ln.Value * rn.Value}, nil
	case "/":
		return &values.Number{Value: ln.Value / rn.Value}, nil
	case "%":
		return &values.Number{Value: math.Mod(ln.Value, rn.Value)}, nil
	default:
		return nil, errf(line, "unsupported numeric operator %q", op)
	}
}

// ApplyNumOrStringOp implements `+`, which also permits string
// concatenation (spec.md §4.4, applyNumOrStringOp).
func (l *Library) ApplyNumOrStringOp(left, right values.Value, op string, line int) (values.Value, error) {
	if op != "+" {
		return l.ApplyNumOp(left, right, op, line)
	}
	ln, lok := left.(*values.Number)
	rn, rok := right.(*values.Number)
	if lok && rok {
		return &values.Number{Value: ln.Value + rn.Value}, nil
	}
	ls, lsok := left.(*values.String)
	rs, rsok := right.(*values.String)
	if lsok && rsok {
		return &values.String{Value: ls.Value + rs.Value}, nil
	}
	if err := l.fail(line, "arguments of operator '%s' must both be numbers or strings", op); err != nil {
		return values.UndefinedValue, err
	}
	return values.UndefinedValue, nil
}

// Compare implements the comparison/equality operators, including
// checkIfBoolean for strict equality against structural types (spec.md
// §4.4).
func (l *Library) Compare(left, right values.Value, op string, line int) (values.Value, error) {
	switch op {
	case "===", "!==":
		eq := strictEquals(left, right)
		if op == "!==" {
			eq = !eq
		}
		return &values.Boolean{Value: eq}, nil
	case "==", "!=":
		if err := l.fail(line, "loose equality (%s) is not allowed, use %s", op, strictVariant(op)); err != nil {
			return values.UndefinedValue, err
		}
		eq := strictEquals(left, right)
		if op == "!=" {
			eq = !eq
		}
		return &values.Boolean{Value: eq}, nil
	default:
		ln, lok := left.(*values.Number)
		rn, rok := right.(*values.Number)
		if !lok || !rok {
			if err := l.fail(line, "arguments of operator '%s' must both be numbers", op); err != nil {
				return values.UndefinedValue, err
			}
			return &values.Boolean{Value: false}, nil
		}
		var result bool
		switch op {
		case "<":
			result = ln.Value < rn.Value
		case "<=":
			result = ln.Value <= rn.Value
		case ">":
			result = ln.Value > rn.Value
		case ">=":
			result = ln.Value >= rn.Value
		}
		return &values.Boolean{Value: result}, nil
	}
}

func strictVariant(op string) string {
	if op == "==" {
		return "==="
	}
	return "!=="
}

func strictEquals(a, b values.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *values.Number:
		return av.Value == b.(*values.Number).Value
	case *values.String:
		return av.Value == b.(*values.String).Value
	case *values.Boolean:
		return av.Value == b.(*values.Boolean).Value
	case *values.Undefined:
		return true
	default:
		return a == b
	}
}

// CheckIfBoolean implements the `checkIfBoolean` restriction (spec.md
// §4.4): conditions in `if`/`while`/ternary must be actual booleans, not
// merely truthy values, unless silent mode is on.
func (l *Library) CheckIfBoolean(v values.Value, line int) (bool, error) {
	b, ok := v.(*values.Boolean)
	if !ok {
		if v == nil {
			v = values.UndefinedValue
		}
		if err := l.fail(line, "Expected a boolean expression, instead received '%s'.", v.Inspect()); err != nil {
			return values.IsTruthy(v), err
		}
		return values.IsTruthy(v), nil
	}
	return b.Value, nil
}

// ArityCheck implements arityCheck (spec.md §4.4): calling a function with
// the wrong number of arguments is a runtime error naming the function
// (or the synthesized anonymous name from internal/ast.AnonymousFuncName).
func (l *Library) ArityCheck(name string, want, got int, line int) error {
	if want == got {
		return nil
	}
	return l.fail(line, "Function %s expected %d %s but received %d %s.", name, want, argWord(want), got, argWord(got))
}

func argWord(n int) string {
	if n == 1 {
		return "argument"
	}
	return "arguments"
}

// CheckCall implements `checkCall` (spec.md §4.3/§4.4, and the split/
// Object.* disambiguation Open Question from §9): verifies the callee is
// actually callable before the evaluator invokes it.
func (l *Library) CheckCall(callee values.Value, line int, args ...values.Value) (values.Value, error) {
	fn, ok := callee.(*values.Function)
	if !ok {
		if err := l.fail(line, "value is not a function"); err != nil {
			return values.UndefinedValue, err
		}
		return values.UndefinedValue, nil
	}
	// Ordinary native builtins (Math.abs, console.log, ...) accept whatever
	// arity they please and leave ArityChecked false. A class constructor
	// is also Native (internal/interp.execClass wraps it to run super()/
	// field init) but sets ArityChecked, so it is arity-checked like any
	// source-defined function (Testable Property #4: "for any call
	// f(a1,...,ak) ...").
	if (fn.Native == nil || fn.ArityChecked) && !fn.HasRest {
		if err := l.ArityCheck(fnDisplayName(fn, line), fn.Arity(), len(args), line); err != nil {
			return values.UndefinedValue, err
		}
	}
	return nil, nil // evaluator performs the actual call; this only validates
}

func fnDisplayName(fn *values.Function, line int) string {
	if fn.Name != "" {
		return fn.Name
	}
	return fmt.Sprintf("<anonymous@%d>", line)
}

// ArrayConstructor implements the array-constructor stub spec.md §4.3/
// §4.4 names: internal/rewrite splices a bare reference to the identifier
// "Array" into a runtime call returning this value, so a direct call or
// `new` bypasses the frozen global entirely. It fails direct construction
// (spec.md §4.4: "Direct construction of the array type is a runtime
// error") but still exposes `.create(n, v)`, the one supported way to
// build a sequence.
func (l *Library) ArrayConstructor() *values.Function {
	props := values.NewObject()
	props.Set("create", &values.Function{Name: "Array.create", Native: arrayCreate})
	props.Frozen = true
	return &values.Function{
		Name:  "Array",
		Props: props,
		Native: func(this values.Value, args []values.Value) (values.Value, error) {
			return nil, fmt.Errorf("Use Array.create")
		},
	}
}

func arrayCreate(this values.Value, args []values.Value) (values.Value, error) {
	if len(args) == 0 {
		return values.NewArray(), nil
	}
	n, ok := args[0].(*values.Number)
	if !ok {
		return nil, fmt.Errorf("Array.create expects a numeric length")
	}
	var fill values.Value = values.UndefinedValue
	if len(args) > 1 {
		fill = args[1]
	}
	elems := make([]values.Value, int(n.Value))
	for i := range elems {
		elems[i] = fill
	}
	return values.NewArray(elems...), nil
}
