// Package stdlib provides the fixed set of runtime-visible built-ins
// spec.md §6 names directly (Math, JSON, console.log, Array/Object
// helpers), wired into the sandbox's frozen global environment (C7).
// Naming and grouping follow welle/internal/evaluator/builtins.go's
// one-map-of-name-to-builtin-function convention.
package stdlib

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"welle/internal/runtimeio"
	"welle/internal/values"
)

// Builtins returns the name -> value map the sandbox installs into the
// frozen global environment. The "Array" binding is a placeholder: a bare
// reference to that identifier never reaches this map at runtime, since
// internal/rewrite splices it into internal/runtime.Library's
// ArrayConstructor stub instead (spec.md §4.3); internal/compile
// overwrites this entry with that stub so IsFrozenName("Array") still
// holds for the write-protection path.
func Builtins() map[string]values.Value {
	return map[string]values.Value{
		"Math":    mathObject(),
		"JSON":    jsonObject(),
		"console": consoleObject(),
		"Object":  objectHelpers(),
		"Array":   values.NewObject(),
	}
}

func native(name string, fn func(this values.Value, args []values.Value) (values.Value, error)) *values.Function {
	return &values.Function{Name: name, Native: fn}
}

func mathObject() *values.Object {
	o := values.NewObject()
	o.Set("PI", &values.Number{Value: math.Pi})
	o.Set("E", &values.Number{Value: math.E})
	o.Set("abs", native("Math.abs", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Abs(numArg(args, 0))}, nil
	}))
	o.Set("floor", native("Math.floor", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Floor(numArg(args, 0))}, nil
	}))
	o.Set("ceil", native("Math.ceil", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Ceil(numArg(args, 0))}, nil
	}))
	o.Set("round", native("Math.round", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Round(numArg(args, 0))}, nil
	}))
	o.Set("sqrt", native("Math.sqrt", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Sqrt(numArg(args, 0))}, nil
	}))
	o.Set("pow", native("Math.pow", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: math.Pow(numArg(args, 0), numArg(args, 1))}, nil
	}))
	o.Set("max", native("Math.max", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: reduceNums(args, math.Inf(-1), math.Max)}, nil
	}))
	o.Set("min", native("Math.min", func(_ values.Value, args []values.Value) (values.Value, error) {
		return &values.Number{Value: reduceNums(args, math.Inf(1), math.Min)}, nil
	}))
	o.Frozen = true
	return o
}

func reduceNums(args []values.Value, init float64, combine func(a, b float64) float64) float64 {
	acc := init
	for _, a := range args {
		if n, ok := a.(*values.Number); ok {
			acc = combine(acc, n.Value)
		}
	}
	return acc
}

func numArg(args []values.Value, i int) float64 {
	if i >= len(args) {
		return math.NaN()
	}
	if n, ok := args[i].(*values.Number); ok {
		return n.Value
	}
	return math.NaN()
}

// jsonObject implements JSON.parse/JSON.stringify (spec.md SUPPLEMENTED
// FEATURES #2), required together by the round-trip property §8 demands.
func jsonObject() *values.Object {
	o := values.NewObject()
	o.Set("stringify", native("JSON.stringify", func(_ values.Value, args []values.Value) (values.Value, error) {
		if len(args) == 0 {
			return &values.String{Value: "undefined"}, nil
		}
		native, err := toGo(args[0])
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(native)
		if err != nil {
			return nil, err
		}
		return &values.String{Value: string(b)}, nil
	}))
	o.Set("parse", native("JSON.parse", func(_ values.Value, args []values.Value) (values.Value, error) {
		s, ok := args[0].(*values.String)
		if !ok {
			return nil, fmt.Errorf("JSON.parse expects a string")
		}
		var v interface{}
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, err
		}
		return fromGo(v), nil
	}))
	o.Frozen = true
	return o
}

func toGo(v values.Value) (interface{}, error) {
	switch t := v.(type) {
	case *values.Number:
		return t.Value, nil
	case *values.String:
		return t.Value, nil
	case *values.Boolean:
		return t.Value, nil
	case *values.Undefined, nil:
		return nil, nil
	case *values.Array:
		out := make([]interface{}, len(t.Elements))
		for i, e := range t.Elements {
			g, err := toGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *values.Object:
		out := map[string]interface{}{}
		for _, k := range t.Keys {
			g, err := toGo(t.Props[k])
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value is not JSON-serializable")
	}
}

func fromGo(v interface{}) values.Value {
	switch t := v.(type) {
	case nil:
		return values.UndefinedValue
	case float64:
		return &values.Number{Value: t}
	case string:
		return &values.String{Value: t}
	case bool:
		return &values.Boolean{Value: t}
	case []interface{}:
		elems := make([]values.Value, len(t))
		for i, e := range t {
			elems[i] = fromGo(e)
		}
		return values.NewArray(elems...)
	case map[string]interface{}:
		o := values.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			o.Set(k, fromGo(t[k]))
		}
		return o
	default:
		return values.UndefinedValue
	}
}

// consoleObject implements console.log formatting (spec.md SUPPLEMENTED
// FEATURES #3), grounded on welle's object.Inspect() family of methods.
func consoleObject() *values.Object {
	o := values.NewObject()
	o.Set("log", native("console.log", func(_ values.Value, args []values.Value) (values.Value, error) {
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		fmt.Println(parts...)
		return values.UndefinedValue, nil
	}))
	o.Set("input", native("console.input", func(_ values.Value, args []values.Value) (values.Value, error) {
		line, err := runtimeio.Input(stringPrompt(args))
		if err != nil {
			return nil, err
		}
		return &values.String{Value: line}, nil
	}))
	o.Set("getPass", native("console.getPass", func(_ values.Value, args []values.Value) (values.Value, error) {
		line, err := runtimeio.GetPass(stringPrompt(args))
		if err != nil {
			return nil, err
		}
		return &values.String{Value: line}, nil
	}))
	o.Frozen = true
	return o
}

func stringPrompt(args []values.Value) string {
	if len(args) == 0 {
		return ""
	}
	if s, ok := args[0].(*values.String); ok {
		return s.Value
	}
	return ""
}

// objectHelpers implements Object.freeze/keys/values/entries/
// getOwnPropertyNames (spec.md SUPPLEMENTED FEATURES #2a).
func objectHelpers() *values.Object {
	o := values.NewObject()
	o.Set("freeze", native("Object.freeze", func(_ values.Value, args []values.Value) (values.Value, error) {
		if obj, ok := args[0].(*values.Object); ok {
			obj.Frozen = true
		}
		return args[0], nil
	}))
	o.Set("keys", native("Object.keys", func(_ values.Value, args []values.Value) (values.Value, error) {
		obj, ok := args[0].(*values.Object)
		if !ok {
			return values.NewArray(), nil
		}
		elems := make([]values.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			elems[i] = &values.String{Value: k}
		}
		return values.NewArray(elems...), nil
	}))
	o.Set("values", native("Object.values", func(_ values.Value, args []values.Value) (values.Value, error) {
		obj, ok := args[0].(*values.Object)
		if !ok {
			return values.NewArray(), nil
		}
		elems := make([]values.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			elems[i] = obj.Props[k]
		}
		return values.NewArray(elems...), nil
	}))
	o.Set("entries", native("Object.entries", func(_ values.Value, args []values.Value) (values.Value, error) {
		obj, ok := args[0].(*values.Object)
		if !ok {
			return values.NewArray(), nil
		}
		elems := make([]values.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			elems[i] = values.NewArray(&values.String{Value: k}, obj.Props[k])
		}
		return values.NewArray(elems...), nil
	}))
	o.Set("getOwnPropertyNames", native("Object.getOwnPropertyNames", func(_ values.Value, args []values.Value) (values.Value, error) {
		obj, ok := args[0].(*values.Object)
		if !ok {
			return values.NewArray(), nil
		}
		elems := make([]values.Value, len(obj.Keys))
		for i, k := range obj.Keys {
			elems[i] = &values.String{Value: k}
		}
		return values.NewArray(elems...), nil
	}))
	o.Frozen = true
	return o
}

