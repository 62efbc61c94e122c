package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"welle/internal/ast"
	"welle/internal/values"
)

func num(v float64) *values.Number { return &values.Number{Value: v} }
func str(v string) *values.String  { return &values.String{Value: v} }

func TestDotOnUndefinedFails(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.Dot(values.UndefinedValue, "x", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), `cannot read property "x" of undefined`)
}

func TestDotOnUndefinedSilentLogsAndContinues(t *testing.T) {
	var logged string
	lib := New(true, func(line int, message string) { logged = message })
	v, err := lib.Dot(values.UndefinedValue, "x", 1)
	require.NoError(t, err)
	require.Equal(t, values.UndefinedValue, v)
	require.Contains(t, logged, "x")
}

func TestCheckMemberArrayOutOfBounds(t *testing.T) {
	lib := New(false, nil)
	arr := values.NewArray(num(1), num(2))
	_, err := lib.CheckMember(arr, num(5), 1)
	require.Error(t, err)
}

func TestCheckMemberArrayInBounds(t *testing.T) {
	lib := New(false, nil)
	arr := values.NewArray(num(1), num(2))
	v, err := lib.CheckMember(arr, num(1), 1)
	require.NoError(t, err)
	require.Equal(t, 2.0, v.(*values.Number).Value)
}

func TestCheckMemberAssignRejectsOutOfBoundsIndex(t *testing.T) {
	lib := New(false, nil)
	arr := values.NewArray(num(1))
	_, err := lib.CheckMemberAssign(arr, num(0), num(9), 1)
	require.NoError(t, err)
	require.Equal(t, 9.0, arr.Elements[0].(*values.Number).Value)

	_, err = lib.CheckMemberAssign(arr, num(3), num(9), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Index '3' is out of array bounds.")
	require.Len(t, arr.Elements, 1)
}

func TestCheckMemberAssignRejectsFrozenObject(t *testing.T) {
	lib := New(false, nil)
	obj := values.NewObject()
	obj.Set("x", num(1))
	obj.Frozen = true
	_, err := lib.CheckMemberAssign(obj, str("x"), num(2), 1)
	require.Error(t, err)
}

func TestApplyNumOpRejectsNonNumbers(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.ApplyNumOp(num(1), str("a"), "-", 1)
	require.Error(t, err)
}

func TestApplyNumOrStringOpConcatenatesStrings(t *testing.T) {
	lib := New(false, nil)
	v, err := lib.ApplyNumOrStringOp(str("a"), str("b"), "+", 1)
	require.NoError(t, err)
	require.Equal(t, "ab", v.(*values.String).Value)
}

func TestApplyNumOrStringOpRejectsMixedTypes(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.ApplyNumOrStringOp(str("a"), num(1), "+", 1)
	require.Error(t, err)
}

func TestCompareRejectsLooseEquality(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.Compare(num(1), num(1), "==", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "loose equality")
}

func TestCompareStrictEquality(t *testing.T) {
	lib := New(false, nil)
	v, err := lib.Compare(num(1), num(1), "===", 1)
	require.NoError(t, err)
	require.True(t, v.(*values.Boolean).Value)
}

func TestCompareRelationalRequiresNumbers(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.Compare(str("a"), str("b"), "<", 1)
	require.Error(t, err)
}

func TestCheckUpdateOperandRequiresNumber(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.CheckUpdateOperand(str("a"), "++", 1)
	require.Error(t, err)
}

func TestCheckUpdateOperandIncrements(t *testing.T) {
	lib := New(false, nil)
	v, err := lib.CheckUpdateOperand(num(5), "++", 1)
	require.NoError(t, err)
	require.Equal(t, 6.0, v.(*values.Number).Value)
}

func TestCheckCallArityMismatch(t *testing.T) {
	lib := New(false, nil)
	fn := &values.Function{Name: "f", Params: []*ast.Identifier{{Name: "a"}, {Name: "b"}}}
	_, err := lib.CheckCall(fn, 1, num(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Function f expected 2 arguments but received 1 argument.")
}

func TestCheckCallRejectsNonFunction(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.CheckCall(num(1), 1)
	require.Error(t, err)
}

func TestCheckIfBooleanRejectsTruthyNonBoolean(t *testing.T) {
	lib := New(false, nil)
	_, err := lib.CheckIfBoolean(num(42), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Expected a boolean expression, instead received '42'.")
}

func TestDotOnObjectMissingMemberFails(t *testing.T) {
	lib := New(false, nil)
	obj := values.NewObject()
	obj.Set("x", num(500))
	_, err := lib.Dot(obj, "y", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Object does not have member 'y'.")
}

func TestCheckMemberAssignRejectsMissingMember(t *testing.T) {
	lib := New(false, nil)
	obj := values.NewObject()
	obj.Set("x", num(1))
	_, err := lib.CheckMemberAssign(obj, str("y"), num(2), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Object does not have member 'y'.")
	_, exists := obj.Get("y")
	require.False(t, exists)
}

func TestCheckMemberAssignWritesExistingMember(t *testing.T) {
	lib := New(false, nil)
	obj := values.NewObject()
	obj.Set("x", num(1))
	_, err := lib.CheckMemberAssign(obj, str("x"), num(9), 1)
	require.NoError(t, err)
	v, _ := obj.Get("x")
	require.Equal(t, 9.0, v.(*values.Number).Value)
}

func TestSetMemberCreatesMissingMember(t *testing.T) {
	lib := New(false, nil)
	obj := values.NewObject()
	_, err := lib.SetMember(obj, str("x"), num(1), 1)
	require.NoError(t, err)
	v, exists := obj.Get("x")
	require.True(t, exists)
	require.Equal(t, 1.0, v.(*values.Number).Value)
}

func TestArrayConstructorFailsDirectCall(t *testing.T) {
	lib := New(false, nil)
	ctor := lib.ArrayConstructor()
	_, err := ctor.Native(values.UndefinedValue, []values.Value{num(3)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Use Array.create")
}

func TestArrayConstructorCreate(t *testing.T) {
	lib := New(false, nil)
	ctor := lib.ArrayConstructor()
	createVal, err := lib.Dot(ctor, "create", 1)
	require.NoError(t, err)
	create := createVal.(*values.Function)
	arrVal, err := create.Native(values.UndefinedValue, []values.Value{num(3), str("z")})
	require.NoError(t, err)
	arr := arrVal.(*values.Array)
	require.Len(t, arr.Elements, 3)
	require.Equal(t, "z", arr.Elements[0].(*values.String).Value)
}

func TestNewClassConstructorArityMismatch(t *testing.T) {
	lib := New(false, nil)
	fn := &values.Function{
		Name:         "Point",
		Params:       []*ast.Identifier{{Name: "x"}, {Name: "y"}},
		ArityChecked: true,
		Native:       func(this values.Value, args []values.Value) (values.Value, error) { return values.UndefinedValue, nil },
	}
	_, err := lib.CheckCall(fn, 1, num(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Function Point expected 2 arguments but received 1 argument.")
}
