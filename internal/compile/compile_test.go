package compile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"welle/internal/sandbox"
	"welle/internal/values"
)

func TestCompileSucceedsOnValidProgram(t *testing.T) {
	result := Compile(`let x = 1 + 2;`, Options{})
	require.Nil(t, result.Err)
	require.NotNil(t, result.Scheduler)
}

func TestCompileFailsOnForbiddenForOf(t *testing.T) {
	result := Compile(`for (x of xs) { y = x; }`, Options{})
	require.NotNil(t, result.Err)
	require.NotEmpty(t, result.Err.Diagnostics)
}

func TestCompileFailsOnUninitializedUse(t *testing.T) {
	result := Compile(`let x; let y = x;`, Options{})
	require.NotNil(t, result.Err)
}

func TestCompileRunEndToEnd(t *testing.T) {
	result := Compile(`
let total = 0;
for (let i = 0; i < 5; i = i + 1) {
  total = total + i;
}
`, Options{})
	require.Nil(t, result.Err)

	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	v, ok := result.Env.Get("total")
	require.True(t, ok)
	require.Equal(t, 10.0, v.(*values.Number).Value)
}

func TestCompileSilentModeSwallowsViolations(t *testing.T) {
	result := Compile(`let x = undefined; let y = x.prop;`, Options{Silent: true, TestTimeout: time.Second})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())
}

func TestCompileWithWhitelistModule(t *testing.T) {
	modules := map[string]sandbox.Module{
		"greeting": {Name: "greeting", Value: &values.String{Value: "hello"}},
	}
	result := Compile(`let g = require("greeting");`, Options{Modules: modules})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	v, ok := result.Env.Get("g")
	require.True(t, ok)
	require.Equal(t, "hello", v.(*values.String).Value)
}

func TestCompileArrayWritePastEndFailsUnderMemoryLimit(t *testing.T) {
	result := Compile(`
let xs = [1];
for (let i = 0; i < 100000; i = i + 1) {
  xs[i] = i;
}
`, Options{MemoryLimit: 256})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.Error(t, result.Scheduler.LastError())
}

func TestRunSyncReturnsFinalValue(t *testing.T) {
	v, err := RunSync(`let x = 10; return x * 2;`)
	require.Nil(t, err)
	require.Equal(t, 20.0, v.(*values.Number).Value)
}

func TestHarnessBuiltinsAreReachableFromCompiledProgram(t *testing.T) {
	result := Compile(`
enableTests(true, 1000);
test("adds numbers", function() {
  assert(1 + 1 === 2);
});
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	require.Len(t, result.Harness.Records(), 1)
	require.True(t, result.Harness.Records()[0].Passed)
}

func TestHarnessFailingAssertionRecordsFailure(t *testing.T) {
	result := Compile(`
enableTests(true, 1000);
test("wrong", function() {
  assert(1 === 2);
});
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	require.Len(t, result.Harness.Records(), 1)
	require.False(t, result.Harness.Records()[0].Passed)
}

func TestHarnessSummaryReachableFromCompiledProgram(t *testing.T) {
	result := Compile(`
enableTests(true, 1000);
test("ok", function() {
  assert(true);
});
let report = summary(false);
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	v, ok := result.Env.Get("report")
	require.True(t, ok)
	require.Contains(t, v.(*values.String).Value, "1 passed")
}

func TestArrayDirectCallFailsWithUseArrayCreate(t *testing.T) {
	result := Compile(`let a = Array(3);`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.Error(t, result.Scheduler.LastError())
	require.Contains(t, result.Scheduler.LastError().Error(), "Use Array.create")
}

func TestNewArrayFailsWithUseArrayCreate(t *testing.T) {
	result := Compile(`let a = new Array(3);`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.Error(t, result.Scheduler.LastError())
	require.Contains(t, result.Scheduler.LastError().Error(), "Use Array.create")
}

func TestArrayCreateBuildsFilledSequence(t *testing.T) {
	result := Compile(`let a = Array.create(3, 0);`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())

	v, ok := result.Env.Get("a")
	require.True(t, ok)
	require.Len(t, v.(*values.Array).Elements, 3)
}

func TestClassConstructorArityMismatchFails(t *testing.T) {
	result := Compile(`
class Point {
  constructor(x, y) {
    this.x = x;
    this.y = y;
  }
}
let p = new Point(1);
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.Error(t, result.Scheduler.LastError())
	require.Contains(t, result.Scheduler.LastError().Error(), "Function Point expected 2 arguments but received 1 argument.")
}

func TestClassWithExplicitZeroArgConstructorStillArityChecked(t *testing.T) {
	result := Compile(`
class Origin {
  constructor() {
    this.x = 0;
  }
}
let o = new Origin(1);
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.Error(t, result.Scheduler.LastError())
	require.Contains(t, result.Scheduler.LastError().Error(), "Function Origin expected 0 arguments but received 1 argument.")
}

func TestClassWithImplicitConstructorAcceptsAnyArity(t *testing.T) {
	result := Compile(`
class Empty {}
let e = new Empty(1, 2, 3);
`, Options{})
	require.Nil(t, result.Err)
	result.Scheduler.Run(context.Background())
	result.Scheduler.Wait()
	require.NoError(t, result.Scheduler.LastError())
}
