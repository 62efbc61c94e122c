package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"welle/internal/diag"
	"welle/internal/lexer"
	"welle/internal/parser"
	"welle/internal/rewrite"
	"welle/internal/runtime"
	"welle/internal/values"
)

func run(t *testing.T, src string) values.Value {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics())

	accum := diag.NewAccumulator()
	rw := rewrite.New(accum, "interp-test")
	prog = rw.Rewrite(prog)
	require.True(t, accum.Empty(), "%v", accum.Diagnostics())

	ip := New(runtime.New(false, nil), nil)
	env := values.NewEnvironment()
	v, err := ip.Run(context.Background(), prog, env)
	require.NoError(t, err)
	return v
}

func TestInterpArithmetic(t *testing.T) {
	v := run(t, `function main() { return 1 + 2 * 3; } return main();`)
	require.Equal(t, 7.0, v.(*values.Number).Value)
}

func TestInterpWhileLoopAccumulates(t *testing.T) {
	v := run(t, `
let total = 0;
let i = 0;
while (i < 5) {
  total = total + i;
  i = i + 1;
}
return total;`)
	require.Equal(t, 10.0, v.(*values.Number).Value)
}

func TestInterpForLoopBreak(t *testing.T) {
	v := run(t, `
let total = 0;
for (let i = 0; i < 10; i = i + 1) {
  if (i === 3) {
    break;
  }
  total = total + i;
}
return total;`)
	require.Equal(t, 3.0, v.(*values.Number).Value)
}

func TestInterpClassConstructorAndMethod(t *testing.T) {
	v := run(t, `
class Point {
  constructor(x, y) {
    this.x = x;
    this.y = y;
  }
  sum() {
    return this.x + this.y;
  }
}
let p = new Point(2, 3);
return p.sum();`)
	require.Equal(t, 5.0, v.(*values.Number).Value)
}

func TestInterpClosureCapturesEnclosingScope(t *testing.T) {
	v := run(t, `
function makeAdder(n) {
  return (x) => n + x;
}
let add5 = makeAdder(5);
return add5(10);`)
	require.Equal(t, 15.0, v.(*values.Number).Value)
}

func TestInterpReadOfUndefinedNameFails(t *testing.T) {
	p := parser.New(lexer.New(`return doesNotExist;`))
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics())

	accum := diag.NewAccumulator()
	rw := rewrite.New(accum, "interp-test-undef")
	prog = rw.Rewrite(prog)
	require.True(t, accum.Empty(), "%v", accum.Diagnostics())

	ip := New(runtime.New(false, nil), nil)
	env := values.NewEnvironment()
	_, err := ip.Run(context.Background(), prog, env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "doesNotExist is not defined.")
}

func TestInterpWriteToFrozenGlobalFails(t *testing.T) {
	p := parser.New(lexer.New(`console = 1;`))
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics())

	accum := diag.NewAccumulator()
	rw := rewrite.New(accum, "interp-test-frozen")
	prog = rw.Rewrite(prog)
	require.True(t, accum.Empty(), "%v", accum.Diagnostics())

	ip := New(runtime.New(false, nil), func(name string) bool { return name == "console" })
	env := values.NewEnvironment()
	env.Define("console", values.UndefinedValue)
	_, err := ip.Run(context.Background(), prog, env)
	require.Error(t, err)
	require.Contains(t, err.Error(), "console is part of the global library, and cannot be overwritten.")
}
