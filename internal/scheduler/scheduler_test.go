package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"welle/internal/ast"
	"welle/internal/diag"
	"welle/internal/interp"
	"welle/internal/lexer"
	"welle/internal/parser"
	"welle/internal/rewrite"
	"welle/internal/runtime"
	"welle/internal/values"
)

func compileProgram(t *testing.T, src string) (*Scheduler, *values.Environment) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Diagnostics())

	accum := diag.NewAccumulator()
	prog = rewrite.New(accum, "sched-test").Rewrite(prog)
	require.True(t, accum.Empty(), "%v", accum.Diagnostics())

	env := values.NewEnvironment()
	ip := interp.New(runtime.New(false, nil), nil)
	return New(prog, env, ip), env
}

func TestSchedulerRunCompletesNormalProgram(t *testing.T) {
	sched, _ := compileProgram(t, `let x = 1 + 1;`)
	sched.Run(context.Background())
	sched.Wait()
	require.Equal(t, StatusDone, sched.Status())
	require.NoError(t, sched.LastError())
}

func TestSchedulerStopInterruptsInfiniteLoop(t *testing.T) {
	sched, _ := compileProgram(t, `let i = 0; while (true) { i = i + 1; }`)
	sched.Run(context.Background())

	time.Sleep(10 * time.Millisecond)
	sched.Stop()
	sched.Wait()

	require.Equal(t, StatusStopped, sched.Status())
}

func TestSchedulerEvalAgainstLiveEnvironment(t *testing.T) {
	sched, env := compileProgram(t, `let x = 41;`)
	sched.Run(context.Background())
	sched.Wait()
	env.Define("x", &values.Number{Value: 41})

	v, err := sched.Eval(context.Background(), &ast.Identifier{Name: "x"})
	require.NoError(t, err)
	require.Equal(t, 41.0, v.(*values.Number).Value)
}
