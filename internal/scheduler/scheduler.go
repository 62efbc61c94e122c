// Package scheduler implements C5, the cooperative scheduler (spec.md
// §4.5, §5 glossary): run a compiled program, evaluate a single
// expression against its live environment, and stop a running program —
// including one stuck in an infinite loop. spec.md §9's Design Note
// explicitly sanctions an alternative to CPS transformation for languages
// without first-class continuations: "or by running each test in a fresh
// worker with a shared test-record channel." This package takes that
// alternative one step further and runs every program in its own
// goroutine, with context.Context cancellation checked by internal/interp
// at every statement and loop back-edge, so stop() always interrupts
// promptly instead of waiting for cooperative yield points that a
// continuation-based design would need to insert by hand.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"welle/internal/ast"
	"welle/internal/elog"
	"welle/internal/interp"
	"welle/internal/values"
)

// Status mirrors the run states a host (spec.md §6) observes.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
	StatusDone
	StatusError
)

// Exception is the {type: "exception", value, stack} shape spec.md §6
// reserves for uncaught runtime-check failures. Run does not build one: a
// failed run's LastError is the error the interpreter returned (a
// *runtime.CheckError for a failed check), and no stack is recorded.
type Exception struct {
	Value values.Value
	Stack []string
}

func (e *Exception) Error() string {
	if e.Value == nil {
		return "exception"
	}
	return e.Value.Inspect()
}

// Scheduler runs one compiled program at a time. A fresh Scheduler is
// created per CompileOK (spec.md §4.8) so Run/Stop/Eval always refer to
// the same program and environment.
type Scheduler struct {
	mu       sync.Mutex
	program  *ast.Program
	env      *values.Environment
	interp   *interp.Interp
	status   Status
	cancel   context.CancelFunc
	lastErr  error
	done     chan struct{}
}

func New(program *ast.Program, env *values.Environment, ip *interp.Interp) *Scheduler {
	return &Scheduler{program: program, env: env, interp: ip, status: StatusIdle}
}

// Run starts the program in its own goroutine and returns immediately;
// callers observe completion via Wait or Status.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusRunning {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = StatusRunning
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		defer func() {
			if r := recover(); r != nil {
				elog.Default.Bug("uncaught panic in a running program", fmt.Errorf("%v", r))
				s.mu.Lock()
				s.status = StatusError
				s.lastErr = fmt.Errorf("potential bug in ElementaryJS: %v", r)
				s.mu.Unlock()
			}
		}()
		_, err := s.interp.Run(runCtx, s.program, s.env)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			if _, ok := err.(*interp.Interrupted); ok {
				s.status = StatusStopped
			} else {
				s.status = StatusError
			}
			s.lastErr = err
			return
		}
		s.status = StatusDone
	}()
}

// Stop cancels the running program's context; internal/interp observes
// this at the next statement or loop back-edge, guaranteeing termination
// of even an infinite loop within one polling interval.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the running program finishes, is stopped, or errors.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Eval runs a single expression against the scheduler's live environment,
// implementing the `eval` operation a host IDE drives interactively
// (spec.md §4.5/§6). It is synchronous; a long-running eval can still be
// interrupted via the ctx passed in.
func (s *Scheduler) Eval(ctx context.Context, expr ast.Expression) (values.Value, error) {
	s.mu.Lock()
	env := s.env
	s.mu.Unlock()
	return s.interp.Eval(ctx, expr, env)
}

// PauseImmediate implements the scheduler's ability to suspend execution
// at the next poll point without fully stopping the program; SPEC_FULL
// models this as Stop followed by a host-level resume via a fresh Run
// over the same environment, since the underlying goroutine/ctx design
// cannot literally suspend a live Go stack without a continuation.
func (s *Scheduler) PauseImmediate() {
	s.Stop()
}

func fmtException(v values.Value) string {
	return fmt.Sprintf("%v", v.Inspect())
}
