// Package harness implements C6, the test/assert/summary framework
// (spec.md §4.6): student code calls `enableTests(on, timeoutMs)` to arm
// the harness, `test(description, thunk)` to register and run a case, and
// `assert(v)` inside a thunk to fail it; the harness runs each registered
// test in its own goroutine with a per-test deadline (spec.md §9 Design
// Note's sanctioned "fresh worker with a shared test-record channel"
// alternative to continuation capture), collects pass/fail records, and
// renders them with `summary(hasStyles)`. Grounded on
// welle/cmd/welle/test.go's collect-then-report shape, generalized from a
// CLI-driven file scanner into an in-language `test`/`assert` builtin
// pair the sandbox (C7) exposes to student programs.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"welle/internal/values"
)

// AssertionFailed is the error assert() raises when its argument is false
// or not a boolean; the scheduler surfaces it the same way as any other
// runtime exception (spec.md §6).
type AssertionFailed struct {
	Message string
}

func (e *AssertionFailed) Error() string { return e.Message }

// TimeLimitExceeded is the error a test's Record carries when its thunk
// did not finish within the harness's per-test deadline (spec.md §4.6
// step 3: "on timer fire ... appends {failed:true, description,
// error:'Time limit exceeded.'}").
var TimeLimitExceeded = errors.New("Time limit exceeded.")

// Record is one completed test's outcome.
type Record struct {
	Name     string
	Passed   bool
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Harness accumulates Records across however many `test()` calls a
// program makes between an `enableTests` and the matching `summary`.
type Harness struct {
	Timeout time.Duration
	records []Record
	enabled bool
}

const defaultTimeout = 5 * time.Second

// New builds a disabled Harness with the given default per-test timeout;
// a program must still call `enableTests` before `test()` does anything
// (spec.md §4.6: "if not enabled, does nothing").
func New(timeout time.Duration) *Harness {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Harness{Timeout: timeout}
}

// EnableTests implements `enableTests(on, timeoutMs)` (spec.md §4.6):
// resets the test record list and sets the enabled flag and per-test
// deadline every time it's called, even to turn testing back off.
func (h *Harness) EnableTests(on bool, timeoutMs int) {
	h.records = nil
	h.enabled = on
	if timeoutMs > 0 {
		h.Timeout = time.Duration(timeoutMs) * time.Millisecond
	} else {
		h.Timeout = defaultTimeout
	}
}

// Enabled reports whether a program has armed the harness via
// enableTests and not yet consumed it with summary.
func (h *Harness) Enabled() bool { return h.enabled }

// Test registers and immediately runs name using fn (a Go closure
// internal/compile binds to the student's thunk), in its own goroutine so
// a hang in one test cannot wedge the whole suite or the harness itself.
// If testing is not enabled it does nothing (spec.md §4.6).
func (h *Harness) Test(parent context.Context, name string, fn func(ctx context.Context) error) {
	if !h.enabled {
		return
	}

	ctx, cancel := context.WithTimeout(parent, h.Timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan error, 1)
	go func() {
		resultCh <- fn(ctx)
	}()

	select {
	case err := <-resultCh:
		h.records = append(h.records, Record{Name: name, Passed: err == nil, Err: err, Duration: time.Since(start)})
	case <-ctx.Done():
		h.records = append(h.records, Record{Name: name, Passed: false, Err: TimeLimitExceeded, TimedOut: true, Duration: time.Since(start)})
	}
}

// Assert implements the `assert(v)` builtin (spec.md §4.6): v must be
// boolean; a false value fails with "Assertion failed.", a non-boolean
// fails naming the argument.
func Assert(v values.Value) error {
	b, ok := v.(*values.Boolean)
	if !ok {
		return &AssertionFailed{Message: "Assertion argument 'v' is not a boolean value."}
	}
	if !b.Value {
		return &AssertionFailed{Message: "Assertion failed."}
	}
	return nil
}

// Summary implements `summary(hasStyles)` (spec.md §4.6): consumes the
// test records and produces a formatted report, then automatically
// disables testing so a second call reports "not enabled" instead of
// re-printing stale records.
func (h *Harness) Summary(hasStyles bool) string {
	if !h.enabled {
		return "Testing is not enabled."
	}
	defer func() { h.enabled = false }()

	if len(h.records) == 0 {
		return "No tests written."
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	if !hasStyles {
		color.NoColor = true
	}

	passed, failed := 0, 0
	out := ""
	for _, r := range h.records {
		if r.Passed {
			passed++
			out += fmt.Sprintf("%s  %s\n", green("OK"), r.Name)
			continue
		}
		failed++
		out += fmt.Sprintf("%s %s\n         %s\n", red("FAILED"), r.Name, r.Err)
	}
	out += fmt.Sprintf("\n%d passed, %d failed, %d total\n", passed, failed, len(h.records))
	return out
}

func (h *Harness) Records() []Record { return h.records }

// AsValue renders a Record as an ElementaryJS object, for programs that
// introspect their own test results (e.g. a custom reporter) via
// internal/stdlib.
func (r Record) AsValue() *values.Object {
	o := values.NewObject()
	o.Set("name", &values.String{Value: r.Name})
	o.Set("passed", &values.Boolean{Value: r.Passed})
	if r.Err != nil {
		o.Set("error", &values.String{Value: r.Err.Error()})
	} else {
		o.Set("error", values.UndefinedValue)
	}
	return o
}
