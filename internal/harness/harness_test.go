package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"welle/internal/values"
)

func TestAssertPassesOnTrue(t *testing.T) {
	require.NoError(t, Assert(&values.Boolean{Value: true}))
}

func TestAssertFailsOnFalse(t *testing.T) {
	err := Assert(&values.Boolean{Value: false})
	require.Error(t, err)
	var af *AssertionFailed
	require.ErrorAs(t, err, &af)
	require.Equal(t, "Assertion failed.", af.Message)
}

func TestAssertRejectsNonBoolean(t *testing.T) {
	err := Assert(&values.Number{Value: 1})
	require.Error(t, err)
	require.EqualError(t, err, "Assertion argument 'v' is not a boolean value.")
}

func TestTestDoesNothingWhenNotEnabled(t *testing.T) {
	h := New(time.Second)
	h.Test(context.Background(), "adds numbers", func(ctx context.Context) error { return nil })
	require.Empty(t, h.Records())
}

func TestHarnessTestRecordsPass(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "adds numbers", func(ctx context.Context) error {
		return nil
	})
	require.Len(t, h.Records(), 1)
	require.True(t, h.Records()[0].Passed)
}

func TestHarnessTestRecordsFailure(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "broken", func(ctx context.Context) error {
		return errors.New("boom")
	})
	require.Len(t, h.Records(), 1)
	require.False(t, h.Records()[0].Passed)
	require.EqualError(t, h.Records()[0].Err, "boom")
}

func TestHarnessTestTimesOut(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 10)
	h.Test(context.Background(), "hangs", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Len(t, h.Records(), 1)
	require.True(t, h.Records()[0].TimedOut)
	require.False(t, h.Records()[0].Passed)
	require.EqualError(t, h.Records()[0].Err, "Time limit exceeded.")
}

func TestEnableTestsResetsRecordsAndTimeout(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "ok", func(ctx context.Context) error { return nil })
	require.Len(t, h.Records(), 1)

	h.EnableTests(true, 20)
	require.Empty(t, h.Records())
	require.Equal(t, 20*time.Millisecond, h.Timeout)
}

func TestSummaryCountsPassAndFail(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "ok", func(ctx context.Context) error { return nil })
	h.Test(context.Background(), "bad", func(ctx context.Context) error { return errors.New("nope") })
	summary := h.Summary(false)
	require.Contains(t, summary, "OK  ok")
	require.Contains(t, summary, "FAILED bad")
	require.Contains(t, summary, "1 passed, 1 failed, 2 total")
}

func TestSummaryDisablesTestingAfterConsuming(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "ok", func(ctx context.Context) error { return nil })
	require.Contains(t, h.Summary(false), "1 passed")
	require.False(t, h.Enabled())
	require.Equal(t, "Testing is not enabled.", h.Summary(false))
}

func TestSummaryHintsWhenNoTestsWritten(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	require.Equal(t, "No tests written.", h.Summary(false))
}

func TestSummaryNotEnabledWithoutEnableTests(t *testing.T) {
	h := New(time.Second)
	require.Equal(t, "Testing is not enabled.", h.Summary(false))
}

func TestRecordAsValue(t *testing.T) {
	h := New(time.Second)
	h.EnableTests(true, 0)
	h.Test(context.Background(), "ok", func(ctx context.Context) error { return nil })
	obj := h.Records()[0].AsValue()
	name, _ := obj.Get("name")
	require.Equal(t, "ok", name.Inspect())
}
