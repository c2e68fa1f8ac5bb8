package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

// classifiedError mimics a provider transport error with a fixed
// classification.
type classifiedError struct {
	msg       string
	retryable bool
}

func (e *classifiedError) Error() string   { return e.msg }
func (e *classifiedError) Retryable() bool { return e.retryable }

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := RetryWithPolicy(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &classifiedError{msg: "rate limited", retryable: true}
		}
		return "ok", nil
	}, 3, time.Millisecond)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("got %q", out)
	}
	if calls != 3 {
		t.Fatalf("operation invoked %d times, want 3", calls)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	authErr := &classifiedError{msg: "invalid api key", retryable: false}
	_, err := RetryWithPolicy(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, authErr
	}, 3, time.Millisecond)

	if !errors.Is(err, authErr) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("operation invoked %d times, want 1", calls)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, &classifiedError{msg: "still down", retryable: true}
	}, 2, time.Millisecond)

	if err == nil || err.Error() != "still down" {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("operation invoked %d times, want 3 (initial + 2 retries)", calls)
	}
}

func TestRetryParseErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := RetryWithPolicy(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, &ParseError{Snippet: "hmm"}
	}, 3, time.Millisecond)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("operation invoked %d times, want 1", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithPolicy(ctx, func(context.Context) (int, error) {
		return 0, &classifiedError{msg: "transient", retryable: true}
	}, 3, time.Hour)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
