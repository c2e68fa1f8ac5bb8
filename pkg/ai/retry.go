package ai

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/wpembed/toolscope/internal/utils"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
)

// retryClassifier is implemented by error types that know whether another
// attempt can possibly succeed (see providers.TransportError).
type retryClassifier interface {
	Retryable() bool
}

// Retry runs op with the default policy: up to 3 retries, exponential
// backoff starting at one second.
func Retry[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	return RetryWithPolicy(ctx, op, DefaultMaxRetries, DefaultInitialDelay)
}

// RetryWithPolicy invokes op and retries transient failures with exponential
// backoff. Non-retryable errors (rejected credentials, malformed requests,
// unparseable responses) surface immediately without consuming a retry.
func RetryWithPolicy[T any](ctx context.Context, op func(context.Context) (T, error), maxRetries int, initialDelay time.Duration) (T, error) {
	var zero T
	delay := initialDelay

	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt >= maxRetries {
			return zero, err
		}

		utils.Log.Debugf("transient failure (attempt %d/%d), retrying in %s: %v", attempt+1, maxRetries, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay *= 2
	}
}

// IsRetryable reports whether another attempt at the failed operation makes
// sense. Unknown errors are assumed transient.
func IsRetryable(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		// A successful transport call produced garbage; resending the same
		// prompt from inside the retry loop would most likely recur.
		return false
	}
	var rc retryClassifier
	if errors.As(err, &rc) {
		return rc.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout() || ne.Temporary()
	}
	return true
}
