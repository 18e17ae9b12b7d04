package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultAttempts is the total number of tries per collection
	DefaultAttempts = 5

	// DefaultRetryDelay is the fixed pause between tries
	DefaultRetryDelay = 500 * time.Millisecond
)

// Policy bounds the retry loop around one collection
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy returns 5 attempts, 500ms apart
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultRetryDelay}
}

// ExhaustedError is returned once every attempt failed transiently
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// NotifyFunc observes a failed attempt that will be retried after next
type NotifyFunc func(attempt int, err error, next time.Duration)

// Retry runs op until it succeeds, returns a non-transient error, the
// attempts run out or ctx is done. Only ConnectionFault is retried.
func Retry(ctx context.Context, p Policy, notify NotifyFunc, op func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.Attempts-1)),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, next time.Duration) {
		if notify != nil {
			notify(attempt, err, next)
		}
	})

	if err != nil && IsTransient(err) {
		return &ExhaustedError{Attempts: attempt, Err: err}
	}
	return err
}
