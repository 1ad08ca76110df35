// Package retry provides the single backoff policy shared by the embedding
// and generation adapters, so both remote calls fail with the same semantics.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Policy bounds retries of a transient-failure-prone operation: at most
// MaxAttempts tries with jittered exponential backoff between them.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the initial backoff interval.
	BaseDelay time.Duration

	// MaxDelay caps the backoff interval.
	MaxDelay time.Duration
}

// Default returns the policy used when the configuration does not override it.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do runs op until it succeeds, returns a permanent error, the attempt
// ceiling is reached, or ctx is cancelled. The returned error is the last
// error op produced.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	// Bounded by attempt count, not wall clock.
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		return op(ctx)
	}, policy)
}

// Permanent marks err as non-retryable: Do stops immediately and returns err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
