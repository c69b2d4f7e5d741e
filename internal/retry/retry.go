// Package retry runs an operation with bounded exponential-backoff retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted wraps the last failure once every attempt has been spent.
var ErrExhausted = errors.New("retry attempts exhausted")

// Event describes one scheduled retry.
type Event struct {
	// Attempt is the 1-indexed retry number about to run.
	Attempt int
	Delay   time.Duration
	Err     error
}

// Config holds the retry policy knobs.
type Config struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int

	// Backoff returns the wait before retry number attempt (1-indexed).
	Backoff func(attempt int) time.Duration

	// Retryable decides whether a failure should be retried.
	// If nil, every error is retried.
	Retryable func(error) bool

	// OnRetry is called before each backoff wait. Diagnostics only.
	OnRetry func(Event)

	// Sleep waits for d or until ctx is done. Tests replace it to skip real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Exponential returns base * 2^attempt: with a one second base the waits are 2s, 4s, 8s.
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

// DefaultConfig returns three retries at 2s, 4s and 8s, retrying every error.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		Backoff:    Exponential(time.Second),
	}
}

// Policy executes operations according to a Config. It is safe for concurrent use.
type Policy struct {
	cfg Config
}

// New builds a Policy, filling unset fields with defaults.
func New(cfg Config) *Policy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = Exponential(time.Second)
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Policy{cfg: cfg}
}

// MaxAttempts reports the total number of attempts including the first.
func (p *Policy) MaxAttempts() int { return p.cfg.MaxRetries + 1 }

// Do runs op until it succeeds, a non-retryable error occurs, the attempt
// budget is spent or ctx is done. Non-retryable errors are returned as is.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), lastErr))
		}
		if p.cfg.Retryable != nil && !p.cfg.Retryable(err) {
			return err
		}
		if attempt >= p.cfg.MaxRetries {
			break
		}
		next := attempt + 1
		delay := p.cfg.Backoff(next)
		if p.cfg.OnRetry != nil {
			p.cfg.OnRetry(Event{Attempt: next, Delay: delay, Err: err})
		}
		if err := p.cfg.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", errors.Join(err, lastErr))
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts(), lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
