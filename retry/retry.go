// Package retry runs an operation until it succeeds, fails with a
// non-retryable error, or the elapsed-time budget is spent.
//
// Delays are a constant interval plus a random, non-negative jitter. There is
// no attempt cap: only MaxElapsed bounds the loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DefaultInterval is the constant delay between attempts.
	DefaultInterval = time.Second
	// DefaultJitter bounds the random delay added to each interval.
	DefaultJitter = time.Second
	// DefaultMaxElapsed is the budget measured from the first attempt.
	DefaultMaxElapsed = 40 * time.Second
)

// Clock abstracts time so tests can run the loop without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Policy configures Do. The zero value is usable and picks the defaults.
type Policy struct {
	// Interval is the constant part of every delay.
	Interval time.Duration
	// Jitter returns the random part of a delay. It must not be negative.
	// Nil means RandomJitter(DefaultJitter).
	Jitter func() time.Duration
	// MaxElapsed stops retrying once this much time has passed since the first attempt.
	MaxElapsed time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
	// OnRetry is called before each sleep with the 1-based number of the failed attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// RandomJitter returns a jitter source uniform in [0, max).
func RandomJitter(max time.Duration) func() time.Duration {
	return func() time.Duration {
		if max <= 0 {
			return 0
		}
		return rand.N(max)
	}
}

// NoJitter is a jitter source that always returns zero.
func NoJitter() time.Duration { return 0 }

// Constant builds a policy with the given interval, jitter bound and budget.
func Constant(interval, jitter, maxElapsed time.Duration) Policy {
	return Policy{
		Interval:   interval,
		Jitter:     RandomJitter(jitter),
		MaxElapsed: maxElapsed,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Jitter == nil {
		p.Jitter = RandomJitter(DefaultJitter)
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = DefaultMaxElapsed
	}
	if p.Clock == nil {
		p.Clock = SystemClock
	}
	return p
}

// ExhaustedError is returned when a retryable error is still occurring after
// the elapsed-time budget.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts (%s): %v", e.Attempts, e.Elapsed, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came from a spent retry budget.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Do calls op until it returns a nil error or an error for which retryable
// reports false. Retryable errors observed at or after MaxElapsed end the
// loop with an *ExhaustedError.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), retryable func(error) bool) (T, error) {
	p = p.withDefaults()
	start := p.Clock.Now()

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if retryable == nil || !retryable(err) {
			return v, err
		}

		elapsed := p.Clock.Now().Sub(start)
		if elapsed >= p.MaxElapsed {
			return v, &ExhaustedError{Attempts: attempt, Elapsed: elapsed, Err: err}
		}

		delay := p.Interval + nonNegative(p.Jitter())
		// The final attempt lands on the deadline rather than past it.
		if remaining := p.MaxElapsed - elapsed; delay > remaining {
			delay = remaining
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if serr := p.Clock.Sleep(ctx, delay); serr != nil {
			return v, fmt.Errorf("retry interrupted after %d attempts: %w", attempt, errors.Join(serr, err))
		}
	}
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error, retryable func(error) bool) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, retryable)
	return err
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
