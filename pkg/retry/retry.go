package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/c360/formatkit/errors"
)

// PermanentError marks an error that must not be retried
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do returns it without another attempt
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err stops a retry loop
func IsPermanent(err error) bool {
	var pe *PermanentError
	return stderrors.As(err, &pe) || errors.IsInvalid(err) || errors.IsFatal(err)
}

// Config is the backoff schedule
type Config struct {
	Attempts   int           // total attempts, at least one
	Initial    time.Duration // delay after the first failure
	Max        time.Duration // delay cap
	Multiplier float64       // growth per attempt
	Jitter     bool          // add up to 25% to each delay
}

// DefaultConfig retries three times between 100ms and 5s
func DefaultConfig() Config {
	return Config{Attempts: 3, Initial: 100 * time.Millisecond, Max: 5 * time.Second, Multiplier: 2, Jitter: true}
}

// Startup suits dependencies that may come up shortly after us
func Startup() Config {
	return Config{Attempts: 5, Initial: 250 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2, Jitter: true}
}

func (c Config) normalized() (Config, error) {
	if c.Initial < 0 || c.Max < 0 || c.Multiplier < 0 {
		return c, fmt.Errorf("retry: negative delay or multiplier")
	}
	c.Attempts = max(c.Attempts, 1)
	if c.Initial == 0 {
		c.Initial = 100 * time.Millisecond
	}
	if c.Max == 0 {
		c.Max = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2
	}
	c.Multiplier = min(c.Multiplier, 1000)
	if c.Max < c.Initial {
		return c, fmt.Errorf("retry: max delay %v is below initial delay %v", c.Max, c.Initial)
	}
	return c, nil
}

// Do calls fn until it returns nil, a permanent error, or the attempts run
// out. The last error is wrapped in the returned one.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	delay := cfg.Initial
	var last error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if last = fn(); last == nil {
			return nil
		}
		if IsPermanent(last) {
			return last
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, stderrors.Join(ctx.Err(), last))
		}
		if attempt == cfg.Attempts {
			break
		}

		wait := delay
		if cfg.Jitter && delay >= 4 {
			wait += rand.N(delay / 4)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff: %w", stderrors.Join(ctx.Err(), last))
		case <-timer.C:
		}

		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next <= 0 || next > cfg.Max {
			next = cfg.Max
		}
		delay = next
	}
	return fmt.Errorf("retry failed after %d attempts: %w", cfg.Attempts, last)
}

// DoWithResult is Do for functions that also return a value
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
