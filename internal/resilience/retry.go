package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// ErrTimeout is returned when a wrapped operation exceeds its deadline.
var ErrTimeout = errors.New("operation timed out")

// RetryConfig describes the exponential backoff schedule.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	MaxDelay    time.Duration
}

// DefaultRetryConfig is the schedule used for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		Factor:      2,
		MaxDelay:    5 * time.Second,
	}
}

// permanentError marks an error that must never be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// nonRetryableMarkers cover the client-error categories that retrying can
// never fix.
var nonRetryableMarkers = []string{
	"unauthorized", "401",
	"forbidden", "403",
	"not found", "404",
	"invalid", "bad request", "400",
}

// IsNonRetryable reports whether err belongs to a category that must
// short-circuit the retry loop.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Retry runs fn up to cfg.MaxAttempts times with exponential backoff and up
// to 25% uniform jitter on each delay. Non-retryable errors and context
// cancellation short-circuit immediately.
func (m *Manager) Retry(ctx context.Context, name string, cfg RetryConfig, fn func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor <= 1 {
		cfg.Factor = 2
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}

	var lastErr error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsNonRetryable(lastErr) {
			m.logger.Debug().Str("resource", name).Err(lastErr).Msg("non-retryable error, giving up")
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if wait > cfg.MaxDelay && cfg.MaxDelay > 0 {
			wait = cfg.MaxDelay
		}
		wait += time.Duration(rand.Int63n(int64(wait)/4 + 1))

		m.logger.Debug().Str("resource", name).Int("attempt", attempt).Dur("wait", wait).Err(lastErr).Msg("retrying after failure")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * cfg.Factor)
	}
	return lastErr
}

// WithTimeout runs fn with a bounded wait. On expiry the operation is
// abandoned and ErrTimeout is returned; fn's context is cancelled so a
// well-behaved operation stops promptly. The wrapper never retries.
func (m *Manager) WithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
