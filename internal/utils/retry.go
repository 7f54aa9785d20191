package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	// RetryableErrors are lowercase substrings matched against untyped errors.
	RetryableErrors []string
	// OnRetry, when set, is called before each wait with the failed attempt number.
	OnRetry func(ctx context.Context, attempt int, err error, delay time.Duration)
}

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		Timeout:         30 * time.Second,
		RetryableErrors: []string{"timeout", "connection reset", "connection refused", "rate limit"},
	}
}

// FetchRetryConfig returns a RetryConfig for best-effort page and caption fetches.
// One retry only: every fetch it guards has a further fallback behind it.
func FetchRetryConfig(timeout time.Duration) RetryConfig {
	return RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        time.Second,
		BackoffFactor:   2.0,
		Timeout:         timeout,
		RetryableErrors: []string{"timeout", "connection reset", "connection refused", "unexpected eof"},
	}
}

// StatusError is a non-200 response from an upstream fetch.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("status %d", e.Code)
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Retryable reports whether the upstream may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// IsRetryableError classifies err. Typed errors decide first: cancellation never
// retries, a StatusError retries on 429 and 5xx, and deadlines and network
// timeouts always retry. Anything else falls back to substring patterns.
func IsRetryableError(err error, patterns []string) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Delay returns the wait after the given failed attempt:
// InitialDelay * BackoffFactor^(attempt-1), capped at MaxDelay, plus up to 10% jitter.
func (c RetryConfig) Delay(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if jitter := int64(d) / 10; jitter > 0 {
		d += time.Duration(rand.Int63n(jitter))
	}
	return d
}

// WithRetry runs operation until it succeeds, returns a non-retryable error, or
// runs out of attempts. The last error is returned unwrapped.
func WithRetry[T any](ctx context.Context, operation RetryableFunc[T], config RetryConfig) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, config.Timeout)
		result, err := operation(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt >= config.MaxAttempts || !IsRetryableError(err, config.RetryableErrors) {
			return zero, err
		}

		delay := config.Delay(attempt)
		if config.OnRetry != nil {
			config.OnRetry(ctx, attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
}
