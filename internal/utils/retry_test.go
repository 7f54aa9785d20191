package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	patterns := []string{"timeout", "rate limit"}

	tests := []struct {
		err      error
		expected bool
	}{
		{errors.New("request timeout"), true},
		{errors.New("Rate Limit exceeded"), true},
		{errors.New("not found"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRetryableError(tt.err, patterns); got != tt.expected {
			t.Errorf("IsRetryableError(%v) = %v; want %v", tt.err, got, tt.expected)
		}
	}
}

func TestWithRetry_Success(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.InitialDelay = 1 * time.Millisecond // fast tests

	attempts := 0
	operation := func(ctx context.Context) (string, error) {
		attempts++
		return "success", nil
	}

	result, err := WithRetry(ctx, operation, config)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_RetrySuccess(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.InitialDelay = 1 * time.Millisecond
	config.MaxAttempts = 3

	attempts := 0
	operation := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("timeout error")
		}
		return "success", nil
	}

	result, err := WithRetry(ctx, operation, config)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_MaxAttemptsExhausted(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.InitialDelay = 1 * time.Millisecond
	config.MaxAttempts = 3

	attempts := 0
	expectedErr := errors.New("persistent timeout")
	operation := func(ctx context.Context) (string, error) {
		attempts++
		return "", expectedErr
	}

	_, err := WithRetry(ctx, operation, config)
	if err != expectedErr {
		t.Fatalf("Expected error %v, got %v", expectedErr, err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.InitialDelay = 1 * time.Millisecond

	attempts := 0
	expectedErr := errors.New("fatal error")
	operation := func(ctx context.Context) (string, error) {
		attempts++
		return "", expectedErr
	}

	_, err := WithRetry(ctx, operation, config)
	if err != expectedErr {
		t.Fatalf("Expected error %v, got %v", expectedErr, err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig()
	config.InitialDelay = 50 * time.Millisecond

	attempts := 0
	operation := func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("timeout")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, operation, config)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestWithRetry_TimeoutPerAttempt(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.Timeout = 10 * time.Millisecond
	config.InitialDelay = 1 * time.Millisecond

	operation := func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return "done", nil
		}
	}

	_, err := WithRetry(ctx, operation, config)
	if err == nil || !strings.Contains(err.Error(), "deadline exceeded") {
		t.Fatalf("Expected deadline exceeded error, got %v", err)
	}
}

func TestWithRetry_BackoffTiming(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()
	config.InitialDelay = 10 * time.Millisecond
	config.BackoffFactor = 2.0
	config.MaxAttempts = 3

	start := time.Now()
	_, _ = WithRetry(ctx, func(ctx context.Context) (string, error) {
		return "", errors.New("timeout")
	}, config)
	elapsed := time.Since(start)

	// Attempt 1: fail, wait 10ms
	// Attempt 2: fail, wait 20ms
	// Attempt 3: fail, return
	// Total wait should be at least 30ms
	if elapsed < 30*time.Millisecond {
		t.Errorf("Expected at least 30ms elapsed for backoff, got %v", elapsed)
	}
}

func TestFetchRetryConfig(t *testing.T) {
	config := FetchRetryConfig(2 * time.Second)
	if config.MaxAttempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", config.MaxAttempts)
	}
	if config.Timeout != 2*time.Second {
		t.Errorf("Expected per-attempt timeout 2s, got %v", config.Timeout)
	}
}

func TestIsRetryableError_Typed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"5xx", &StatusError{Provider: "youtube-watch", Code: 503}, true},
		{"429", fmt.Errorf("fetch: %w", &StatusError{Code: 429}), true},
		{"404", &StatusError{Provider: "youtube-watch", Code: 404}, false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"cancelled", context.Canceled, false},
		{"cancelled beats pattern", fmt.Errorf("timeout: %w", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err, nil); got != tt.want {
				t.Errorf("IsRetryableError(%v) = %v; want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Provider: "innertube", Code: 403, Body: "denied"}
	if got := err.Error(); got != "innertube: status 403: denied" {
		t.Errorf("unexpected message %q", got)
	}
	if got := (&StatusError{Code: 500}).Error(); got != "status 500" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRetryConfig_DelayIsCapped(t *testing.T) {
	config := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	if d := config.Delay(1); d < 100*time.Millisecond || d >= 110*time.Millisecond {
		t.Errorf("attempt 1 delay %v outside [100ms, 110ms)", d)
	}
	if d := config.Delay(5); d < 300*time.Millisecond || d >= 330*time.Millisecond {
		t.Errorf("attempt 5 delay %v outside [300ms, 330ms)", d)
	}
}

func TestWithRetry_OnRetryHook(t *testing.T) {
	config := DefaultRetryConfig()
	config.InitialDelay = time.Millisecond
	config.MaxDelay = 2 * time.Millisecond
	config.MaxAttempts = 3

	var seen []int
	config.OnRetry = func(_ context.Context, attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
		if err == nil {
			t.Error("expected the failed attempt's error")
		}
	}

	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		return 0, &StatusError{Code: 503}
	}, config)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected hooks for attempts 1 and 2, got %v", seen)
	}
}
