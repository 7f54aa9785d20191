package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	expected := "failed operation: underlying error"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
	if !errors.Is(errWithWrap, wrappedErr) {
		t.Error("expected errors.Is to reach the wrapped error")
	}
}

func TestAppError_Code(t *testing.T) {
	err := &AppError{
		ErrorCode: "ERR_CODE_123",
	}
	if err.Code() != "ERR_CODE_123" {
		t.Errorf("expected ERR_CODE_123, got %v", err.Code())
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{
			name: "rate limit is retryable",
			err: &AppError{
				Type:       ErrorTypeRateLimit,
				StatusCode: http.StatusTooManyRequests,
			},
			want: true,
		},
		{
			name: "validation error is not retryable",
			err: &AppError{
				Type:       ErrorTypeValidation,
				StatusCode: http.StatusBadRequest,
			},
			want: false,
		},
		{
			name: "502 resolution error is retryable",
			err: &AppError{
				Type:       ErrorTypeResolution,
				StatusCode: http.StatusBadGateway,
			},
			want: true,
		},
		{
			name: "insufficient text is not retryable",
			err:  NewInsufficientTextError(10, 200),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("AppError.IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("invalid input", "VALIDATION_FAILED", "Check your fields")
	if err.Type != ErrorTypeValidation {
		t.Errorf("expected TypeValidation, got %v", err.Type)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err.StatusCode)
	}
	if err.RecoverySuggestion() != "Check your fields" {
		t.Errorf("expected 'Check your fields', got %v", err.RecoverySuggestion())
	}
}

func TestNewTranscriptionError(t *testing.T) {
	underlying := errors.New("yt-dlp exited 1")
	err := NewTranscriptionError("could not download audio", "AUDIO_DOWNLOAD_FAILED", underlying)
	if err.Type != ErrorTypeTranscription {
		t.Errorf("expected TypeTranscription, got %v", err.Type)
	}
	if err.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err.StatusCode)
	}
	if err.Err != underlying {
		t.Error("underlying error not correctly wrapped")
	}
}

func TestNewInsufficientTextError(t *testing.T) {
	err := NewInsufficientTextError(42, 200)
	if err.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err.StatusCode)
	}
	if err.Error() != "insufficient text" {
		t.Errorf("expected 'insufficient text', got %q", err.Error())
	}
}

func TestAsAndIsType(t *testing.T) {
	wrapped := fmt.Errorf("stage failed: %w", NewInternalError(errors.New("boom")))

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the AppError")
	}
	if appErr.Type != ErrorTypeInternal {
		t.Errorf("expected internal error, got %v", appErr.Type)
	}
	if !IsType(wrapped, ErrorTypeInternal) {
		t.Error("expected IsType to match internal")
	}
	if IsType(errors.New("plain"), ErrorTypeInternal) {
		t.Error("plain errors carry no type")
	}
}
