package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeTranscription    ErrorType = "TRANSCRIPTION_ERROR"
	ErrorTypeResolution       ErrorType = "RESOLUTION_ERROR"
	ErrorTypeInsufficientText ErrorType = "INSUFFICIENT_TEXT_ERROR"
	ErrorTypeRateLimit        ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeResolution, ErrorTypeTranscription:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewTranscriptionError creates a new transcription error (500).
// The orchestrator recovers from these; they only reach callers as an informational field.
func NewTranscriptionError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeTranscription,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Paste the recipe text from the video description instead.",
		Err:           err,
	}
}

// NewResolutionError creates an error for a failed caption or metadata fetch (502).
// These degrade to empty fields and are never surfaced as request failures.
func NewResolutionError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeResolution,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Verify the URL is accessible and try again later.",
		Err:           err,
	}
}

// NewInsufficientTextError creates an error for a corpus below the acceptance threshold (422)
func NewInsufficientTextError(got, want int) *AppError {
	return &AppError{
		Type:          ErrorTypeInsufficientText,
		Message:       "insufficient text",
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     "INSUFFICIENT_TEXT",
		IsOperational: true,
		Recovery:      fmt.Sprintf("Only %d of the required %d characters were found. Paste the recipe text and try again.", got, want),
	}
}

// NewInternalError creates an error for unexpected failures (500).
// Message is kept generic; the cause stays in Err for logs.
func NewInternalError(err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       "unexpected error while extracting recipe",
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "INTERNAL_ERROR",
		IsOperational: false,
		Err:           err,
	}
}
