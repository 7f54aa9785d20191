package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/socialchef/clipchef/internal/errors"
)

// Init configures the global Sentry client. An empty DSN leaves Sentry disabled.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		// Tracing goes through OpenTelemetry.
		TracesSampleRate: 0.0,
		BeforeSend:       dropExpected,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// dropExpected discards events for cancelled requests and for failures the
// caller caused, such as a bad URL or a video with no usable text.
func dropExpected(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.OriginalException == nil {
		return event
	}
	if Expected(hint.OriginalException) {
		return nil
	}
	return event
}

// Expected reports whether err is part of normal operation and not worth an alert.
func Expected(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr.IsOperational && appErr.StatusCode < 500
	}
	return false
}

// CaptureError reports err on the hub bound to ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	if err == nil || Expected(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// Flush waits up to timeout for queued events.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic in progress. Use it with defer.
func Recover() {
	sentry.Recover()
}
