// Package steptrace records the ordered, timestamped steps of one extraction run.
//
// A Trace is owned by a single request. It is returned to callers verbatim for
// diagnostics, so it is kept as an explicit value rather than routed through
// the process logger.
package steptrace

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one entry in a Trace. Events are never mutated after Add.
type Event struct {
	Timestamp int64          `json:"timestamp"`
	Step      string         `json:"step"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Trace is an append-only log of Events in insertion order.
type Trace struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Trace.
type Option func(*Trace)

// WithLogger mirrors every appended event to l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trace) {
		t.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Trace) {
		t.now = now
	}
}

// New creates an empty Trace.
func New(opts ...Option) *Trace {
	t := &Trace{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add appends an event. It is safe to call on a nil Trace, which discards it.
func (t *Trace) Add(step, message string, data map[string]any) {
	if t == nil {
		return
	}

	t.mu.Lock()
	ev := Event{
		Timestamp: t.now().UnixMilli(),
		Step:      step,
		Message:   message,
		Data:      copyData(data),
	}
	t.events = append(t.events, ev)
	logger := t.logger
	t.mu.Unlock()

	if logger != nil {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "step",
			slog.String("step", step),
			slog.String("message", message),
			slog.Any("data", ev.Data),
		)
	}
}

// Step appends an event without payload.
func (t *Trace) Step(step, message string) {
	t.Add(step, message, nil)
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len reports the number of recorded events.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Strip drops payloads, keeping timestamp, step and message.
func Strip(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{Timestamp: ev.Timestamp, Step: ev.Step, Message: ev.Message}
	}
	return out
}

func copyData(data map[string]any) map[string]any {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
