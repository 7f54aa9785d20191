package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNew(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		l := New("production")
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})

	t.Run("development", func(t *testing.T) {
		l := New("development")
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})
}

type mockSpan struct {
	trace.Span
	sc trace.SpanContext
}

func (s mockSpan) SpanContext() trace.SpanContext {
	return s.sc
}

func TestWithTraceContext(t *testing.T) {
	t.Run("valid span", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID,
			SpanID:  spanID,
		})
		ctx := trace.ContextWithSpan(context.Background(), mockSpan{sc: sc})

		attr := WithTraceContext(ctx)
		if attr.Key != "trace" {
			t.Errorf("expected key 'trace', got %s", attr.Key)
		}

		group := attr.Value.Group()
		if len(group) != 2 {
			t.Errorf("expected 2 attributes in group, got %d", len(group))
		}

		foundTraceID := false
		foundSpanID := false
		for _, a := range group {
			if a.Key == "trace_id" && a.Value.String() == "0102030405060708090a0b0c0d0e0f10" {
				foundTraceID = true
			}
			if a.Key == "span_id" && a.Value.String() == "0102030405060708" {
				foundSpanID = true
			}
		}

		if !foundTraceID {
			t.Error("trace_id not found or incorrect")
		}
		if !foundSpanID {
			t.Error("span_id not found or incorrect")
		}
	})

	t.Run("invalid span", func(t *testing.T) {
		ctx := context.Background()
		attr := WithTraceContext(ctx)
		if !attr.Equal(slog.Attr{}) {
			t.Errorf("expected empty attribute for invalid span, got %+v", attr)
		}
	})
}

func TestNew_LevelAndFormat(t *testing.T) {
	t.Run("production drops debug and writes JSON", func(t *testing.T) {
		var buf bytes.Buffer
		l := New("production", WithOutput(&buf))
		l.Debug("hidden")
		l.Info("shown", "k", "v")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("expected debug record to be dropped, got %q", out)
		}
		if !strings.Contains(out, `"msg":"shown"`) {
			t.Errorf("expected JSON record, got %q", out)
		}
	})

	t.Run("level override", func(t *testing.T) {
		var buf bytes.Buffer
		l := New("development", WithOutput(&buf), WithLevel(slog.LevelWarn))
		l.Info("quiet")
		l.Warn("loud")

		out := buf.String()
		if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestToOTelValue_Group(t *testing.T) {
	v := toOTelValue(slog.GroupValue(slog.String("a", "b"), slog.Int("n", 2)))
	m := v.AsMap()
	if len(m) != 2 || m[0].Key != "a" || m[1].Value.AsInt64() != 2 {
		t.Errorf("unexpected group mapping %+v", m)
	}
}
