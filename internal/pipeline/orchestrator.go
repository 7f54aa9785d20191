// Package pipeline sequences resolution, the transcription fallback, corpus
// building and recipe extraction for one request.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/logger"
	"github.com/socialchef/clipchef/internal/metrics"
	"github.com/socialchef/clipchef/internal/services/corpus"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/services/resolver"
	"github.com/socialchef/clipchef/internal/services/transcription"
	"github.com/socialchef/clipchef/internal/steptrace"
	"github.com/socialchef/clipchef/internal/telemetry"
	"github.com/socialchef/clipchef/internal/validation"
)

// Resolver finds the native text of a video.
type Resolver interface {
	Resolve(ctx context.Context, url string, trace *steptrace.Trace) (resolver.SourceText, error)
}

// Transcriber produces a transcript from a video's audio.
type Transcriber interface {
	Transcribe(ctx context.Context, url, modelID string, trace *steptrace.Trace) (transcription.Result, error)
}

// Extractor turns a corpus into a recipe.
type Extractor interface {
	Extract(corpus string, hints recipe.Hints) recipe.Recipe
}

// Config holds the thresholds of the two text gates.
type Config struct {
	// TriggerMinChars: native text shorter than this triggers the transcription fallback.
	TriggerMinChars int
	// AcceptMinChars: a corpus shorter than this fails with insufficient text.
	AcceptMinChars int
}

// Orchestrator runs extractions. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	cfg         Config
	resolver    Resolver
	transcriber Transcriber
	extractor   Extractor
	traceLogger *slog.Logger
	tracer      trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTraceLogger mirrors every step event of every run to l at debug level.
func WithTraceLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.traceLogger = l
	}
}

// New creates an Orchestrator. transcriber may be nil, in which case the fallback
// is recorded as unavailable.
func New(cfg Config, r Resolver, t Transcriber, e Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:         cfg,
		resolver:    r,
		transcriber: t,
		extractor:   e,
		tracer:      telemetry.Tracer("clipchef/pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the mutable state of one Extract call.
type run struct {
	state State
	trace *steptrace.Trace
}

// Extract runs the pipeline for req. On failure the error is always a *Failure.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (success *Success, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "pipeline.extract", trace.WithAttributes(
		attribute.String("video.url", req.URL),
		attribute.Bool("request.has_pasted_text", strings.TrimSpace(req.PastedText) != ""),
	))
	defer span.End()

	var traceOpts []steptrace.Option
	if o.traceLogger != nil {
		traceOpts = append(traceOpts, steptrace.WithLogger(o.traceLogger))
	}
	r := &run{state: StateStart, trace: steptrace.New(traceOpts...)}

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic during extraction", "state", r.state, "panic", rec, logger.WithTraceContext(ctx))
			success, err = nil, o.fail(ctx, r, apperrors.NewInternalError(fmt.Errorf("panic: %v", rec)))
		}

		status := "ok"
		if err != nil {
			status = "error"
			if apperrors.IsType(err, apperrors.ErrorTypeInsufficientText) {
				status = "insufficient_text"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("pipeline.steps", r.trace.Len()))
		metrics.RecordExtraction(ctx, status, time.Since(start).Seconds())
	}()

	return o.extract(ctx, r, req)
}

func (o *Orchestrator) extract(ctx context.Context, r *run, req Request) (*Success, error) {
	r.trace.Add("pipeline.start", "", map[string]any{
		"url":           req.URL,
		"hasPastedText": strings.TrimSpace(req.PastedText) != "",
		"modelId":       req.ModelID,
	})
	if err := validation.ValidateExtractRequest(req.URL, req.PastedText, req.ModelID); err != nil {
		appErr, _ := apperrors.As(err)
		return nil, o.fail(ctx, r, appErr)
	}

	// resolving
	r.state = StateResolving
	src, err := o.resolve(ctx, r, req.URL)
	if err != nil {
		return nil, o.fail(ctx, r, apperrors.NewInternalError(err))
	}

	// transcribing, when native text is short
	var usedWhisper bool
	var whisperErr string
	if n := corpus.Length(src.Text); n < o.cfg.TriggerMinChars {
		r.state = StateTranscribing
		r.trace.Add("transcribe.trigger", "native text below trigger threshold", map[string]any{
			"nativeLength": n,
			"threshold":    o.cfg.TriggerMinChars,
		})
		text, werr := o.transcribe(ctx, r, req)
		if werr != nil {
			if ctx.Err() != nil {
				return nil, o.fail(ctx, r, apperrors.NewInternalError(ctx.Err()))
			}
			whisperErr = werr.Error()
			r.trace.Add("transcribe.skipped", whisperErr, map[string]any{"empty": true})
		} else if text == "" {
			r.trace.Add("transcribe.skipped", "transcript is empty", map[string]any{"empty": true})
		} else {
			src.Text = corpus.Splice(src.Text, text)
			usedWhisper = true
		}
	} else {
		r.trace.Add("transcribe.skip", "native text meets trigger threshold", map[string]any{
			"nativeLength": n,
			"threshold":    o.cfg.TriggerMinChars,
		})
	}

	// combining
	r.state = StateCombining
	doc := corpus.Combine(src, req.PastedText)
	n := corpus.Length(doc)
	signal := validation.QuickSignal(doc)
	r.trace.Add("combine.done", "", map[string]any{
		"length":       n,
		"threshold":    o.cfg.AcceptMinChars,
		"recipeSignal": signal.Confidence,
	})
	if n < o.cfg.AcceptMinChars {
		return nil, o.fail(ctx, r, apperrors.NewInsufficientTextError(n, o.cfg.AcceptMinChars))
	}

	// extracting
	r.state = StateExtracting
	_, span := o.tracer.Start(ctx, "pipeline.extract_recipe")
	rec := o.extractor.Extract(doc, recipe.Hints{SourceURL: req.URL, SourceTitle: src.Title})
	span.End()
	r.trace.Add("extract.done", "", map[string]any{
		"title":       rec.Title,
		"ingredients": len(rec.Ingredients),
		"steps":       len(rec.Steps),
	})

	r.state = StateDone
	sourceUsed := sourceUsed(src, usedWhisper)
	r.trace.Add("pipeline.done", "", map[string]any{"sourceUsed": sourceUsed, "usedWhisper": usedWhisper})

	return &Success{
		Recipe:       rec,
		SourceUsed:   sourceUsed,
		UsedWhisper:  usedWhisper,
		WhisperError: whisperErr,
		Source:       src,
		Trace:        r.trace.Events(),
	}, nil
}

func (o *Orchestrator) resolve(ctx context.Context, r *run, url string) (resolver.SourceText, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.resolve")
	defer span.End()

	r.trace.Step("resolve.start", "")
	src, err := o.resolver.Resolve(ctx, url, r.trace)
	if err != nil {
		span.RecordError(err)
		return src, err
	}
	span.SetAttributes(
		attribute.String("video.platform", string(src.Platform)),
		attribute.String("source.origin", string(src.Origin)),
		attribute.Int("source.length", corpus.Length(src.Text)),
	)
	return src, nil
}

// transcribe returns the trimmed transcript. Errors are for the caller to record, not to fail on.
func (o *Orchestrator) transcribe(ctx context.Context, r *run, req Request) (string, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.transcribe")
	defer span.End()

	if o.transcriber == nil {
		return "", apperrors.NewTranscriptionError("transcription is not available", "TRANSCRIPTION_UNAVAILABLE", nil)
	}
	res, err := o.transcriber.Transcribe(ctx, req.URL, req.ModelID, r.trace)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "transcription fallback failed", "error", err, logger.WithTraceContext(ctx))
		return "", err
	}
	span.SetAttributes(attribute.String("transcript.language", res.Language))
	return strings.TrimSpace(res.Text), nil
}

// fail records the failure in the trace and builds the *Failure.
func (o *Orchestrator) fail(ctx context.Context, r *run, appErr *apperrors.AppError) error {
	if appErr == nil {
		appErr = apperrors.NewInternalError(nil)
	}
	failedAt := r.state
	data := map[string]any{
		"state":     string(failedAt),
		"errorCode": appErr.Code(),
	}
	if appErr.Err != nil {
		data["cause"] = appErr.Err.Error()
	}
	r.trace.Add("pipeline.fail", appErr.Message, data)
	r.state = StateFailed

	if appErr.IsOperational {
		slog.InfoContext(ctx, "extraction failed", "state", failedAt, "error", appErr, logger.WithTraceContext(ctx))
	} else {
		slog.ErrorContext(ctx, "extraction failed unexpectedly", "state", failedAt, "error", appErr, logger.WithTraceContext(ctx))
	}
	return &Failure{State: failedAt, Err: appErr, Trace: r.trace.Events()}
}

// sourceUsed names what carried the corpus: the transcript, the resolver origin, or pasted text.
func sourceUsed(src resolver.SourceText, usedWhisper bool) string {
	switch {
	case usedWhisper:
		return SourceWhisper
	case src.Origin != "" && src.Origin != resolver.OriginNone:
		return string(src.Origin)
	default:
		return SourcePasted
	}
}
