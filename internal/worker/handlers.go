package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/socialchef/clipchef/internal/pipeline"
	clipsentry "github.com/socialchef/clipchef/internal/sentry"
)

// Extractor runs one extraction.
type Extractor interface {
	Extract(ctx context.Context, req pipeline.Request) (*pipeline.Success, error)
}

type ExtractProcessor struct {
	extractor     Extractor
	notifier      *Notifier
	metrics       *WorkerMetrics
	statusBaseURL string
	writeResult   func(t *asynq.Task, data []byte) error
}

type ProcessorOption func(*ExtractProcessor)

// WithStatusBaseURL makes job notices carry an absolute status link under base.
func WithStatusBaseURL(base string) ProcessorOption {
	return func(p *ExtractProcessor) { p.statusBaseURL = base }
}

func NewExtractProcessor(extractor Extractor, notifier *Notifier, metrics *WorkerMetrics, opts ...ProcessorOption) *ExtractProcessor {
	p := &ExtractProcessor{
		extractor:   extractor,
		notifier:    notifier,
		metrics:     metrics,
		writeResult: writeTaskResult,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// writeTaskResult stores data as the task result. Tasks built outside a server
// carry no result writer and are left alone.
func writeTaskResult(t *asynq.Task, data []byte) error {
	rw := t.ResultWriter()
	if rw == nil {
		return nil
	}
	_, err := rw.Write(data)
	return err
}

// HandleExtractRecipe runs the pipeline and stores the response document as the
// task result. An extraction that ends in a failure response still completes the
// task; only a broken payload or an unwritable result fails it.
func (p *ExtractProcessor) HandleExtractRecipe(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	done := p.metrics.Begin(ctx, t.Type())

	var payload ExtractRecipePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		done("invalid")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Processing extraction", "job_id", payload.JobID, "url", payload.URL)

	success, err := p.extractor.Extract(ctx, pipeline.Request{
		URL:        payload.URL,
		PastedText: payload.PastedText,
		ModelID:    payload.ModelID,
		Debug:      payload.Debug,
	})
	resp, _ := pipeline.BuildResponse(success, err, payload.Debug)

	status := "ok"
	if !resp.OK {
		status = "failed"
		var f *pipeline.Failure
		if !errors.As(err, &f) {
			status = "error"
			clipsentry.CaptureError(ctx, err)
		}
		slog.WarnContext(ctx, "Extraction failed", "job_id", payload.JobID, "step", resp.Step, "error_code", resp.ErrorCode)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		done("error")
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := p.writeResult(t, data); err != nil {
		done("error")
		return fmt.Errorf("failed to write result: %w", err)
	}

	done(status)
	slog.InfoContext(ctx, "Extraction finished", "job_id", payload.JobID, "ok", resp.OK, "duration_ms", time.Since(start).Milliseconds())

	notice := JobNotice{
		JobID:    payload.JobID,
		URL:      payload.URL,
		OK:       resp.OK,
		Step:     resp.Step,
		Error:    resp.Error,
		Finished: time.Now().Unix(),
	}
	if p.statusBaseURL != "" {
		notice.StatusURL = JobStatusURL(p.statusBaseURL, payload.JobID)
	}
	if err := p.notifier.Notify(ctx, notice); err != nil {
		slog.WarnContext(ctx, "Failed to notify webhook", "job_id", payload.JobID, "error", err)
	}

	return nil
}
