package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("clipchef/worker")

// WorkerMetrics counts extraction jobs by outcome and tracks how many run at once.
// A nil *WorkerMetrics records nothing.
type WorkerMetrics struct {
	jobs     metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	jobs, err := meter.Int64Counter(
		"clipchef.jobs.total",
		metric.WithDescription("Extraction jobs processed, by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	// Transcription dominates the tail, so buckets stretch to the 20 minute task timeout.
	duration, err := meter.Float64Histogram(
		"clipchef.job.duration",
		metric.WithDescription("Wall time of extraction jobs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 2, 5, 15, 30, 60, 180, 600, 1200),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		"clipchef.jobs.in_flight",
		metric.WithDescription("Extraction jobs currently running"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{jobs: jobs, duration: duration, inFlight: inFlight}, nil
}

// Begin marks a job as running and returns the func that ends it with an outcome.
func (m *WorkerMetrics) Begin(ctx context.Context, jobType string) func(status string) {
	start := time.Now()
	if m == nil {
		return func(string) {}
	}

	typ := metric.WithAttributes(attribute.String("job.type", jobType))
	m.inFlight.Add(ctx, 1, typ)

	return func(status string) {
		m.inFlight.Add(ctx, -1, typ)
		m.RecordJob(ctx, jobType, status, time.Since(start).Seconds())
	}
}

func (m *WorkerMetrics) RecordJob(ctx context.Context, jobType, status string, duration float64) {
	if m == nil {
		return
	}

	typ := attribute.String("job.type", jobType)
	m.jobs.Add(ctx, 1, metric.WithAttributes(typ, attribute.String("status", status)))
	m.duration.Record(ctx, duration, metric.WithAttributes(typ, attribute.String("status", status)))
}
