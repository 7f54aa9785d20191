package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("clipchef/business")

	// Extraction metrics
	ExtractionsTotal   metric.Int64Counter
	ExtractionDuration metric.Float64Histogram

	// Speech-to-text fallback metrics
	TranscriptionFallbackTotal metric.Int64Counter
	TranscriptionDuration      metric.Float64Histogram

	// Outgoing fetch metrics
	ExternalFetchTotal metric.Int64Counter
)

func Init() error {
	var err error

	ExtractionsTotal, err = meter.Int64Counter(
		"recipe.extractions.total",
		metric.WithDescription("Total number of recipe extractions by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExtractionDuration, err = meter.Float64Histogram(
		"recipe.extraction.duration",
		metric.WithDescription("Duration of a full extraction run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return err
	}

	TranscriptionFallbackTotal, err = meter.Int64Counter(
		"transcription.fallback.total",
		metric.WithDescription("Total number of speech-to-text fallbacks by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	TranscriptionDuration, err = meter.Float64Histogram(
		"transcription.duration",
		metric.WithDescription("Duration of audio download plus transcription"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	ExternalFetchTotal, err = meter.Int64Counter(
		"external.fetch.total",
		metric.WithDescription("Total number of outgoing caption and metadata fetches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordExtraction counts one extraction run. No-op before Init.
func RecordExtraction(ctx context.Context, status string, seconds float64) {
	if ExtractionsTotal != nil {
		ExtractionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
	if ExtractionDuration != nil {
		ExtractionDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("status", status)))
	}
}

// RecordTranscription counts one speech-to-text fallback. No-op before Init.
func RecordTranscription(ctx context.Context, outcome string, seconds float64) {
	if TranscriptionFallbackTotal != nil {
		TranscriptionFallbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if TranscriptionDuration != nil {
		TranscriptionDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordFetch counts one outgoing fetch. No-op before Init.
func RecordFetch(ctx context.Context, provider, status string) {
	if ExternalFetchTotal != nil {
		ExternalFetchTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		))
	}
}
