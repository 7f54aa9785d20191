package worker

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/clipchef/internal/services/resolver"
	"github.com/socialchef/clipchef/internal/telemetry"
)

// OTelMiddleware opens a consumer span per task. Extraction payloads also tag
// the span with the source URL and platform so slow jobs can be grouped.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	tracer := telemetry.Tracer("clipchef/worker")

	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)

		attrs := []attribute.KeyValue{
			attribute.String("messaging.system", "asynq"),
			attribute.String("messaging.message.id", taskID),
			attribute.String("messaging.destination.name", queueName),
			attribute.String("job.type", t.Type()),
		}
		attrs = append(attrs, payloadAttributes(t)...)

		ctx, span := tracer.Start(ctx, "process "+t.Type(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if err := h.ProcessTask(ctx, t); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	})
}

func payloadAttributes(t *asynq.Task) []attribute.KeyValue {
	if t.Type() != TypeExtractRecipe {
		return nil
	}
	var p ExtractRecipePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return nil
	}
	attrs := []attribute.KeyValue{
		attribute.String("extract.job_id", p.JobID),
		attribute.Bool("extract.pasted", p.PastedText != ""),
		attribute.Bool("extract.debug", p.Debug),
	}
	if p.URL != "" {
		attrs = append(attrs,
			attribute.String("extract.url", p.URL),
			attribute.String("extract.platform", string(resolver.DetectPlatform(p.URL))),
		)
	}
	return attrs
}
