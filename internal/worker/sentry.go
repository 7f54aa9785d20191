package worker

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	clipsentry "github.com/socialchef/clipchef/internal/sentry"
)

// SentryMiddleware gives each task its own hub tagged with the job, reports
// task errors, and turns panics into task errors.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTags(map[string]string{
			"task_type": t.Type(),
			"task_id":   taskID,
			"queue":     queueName,
		})
		for _, kv := range payloadAttributes(t) {
			hub.Scope().SetTag(string(kv.Key), kv.Value.Emit())
		}
		ctx = sentry.SetHubOnContext(ctx, hub)

		defer func() {
			if rec := recover(); rec != nil {
				hub.RecoverWithContext(ctx, rec)
				err = fmt.Errorf("task %s panicked: %v", taskID, rec)
			}
		}()

		err = h.ProcessTask(ctx, t)
		clipsentry.CaptureError(ctx, err)
		return err
	})
}
