package worker

import (
	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server that consumes the extraction queue.
// Transcription is CPU heavy, so concurrency stays low.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 2
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{QueueExtract: 1},
		},
	), nil
}

// NewServeMux wires the task handlers behind the tracing and Sentry middleware.
func NewServeMux(p *ExtractProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(OTelMiddleware, SentryMiddleware)
	mux.HandleFunc(TypeExtractRecipe, p.HandleExtractRecipe)
	return mux
}
