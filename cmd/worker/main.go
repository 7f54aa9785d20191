package main

import (
	"context"
	"log"
	"log/slog"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/clipchef/internal/app"
	"github.com/socialchef/clipchef/internal/config"
	"github.com/socialchef/clipchef/internal/sentry"
	"github.com/socialchef/clipchef/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.AsyncJobsEnabled() {
		log.Fatal("REDIS_URL is required for the worker")
	}

	shutdown := app.Setup(ctx, cfg, "worker")
	defer shutdown()

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	processor := worker.NewExtractProcessor(
		app.NewOrchestrator(cfg),
		worker.NewNotifier(cfg.Server.JobWebhookURL, nil),
		workerMetrics,
		worker.WithStatusBaseURL(cfg.Server.PublicBaseURL),
	)

	// Asynq server
	srv, err := worker.NewServer(cfg.RedisURL, cfg.Server.WorkerConcurrency)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	slog.Info("Starting worker", "concurrency", cfg.Server.WorkerConcurrency)

	// Run blocks until SIGINT or SIGTERM, then drains in-flight tasks.
	if err := srv.Run(worker.NewServeMux(processor)); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}
