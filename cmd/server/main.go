package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/socialchef/clipchef/internal/api"
	"github.com/socialchef/clipchef/internal/app"
	"github.com/socialchef/clipchef/internal/config"
	"github.com/socialchef/clipchef/internal/sentry"
	"github.com/socialchef/clipchef/internal/worker"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown := app.Setup(ctx, cfg, "server")
	defer shutdown()

	orchestrator := app.NewOrchestrator(cfg)

	// Asynq client and inspector for extraction jobs
	var apiServer *api.Server
	if cfg.AsyncJobsEnabled() {
		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue client: %v", err)
		}
		defer asynqClient.Close()

		inspector, err := worker.NewInspector(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue inspector: %v", err)
		}
		defer inspector.Close()

		apiServer = api.NewServer(cfg, orchestrator, asynqClient, inspector)
	} else {
		slog.Info("REDIS_URL not set, job routes disabled")
		apiServer = api.NewServer(cfg, orchestrator, nil, nil)
	}

	limiter := api.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	defer limiter.Stop()

	// Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RealIP)
	r.Use(sentry.HTTPMiddleware)
	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	}))

	r.Use(limiter.Middleware)

	apiServer.Mount(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "port", cfg.Port, "async_jobs", cfg.AsyncJobsEnabled())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
