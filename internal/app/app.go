// Package app builds the extraction stack and the observability setup shared by
// the server, worker and CLI binaries.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/socialchef/clipchef/internal/config"
	"github.com/socialchef/clipchef/internal/httpclient"
	"github.com/socialchef/clipchef/internal/logger"
	"github.com/socialchef/clipchef/internal/metrics"
	"github.com/socialchef/clipchef/internal/pipeline"
	"github.com/socialchef/clipchef/internal/sentry"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/services/resolver"
	"github.com/socialchef/clipchef/internal/services/transcription"
	"github.com/socialchef/clipchef/internal/telemetry"
)

const sentryFlushTimeout = 2 * time.Second

// NewOrchestrator wires the resolver, transcriber and extractor described by cfg.
func NewOrchestrator(cfg *config.Config) *pipeline.Orchestrator {
	fetchTimeout := time.Duration(cfg.Extraction.FetchTimeoutSeconds) * time.Second
	client := httpclient.New(fetchTimeout)

	res := resolver.New(client)

	tr := transcription.New(transcription.Config{
		DownloaderPath:  cfg.Transcription.DownloaderPath,
		CompatArgs:      cfg.Transcription.CompatArgs,
		MaxAudioSeconds: cfg.Transcription.AudioCapSeconds(),
		EnginePath:      cfg.Transcription.EnginePath,
		EngineArgs:      cfg.Transcription.EngineArgs,
		DefaultModel:    cfg.Transcription.DefaultModel,
	}, nil)

	ext := recipe.NewExtractor(recipe.DefaultVocabulary())

	var opts []pipeline.Option
	if cfg.DebugLogs {
		opts = append(opts, pipeline.WithTraceLogger(slog.Default()))
	}

	return pipeline.New(pipeline.Config{
		TriggerMinChars: cfg.Extraction.TriggerMinChars,
		AcceptMinChars:  cfg.Extraction.AcceptMinChars,
	}, res, tr, ext, opts...)
}

// Setup installs the default logger and starts telemetry, Sentry and business
// metrics for the named component. Failures are logged and never fatal.
// The returned function flushes and shuts everything down.
func Setup(ctx context.Context, cfg *config.Config, component string, logOpts ...logger.Option) func() {
	if cfg.DebugLogs {
		logOpts = append(logOpts, logger.WithLevel(slog.LevelDebug))
	}
	slog.SetDefault(logger.New(cfg.Env, logOpts...))

	serviceName := cfg.ServiceName
	if component != "" {
		serviceName += "-" + component
	}

	var shutdowns []func()

	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			shutdowns = append(shutdowns, func() {
				if err := shutdown(context.Background()); err != nil {
					slog.Warn("Telemetry shutdown failed", "error", err)
				}
			})
		}
	}

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, serviceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		shutdowns = append(shutdowns, func() { sentry.Flush(sentryFlushTimeout) })
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	return func() {
		for i := len(shutdowns) - 1; i >= 0; i-- {
			shutdowns[i]()
		}
	}
}
