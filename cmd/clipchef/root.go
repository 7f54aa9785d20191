package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/socialchef/clipchef/internal/app"
	"github.com/socialchef/clipchef/internal/config"
	"github.com/socialchef/clipchef/internal/logger"
	"github.com/socialchef/clipchef/internal/pipeline"
)

// extractor is the part of the orchestrator the CLI drives.
type extractor interface {
	Extract(ctx context.Context, req pipeline.Request) (*pipeline.Success, error)
}

// Replaced in tests.
var (
	loadConfig   = config.Load
	newExtractor = func(cfg *config.Config) extractor { return app.NewOrchestrator(cfg) }
	setup        = app.Setup
)

// cliState is filled in by the root command before a subcommand runs.
type cliState struct {
	cfg      *config.Config
	shutdown func()
	verbose  bool
}

// close flushes telemetry and Sentry once.
func (s *cliState) close() {
	if s.shutdown != nil {
		s.shutdown()
		s.shutdown = nil
	}
}

// execute runs root and flushes afterwards. Cobra skips post-run hooks when a
// command fails, so the flush cannot live in the command tree.
func execute(ctx context.Context, state *cliState, root *cobra.Command) error {
	defer state.close()
	return root.ExecuteContext(ctx)
}

func newRootCmd(state *cliState) *cobra.Command {

	root := &cobra.Command{
		Use:   "clipchef",
		Short: "Turn cooking videos into structured recipes",
		Long: `clipchef reads the captions, metadata or audio of a YouTube or TikTok
cooking video and extracts a recipe: title, ingredients, steps and notes.

Audio transcription needs yt-dlp and a speech-to-text engine on the PATH
(see TRANSCRIBER_BIN).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state.cfg = cfg

			level := slog.LevelWarn
			if state.verbose {
				level = slog.LevelDebug
			}
			state.shutdown = setup(cmd.Context(), cfg, "cli",
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithLevel(level),
			)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "log pipeline activity to stderr")
	root.AddCommand(newExtractCmd(state))

	return root
}
