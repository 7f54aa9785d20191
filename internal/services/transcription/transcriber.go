// Package transcription downloads a video's audio track and runs an external
// speech-to-text engine over it.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/metrics"
	"github.com/socialchef/clipchef/internal/steptrace"
)

const (
	defaultModel    = "base"
	unknownLanguage = "unknown"
	audioFileName   = "audio.wav"
)

// Config holds the external tool locations and limits. Nothing here is read from the environment.
type Config struct {
	// DownloaderPath is the yt-dlp compatible audio downloader.
	DownloaderPath string
	// CompatArgs are passed to the downloader to pick a player client that still serves audio.
	CompatArgs []string
	// MaxAudioSeconds caps the downloaded window. Zero downloads the whole video.
	MaxAudioSeconds int
	// EnginePath is the speech-to-text executable.
	EnginePath string
	// EngineArgs are placed before the WAV path, e.g. a script path for an interpreter.
	EngineArgs   []string
	DefaultModel string
	// TempDir is the parent of per-call working directories. Empty means os.TempDir.
	TempDir string
}

// Result is what the engine recognised.
type Result struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

type engineOutput struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// Transcriber runs the download and transcription subprocesses for one URL at a time.
// It keeps no state between calls.
type Transcriber struct {
	cfg       Config
	runner    Runner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	stat      func(name string) (os.FileInfo, error)
}

// New creates a Transcriber. A nil runner uses ExecRunner.
func New(cfg Config, runner Runner) *Transcriber {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.DownloaderPath == "" {
		cfg.DownloaderPath = "yt-dlp"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}
	return &Transcriber{
		cfg:       cfg,
		runner:    runner,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		stat:      os.Stat,
	}
}

// Transcribe downloads the audio of videoURL into a private temporary directory and
// transcribes it with modelID, or the configured default when modelID is empty.
// The directory is removed before Transcribe returns, whatever the outcome.
// Failures are *errors.AppError of type TRANSCRIPTION_ERROR.
func (t *Transcriber) Transcribe(ctx context.Context, videoURL, modelID string, trace *steptrace.Trace) (Result, error) {
	start := time.Now()
	model := strings.TrimSpace(modelID)
	if model == "" {
		model = t.cfg.DefaultModel
	}
	trace.Add("transcribe.start", "", map[string]any{"model": model, "maxAudioSeconds": t.cfg.MaxAudioSeconds})

	res, outcome, err := t.transcribe(ctx, videoURL, model, trace)
	metrics.RecordTranscription(ctx, outcome, time.Since(start).Seconds())
	if err != nil {
		trace.Add("transcribe.fail", err.Error(), map[string]any{"outcome": outcome})
		return Result{}, err
	}
	trace.Add("transcribe.done", "", map[string]any{
		"language":   res.Language,
		"textLength": len([]rune(res.Text)),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return res, nil
}

func (t *Transcriber) transcribe(ctx context.Context, videoURL, model string, trace *steptrace.Trace) (Result, string, error) {
	if t.cfg.EnginePath == "" {
		return Result{}, "not_configured", apperrors.NewTranscriptionError("transcription engine is not configured", "ENGINE_NOT_CONFIGURED", nil)
	}

	dir, err := t.mkdirTemp(t.cfg.TempDir, "clipchef-audio-*")
	if err != nil {
		return Result{}, "tempdir_failed", apperrors.NewTranscriptionError("failed to create temporary workspace", "TEMPDIR_FAILED", err)
	}
	defer func() {
		if rmErr := t.removeAll(dir); rmErr != nil {
			slog.WarnContext(ctx, "failed to remove transcription workspace", "dir", dir, "error", rmErr)
		}
	}()

	dlArgs := t.downloadArgs(dir, videoURL)
	if _, err := t.exec(ctx, trace, nil, t.cfg.DownloaderPath, dlArgs); err != nil {
		return Result{}, "download_failed", apperrors.NewTranscriptionError("audio download failed", "DOWNLOAD_FAILED", err)
	}

	wavPath := filepath.Join(dir, audioFileName)
	if _, err := t.stat(wavPath); err != nil {
		return Result{}, "download_failed", apperrors.NewTranscriptionError("audio download produced no wav file", "DOWNLOAD_NO_AUDIO", err)
	}

	engineArgs := append(append([]string{}, t.cfg.EngineArgs...), wavPath, model)
	var out engineOutput
	if _, err := t.exec(ctx, trace, &out, t.cfg.EnginePath, engineArgs); err != nil {
		var outErr *OutputError
		if errors.As(err, &outErr) {
			return Result{}, "parse_failed", apperrors.NewTranscriptionError("transcription engine output is not valid JSON", "ENGINE_OUTPUT_INVALID", err)
		}
		return Result{}, "engine_failed", apperrors.NewTranscriptionError("transcription engine failed", "ENGINE_FAILED", err)
	}

	res := Result{Language: strings.TrimSpace(out.Language), Text: strings.TrimSpace(out.Text)}
	if res.Language == "" {
		res.Language = unknownLanguage
	}
	return res, "ok", nil
}

// exec runs one command, decoding stdout into out when it is non-nil, and
// records exec.start and exec.done or exec.fail.
func (t *Transcriber) exec(ctx context.Context, trace *steptrace.Trace, out any, name string, args []string) (CommandResult, error) {
	start := time.Now()
	trace.Add("exec.start", filepath.Base(name), map[string]any{"command": name, "args": args})

	var (
		res CommandResult
		err error
	)
	if out != nil {
		res, err = t.runner.RunStructured(ctx, out, name, args...)
	} else {
		res, err = t.runner.Run(ctx, name, args...)
	}

	data := map[string]any{
		"command":    name,
		"exitCode":   res.ExitCode,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		data["stderr"] = Excerpt(strings.TrimSpace(res.Stderr), excerptLimit)
		trace.Add("exec.fail", err.Error(), data)
		slog.WarnContext(ctx, "subprocess failed", "command", name, "exit_code", res.ExitCode, "error", err)
		return res, err
	}
	trace.Add("exec.done", filepath.Base(name), data)
	return res, nil
}

func (t *Transcriber) downloadArgs(dir, videoURL string) []string {
	args := []string{"--no-playlist"}
	args = append(args, t.cfg.CompatArgs...)
	if t.cfg.MaxAudioSeconds > 0 {
		args = append(args, "--download-sections", "*00:00:00-"+clock(t.cfg.MaxAudioSeconds))
	}
	args = append(args,
		"-x", "--audio-format", "wav",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		videoURL,
	)
	return args
}

// clock formats seconds as HH:MM:SS.
func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}
