package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandResult is the captured outcome of one subprocess.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes external commands. Tests substitute a fake so no process is spawned.
type Runner interface {
	// Run executes name with args and captures its output. A non-zero exit is an error.
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
	// RunStructured is Run followed by decoding stdout as one JSON value into out.
	RunStructured(ctx context.Context, out any, name string, args ...string) (CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, &CommandError{Command: name, ExitCode: result.ExitCode, Stderr: result.Stderr, Err: err}
	}
	return result, nil
}

// RunStructured implements Runner.
func (r ExecRunner) RunStructured(ctx context.Context, out any, name string, args ...string) (CommandResult, error) {
	result, err := r.Run(ctx, name, args...)
	if err != nil {
		return result, err
	}
	return result, DecodeStructured(result.Stdout, out)
}

// DecodeStructured parses stdout as a single JSON value. On failure the returned
// *OutputError carries a truncated excerpt of the raw output.
func DecodeStructured(stdout string, out any) error {
	trimmed := strings.TrimSpace(stdout)
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return &OutputError{Excerpt: Excerpt(trimmed, excerptLimit), Err: err}
	}
	return nil
}

const excerptLimit = 300

// CommandError describes a subprocess that could not start or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, Excerpt(detail, excerptLimit))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// OutputError is returned when a command's stdout is not the expected JSON.
type OutputError struct {
	Excerpt string
	Err     error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("unparseable output %q: %v", e.Excerpt, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Excerpt shortens s to at most n runes, marking the cut with "...".
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
