package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/socialchef/clipchef/internal/pipeline"
)

// errExtractionFailed makes the process exit non-zero after the failure document
// has already been printed.
var errExtractionFailed = errors.New("extraction failed")

type extractOptions struct {
	paste   string
	model   string
	debug   bool
	jsonOut bool
}

func newExtractCmd(state *cliState) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract [URL]",
		Short: "Extract a recipe from a video URL",
		Example: `  # Extract from a YouTube short
  clipchef extract "https://www.youtube.com/shorts/abc123def45"

  # Add the description you copied from the app
  clipchef extract "https://www.tiktok.com/@chef/video/123" --paste description.txt
  pbpaste | clipchef extract "https://youtu.be/abc123def45" --paste -

  # Full response document with the step trace
  clipchef extract "https://youtu.be/abc123def45" --json --debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pasted, err := readPasted(cmd.InOrStdin(), opts.paste)
			if err != nil {
				return err
			}

			ext := newExtractor(state.cfg)
			success, err := ext.Extract(cmd.Context(), pipeline.Request{
				URL:        args[0],
				PastedText: pasted,
				ModelID:    opts.model,
				Debug:      opts.debug,
			})
			resp, _ := pipeline.BuildResponse(success, err, opts.debug)

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				renderResponse(out, resp, opts.debug)
			}

			if !resp.OK {
				return errExtractionFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.paste, "paste", "", "file with extra recipe text, or - for stdin")
	cmd.Flags().StringVar(&opts.model, "model", "", "speech-to-text model used if audio is transcribed")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "include step payloads in the trace")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the response document as JSON")

	return cmd
}

func readPasted(stdin io.Reader, source string) (string, error) {
	switch source {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read pasted text from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("failed to read pasted text: %w", err)
		}
		return string(data), nil
	}
}

func renderResponse(w io.Writer, resp pipeline.Response, showSteps bool) {
	if !resp.OK {
		fmt.Fprintf(w, "Error (%s at %s): %s\n", resp.ErrorCode, resp.Step, resp.Error)
		if resp.Recovery != "" {
			fmt.Fprintf(w, "Try: %s\n", resp.Recovery)
		}
		if showSteps {
			renderSteps(w, resp)
		}
		return
	}

	r := resp.Recipe
	fmt.Fprintln(w, r.Title)
	fmt.Fprintln(w, strings.Repeat("=", len([]rune(r.Title))))

	var meta []string
	if r.Servings != "" {
		meta = append(meta, "Serves "+r.Servings)
	}
	if r.Time != "" {
		meta = append(meta, r.Time)
	}
	if len(meta) > 0 {
		fmt.Fprintln(w, strings.Join(meta, " | "))
	}

	if len(r.Ingredients) > 0 {
		fmt.Fprintln(w, "\nIngredients")
		for _, ing := range r.Ingredients {
			fmt.Fprintf(w, "  - %s\n", ing)
		}
	}
	if len(r.Steps) > 0 {
		fmt.Fprintln(w, "\nSteps")
		for _, step := range r.Steps {
			fmt.Fprintf(w, "  %s\n", step)
		}
	}
	if len(r.Equipment) > 0 {
		fmt.Fprintf(w, "\nEquipment: %s\n", strings.Join(r.Equipment, ", "))
	}
	for _, note := range r.Notes {
		fmt.Fprintf(w, "\nNote: %s\n", note)
	}

	fmt.Fprintf(w, "\nSource: %s\n", resp.SourceUsed)
	if resp.WhisperError != "" {
		fmt.Fprintf(w, "Transcription: %s\n", resp.WhisperError)
	}
	if showSteps {
		renderSteps(w, resp)
	}
}

func renderSteps(w io.Writer, resp pipeline.Response) {
	fmt.Fprintln(w, "\nTrace")
	for _, ev := range resp.Steps {
		fmt.Fprintf(w, "  %-24s %s\n", ev.Step, ev.Message)
	}
}
