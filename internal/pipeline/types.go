package pipeline

import (
	"fmt"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/services/resolver"
	"github.com/socialchef/clipchef/internal/steptrace"
)

// State is a stage of one extraction run.
type State string

const (
	StateStart        State = "start"
	StateResolving    State = "resolving"
	StateTranscribing State = "transcribing"
	StateCombining    State = "combining"
	StateExtracting   State = "extracting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// SourceUsed values beyond the resolver origins.
const (
	SourceWhisper = "whisper"
	SourcePasted  = "pasted"
)

// Request is one extraction request.
type Request struct {
	URL        string `json:"url"`
	PastedText string `json:"pastedText,omitempty"`
	ModelID    string `json:"modelId,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

// Success is the outcome of a run that reached StateDone.
type Success struct {
	Recipe      recipe.Recipe
	SourceUsed  string
	UsedWhisper bool
	// WhisperError is set when the transcription fallback ran and failed.
	WhisperError string
	Source       resolver.SourceText
	Trace        []steptrace.Event
}

// Failure is the outcome of a run that reached StateFailed.
// State is where the run was when it failed.
type Failure struct {
	State State
	Err   *apperrors.AppError
	Trace []steptrace.Event
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction failed while %s: %v", f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
