package pipeline

import (
	"errors"
	"net/http"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/steptrace"
)

// Response is the caller-facing document for one extraction.
type Response struct {
	OK           bool              `json:"ok"`
	Recipe       *recipe.Recipe    `json:"recipe,omitempty"`
	SourceUsed   string            `json:"sourceUsed,omitempty"`
	UsedWhisper  *bool             `json:"usedWhisper,omitempty"`
	WhisperError string            `json:"whisperError,omitempty"`
	Error        string            `json:"error,omitempty"`
	ErrorCode    string            `json:"errorCode,omitempty"`
	Recovery     string            `json:"recoverySuggestion,omitempty"`
	Step         string            `json:"step,omitempty"`
	Steps        []steptrace.Event `json:"steps"`
}

// BuildResponse shapes the result of Extract and returns it with its HTTP status.
// Unless debug is set, trace payloads are dropped.
func BuildResponse(s *Success, err error, debug bool) (Response, int) {
	shape := func(events []steptrace.Event) []steptrace.Event {
		if events == nil {
			events = []steptrace.Event{}
		}
		if debug {
			return events
		}
		return steptrace.Strip(events)
	}

	if err == nil && s != nil {
		usedWhisper := s.UsedWhisper
		rec := s.Recipe
		return Response{
			OK:           true,
			Recipe:       &rec,
			SourceUsed:   s.SourceUsed,
			UsedWhisper:  &usedWhisper,
			WhisperError: s.WhisperError,
			Steps:        shape(s.Trace),
		}, http.StatusOK
	}

	var f *Failure
	if !errors.As(err, &f) {
		f = &Failure{State: StateFailed, Err: apperrors.NewInternalError(err)}
	}
	appErr := f.Err
	if appErr == nil {
		appErr = apperrors.NewInternalError(err)
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Response{
		OK:        false,
		Error:     appErr.Message,
		ErrorCode: appErr.Code(),
		Recovery:  appErr.RecoverySuggestion(),
		Step:      string(f.State),
		Steps:     shape(f.Trace),
	}, status
}
