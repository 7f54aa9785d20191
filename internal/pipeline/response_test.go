package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/steptrace"
)

func sampleTrace() []steptrace.Event {
	return []steptrace.Event{
		{Timestamp: 1, Step: "pipeline.start", Data: map[string]any{"url": "https://youtu.be/x"}},
		{Timestamp: 2, Step: "resolve.done", Message: "ok", Data: map[string]any{"origin": "captions"}},
	}
}

func TestBuildResponse_Success(t *testing.T) {
	s := &Success{
		Recipe:      recipe.Recipe{Title: "Soup", Ingredients: []string{"1 leek"}, Steps: []string{"1. Boil water."}},
		SourceUsed:  "captions",
		UsedWhisper: false,
		Trace:       sampleTrace(),
	}

	resp, status := BuildResponse(s, nil, false)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.OK)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Soup", resp.Recipe.Title)
	require.NotNil(t, resp.UsedWhisper)
	assert.False(t, *resp.UsedWhisper)
	require.Len(t, resp.Steps, 2)
	for _, ev := range resp.Steps {
		assert.Nil(t, ev.Data)
	}
	assert.Equal(t, "ok", resp.Steps[1].Message)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"usedWhisper":false`)
	assert.NotContains(t, string(body), `"error"`)
}

func TestBuildResponse_DebugKeepsPayloads(t *testing.T) {
	resp, _ := BuildResponse(&Success{Trace: sampleTrace()}, nil, true)

	assert.Equal(t, "captions", resp.Steps[1].Data["origin"])
}

func TestBuildResponse_Failure(t *testing.T) {
	f := &Failure{
		State: StateCombining,
		Err:   apperrors.NewInsufficientTextError(12, 200),
		Trace: sampleTrace(),
	}

	resp, status := BuildResponse(nil, f, false)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, resp.OK)
	assert.Nil(t, resp.Recipe)
	assert.Nil(t, resp.UsedWhisper)
	assert.Equal(t, "insufficient text", resp.Error)
	assert.Equal(t, "INSUFFICIENT_TEXT", resp.ErrorCode)
	assert.Equal(t, "combining", resp.Step)
	assert.Len(t, resp.Steps, 2)
	assert.Nil(t, resp.Steps[0].Data)
}

func TestBuildResponse_UnknownError(t *testing.T) {
	resp, status := BuildResponse(nil, errors.New("db password wrong"), true)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "unexpected error while extracting recipe", resp.Error)
	assert.Equal(t, "failed", resp.Step)
	assert.NotNil(t, resp.Steps)
	assert.Empty(t, resp.Steps)
}
