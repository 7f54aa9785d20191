package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/clipchef/internal/api"
	"github.com/socialchef/clipchef/internal/config"
	"github.com/socialchef/clipchef/internal/pipeline"
	"github.com/socialchef/clipchef/internal/services/recipe"
	"github.com/socialchef/clipchef/internal/services/resolver"
	"github.com/socialchef/clipchef/internal/services/transcription"
	"github.com/socialchef/clipchef/internal/steptrace"
	"github.com/socialchef/clipchef/internal/utils"
	"github.com/socialchef/clipchef/internal/worker"
)

const captionText = "Ingredients: 2 cups flour, 1 cup milk, 2 eggs. " +
	"Whisk the flour and milk together in a bowl until smooth. " +
	"Add the eggs and mix well. " +
	"Heat a skillet over medium heat and pour in the batter. " +
	"Cook for 2 minutes per side until golden. " +
	"Serve warm with maple syrup and fresh berries for breakfast."

type noCaptions struct{}

func (noCaptions) FetchCaptions(context.Context, string) ([]resolver.CaptionFragment, error) {
	return nil, resolver.ErrNoCaptions
}

// unusedTranscriber fails the test when the fallback runs.
type unusedTranscriber struct {
	t *testing.T
}

func (u unusedTranscriber) Transcribe(context.Context, string, string, *steptrace.Trace) (transcription.Result, error) {
	u.t.Error("transcription should not run when captions are long enough")
	return transcription.Result{}, nil
}

// fakeYouTube serves oEmbed, the watch page and timed text.
func fakeYouTube(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"title":"Fluffy Pancakes","author_name":"Chef Sam"}`)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		player := fmt.Sprintf(`{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/timedtext?lang=en","languageCode":"en"}]}}}`, srv.URL)
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = %s;</script></html>`, player)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"events": []map[string]any{{"segs": []map[string]string{{"utf8": captionText}}}},
		})
		w.Write(body)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOrchestrator(t *testing.T, yt *httptest.Server) *pipeline.Orchestrator {
	t.Helper()
	res := resolver.New(yt.Client(),
		resolver.WithCaptionFetcher(noCaptions{}),
		resolver.WithRetryConfig(utils.RetryConfig{MaxAttempts: 1, Timeout: utils.DefaultRetryConfig().Timeout}),
		resolver.WithEndpoints(resolver.Endpoints{
			YouTubeOEmbed: yt.URL + "/oembed",
			YouTubeWatch:  yt.URL + "/watch",
		}),
	)
	return pipeline.New(pipeline.Config{TriggerMinChars: 250, AcceptMinChars: 200},
		res, unusedTranscriber{t: t}, recipe.NewExtractor(recipe.DefaultVocabulary()))
}

func assertPancakes(t *testing.T, resp pipeline.Response) {
	t.Helper()
	require.True(t, resp.OK, "error: %s", resp.Error)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Fluffy Pancakes", resp.Recipe.Title)
	assert.Equal(t, "scrape", resp.SourceUsed)
	require.NotNil(t, resp.UsedWhisper)
	assert.False(t, *resp.UsedWhisper)

	var hasFlour bool
	for _, ing := range resp.Recipe.Ingredients {
		if strings.Contains(ing, "flour") {
			hasFlour = true
		}
	}
	assert.True(t, hasFlour, "ingredients: %v", resp.Recipe.Ingredients)
	assert.NotEmpty(t, resp.Recipe.Steps)
	assert.Contains(t, resp.Recipe.Equipment, "skillet")
	assert.Empty(t, resp.Recipe.Notes)
}

func TestExtractOverHTTP(t *testing.T) {
	yt := fakeYouTube(t)
	srv := api.NewServer(&config.Config{}, newOrchestrator(t, yt), nil, nil)

	r := chi.NewRouter()
	srv.Mount(r)
	app := httptest.NewServer(r)
	defer app.Close()

	body := `{"url":"https://www.youtube.com/watch?v=pancake01"}`
	res, err := app.Client().Post(app.URL+"/api/extract", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var resp pipeline.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assertPancakes(t, resp)

	for _, ev := range resp.Steps {
		assert.Nil(t, ev.Data, "step %s should be stripped without debug", ev.Step)
	}
}

func TestExtractThroughWorker(t *testing.T) {
	yt := fakeYouTube(t)

	var notified worker.JobNotice
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&notified))
	}))
	defer hook.Close()

	processor := worker.NewExtractProcessor(newOrchestrator(t, yt), worker.NewNotifier(hook.URL, hook.Client()), nil)
	task, err := worker.NewExtractRecipeTask(worker.ExtractRecipePayload{
		JobID: "job-pancakes",
		URL:   "https://youtu.be/pancake01",
		Debug: true,
	})
	require.NoError(t, err)

	handler := worker.OTelMiddleware(worker.SentryMiddleware(asynq.HandlerFunc(processor.HandleExtractRecipe)))
	require.NoError(t, handler.ProcessTask(context.Background(), task))

	assert.Equal(t, "job-pancakes", notified.JobID)
	assert.True(t, notified.OK)
}
