package worker

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeExtractRecipe = "extract:recipe"
)

// QueueExtract is the queue extraction tasks run on.
const QueueExtract = "extract"

const (
	extractTimeout   = 20 * time.Minute
	extractRetention = time.Hour
)

// ExtractRecipePayload is the payload for recipe extraction tasks
type ExtractRecipePayload struct {
	JobID      string `json:"job_id"`
	URL        string `json:"url"`
	PastedText string `json:"pasted_text,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
}

// JobStatusURL is where the job API serves the state of jobID. An empty base
// gives the path alone.
func JobStatusURL(base, jobID string) string {
	return strings.TrimRight(base, "/") + "/api/extract/jobs/" + url.PathEscape(jobID)
}

// NewExtractRecipeTask creates a new extraction task. The job ID doubles as the
// asynq task ID so status lookups need nothing else. Extractions are not retried:
// a failed run is a result, not a transient error.
func NewExtractRecipeTask(payload ExtractRecipePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExtractRecipe, data,
		asynq.TaskID(payload.JobID),
		asynq.Queue(QueueExtract),
		asynq.MaxRetry(0),
		asynq.Timeout(extractTimeout),
		asynq.Retention(extractRetention),
	), nil
}
