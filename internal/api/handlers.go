package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/socialchef/clipchef/internal/config"
	apperrors "github.com/socialchef/clipchef/internal/errors"
	"github.com/socialchef/clipchef/internal/pipeline"
	"github.com/socialchef/clipchef/internal/validation"
	"github.com/socialchef/clipchef/internal/worker"
)

const maxBodyBytes = 1 << 20

// Extractor runs one extraction.
type Extractor interface {
	Extract(ctx context.Context, req pipeline.Request) (*pipeline.Success, error)
}

// Enqueuer is the part of *asynq.Client the job routes use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of *asynq.Inspector the job routes use.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

type Server struct {
	cfg         *config.Config
	extractor   Extractor
	asynqClient Enqueuer
	inspector   TaskInspector
}

// NewServer builds the HTTP surface. asynqClient and inspector may be nil, in which
// case the job routes are not mounted.
func NewServer(cfg *config.Config, extractor Extractor, asynqClient Enqueuer, inspector TaskInspector) *Server {
	return &Server{
		cfg:         cfg,
		extractor:   extractor,
		asynqClient: asynqClient,
		inspector:   inspector,
	}
}

// Mount registers the extraction routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HandleHealth)
	r.Post("/api/extract", s.HandleExtract)
	if s.asynqClient != nil && s.inspector != nil {
		r.Post("/api/extract/jobs", s.HandleCreateJob)
		r.Get("/api/extract/jobs/{id}", s.HandleJobStatus)
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) HandleExtract(w http.ResponseWriter, r *http.Request) {
	req, appErr := decodeRequest(w, r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	success, err := s.extractor.Extract(r.Context(), req)
	resp, status := pipeline.BuildResponse(success, err, req.Debug)
	writeJSON(w, status, resp)
}

type CreateJobResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	req, appErr := decodeRequest(w, r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	if err := validation.ValidateExtractRequest(req.URL, req.PastedText, req.ModelID); err != nil {
		if ae, ok := apperrors.As(err); ok {
			writeError(w, ae)
			return
		}
		writeError(w, apperrors.NewInternalError(err))
		return
	}

	jobID := uuid.New().String()
	task, err := worker.NewExtractRecipeTask(worker.ExtractRecipePayload{
		JobID:      jobID,
		URL:        req.URL,
		PastedText: req.PastedText,
		ModelID:    req.ModelID,
		Debug:      req.Debug,
	})
	if err != nil {
		writeError(w, apperrors.NewInternalError(err))
		return
	}

	if _, err := s.asynqClient.EnqueueContext(r.Context(), task); err != nil {
		slog.ErrorContext(r.Context(), "Failed to enqueue task", "job_id", jobID, "error", err)
		writeError(w, apperrors.NewInternalError(err))
		return
	}

	statusURL := worker.JobStatusURL(s.cfg.Server.PublicBaseURL, jobID)
	w.Header().Set("Location", statusURL)
	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: jobID, StatusURL: statusURL})
}

type JobStatusResponse struct {
	JobID  string          `json:"job_id"`
	State  string          `json:"state"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (s *Server) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, apperrors.NewValidationError("Invalid job id", "JOB_ID_INVALID", "Use the job_id returned when the job was created"))
		return
	}

	info, err := s.inspector.GetTaskInfo(worker.QueueExtract, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			writeError(w, apperrors.NewNotFoundError("Job not found", "JOB_NOT_FOUND", "Results are kept for one hour after completion"))
			return
		}
		slog.ErrorContext(r.Context(), "Failed to read task info", "job_id", jobID, "error", err)
		writeError(w, apperrors.NewInternalError(err))
		return
	}

	resp := JobStatusResponse{
		JobID: jobID,
		State: info.State.String(),
		Error: info.LastErr,
	}
	if len(info.Result) > 0 && json.Valid(info.Result) {
		resp.Result = json.RawMessage(info.Result)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeRequest reads an extraction request from a size-limited JSON body.
func decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, *apperrors.AppError) {
	var req pipeline.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return req, apperrors.NewValidationError("Request body too large", "BODY_TOO_LARGE", "Send at most 1 MiB of JSON")
		case errors.Is(err, io.EOF):
			return req, apperrors.NewValidationError("Request body is required", "BODY_REQUIRED", "Send a JSON object with a url field")
		default:
			return req, apperrors.NewValidationError("Invalid request body", "BODY_INVALID", "Send a JSON object with a url field")
		}
	}
	return req, nil
}

// writeError renders appErr in the same document shape as a failed extraction.
func writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	resp, status := pipeline.BuildResponse(nil, &pipeline.Failure{State: pipeline.StateStart, Err: appErr}, false)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
