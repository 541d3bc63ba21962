package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/framecast/backend/internal/modules/jobs"
	"github.com/framecast/backend/internal/render"
	"github.com/framecast/backend/internal/shared/storage"
	"github.com/framecast/backend/internal/timeline"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// JobHandler handles render job endpoints
type JobHandler struct {
	module  *jobs.Module
	storage *storage.Service
	logger  *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(module *jobs.Module, storage *storage.Service, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		module:  module,
		storage: storage,
		logger:  logger,
	}
}

// CreateJobRequest represents a render job creation request
type CreateJobRequest struct {
	Timeline json.RawMessage `json:"timeline"`
	FPS      float64         `json:"fps,omitempty"`
	Format   string          `json:"format,omitempty"`
}

// CreateJob validates the timeline and queues a render job
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Timeline) == 0 {
		http.Error(w, "timeline is required", http.StatusBadRequest)
		return
	}

	job, err := h.module.CreateJob(r.Context(), jobs.CreateJobParams{
		Timeline: req.Timeline,
		FPS:      req.FPS,
		Format:   req.Format,
	})
	if err != nil {
		var cfgErr *timeline.ConfigError
		if errors.As(err, &cfgErr) {
			writeJSONError(w, http.StatusBadRequest, "INVALID_TIMELINE", err.Error())
			return
		}
		h.logger.Error("Failed to create render job", zap.Error(err))
		http.Error(w, "failed to create job", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Render job created", zap.String("job_id", job.ID))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// ListJobs returns recent render jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.module.ListJobs(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.logger.Error("Failed to list jobs", zap.Error(err))
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*jobs.Job{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// GetJob returns one render job
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.module.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// CancelJob cancels a queued or processing render job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.module.CancelJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeJSONError(w, http.StatusConflict, "CANNOT_CANCEL", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadJob streams a completed job's output video
func (h *JobHandler) DownloadJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.module.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Status != jobs.StatusCompleted || job.OutputPath == "" {
		writeJSONError(w, http.StatusConflict, "NOT_READY", "job output is not available")
		return
	}

	reader, err := h.storage.Retrieve(r.Context(), job.OutputPath)
	if err != nil {
		h.logger.Error("Failed to open job output",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		http.Error(w, "output unavailable", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	contentType := "video/mp4"
	if job.Format == "webm" {
		contentType = "video/webm"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.ID+`.`+job.Format+`"`)
	io.Copy(w, reader)
}

// ValidateTimelineResponse is the dry-validation result
type ValidateTimelineResponse struct {
	Valid      bool    `json:"valid"`
	Error      string  `json:"error,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	FrameCount int     `json:"frameCount,omitempty"`
}

// ValidateTimeline checks a timeline without queueing a render
func (h *JobHandler) ValidateTimeline(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := ValidateTimelineResponse{Valid: true}
	cfg, err := timeline.ParseConfig(req.Timeline)
	if err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	} else {
		fps := req.FPS
		if fps <= 0 {
			fps = 30
		}
		// Frame math only: the compositor is built but Preload never
		// runs, so no assets are fetched.
		comp, err := render.New(cfg, render.Options{FPS: fps})
		if err == nil {
			resp.FrameCount = comp.FrameCount()
			resp.Duration = float64(resp.FrameCount) / fps
			comp.Close()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  code,
		"error": message,
	})
}
