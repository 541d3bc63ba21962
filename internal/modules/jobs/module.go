// Package jobs manages render jobs: persistence, queueing and the worker
// handler that drives the compositor.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/framecast/backend/internal/shared/database"
	"github.com/framecast/backend/internal/timeline"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Job represents a timeline render job
type Job struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Timeline    json.RawMessage `json:"timeline"`
	FPS         float64         `json:"fps"`
	Format      string          `json:"format"`
	Progress    Progress        `json:"progress"`
	OutputPath  string          `json:"outputPath,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Progress represents render progress
type Progress struct {
	Percent     int    `json:"percent"`
	Stage       string `json:"stage,omitempty"`
	FramesDone  int    `json:"framesDone"`
	FramesTotal int    `json:"framesTotal"`
}

// CreateJobParams contains parameters for creating a render job
type CreateJobParams struct {
	Timeline json.RawMessage
	FPS      float64
	Format   string
}

// Module handles render job management
type Module struct {
	db     *database.Postgres
	queue  *QueueClient
	logger *zap.Logger
}

// NewModule creates a new jobs module. The queue may be nil on the worker
// side, which only updates job state.
func NewModule(db *database.Postgres, queue *QueueClient, logger *zap.Logger) *Module {
	return &Module{db: db, queue: queue, logger: logger}
}

// Migrate creates the render_jobs table when missing.
func (m *Module) Migrate(ctx context.Context) error {
	_, err := m.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS render_jobs (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			timeline JSONB NOT NULL,
			fps DOUBLE PRECISION NOT NULL,
			format TEXT NOT NULL,
			progress JSONB NOT NULL,
			output_path TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate render_jobs: %w", err)
	}
	return nil
}

// CreateJob validates the timeline, persists the job and enqueues it.
func (m *Module) CreateJob(ctx context.Context, params CreateJobParams) (*Job, error) {
	// Invalid timelines are rejected here, never at render time.
	if _, err := timeline.ParseConfig(params.Timeline); err != nil {
		return nil, err
	}

	format := params.Format
	if format == "" {
		format = "mp4"
	}
	fps := params.FPS
	if fps <= 0 {
		fps = 30
	}

	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		Timeline:  params.Timeline,
		FPS:       fps,
		Format:    format,
		CreatedAt: time.Now(),
	}

	progressJSON, _ := json.Marshal(job.Progress)
	_, err := m.db.Pool.Exec(ctx, `
		INSERT INTO render_jobs (id, status, timeline, fps, format, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.ID, job.Status, job.Timeline, job.FPS, job.Format, progressJSON, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	if _, err := m.queue.EnqueueRender(RenderPayload{JobID: job.ID}); err != nil {
		m.db.Pool.Exec(ctx, "UPDATE render_jobs SET status = $1 WHERE id = $2", StatusFailed, job.ID)
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	m.logger.Info("Render job created and queued",
		zap.String("job_id", job.ID),
		zap.Float64("fps", job.FPS),
		zap.String("format", job.Format),
	)
	return job, nil
}

// GetJob retrieves a job by ID, always reading fresh state.
func (m *Module) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := m.db.Pool.QueryRow(ctx, `
		SELECT id, status, timeline, fps, format, progress, output_path, error,
		       created_at, started_at, completed_at
		FROM render_jobs WHERE id = $1
	`, jobID)

	var job Job
	var progressJSON []byte
	err := row.Scan(&job.ID, &job.Status, &job.Timeline, &job.FPS, &job.Format,
		&progressJSON, &job.OutputPath, &job.Error,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	json.Unmarshal(progressJSON, &job.Progress)
	return &job, nil
}

// ListJobs returns the most recent jobs, optionally filtered by status.
func (m *Module) ListJobs(ctx context.Context, status string) ([]*Job, error) {
	rows, err := m.db.Pool.Query(ctx, `
		SELECT id, status, timeline, fps, format, progress, output_path, error,
		       created_at, started_at, completed_at
		FROM render_jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT 50
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var job Job
		var progressJSON []byte
		if err := rows.Scan(&job.ID, &job.Status, &job.Timeline, &job.FPS, &job.Format,
			&progressJSON, &job.OutputPath, &job.Error,
			&job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
			m.logger.Error("Failed to scan job row", zap.Error(err))
			continue
		}
		json.Unmarshal(progressJSON, &job.Progress)
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

// CancelJob cancels a queued or processing job.
func (m *Module) CancelJob(ctx context.Context, jobID string) error {
	job, err := m.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == StatusCompleted || job.Status == StatusCancelled {
		return fmt.Errorf("job cannot be cancelled: status is %s", job.Status)
	}

	now := time.Now()
	_, err = m.db.Pool.Exec(ctx, `
		UPDATE render_jobs SET status = $1, completed_at = $2 WHERE id = $3
	`, StatusCancelled, now, jobID)
	return err
}

// MarkProcessing transitions a job into the processing state.
func (m *Module) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := m.db.Pool.Exec(ctx, `
		UPDATE render_jobs SET status = $1, started_at = $2 WHERE id = $3
	`, StatusProcessing, time.Now(), jobID)
	return err
}

// UpdateProgress writes the current render progress.
func (m *Module) UpdateProgress(ctx context.Context, jobID string, p Progress) error {
	progressJSON, _ := json.Marshal(p)
	_, err := m.db.Pool.Exec(ctx, `
		UPDATE render_jobs SET progress = $1 WHERE id = $2
	`, progressJSON, jobID)
	return err
}

// CompleteJob records a successful render.
func (m *Module) CompleteJob(ctx context.Context, jobID, outputPath string) error {
	p, _ := json.Marshal(Progress{Percent: 100, Stage: "done"})
	_, err := m.db.Pool.Exec(ctx, `
		UPDATE render_jobs SET status = $1, output_path = $2, progress = $3, completed_at = $4
		WHERE id = $5
	`, StatusCompleted, outputPath, p, time.Now(), jobID)
	return err
}

// FailJob records a failed render.
func (m *Module) FailJob(ctx context.Context, jobID string, cause error) error {
	_, err := m.db.Pool.Exec(ctx, `
		UPDATE render_jobs SET status = $1, error = $2, completed_at = $3 WHERE id = $4
	`, StatusFailed, cause.Error(), time.Now(), jobID)
	return err
}
