package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/framecast/backend/internal/modules/encode"
	"github.com/framecast/backend/internal/render"
	"github.com/framecast/backend/internal/shared/database"
	"github.com/framecast/backend/internal/shared/metrics"
	"github.com/framecast/backend/internal/shared/storage"
	"github.com/framecast/backend/internal/timeline"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandlerConfig contains dependencies for the worker-side job handler
type HandlerConfig struct {
	DB            *database.Postgres
	Redis         *database.Redis
	Storage       *storage.Service
	Encoder       *encode.Encoder
	Metrics       *metrics.Metrics
	FFmpegPath    string
	AssetCacheDir string
	Logger        *zap.Logger
}

// Handler executes render and cleanup tasks on the worker.
type Handler struct {
	module        *Module
	redis         *database.Redis
	storage       *storage.Service
	encoder       *encode.Encoder
	metrics       *metrics.Metrics
	ffmpegPath    string
	assetCacheDir string
	logger        *zap.Logger
}

// NewHandler creates a new job handler
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		module:        NewModule(cfg.DB, nil, cfg.Logger),
		redis:         cfg.Redis,
		storage:       cfg.Storage,
		encoder:       cfg.Encoder,
		metrics:       cfg.Metrics,
		ffmpegPath:    cfg.FFmpegPath,
		assetCacheDir: cfg.AssetCacheDir,
		logger:        cfg.Logger,
	}
}

// HandleRenderTimeline renders one queued timeline job end to end:
// preload, frame loop into the encoder, upload, bookkeeping.
func (h *Handler) HandleRenderTimeline(ctx context.Context, task *asynq.Task) error {
	var payload RenderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	job, err := h.module.GetJob(ctx, payload.JobID)
	if err != nil {
		return err
	}
	if job.Status == StatusCancelled {
		h.logger.Info("Skipping cancelled job", zap.String("job_id", job.ID))
		return nil
	}

	h.logger.Info("Rendering timeline job",
		zap.String("job_id", job.ID),
		zap.Float64("fps", job.FPS),
		zap.String("format", job.Format),
	)

	start := time.Now()
	h.module.MarkProcessing(ctx, job.ID)
	if h.metrics != nil {
		h.metrics.RecordJobStarted()
	}

	err = h.renderJob(ctx, job)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		h.module.FailJob(ctx, job.ID, err)
		PublishEvent(ctx, h.redis, h.logger, ProgressEvent{
			Kind: EventFailed, JobID: job.ID, Error: err.Error(),
		})
	}
	if h.metrics != nil {
		h.metrics.RecordJobCompleted(status, time.Since(start))
	}
	if err != nil {
		// Invalid configs will fail identically on every attempt.
		var cfgErr *timeline.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("%w: %s", asynq.SkipRetry, err)
		}
		return err
	}
	return nil
}

func (h *Handler) renderJob(ctx context.Context, job *Job) error {
	cfg, err := timeline.ParseConfig(job.Timeline)
	if err != nil {
		return err
	}

	comp, err := render.New(cfg, render.Options{
		FPS:           job.FPS,
		FFmpegPath:    h.ffmpegPath,
		AssetCacheDir: h.assetCacheDir,
		Logger:        h.logger,
		OnFrameRendered: func() {
			if h.metrics != nil {
				h.metrics.FramesRenderedTotal.Inc()
			}
		},
		OnElementSkipped: func() {
			if h.metrics != nil {
				h.metrics.ElementsSkipped.Inc()
			}
		},
	})
	if err != nil {
		return err
	}
	defer comp.Close()

	h.publishProgress(ctx, job.ID, Progress{Stage: "preloading"})
	if err := comp.Preload(ctx); err != nil {
		return err
	}

	total := comp.FrameCount()
	outputName := fmt.Sprintf("%s.%s", job.ID, job.Format)
	localOut := h.storage.GetPath(storage.ZoneWorking, outputName)
	if h.storage.IsRemote() {
		localOut = filepath.Join(h.assetCacheDir, outputName)
	}

	var audio []encode.AudioTrack
	for _, in := range comp.AudioTimeline() {
		if in.Path == "" {
			continue
		}
		audio = append(audio, encode.AudioTrack{Path: in.Path, Start: in.Start, Volume: in.Volume})
	}

	session, err := h.encoder.Start(ctx, encode.SessionOptions{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        job.FPS,
		OutputPath: localOut,
		Format:     job.Format,
		Audio:      audio,
	})
	if err != nil {
		return err
	}

	lastPercent := -1
	err = comp.Render(ctx, func(i int, rgba []byte) error {
		if err := session.WriteFrame(rgba); err != nil {
			return err
		}
		percent := 0
		if total > 0 {
			percent = (i + 1) * 100 / total
		}
		if percent != lastPercent {
			lastPercent = percent
			h.publishProgress(ctx, job.ID, Progress{
				Percent: percent, Stage: "rendering",
				FramesDone: i + 1, FramesTotal: total,
			})
		}
		return nil
	})
	if err != nil {
		session.Close()
		return err
	}
	if err := session.Close(); err != nil {
		return err
	}

	outputPath := h.storage.GetPath(storage.ZoneOutput, outputName)
	if h.storage.IsRemote() {
		h.publishProgress(ctx, job.ID, Progress{Percent: 100, Stage: "uploading"})
		if err := h.storage.FinalizeOutputFromLocal(ctx, outputPath, localOut); err != nil {
			return fmt.Errorf("failed to upload output: %w", err)
		}
	} else {
		outputPath = localOut
	}

	if err := h.module.CompleteJob(ctx, job.ID, outputPath); err != nil {
		return err
	}
	PublishEvent(ctx, h.redis, h.logger, ProgressEvent{Kind: EventCompleted, JobID: job.ID})

	h.logger.Info("Render job complete",
		zap.String("job_id", job.ID),
		zap.Int("frames", total),
		zap.String("output", outputPath),
	)
	return nil
}

func (h *Handler) publishProgress(ctx context.Context, jobID string, p Progress) {
	h.module.UpdateProgress(ctx, jobID, p)
	PublishEvent(ctx, h.redis, h.logger, ProgressEvent{
		Kind: EventProgress, JobID: jobID, Percent: p.Percent, Stage: p.Stage,
	})
}

// HandleCleanupFiles removes expired files from storage.
func (h *Handler) HandleCleanupFiles(ctx context.Context, task *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	hours := payload.OlderThanHours
	if hours <= 0 {
		hours = 24
	}

	removed, err := h.storage.Sweep(ctx, time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	h.logger.Info("Storage sweep complete",
		zap.Int("removed", removed),
		zap.Int("older_than_hours", hours),
	)
	return nil
}
