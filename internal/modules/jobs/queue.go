package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types
const (
	TypeRenderTimeline = "render:timeline"
	TypeCleanupFiles   = "files:cleanup"
)

// QueueClient handles job queue operations
type QueueClient struct {
	client *asynq.Client
	logger *zap.Logger
}

// NewQueueClient creates a new queue client
func NewQueueClient(redisAddr string, logger *zap.Logger) *QueueClient {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	return &QueueClient{
		client: client,
		logger: logger,
	}
}

// Close closes the queue client
func (q *QueueClient) Close() error {
	return q.client.Close()
}

// RenderPayload contains render task data. The timeline itself lives in
// the database; the payload only references it.
type RenderPayload struct {
	JobID string `json:"jobId"`
}

// CleanupPayload contains file cleanup task data
type CleanupPayload struct {
	OlderThanHours int `json:"olderThanHours"`
}

// EnqueueRender queues a timeline render task
func (q *QueueClient) EnqueueRender(payload RenderPayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	task := asynq.NewTask(TypeRenderTimeline, data)
	info, err := q.client.Enqueue(task,
		asynq.MaxRetry(2),
		asynq.Timeout(2*time.Hour),
		asynq.Queue("default"),
	)
	if err != nil {
		q.logger.Error("Failed to enqueue render task", zap.Error(err))
		return nil, err
	}

	q.logger.Info("Render task enqueued",
		zap.String("task_id", info.ID),
		zap.String("job_id", payload.JobID),
	)
	return info, nil
}

// EnqueueCleanup queues a file cleanup task
func (q *QueueClient) EnqueueCleanup(payload CleanupPayload) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return q.client.Enqueue(asynq.NewTask(TypeCleanupFiles, data),
		asynq.MaxRetry(1),
		asynq.Queue("low"),
	)
}

// ScheduleCleanup registers the hourly cleanup of expired files.
func ScheduleCleanup(redisAddr string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{},
	)

	payload, _ := json.Marshal(CleanupPayload{OlderThanHours: 24})
	if _, err := scheduler.Register("@hourly", asynq.NewTask(TypeCleanupFiles, payload)); err != nil {
		return nil, err
	}
	return scheduler, nil
}
