package jobs

import (
	"context"
	"encoding/json"

	"github.com/framecast/backend/internal/api/websocket"
	"github.com/framecast/backend/internal/shared/database"
	"go.uber.org/zap"
)

// progressChannel is the redis pub/sub channel carrying worker progress
// events to the API server.
const progressChannel = "framecast:job-events"

// Event kinds on the progress channel.
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// ProgressEvent is one worker-side job update.
type ProgressEvent struct {
	Kind    string `json:"kind"`
	JobID   string `json:"jobId"`
	Percent int    `json:"percent,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublishEvent pushes a job event onto the progress channel. Failures are
// logged and dropped; progress delivery is best-effort.
func PublishEvent(ctx context.Context, r *database.Redis, logger *zap.Logger, ev ProgressEvent) {
	if r == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := r.Publish(ctx, progressChannel, data); err != nil {
		logger.Debug("Failed to publish job event", zap.Error(err))
	}
}

// RelayEvents subscribes to the progress channel and forwards events to
// the WebSocket hub until the context is cancelled. Run it in its own
// goroutine on the API server.
func RelayEvents(ctx context.Context, r *database.Redis, hub *websocket.Hub, logger *zap.Logger) {
	sub := r.Subscribe(ctx, progressChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("Invalid job event payload", zap.Error(err))
				continue
			}
			switch ev.Kind {
			case EventCompleted:
				hub.BroadcastJobCompleted(ev.JobID)
			case EventFailed:
				hub.BroadcastJobFailed(ev.JobID, ev.Error)
			default:
				hub.BroadcastJobProgress(ev.JobID, ev.Percent, ev.Stage)
			}
		}
	}
}
