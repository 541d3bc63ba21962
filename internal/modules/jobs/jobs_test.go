package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPayloadRoundTrip(t *testing.T) {
	data, err := json.Marshal(RenderPayload{JobID: "abc-123"})
	require.NoError(t, err)

	var got RenderPayload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc-123", got.JobID)
}

func TestProgressJSONShape(t *testing.T) {
	data, err := json.Marshal(Progress{Percent: 42, Stage: "rendering", FramesDone: 21, FramesTotal: 50})
	require.NoError(t, err)
	assert.JSONEq(t, `{"percent":42,"stage":"rendering","framesDone":21,"framesTotal":50}`, string(data))
}

func TestProgressEventKinds(t *testing.T) {
	ev := ProgressEvent{Kind: EventFailed, JobID: "j1", Error: "boom"}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got ProgressEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventFailed, got.Kind)
	assert.Equal(t, "boom", got.Error)
}

func TestJobStatuses(t *testing.T) {
	// The API treats these strings as the job state machine; renaming one
	// breaks stored rows.
	assert.Equal(t, "queued", StatusQueued)
	assert.Equal(t, "processing", StatusProcessing)
	assert.Equal(t, "completed", StatusCompleted)
	assert.Equal(t, "failed", StatusFailed)
	assert.Equal(t, "cancelled", StatusCancelled)
}
