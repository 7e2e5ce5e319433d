package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterventionFlaggedEvent(t *testing.T) {
	flaggedAt := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	event := NewInterventionFlaggedEvent(InterventionFlaggedEvent{
		AssignmentID: "asg-1",
		TeacherID:    "teacher-1",
		StudentID:    "a",
		Flag:         "high_failure",
		FailureRate:  75,
		FlaggedAt:    flaggedAt,
	})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventInterventionFlagged, event.Type)
	assert.Equal(t, flaggedAt, event.Timestamp)
	assert.Equal(t, "analytics-service", event.Source)
	assert.Equal(t, "asg-1", event.Metadata["assignment_id"])

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"student.intervention_flagged"`)
	assert.Contains(t, string(raw), `"flag":"high_failure"`)
}

func TestToMessage(t *testing.T) {
	event := NewInterventionFlaggedEvent(InterventionFlaggedEvent{AssignmentID: "asg-1", StudentID: "a"})

	msg, err := toMessage(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, string(EventInterventionFlagged), msg.Metadata.Get("event_type"))

	var decoded AnalyticsEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, publisher.Publish(context.Background(), NewInterventionFlaggedEvent(InterventionFlaggedEvent{StudentID: "a"})))
	require.NoError(t, publisher.Publish(context.Background(), NewInterventionFlaggedEvent(InterventionFlaggedEvent{StudentID: "b"})))

	events := publisher.GetPublishedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[1].Data.(InterventionFlaggedEvent).StudentID)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
	assert.NoError(t, publisher.Close())
}
