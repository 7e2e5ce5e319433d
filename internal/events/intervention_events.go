package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// EventType names the analytics events this service emits
type EventType string

const (
	EventInterventionFlagged EventType = "student.intervention_flagged"
)

const (
	eventSource  = "analytics-service"
	eventVersion = "1.0"
)

// AnalyticsEvent is the envelope shared by every published event
type AnalyticsEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StruggleWordSummary is a trimmed key struggle word carried in the payload
type StruggleWordSummary struct {
	VocabularyID string  `json:"vocabulary_id"`
	Word         string  `json:"word"`
	FailureRate  float64 `json:"failure_rate"`
}

// InterventionFlaggedEvent asks downstream notification consumers to alert a
// teacher about one student on one assignment.
type InterventionFlaggedEvent struct {
	AssignmentID     string                `json:"assignment_id"`
	AssignmentTitle  string                `json:"assignment_title"`
	ClassID          string                `json:"class_id"`
	TeacherID        string                `json:"teacher_id"`
	StudentID        string                `json:"student_id"`
	StudentName      string                `json:"student_name"`
	Flag             string                `json:"flag"`
	Status           string                `json:"status"`
	FailureRate      float64               `json:"failure_rate"`
	KeyStruggleWords []StruggleWordSummary `json:"key_struggle_words,omitempty"`
	FlaggedAt        time.Time             `json:"flagged_at"`
}

func NewInterventionFlaggedEvent(payload InterventionFlaggedEvent) *AnalyticsEvent {
	return &AnalyticsEvent{
		ID:        watermill.NewUUID(),
		Type:      EventInterventionFlagged,
		Timestamp: payload.FlaggedAt,
		Source:    eventSource,
		Version:   eventVersion,
		Data:      payload,
		Metadata: map[string]interface{}{
			"assignment_id": payload.AssignmentID,
			"teacher_id":    payload.TeacherID,
		},
	}
}
