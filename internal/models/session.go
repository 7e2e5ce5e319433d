package models

import "time"

type CompletionStatus string

const (
	StatusNotStarted CompletionStatus = "not_started"
	StatusInProgress CompletionStatus = "in_progress"
	StatusCompleted  CompletionStatus = "completed"
	StatusAbandoned  CompletionStatus = "abandoned"
)

// IsValid reports whether s is one of the known completion states.
func (s CompletionStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// GameSession is one student's attempt at a game or assessment instance.
// Rows are written by the game runtime and are immutable once ended.
type GameSession struct {
	ID                 string           `json:"id" gorm:"primaryKey;size:255"`
	StudentID          string           `json:"student_id" gorm:"not null;index;size:255"`
	AssignmentID       *string          `json:"assignment_id,omitempty" gorm:"index;size:255"`
	GameType           string           `json:"game_type" gorm:"size:100"`
	StartedAt          time.Time        `json:"started_at" gorm:"index"`
	EndedAt            *time.Time       `json:"ended_at,omitempty" gorm:"index"`
	CompletionStatus   CompletionStatus `json:"completion_status" gorm:"size:20"`
	AccuracyPercentage *float64         `json:"accuracy_percentage,omitempty"`
	DurationSeconds    int              `json:"duration_seconds"`
	FinalScore         *float64         `json:"final_score,omitempty"`
	XPEarned           int              `json:"xp_earned"`
	GemsTotal          int              `json:"gems_total"`
}

func (GameSession) TableName() string {
	return "enhanced_game_sessions"
}

func (s *GameSession) IsCompleted() bool {
	return s.CompletionStatus == StatusCompleted
}

// VocabularyAttempt is a single answer to a single word inside a session.
type VocabularyAttempt struct {
	ID                  string    `json:"id" gorm:"primaryKey;size:255"`
	SessionID           string    `json:"session_id" gorm:"not null;index;size:255"`
	StudentID           string    `json:"student_id" gorm:"not null;index;size:255"`
	VocabularyID        *string   `json:"vocabulary_id,omitempty" gorm:"column:centralized_vocabulary_id;index;size:255"`
	WordText            string    `json:"word_text" gorm:"size:255"`
	TranslationText     string    `json:"translation_text" gorm:"size:255"`
	WasCorrect          bool      `json:"was_correct"`
	ResponseTimeSeconds *float64  `json:"response_time_seconds,omitempty"`
	GemRarity           string    `json:"gem_rarity" gorm:"size:20"`
	CreatedAt           time.Time `json:"created_at"`
}

func (VocabularyAttempt) TableName() string {
	return "gem_events"
}

// AssignmentProgress is the per-student rollup maintained by the game runtime.
// Best values are last-write-wins upstream, so they are never trusted on
// their own.
type AssignmentProgress struct {
	ID            string           `json:"id" gorm:"primaryKey;size:255"`
	AssignmentID  string           `json:"assignment_id" gorm:"not null;index;size:255"`
	StudentID     string           `json:"student_id" gorm:"not null;index;size:255"`
	Status        CompletionStatus `json:"status" gorm:"size:20"`
	BestScore     *float64         `json:"best_score,omitempty"`
	BestAccuracy  *float64         `json:"best_accuracy,omitempty"`
	SessionsCount int              `json:"sessions_count"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (AssignmentProgress) TableName() string {
	return "enhanced_assignment_progress"
}
