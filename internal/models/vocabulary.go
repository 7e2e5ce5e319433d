package models

import "time"

type VocabularyItem struct {
	ID              string `json:"id" gorm:"primaryKey;size:255"`
	Word            string `json:"word" gorm:"size:255"`
	Translation     string `json:"translation" gorm:"size:255"`
	Language        string `json:"language" gorm:"size:10"`
	Category        string `json:"category" gorm:"size:100"`
	Subcategory     string `json:"subcategory" gorm:"size:100"`
	CurriculumLevel string `json:"curriculum_level" gorm:"size:50"`
}

func (VocabularyItem) TableName() string {
	return "centralized_vocabulary"
}

// VocabularyGemCollection holds a student's lifetime record for one word as
// collected through free play.
type VocabularyGemCollection struct {
	ID                string     `json:"id" gorm:"primaryKey;size:255"`
	StudentID         string     `json:"student_id" gorm:"not null;index;size:255"`
	VocabularyItemID  string     `json:"vocabulary_item_id" gorm:"not null;index;size:255"`
	TotalEncounters   int        `json:"total_encounters"`
	CorrectEncounters int        `json:"correct_encounters"`
	MasteryLevel      int        `json:"mastery_level"`
	LastEncounteredAt *time.Time `json:"last_encountered_at,omitempty"`
	NextReviewAt      *time.Time `json:"next_review_at,omitempty"`
}

func (VocabularyGemCollection) TableName() string {
	return "vocabulary_gem_collection"
}

// AssignmentVocabularyProgress holds a student's record for one word inside
// assignments.
type AssignmentVocabularyProgress struct {
	ID           string     `json:"id" gorm:"primaryKey;size:255"`
	AssignmentID string     `json:"assignment_id" gorm:"index;size:255"`
	StudentID    string     `json:"student_id" gorm:"not null;index;size:255"`
	VocabularyID string     `json:"vocabulary_id" gorm:"not null;index;size:255"`
	SeenCount    int        `json:"seen_count"`
	CorrectCount int        `json:"correct_count"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

func (AssignmentVocabularyProgress) TableName() string {
	return "assignment_vocabulary_progress"
}
