package repositories

import (
	"context"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// TimeRange is a half-open interval [Start, End). Nil bounds are unbounded.
type TimeRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && !t.Before(*r.End) {
		return false
	}
	return true
}

type SessionFilters struct {
	AssignmentID *string                   `json:"assignment_id"`
	StudentIDs   []string                  `json:"student_ids"`
	Statuses     []models.CompletionStatus `json:"statuses"`
	Started      TimeRange                 `json:"started"`
	Ended        TimeRange                 `json:"ended"`
	OnlyEnded    bool                      `json:"only_ended"`
}

type AttemptFilters struct {
	SessionIDs   []string `json:"session_ids"`
	VocabularyID *string  `json:"vocabulary_id"`
}

type VocabularyFilters struct {
	StudentIDs []string  `json:"student_ids"`
	LastSeen   TimeRange `json:"last_seen"`
}

// ===== CAPABILITY-SCOPED READERS =====
//
// Each analytics service receives only the readers it needs. All readers are
// read-only; the raw event tables belong to the game runtime.

type ClassReader interface {
	GetByID(ctx context.Context, id string) (*models.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*models.Class, error)
}

type AssignmentReader interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
}

type EnrollmentReader interface {
	ListActiveByClasses(ctx context.Context, classIDs []string) ([]*models.ClassEnrollment, error)
}

type SessionReader interface {
	List(ctx context.Context, filters SessionFilters) ([]*models.GameSession, error)
}

type AttemptReader interface {
	List(ctx context.Context, filters AttemptFilters) ([]*models.VocabularyAttempt, error)
}

type ProgressReader interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]*models.AssignmentProgress, error)
}

type ProfileReader interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.UserProfile, error)
}

type OrganizationReader interface {
	GetBySchoolCode(ctx context.Context, code string) (*models.Organization, error)
}

type VocabularyReader interface {
	ListGemCollection(ctx context.Context, filters VocabularyFilters) ([]*models.VocabularyGemCollection, error)
	ListAssignmentProgress(ctx context.Context, filters VocabularyFilters) ([]*models.AssignmentVocabularyProgress, error)
	ListItems(ctx context.Context, ids []string) ([]*models.VocabularyItem, error)
}

// Repository groups every reader behind one handle for wiring in main.
type Repository interface {
	Classes() ClassReader
	Assignments() AssignmentReader
	Enrollments() EnrollmentReader
	Sessions() SessionReader
	Attempts() AttemptReader
	Progress() ProgressReader
	Profiles() ProfileReader
	Organizations() OrganizationReader
	Vocabulary() VocabularyReader
}
