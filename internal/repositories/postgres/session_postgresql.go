package postgres

import (
	"context"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionReader {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.GameSession, error) {
	if filters.StudentIDs != nil {
		return FindInChunks(filters.StudentIDs, s.helpers.chunkSize, func(chunk []string) ([]*models.GameSession, error) {
			return s.find(ctx, s.applyFilters(s.helpers.Query(ctx, &models.GameSession{}), filters).
				Where("student_id IN ?", chunk))
		})
	}
	return s.find(ctx, s.applyFilters(s.helpers.Query(ctx, &models.GameSession{}), filters))
}

func (s *SessionPostgreSQL) find(_ context.Context, query *gorm.DB) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	if err := query.Find(&sessions).Error; err != nil {
		return nil, wrapError("list sessions", err)
	}
	return sessions, nil
}

func (s *SessionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filters.AssignmentID)
	}
	if len(filters.Statuses) > 0 {
		query = query.Where("completion_status IN ?", filters.Statuses)
	}
	if filters.OnlyEnded {
		query = query.Where("ended_at IS NOT NULL")
	}
	if filters.Started.Start != nil {
		query = query.Where("started_at >= ?", *filters.Started.Start)
	}
	if filters.Started.End != nil {
		query = query.Where("started_at < ?", *filters.Started.End)
	}
	if filters.Ended.Start != nil {
		query = query.Where("ended_at >= ?", *filters.Ended.Start)
	}
	if filters.Ended.End != nil {
		query = query.Where("ended_at < ?", *filters.Ended.End)
	}
	return query
}

type AttemptPostgreSQL struct {
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptReader {
	return &AttemptPostgreSQL{helpers: NewSharedHelpers(db)}
}

// List fetches attempts for the given sessions, 50 session ids per query.
func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.VocabularyAttempt, error) {
	return FindInChunks(filters.SessionIDs, a.helpers.chunkSize, func(chunk []string) ([]*models.VocabularyAttempt, error) {
		query := a.helpers.Query(ctx, &models.VocabularyAttempt{}).Where("session_id IN ?", chunk)
		if filters.VocabularyID != nil {
			query = query.Where("centralized_vocabulary_id = ?", *filters.VocabularyID)
		}

		var rows []*models.VocabularyAttempt
		if err := query.Find(&rows).Error; err != nil {
			return nil, wrapError("list vocabulary attempts", err)
		}
		return rows, nil
	})
}

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressReader {
	return &ProgressPostgreSQL{db: db}
}

func (p *ProgressPostgreSQL) ListByAssignment(ctx context.Context, assignmentID string) ([]*models.AssignmentProgress, error) {
	var rows []*models.AssignmentProgress
	if err := p.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Find(&rows).Error; err != nil {
		return nil, wrapError("list assignment progress", err)
	}
	return rows, nil
}
