package postgres

import (
	"context"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type VocabularyPostgreSQL struct {
	helpers *SharedHelpers
}

func NewVocabularyPostgreSQL(db *gorm.DB) repositories.VocabularyReader {
	return &VocabularyPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (v *VocabularyPostgreSQL) ListGemCollection(ctx context.Context, filters repositories.VocabularyFilters) ([]*models.VocabularyGemCollection, error) {
	return FindInChunks(filters.StudentIDs, v.helpers.chunkSize, func(chunk []string) ([]*models.VocabularyGemCollection, error) {
		query := v.helpers.Query(ctx, &models.VocabularyGemCollection{}).Where("student_id IN ?", chunk)
		query = applyLastSeen(query, "last_encountered_at", filters.LastSeen)

		var rows []*models.VocabularyGemCollection
		if err := query.Find(&rows).Error; err != nil {
			return nil, wrapError("list vocabulary gem collection", err)
		}
		return rows, nil
	})
}

func (v *VocabularyPostgreSQL) ListAssignmentProgress(ctx context.Context, filters repositories.VocabularyFilters) ([]*models.AssignmentVocabularyProgress, error) {
	return FindInChunks(filters.StudentIDs, v.helpers.chunkSize, func(chunk []string) ([]*models.AssignmentVocabularyProgress, error) {
		query := v.helpers.Query(ctx, &models.AssignmentVocabularyProgress{}).Where("student_id IN ?", chunk)
		query = applyLastSeen(query, "last_seen_at", filters.LastSeen)

		var rows []*models.AssignmentVocabularyProgress
		if err := query.Find(&rows).Error; err != nil {
			return nil, wrapError("list assignment vocabulary progress", err)
		}
		return rows, nil
	})
}

func (v *VocabularyPostgreSQL) ListItems(ctx context.Context, ids []string) ([]*models.VocabularyItem, error) {
	return FindInChunks(ids, v.helpers.chunkSize, func(chunk []string) ([]*models.VocabularyItem, error) {
		var rows []*models.VocabularyItem
		if err := v.helpers.Query(ctx, &models.VocabularyItem{}).
			Where("id IN ?", chunk).
			Find(&rows).Error; err != nil {
			return nil, wrapError("list vocabulary items", err)
		}
		return rows, nil
	})
}

func applyLastSeen(query *gorm.DB, column string, r repositories.TimeRange) *gorm.DB {
	if r.Start != nil {
		query = query.Where(column+" >= ?", *r.Start)
	}
	if r.End != nil {
		query = query.Where(column+" < ?", *r.End)
	}
	return query
}
