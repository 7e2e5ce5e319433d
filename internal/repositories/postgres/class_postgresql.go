package postgres

import (
	"context"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type ClassPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewClassPostgreSQL(db *gorm.DB) repositories.ClassReader {
	return &ClassPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (c *ClassPostgreSQL) GetByID(ctx context.Context, id string) (*models.Class, error) {
	var class models.Class
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&class).Error; err != nil {
		return nil, wrapError("get class", err)
	}
	return &class, nil
}

func (c *ClassPostgreSQL) ListByTeacher(ctx context.Context, teacherID string) ([]*models.Class, error) {
	var classes []*models.Class
	if err := c.helpers.Query(ctx, &models.Class{}).
		Where("teacher_id = ?", teacherID).
		Order("name ASC, id ASC").
		Find(&classes).Error; err != nil {
		return nil, wrapError("list classes by teacher", err)
	}
	return classes, nil
}

func (c *ClassPostgreSQL) ListByOrganization(ctx context.Context, organizationID string) ([]*models.Class, error) {
	var classes []*models.Class
	if err := c.helpers.Query(ctx, &models.Class{}).
		Where("organization_id = ?", organizationID).
		Order("name ASC, id ASC").
		Find(&classes).Error; err != nil {
		return nil, wrapError("list classes by organization", err)
	}
	return classes, nil
}

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentReader {
	return &AssignmentPostgreSQL{db: db}
}

func (a *AssignmentPostgreSQL) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, wrapError("get assignment", err)
	}
	return &assignment, nil
}

type EnrollmentPostgreSQL struct {
	helpers *SharedHelpers
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentReader {
	return &EnrollmentPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (e *EnrollmentPostgreSQL) ListActiveByClasses(ctx context.Context, classIDs []string) ([]*models.ClassEnrollment, error) {
	return FindInChunks(classIDs, e.helpers.chunkSize, func(chunk []string) ([]*models.ClassEnrollment, error) {
		var rows []*models.ClassEnrollment
		if err := e.helpers.Query(ctx, &models.ClassEnrollment{}).
			Where("class_id IN ? AND status = ?", chunk, models.EnrollmentActive).
			Find(&rows).Error; err != nil {
			return nil, wrapError("list enrollments", err)
		}
		return rows, nil
	})
}
