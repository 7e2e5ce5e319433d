package postgres

import (
	"context"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"gorm.io/gorm"
)

type ProfilePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileReader {
	return &ProfilePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (p *ProfilePostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, wrapError("get user profile", err)
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) ListByUserIDs(ctx context.Context, userIDs []string) ([]*models.UserProfile, error) {
	return FindInChunks(userIDs, p.helpers.chunkSize, func(chunk []string) ([]*models.UserProfile, error) {
		var rows []*models.UserProfile
		if err := p.helpers.Query(ctx, &models.UserProfile{}).
			Where("user_id IN ?", chunk).
			Find(&rows).Error; err != nil {
			return nil, wrapError("list user profiles", err)
		}
		return rows, nil
	})
}

type OrganizationPostgreSQL struct {
	db *gorm.DB
}

func NewOrganizationPostgreSQL(db *gorm.DB) repositories.OrganizationReader {
	return &OrganizationPostgreSQL{db: db}
}

func (o *OrganizationPostgreSQL) GetBySchoolCode(ctx context.Context, code string) (*models.Organization, error) {
	var org models.Organization
	if err := o.db.WithContext(ctx).Where("school_code = ?", code).First(&org).Error; err != nil {
		return nil, wrapError("get organization", err)
	}
	return &org, nil
}
