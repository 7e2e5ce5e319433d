package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/events"
	"github.com/language-gems/analytics-service/internal/repositories"
	"github.com/language-gems/analytics-service/internal/validator"
)

// Options carries the optional side channels of the service layer.
type Options struct {
	Cache     cache.CacheService
	CacheTTL  time.Duration
	Location  *time.Location
	Publisher events.EventPublisher
}

// ServiceManager wires every analytics service from one repository. Each
// service only receives the readers it uses.
type ServiceManager struct {
	assignments  AssignmentAnalyticsService
	vocabulary   VocabularyAnalyticsService
	leaderboards LeaderboardService
}

func NewServiceManager(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, opts Options) *ServiceManager {
	if opts.Publisher == nil {
		opts.Publisher = events.DisabledEventPublisher{}
	}

	return &ServiceManager{
		assignments: NewAssignmentAnalyticsService(AssignmentReaders{
			Classes:     repo.Classes(),
			Assignments: repo.Assignments(),
			Enrollments: repo.Enrollments(),
			Sessions:    repo.Sessions(),
			Attempts:    repo.Attempts(),
			Progress:    repo.Progress(),
			Profiles:    repo.Profiles(),
		}, opts.Publisher, v, logger, opts.Location),
		vocabulary: NewVocabularyAnalyticsService(VocabularyReaders{
			Classes:     repo.Classes(),
			Enrollments: repo.Enrollments(),
			Sessions:    repo.Sessions(),
			Profiles:    repo.Profiles(),
			Vocabulary:  repo.Vocabulary(),
		}, opts.Cache, opts.CacheTTL, v, logger, opts.Location),
		leaderboards: NewLeaderboardService(LeaderboardReaders{
			Classes:       repo.Classes(),
			Enrollments:   repo.Enrollments(),
			Sessions:      repo.Sessions(),
			Profiles:      repo.Profiles(),
			Organizations: repo.Organizations(),
		}, opts.Cache, opts.CacheTTL, v, logger, opts.Location),
	}
}

func (m *ServiceManager) Assignments() AssignmentAnalyticsService { return m.assignments }

func (m *ServiceManager) Vocabulary() VocabularyAnalyticsService { return m.vocabulary }

func (m *ServiceManager) Leaderboards() LeaderboardService { return m.leaderboards }

// InvalidateTeacherCache drops every cached report of the teacher.
func (m *ServiceManager) InvalidateTeacherCache(ctx context.Context, teacherID string) error {
	if teacherID == "" {
		return ValidationErrors{*NewValidationError("teacherId", "is required", nil)}
	}
	return errors.Join(
		m.vocabulary.InvalidateTeacher(ctx, teacherID),
		m.leaderboards.InvalidateTeacher(ctx, teacherID),
	)
}
