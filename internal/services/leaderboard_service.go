package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/validator"
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, q LeaderboardQuery) (*LeaderboardPayload, error)
	InvalidateTeacher(ctx context.Context, teacherID string) error
}

type leaderboardService struct {
	readers   LeaderboardReaders
	cache     *reportCache
	validator *validator.Validator
	ops       *ServiceLogger
	location  *time.Location
	now       func() time.Time
}

func NewLeaderboardService(
	readers LeaderboardReaders,
	store cache.CacheService,
	ttl time.Duration,
	validator *validator.Validator,
	logger *slog.Logger,
	location *time.Location,
) LeaderboardService {
	if location == nil {
		location = time.UTC
	}
	return &leaderboardService{
		readers:   readers,
		cache:     newReportCache(store, ttl, reportLeaderboard, logger),
		validator: validator,
		ops:       NewServiceLogger(logger, "leaderboards"),
		location:  location,
		now:       time.Now,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, q LeaderboardQuery) (resp *LeaderboardPayload, err error) {
	op := s.ops.WithOperation(ctx, "GetLeaderboard", q.TeacherID)
	defer func() { op.LogResult(q.ClassID, "leaderboard", err) }()

	q.applyDefaults()
	if err := s.validator.Validate(&q); err != nil {
		return nil, err
	}

	now := s.now()
	windowStart := aggregation.PeriodStart(aggregation.Period(q.Period), now, s.location)
	window := "all"
	if windowStart != nil {
		window = windowStart.Format(DateLayout)
	}

	// A new period starts a new key so a board never outlives its window.
	key := s.cache.key(q.TeacherID, q.ClassID, q.Scope, q.Period, window, q.Metric, strconv.Itoa(q.Limit))
	return getOrLoad(ctx, s.cache, key, func() (*LeaderboardPayload, error) {
		ds, err := s.readers.LoadLeaderboardDataset(ctx, q, windowStart)
		if err != nil {
			return nil, err
		}
		board := aggregation.BuildLeaderboard(aggregation.LeaderboardInput{
			Classes:     ds.Classes,
			Enrollments: ds.Enrollments,
			Sessions:    ds.Sessions,
			Profiles:    ds.Profiles,
			Metric:      aggregation.Metric(q.Metric),
			WindowStart: windowStart,
			Now:         now,
			Location:    s.location,
			Limit:       q.Limit,
		})
		return assembleLeaderboard(q, ds, board, windowStart, now), nil
	})
}

func (s *leaderboardService) InvalidateTeacher(ctx context.Context, teacherID string) error {
	return s.cache.invalidateTeacher(ctx, teacherID)
}
