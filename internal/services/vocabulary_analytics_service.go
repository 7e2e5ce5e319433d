package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/validator"
)

type VocabularyAnalyticsService interface {
	GetAnalytics(ctx context.Context, q VocabularyQuery) (*VocabularyAnalytics, error)
	InvalidateTeacher(ctx context.Context, teacherID string) error
}

type vocabularyAnalyticsService struct {
	readers   VocabularyReaders
	cache     *reportCache
	validator *validator.Validator
	ops       *ServiceLogger
	location  *time.Location
	now       func() time.Time
}

func NewVocabularyAnalyticsService(
	readers VocabularyReaders,
	store cache.CacheService,
	ttl time.Duration,
	validator *validator.Validator,
	logger *slog.Logger,
	location *time.Location,
) VocabularyAnalyticsService {
	if location == nil {
		location = time.UTC
	}
	return &vocabularyAnalyticsService{
		readers:   readers,
		cache:     newReportCache(store, ttl, reportVocabulary, logger),
		validator: validator,
		ops:       NewServiceLogger(logger, "vocabulary-analytics"),
		location:  location,
		now:       time.Now,
	}
}

func (s *vocabularyAnalyticsService) GetAnalytics(ctx context.Context, q VocabularyQuery) (resp *VocabularyAnalytics, err error) {
	op := s.ops.WithOperation(ctx, "GetVocabularyAnalytics", q.TeacherID)
	defer func() { op.LogResult(q.ClassID, "vocabulary", err) }()

	q.applyDefaults()
	if err := s.validator.Validate(&q); err != nil {
		return nil, err
	}

	// An explicit range bounds the records as well as the trend buckets.
	explicit, err := parseDateRange(q.From, q.To, s.location)
	if err != nil {
		return nil, err
	}
	now := s.now()
	trendRange := defaultTrendRange(now, s.location)
	if explicit != nil {
		trendRange = *explicit
	}

	bound := "unbounded"
	if explicit != nil {
		bound = "bounded"
	}
	key := s.cache.key(q.TeacherID, q.ClassID, q.Source, strings.Join(q.Sections, ","),
		bound, trendRange.From.Format(DateLayout), trendRange.To.Format(DateLayout))

	return getOrLoad(ctx, s.cache, key, func() (*VocabularyAnalytics, error) {
		sections := q.sectionSet()
		var trendWindow *DateRange
		if sections.Has(aggregation.SectionTrends) {
			trendWindow = &trendRange
		}

		ds, err := s.readers.LoadVocabularyDataset(ctx, q, explicit, trendWindow)
		if err != nil {
			return nil, err
		}
		analytics := aggregation.AnalyzeVocabulary(aggregation.VocabularyInput{
			Enrollments: ds.Enrollments,
			Profiles:    ds.Profiles,
			Records:     ds.Records,
			Items:       ds.Items,
			Sessions:    ds.Sessions,
			Sections:    sections,
			From:        trendRange.From,
			To:          trendRange.To,
			Now:         now,
			Location:    s.location,
		})
		return assembleVocabulary(analytics, q.Source, trendRange, now), nil
	})
}

func (s *vocabularyAnalyticsService) InvalidateTeacher(ctx context.Context, teacherID string) error {
	return s.cache.invalidateTeacher(ctx, teacherID)
}
