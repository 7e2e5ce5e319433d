package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/events"
	"github.com/language-gems/analytics-service/internal/export"
	"github.com/language-gems/analytics-service/internal/metrics"
	"github.com/language-gems/analytics-service/internal/validator"
)

// AssignmentAnalyticsService reports on a single assignment.
type AssignmentAnalyticsService interface {
	GetAnalytics(ctx context.Context, q AssignmentQuery) (*AssignmentAnalyticsResponse, error)
	GetWordStudents(ctx context.Context, q WordStudentsQuery) (*WordStudentsResponse, error)
	Export(ctx context.Context, q AssignmentQuery) (*ExportFile, error)
	NotifyInterventions(ctx context.Context, q AssignmentQuery) (*NotifyResult, error)
}

type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// NotifyResult counts flagged students and delivered events. Disabled is set
// when publishing is switched off and nothing was sent.
type NotifyResult struct {
	Flagged   int  `json:"flagged"`
	Published int  `json:"published"`
	Disabled  bool `json:"disabled,omitempty"`
}

type assignmentAnalyticsService struct {
	readers   AssignmentReaders
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	ops       *ServiceLogger
	location  *time.Location
	now       func() time.Time
}

func NewAssignmentAnalyticsService(
	readers AssignmentReaders,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	location *time.Location,
) AssignmentAnalyticsService {
	if location == nil {
		location = time.UTC
	}
	return &assignmentAnalyticsService{
		readers:   readers,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		ops:       NewServiceLogger(logger, "assignment-analytics"),
		location:  location,
		now:       time.Now,
	}
}

func (s *assignmentAnalyticsService) load(ctx context.Context, q AssignmentQuery) (*AssignmentDataset, error) {
	if err := s.validator.Validate(&q); err != nil {
		return nil, err
	}
	window, err := parseDateRange(q.From, q.To, s.location)
	if err != nil {
		return nil, err
	}
	return s.readers.LoadAssignmentDataset(ctx, q.TeacherID, q.AssignmentID, window)
}

func (s *assignmentAnalyticsService) GetAnalytics(ctx context.Context, q AssignmentQuery) (resp *AssignmentAnalyticsResponse, err error) {
	op := s.ops.WithOperation(ctx, "GetAssignmentAnalytics", q.TeacherID)
	defer func() { op.LogResult(q.AssignmentID, "assignment", err) }()

	ds, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	result := aggregation.AnalyzeAssignment(ds.input(s.now()))
	return assembleAssignment(ds, result), nil
}

func (s *assignmentAnalyticsService) GetWordStudents(ctx context.Context, q WordStudentsQuery) (resp *WordStudentsResponse, err error) {
	op := s.ops.WithOperation(ctx, "GetWordStudents", q.TeacherID)
	defer func() { op.LogResult(q.AssignmentID, "assignment", err) }()

	if err := s.validator.Validate(&q); err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, q.AssignmentQuery)
	if err != nil {
		return nil, err
	}
	rows := aggregation.WordStruggles(ds.input(s.now()), q.VocabularyID)
	return assembleWordStruggles(q.VocabularyID, rows), nil
}

func (s *assignmentAnalyticsService) Export(ctx context.Context, q AssignmentQuery) (file *ExportFile, err error) {
	op := s.ops.WithOperation(ctx, "ExportAssignmentAnalytics", q.TeacherID)
	defer func() { op.LogResult(q.AssignmentID, "assignment", err) }()

	ds, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	now := s.now()
	meta := export.AssignmentMeta{
		AssignmentID: ds.Assignment.ID,
		Title:        ds.Assignment.Title,
		ClassName:    ds.Class.Name,
		GeneratedAt:  now,
	}
	content, err := export.AssignmentWorkbook(meta, aggregation.AnalyzeAssignment(ds.input(now)))
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	return &ExportFile{Filename: meta.Filename(), ContentType: export.ContentType, Content: content}, nil
}

// NotifyInterventions publishes one event per student whose roster row
// carries an intervention flag.
func (s *assignmentAnalyticsService) NotifyInterventions(ctx context.Context, q AssignmentQuery) (result *NotifyResult, err error) {
	op := s.ops.WithOperation(ctx, "NotifyInterventions", q.TeacherID)
	defer func() { op.LogResult(q.AssignmentID, "assignment", err) }()

	ds, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	now := s.now()
	roster := aggregation.BuildRoster(ds.input(now))

	result = &NotifyResult{}
	for _, sp := range roster {
		if sp.InterventionFlag == aggregation.FlagNone {
			continue
		}
		result.Flagged++
		if result.Disabled {
			continue
		}

		words := make([]events.StruggleWordSummary, 0, len(sp.KeyStruggleWords))
		for _, w := range sp.KeyStruggleWords {
			words = append(words, events.StruggleWordSummary{VocabularyID: w.VocabularyID, Word: w.Word, FailureRate: RoundPercent(w.FailureRate)})
		}
		event := events.NewInterventionFlaggedEvent(events.InterventionFlaggedEvent{
			AssignmentID:     ds.Assignment.ID,
			AssignmentTitle:  ds.Assignment.Title,
			ClassID:          ds.Class.ID,
			TeacherID:        q.TeacherID,
			StudentID:        sp.StudentID,
			StudentName:      sp.Name,
			Flag:             string(sp.InterventionFlag),
			Status:           string(sp.Status),
			FailureRate:      RoundPercent(sp.FailureRate),
			KeyStruggleWords: words,
			FlaggedAt:        now,
		})

		err := s.publisher.Publish(ctx, event)
		if errors.Is(err, events.ErrPublishingDisabled) {
			result.Disabled = true
			continue
		}
		metrics.RecordEventPublished(string(event.Type), err)
		if err != nil {
			return result, fmt.Errorf("failed to publish intervention for student %s: %w", sp.StudentID, err)
		}
		result.Published++
	}

	s.logger.InfoContext(ctx, "Intervention events published",
		"assignment_id", ds.Assignment.ID,
		"flagged", result.Flagged,
		"published", result.Published,
		"disabled", result.Disabled)
	return result, nil
}
