package services

import (
	"strings"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/repositories"
)

const (
	DateLayout          = "2006-01-02"
	DefaultLimit        = 100
	DefaultTrendDays    = 30
	defaultVocabSource  = aggregation.SourceAll
	defaultLeaderScope  = aggregation.ScopeMyClasses
	defaultLeaderPeriod = aggregation.PeriodWeekly
	defaultLeaderMetric = aggregation.MetricPoints
)

// ===== REQUEST TYPES =====

type AssignmentQuery struct {
	TeacherID    string `json:"teacherId" validate:"required"`
	AssignmentID string `json:"assignmentId" validate:"required"`
	From         string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To           string `json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type WordStudentsQuery struct {
	AssignmentQuery
	VocabularyID string `json:"vocabularyId" validate:"required"`
}

type VocabularyQuery struct {
	TeacherID string   `json:"teacherId" validate:"required"`
	ClassID   string   `json:"classId"`
	Sections  []string `json:"sections" validate:"omitempty,dive,analytics_section"`
	From      string   `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string   `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Source    string   `json:"vocabularySource" validate:"omitempty,vocabulary_source"`
}

type LeaderboardQuery struct {
	TeacherID string `json:"teacherId" validate:"required"`
	ClassID   string `json:"classId"`
	Limit     int    `json:"limit"`
	Scope     string `json:"scope" validate:"omitempty,leaderboard_scope"`
	Period    string `json:"timePeriod" validate:"omitempty,time_period"`
	Metric    string `json:"metric" validate:"omitempty,leaderboard_metric"`
}

func (q *LeaderboardQuery) applyDefaults() {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Scope == "" {
		q.Scope = string(defaultLeaderScope)
	}
	if q.Period == "" {
		q.Period = string(defaultLeaderPeriod)
	}
	if q.Metric == "" {
		q.Metric = string(defaultLeaderMetric)
	}
}

func (q *VocabularyQuery) applyDefaults() {
	if q.Source == "" {
		q.Source = string(defaultVocabSource)
	}
	sections := q.Sections[:0:0]
	for _, s := range q.Sections {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	q.Sections = sections
}

func (q *VocabularyQuery) sectionSet() aggregation.SectionSet {
	set := aggregation.SectionSet{}
	for _, s := range q.Sections {
		set[aggregation.Section(s)] = true
	}
	return set
}

// ===== DATE RANGES =====

// DateRange is an inclusive range of calendar days resolved in a location.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Window returns the half-open instant range covering every day of r.
func (r DateRange) Window() repositories.TimeRange {
	start := r.From
	end := r.To.AddDate(0, 0, 1)
	return repositories.TimeRange{Start: &start, End: &end}
}

// parseDateRange reads optional from/to days. It returns nil when both are
// empty. A missing bound defaults to the other one.
func parseDateRange(from, to string, loc *time.Location) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	var errs ValidationErrors
	parse := func(field, value string) time.Time {
		t, err := time.ParseInLocation(DateLayout, value, loc)
		if err != nil {
			errs = append(errs, *NewValidationError(field, "must be a date in 2006-01-02 format", value))
		}
		return t
	}

	if from == "" {
		from = to
	}
	if to == "" {
		to = from
	}
	r := &DateRange{From: parse("from", from), To: parse("to", to)}
	if len(errs) > 0 {
		return nil, errs
	}
	if r.From.After(r.To) {
		return nil, ValidationErrors{*NewValidationError("from", "must not be after to", from)}
	}
	return r, nil
}

// defaultTrendRange is the DefaultTrendDays days ending on the day of now.
func defaultTrendRange(now time.Time, loc *time.Location) DateRange {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DateRange{From: today.AddDate(0, 0, -(DefaultTrendDays - 1)), To: today}
}
