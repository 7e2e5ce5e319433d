package aggregation

import (
	"fmt"
	"sort"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
)

type Scope string

const (
	ScopeMyClasses Scope = "my-classes"
	ScopeSchool    Scope = "school"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

type Metric string

const (
	MetricPoints   Metric = "points"
	MetricXP       Metric = "xp"
	MetricGems     Metric = "gems"
	MetricScore    Metric = "score"
	MetricAccuracy Metric = "accuracy"
)

type ScoreMode string

const (
	ModeSum  ScoreMode = "sum"
	ModeBest ScoreMode = "best"
)

const (
	// GemPointValue is the number of points one gem is worth.
	GemPointValue = 5
	// MaxSessionSeconds drops sessions that were left open or mis-recorded.
	MaxSessionSeconds = 2 * 60 * 60
	// XPPerLevel is the experience needed per level.
	XPPerLevel = 1000

	dailyPlayWarningSeconds  = 8 * 60 * 60
	dailySessionWarningCount = 100
)

// Mode reports whether the metric is summed or maximised over the window.
func (m Metric) Mode() ScoreMode {
	switch m {
	case MetricScore, MetricAccuracy:
		return ModeBest
	}
	return ModeSum
}

// value extracts the metric from one session. ok is false when the session
// carries no value for the metric.
func (m Metric) value(s *models.GameSession) (v float64, ok bool) {
	switch m {
	case MetricXP:
		return float64(s.XPEarned), true
	case MetricGems:
		return float64(s.GemsTotal), true
	case MetricScore:
		if s.FinalScore == nil {
			return 0, false
		}
		return *s.FinalScore, true
	case MetricAccuracy:
		if s.AccuracyPercentage == nil {
			return 0, false
		}
		return *s.AccuracyPercentage, true
	}
	return float64(sessionPoints(s)), true
}

func sessionPoints(s *models.GameSession) int {
	return s.XPEarned + s.GemsTotal*GemPointValue
}

// PeriodStart returns the inclusive start of the period containing now, in
// loc. all_time has no start.
func PeriodStart(p Period, now time.Time, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch p {
	case PeriodDaily:
		return &midnight
	case PeriodWeekly:
		offset := (int(midnight.Weekday()) + 6) % 7 // days since Monday
		start := midnight.AddDate(0, 0, -offset)
		return &start
	case PeriodMonthly:
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return &start
	}
	return nil
}

type LeaderboardInput struct {
	Classes     []*models.Class
	Enrollments []*models.ClassEnrollment
	Sessions    []*models.GameSession
	Profiles    []*models.UserProfile
	Metric      Metric
	WindowStart *time.Time
	Now         time.Time
	Location    *time.Location
	Limit       int
}

type StudentStanding struct {
	Rank            int
	ClassRank       int
	StudentID       string
	Name            string
	ClassID         string
	ClassName       string
	Score           float64
	AchievedAt      time.Time
	Points          int
	XP              int
	Gems            int
	Level           int
	GamesPlayed     int
	TotalSeconds    int
	AverageAccuracy *float64
	BestScores      map[string]float64
	LastActivity    time.Time
	Warnings        []string
}

type ClassStanding struct {
	Rank             int
	ClassID          string
	ClassName        string
	EnrolledStudents int
	ActiveStudents   int
	Sessions         int
	TotalPoints      int
	AveragePoints    float64
	TopStudentID     string
	TopStudentName   string
}

type LeaderboardSummary struct {
	ParticipatingStudents int
	TotalSessions         int
	TotalPoints           int
	TopClassID            string
	TopClassName          string
}

type Leaderboard struct {
	Metric     Metric
	Mode       ScoreMode
	Students   []StudentStanding
	Classes    []ClassStanding
	Summary    LeaderboardSummary
	NoAudience bool
}

// QualifiesForLeaderboard reports whether a session counts inside the window.
func QualifiesForLeaderboard(s *models.GameSession, windowStart *time.Time, now time.Time) bool {
	if s == nil || !s.IsCompleted() || s.EndedAt == nil {
		return false
	}
	if s.DurationSeconds <= 0 || s.DurationSeconds > MaxSessionSeconds {
		return false
	}
	if windowStart != nil && s.EndedAt.Before(*windowStart) {
		return false
	}
	if !now.IsZero() && s.EndedAt.After(now) {
		return false
	}
	return true
}

type standingBuilder struct {
	StudentStanding
	hasValue   bool
	accuracies []*float64
	perDay     map[string]*dayLoad
}

type dayLoad struct {
	seconds  int
	sessions int
}

// BuildLeaderboard ranks students by the configured metric. Ties go to the
// student who reached the score first, then to the lower student id.
func BuildLeaderboard(in LeaderboardInput) Leaderboard {
	metric := in.Metric
	if metric == "" {
		metric = MetricPoints
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	board := Leaderboard{
		Metric:   metric,
		Mode:     metric.Mode(),
		Students: []StudentStanding{},
		Classes:  []ClassStanding{},
	}

	classes := make([]*models.Class, 0, len(in.Classes))
	classByID := make(map[string]*models.Class)
	for _, c := range in.Classes {
		if c == nil {
			continue
		}
		if _, dup := classByID[c.ID]; dup {
			continue
		}
		classByID[c.ID] = c
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	classOrder := make(map[string]int, len(classes))
	for i, c := range classes {
		classOrder[c.ID] = i
	}

	// A student in several classes is placed in the first class by name.
	home := make(map[string]string)
	enrolled := make(map[string]map[string]struct{})
	for _, e := range in.Enrollments {
		if e == nil {
			continue
		}
		if _, ok := classByID[e.ClassID]; !ok {
			continue
		}
		if enrolled[e.ClassID] == nil {
			enrolled[e.ClassID] = make(map[string]struct{})
		}
		enrolled[e.ClassID][e.StudentID] = struct{}{}
		if cur, ok := home[e.StudentID]; !ok || classOrder[e.ClassID] < classOrder[cur] {
			home[e.StudentID] = e.ClassID
		}
	}
	if len(classes) == 0 || len(home) == 0 {
		board.NoAudience = true
		for i, c := range classes {
			board.Classes = append(board.Classes, ClassStanding{
				Rank:             i + 1,
				ClassID:          c.ID,
				ClassName:        c.Name,
				EnrolledStudents: len(enrolled[c.ID]),
			})
		}
		return board
	}

	names := make(map[string]string)
	for _, p := range in.Profiles {
		if p != nil {
			names[p.UserID] = p.Name()
		}
	}

	sessions := make([]*models.GameSession, 0, len(in.Sessions))
	for _, s := range in.Sessions {
		if !QualifiesForLeaderboard(s, in.WindowStart, in.Now) {
			continue
		}
		if _, ok := home[s.StudentID]; ok {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].EndedAt.Equal(*sessions[j].EndedAt) {
			return sessions[i].EndedAt.Before(*sessions[j].EndedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})

	builders := make(map[string]*standingBuilder)
	for _, s := range sessions {
		b, ok := builders[s.StudentID]
		if !ok {
			classID := home[s.StudentID]
			name := names[s.StudentID]
			if name == "" {
				name = s.StudentID
			}
			b = &standingBuilder{
				StudentStanding: StudentStanding{
					StudentID:  s.StudentID,
					Name:       name,
					ClassID:    classID,
					ClassName:  classByID[classID].Name,
					BestScores: map[string]float64{},
					Warnings:   []string{},
				},
				perDay: make(map[string]*dayLoad),
			}
			builders[s.StudentID] = b
		}
		b.accumulate(s, metric, loc)
	}

	standings := make([]StudentStanding, 0, len(builders))
	for _, id := range sortedKeys(builders) {
		b := builders[id]
		if !b.hasValue {
			continue
		}
		b.finish()
		standings = append(standings, b.StudentStanding)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return rankBefore(standings[i], standings[j])
	})

	classRanks := make(map[string]int)
	for i := range standings {
		standings[i].Rank = i + 1
		classRanks[standings[i].ClassID]++
		standings[i].ClassRank = classRanks[standings[i].ClassID]
	}

	board.Classes = buildClassBoard(classes, enrolled, home, sessions, standings)
	board.Summary = LeaderboardSummary{
		ParticipatingStudents: len(standings),
		TotalSessions:         len(sessions),
	}
	for _, s := range sessions {
		board.Summary.TotalPoints += sessionPoints(s)
	}
	if len(board.Classes) > 0 && board.Classes[0].TotalPoints > 0 {
		board.Summary.TopClassID = board.Classes[0].ClassID
		board.Summary.TopClassName = board.Classes[0].ClassName
	}

	if in.Limit > 0 && len(standings) > in.Limit {
		standings = standings[:in.Limit]
	}
	board.Students = standings
	return board
}

func rankBefore(a, b StudentStanding) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.AchievedAt.Equal(b.AchievedAt) {
		return a.AchievedAt.Before(b.AchievedAt)
	}
	return a.StudentID < b.StudentID
}

// accumulate folds one session in. Sessions arrive in ended_at order, which
// is what makes the achievement time well defined.
func (b *standingBuilder) accumulate(s *models.GameSession, metric Metric, loc *time.Location) {
	ended := *s.EndedAt

	b.GamesPlayed++
	b.TotalSeconds += s.DurationSeconds
	b.XP += s.XPEarned
	b.Gems += s.GemsTotal
	b.Points += sessionPoints(s)
	b.accuracies = append(b.accuracies, s.AccuracyPercentage)
	if ended.After(b.LastActivity) {
		b.LastActivity = ended
	}
	if s.FinalScore != nil && s.GameType != "" {
		if cur, ok := b.BestScores[s.GameType]; !ok || *s.FinalScore > cur {
			b.BestScores[s.GameType] = *s.FinalScore
		}
	}

	day := s.StartedAt.In(loc).Format("2006-01-02")
	load, ok := b.perDay[day]
	if !ok {
		load = &dayLoad{}
		b.perDay[day] = load
	}
	load.seconds += s.DurationSeconds
	load.sessions++

	v, ok := metric.value(s)
	if !ok {
		return
	}
	switch metric.Mode() {
	case ModeBest:
		if !b.hasValue || v > b.Score {
			b.Score = v
			b.AchievedAt = ended
		}
	default:
		if !b.hasValue || v != 0 {
			b.AchievedAt = ended
		}
		b.Score += v
	}
	b.hasValue = true
}

func (b *standingBuilder) finish() {
	b.Level = b.XP/XPPerLevel + 1
	b.AverageAccuracy = mean(b.accuracies)
	for _, day := range sortedKeys(b.perDay) {
		load := b.perDay[day]
		if load.seconds > dailyPlayWarningSeconds {
			b.Warnings = append(b.Warnings, fmt.Sprintf("played more than 8 hours on %s", day))
		}
		if load.sessions > dailySessionWarningCount {
			b.Warnings = append(b.Warnings, fmt.Sprintf("more than %d sessions on %s", dailySessionWarningCount, day))
		}
	}
}

func buildClassBoard(
	classes []*models.Class,
	enrolled map[string]map[string]struct{},
	home map[string]string,
	sessions []*models.GameSession,
	standings []StudentStanding,
) []ClassStanding {
	byClass := make(map[string]*ClassStanding, len(classes))
	board := make([]ClassStanding, 0, len(classes))
	for _, c := range classes {
		byClass[c.ID] = &ClassStanding{
			ClassID:          c.ID,
			ClassName:        c.Name,
			EnrolledStudents: len(enrolled[c.ID]),
		}
	}

	active := make(map[string]map[string]struct{})
	for _, s := range sessions {
		classID := home[s.StudentID]
		cs := byClass[classID]
		cs.Sessions++
		cs.TotalPoints += sessionPoints(s)
		if active[classID] == nil {
			active[classID] = make(map[string]struct{})
		}
		active[classID][s.StudentID] = struct{}{}
	}
	for _, st := range standings {
		if cs := byClass[st.ClassID]; cs.TopStudentID == "" {
			cs.TopStudentID = st.StudentID
			cs.TopStudentName = st.Name
		}
	}

	for _, c := range classes {
		cs := byClass[c.ID]
		cs.ActiveStudents = len(active[c.ID])
		if cs.ActiveStudents > 0 {
			cs.AveragePoints = float64(cs.TotalPoints) / float64(cs.ActiveStudents)
		}
		board = append(board, *cs)
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].TotalPoints != board[j].TotalPoints {
			return board[i].TotalPoints > board[j].TotalPoints
		}
		if board[i].ClassName != board[j].ClassName {
			return board[i].ClassName < board[j].ClassName
		}
		return board[i].ClassID < board[j].ClassID
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board
}
