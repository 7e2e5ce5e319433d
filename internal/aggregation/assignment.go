package aggregation

import (
	"sort"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
)

const (
	// HighFailureThreshold is the failure rate above which a student needs help.
	HighFailureThreshold = 30.0
	// UnusuallyLongSeconds flags in-progress students who have spent over an hour.
	UnusuallyLongSeconds = 60 * 60
	// StoppedMidwaySeconds flags in-progress students with time spent but no answers.
	StoppedMidwaySeconds = 10 * 60

	keyStruggleWordLimit       = 3
	keyStruggleMinAttempts     = 2
	keyStruggleFailureRateOver = 50.0
)

// AssignmentInput is the raw row set for a single assignment.
type AssignmentInput struct {
	Enrollments []*models.ClassEnrollment
	Sessions    []*models.GameSession
	Attempts    []*models.VocabularyAttempt
	Progress    []*models.AssignmentProgress
	Profiles    []*models.UserProfile
	// Now is used only to estimate elapsed time of sessions still running.
	Now time.Time
}

type InsightLevel string

const (
	InsightSuccess InsightLevel = "success"
	InsightMonitor InsightLevel = "monitor"
	InsightReview  InsightLevel = "review"
	InsightProblem InsightLevel = "problem"
)

type InterventionFlag string

const (
	FlagNone          InterventionFlag = "none"
	FlagHighFailure   InterventionFlag = "high_failure"
	FlagUnusuallyLong InterventionFlag = "unusually_long"
	FlagStoppedMidway InterventionFlag = "stopped_midway"
)

type RecommendedIntervention string

const (
	InterventionIndividual RecommendedIntervention = "individual_reassignment"
	InterventionSmallGroup RecommendedIntervention = "small_group_review"
	InterventionMonitor    RecommendedIntervention = "monitor"
)

type Overview struct {
	TotalStudents       int
	StudentsWithSession int
	StudentsCompleted   int
	StudentsInProgress  int
	StudentsAbandoned   int
	StudentsNotStarted  int
	AverageAccuracy     *float64
	AverageTimeSeconds  *float64
	CompletionRate      float64
	ClassSuccessScore   *float64
	StudentsNeedingHelp int
	TotalAttempts       int
	NoAudience          bool
}

type WordDifficulty struct {
	Rank                       int
	VocabularyID               string
	Word                       string
	Translation                string
	TotalAttempts              int
	CorrectAttempts            int
	Accuracy                   float64
	FailureRate                float64
	StudentsAttempted          int
	AverageResponseTimeSeconds *float64
	InsightLevel               InsightLevel
}

type StruggleWord struct {
	VocabularyID string
	Word         string
	Attempts     int
	Errors       int
	FailureRate  float64
}

type StudentProgress struct {
	StudentID        string
	Name             string
	Status           models.CompletionStatus
	SessionsCount    int
	BestAccuracy     *float64
	BestScore        *float64
	TimeSpentSeconds int
	LastActivity     *time.Time
	TotalAttempts    int
	CorrectAttempts  int
	SuccessScore     *float64
	FailureRate      float64
	KeyStruggleWords []StruggleWord
	InterventionFlag InterventionFlag
}

type WordStruggle struct {
	StudentID               string
	Name                    string
	Attempts                int
	Errors                  int
	FailureRate             float64
	LastAttemptAt           *time.Time
	RecommendedIntervention RecommendedIntervention
}

// AssignmentResult bundles the three assignment sections.
type AssignmentResult struct {
	Overview Overview
	Words    []WordDifficulty
	Students []StudentProgress
}

// assignmentIndex is the normalized view shared by every assignment section.
// Only enrolled students are kept, and scoring attempts are restricted to
// completed sessions.
type assignmentIndex struct {
	students          []string
	sessionsByStudent map[string][]*models.GameSession
	completed         []*models.GameSession
	scoringAttempts   []*models.VocabularyAttempt
	attemptsByStudent map[string][]*models.VocabularyAttempt
	progressByStudent map[string]*models.AssignmentProgress
	profiles          map[string]*models.UserProfile
	now               time.Time
}

func newAssignmentIndex(in AssignmentInput) *assignmentIndex {
	idx := &assignmentIndex{
		sessionsByStudent: make(map[string][]*models.GameSession),
		attemptsByStudent: make(map[string][]*models.VocabularyAttempt),
		progressByStudent: make(map[string]*models.AssignmentProgress),
		profiles:          make(map[string]*models.UserProfile),
		now:               in.Now,
	}

	enrolled := make(map[string]struct{})
	for _, e := range in.Enrollments {
		if e == nil || e.StudentID == "" {
			continue
		}
		if _, ok := enrolled[e.StudentID]; !ok {
			enrolled[e.StudentID] = struct{}{}
			idx.students = append(idx.students, e.StudentID)
		}
	}
	sort.Strings(idx.students)

	sessions := make([]*models.GameSession, 0, len(in.Sessions))
	for _, s := range in.Sessions {
		if s == nil {
			continue
		}
		if _, ok := enrolled[s.StudentID]; ok {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.Before(sessions[j].StartedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})

	completedIDs := make(map[string]struct{})
	for _, s := range sessions {
		idx.sessionsByStudent[s.StudentID] = append(idx.sessionsByStudent[s.StudentID], s)
		if s.IsCompleted() {
			idx.completed = append(idx.completed, s)
			completedIDs[s.ID] = struct{}{}
		}
	}

	for _, a := range in.Attempts {
		if a == nil {
			continue
		}
		if _, ok := completedIDs[a.SessionID]; ok {
			idx.scoringAttempts = append(idx.scoringAttempts, a)
		}
	}
	sort.Slice(idx.scoringAttempts, func(i, j int) bool {
		a, b := idx.scoringAttempts[i], idx.scoringAttempts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for _, a := range idx.scoringAttempts {
		idx.attemptsByStudent[a.StudentID] = append(idx.attemptsByStudent[a.StudentID], a)
	}

	for _, p := range in.Progress {
		if p == nil {
			continue
		}
		if _, ok := enrolled[p.StudentID]; !ok {
			continue
		}
		if prev, ok := idx.progressByStudent[p.StudentID]; ok {
			merged := *prev
			merged.BestAccuracy = maxFloat(prev.BestAccuracy, p.BestAccuracy)
			merged.BestScore = maxFloat(prev.BestScore, p.BestScore)
			idx.progressByStudent[p.StudentID] = &merged
			continue
		}
		idx.progressByStudent[p.StudentID] = p
	}

	for _, p := range in.Profiles {
		if p != nil {
			idx.profiles[p.UserID] = p
		}
	}
	return idx
}

func (idx *assignmentIndex) name(studentID string) string {
	if p, ok := idx.profiles[studentID]; ok {
		if n := p.Name(); n != "" {
			return n
		}
	}
	return studentID
}

// ClassifyStudent derives a student's assignment status from their sessions.
// A student with no sessions is not_started whatever any progress row says.
func ClassifyStudent(sessions []*models.GameSession) models.CompletionStatus {
	if len(sessions) == 0 {
		return models.StatusNotStarted
	}
	inProgress := false
	for _, s := range sessions {
		switch s.CompletionStatus {
		case models.StatusCompleted:
			return models.StatusCompleted
		case models.StatusInProgress, models.StatusNotStarted:
			inProgress = true
		}
	}
	if inProgress {
		return models.StatusInProgress
	}
	return models.StatusAbandoned
}

// AnalyzeAssignment computes every assignment section from one index.
func AnalyzeAssignment(in AssignmentInput) AssignmentResult {
	idx := newAssignmentIndex(in)
	students := idx.roster()
	return AssignmentResult{
		Overview: idx.overview(students),
		Words:    idx.wordDifficulty(),
		Students: students,
	}
}

// ComputeOverview returns only the overview section.
func ComputeOverview(in AssignmentInput) Overview {
	idx := newAssignmentIndex(in)
	return idx.overview(idx.roster())
}

// RankWordDifficulty returns words hardest first.
func RankWordDifficulty(in AssignmentInput) []WordDifficulty {
	return newAssignmentIndex(in).wordDifficulty()
}

// BuildRoster returns one progress row per enrolled student.
func BuildRoster(in AssignmentInput) []StudentProgress {
	return newAssignmentIndex(in).roster()
}

func (idx *assignmentIndex) overview(roster []StudentProgress) Overview {
	o := Overview{
		TotalStudents: len(idx.students),
		NoAudience:    len(idx.students) == 0,
	}

	for _, sp := range roster {
		switch sp.Status {
		case models.StatusCompleted:
			o.StudentsCompleted++
		case models.StatusInProgress:
			o.StudentsInProgress++
		case models.StatusAbandoned:
			o.StudentsAbandoned++
		default:
			o.StudentsNotStarted++
		}
		if sp.TotalAttempts > 0 && sp.FailureRate > HighFailureThreshold {
			o.StudentsNeedingHelp++
		}
	}
	o.StudentsWithSession = o.TotalStudents - o.StudentsNotStarted

	accuracies := make([]*float64, 0, len(idx.completed))
	durations := make([]*float64, 0, len(idx.completed))
	for _, s := range idx.completed {
		accuracies = append(accuracies, s.AccuracyPercentage)
		durations = append(durations, floatPtr(float64(s.DurationSeconds)))
	}
	o.AverageAccuracy = mean(accuracies)
	o.AverageTimeSeconds = mean(durations)

	if o.TotalStudents > 0 {
		o.CompletionRate = float64(o.StudentsCompleted) / float64(o.TotalStudents) * 100
	}

	correct := 0
	for _, a := range idx.scoringAttempts {
		if a.WasCorrect {
			correct++
		}
	}
	o.TotalAttempts = len(idx.scoringAttempts)
	o.ClassSuccessScore = percent(correct, o.TotalAttempts)
	return o
}

type wordTally struct {
	id            string
	word          string
	translation   string
	total         int
	correct       int
	students      map[string]struct{}
	responseTimes []*float64
}

func tallyWords(attempts []*models.VocabularyAttempt) map[string]*wordTally {
	tallies := make(map[string]*wordTally)
	for _, a := range attempts {
		if a.VocabularyID == nil || *a.VocabularyID == "" {
			continue
		}
		t, ok := tallies[*a.VocabularyID]
		if !ok {
			t = &wordTally{id: *a.VocabularyID, students: make(map[string]struct{})}
			tallies[t.id] = t
		}
		if t.word == "" {
			t.word = a.WordText
		}
		if t.translation == "" {
			t.translation = a.TranslationText
		}
		t.total++
		if a.WasCorrect {
			t.correct++
		}
		t.students[a.StudentID] = struct{}{}
		t.responseTimes = append(t.responseTimes, a.ResponseTimeSeconds)
	}
	return tallies
}

// sortTalliesHardestFirst orders by exact accuracy ascending, then by more
// attempts, then by id.
func sortTalliesHardestFirst(tallies []*wordTally) {
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if c := compareRatio(a.correct, a.total, b.correct, b.total); c != 0 {
			return c < 0
		}
		if a.total != b.total {
			return a.total > b.total
		}
		return a.id < b.id
	})
}

// WordInsight classifies a word by its failure rate. Words with fewer than
// five attempts only distinguish review from success.
func WordInsight(total int, failure float64) InsightLevel {
	if total < 5 {
		if failure >= 50 {
			return InsightReview
		}
		return InsightSuccess
	}
	switch {
	case failure > 70:
		return InsightProblem
	case failure > 50:
		return InsightReview
	case failure > 30:
		return InsightMonitor
	}
	return InsightSuccess
}

func (idx *assignmentIndex) wordDifficulty() []WordDifficulty {
	tallies := tallyWords(idx.scoringAttempts)
	list := make([]*wordTally, 0, len(tallies))
	for _, key := range sortedKeys(tallies) {
		list = append(list, tallies[key])
	}
	sortTalliesHardestFirst(list)

	words := make([]WordDifficulty, 0, len(list))
	for i, t := range list {
		fr := failureRate(t.correct, t.total)
		words = append(words, WordDifficulty{
			Rank:                       i + 1,
			VocabularyID:               t.id,
			Word:                       t.word,
			Translation:                t.translation,
			TotalAttempts:              t.total,
			CorrectAttempts:            t.correct,
			Accuracy:                   float64(t.correct) / float64(t.total) * 100,
			FailureRate:                fr,
			StudentsAttempted:          len(t.students),
			AverageResponseTimeSeconds: mean(t.responseTimes),
			InsightLevel:               WordInsight(t.total, fr),
		})
	}
	return words
}

func (idx *assignmentIndex) roster() []StudentProgress {
	roster := make([]StudentProgress, 0, len(idx.students))
	for _, studentID := range idx.students {
		roster = append(roster, idx.studentProgress(studentID))
	}
	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if a.FailureRate != b.FailureRate {
			return a.FailureRate > b.FailureRate
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
	return roster
}

func (idx *assignmentIndex) studentProgress(studentID string) StudentProgress {
	sessions := idx.sessionsByStudent[studentID]
	sp := StudentProgress{
		StudentID:        studentID,
		Name:             idx.name(studentID),
		Status:           ClassifyStudent(sessions),
		SessionsCount:    len(sessions),
		KeyStruggleWords: []StruggleWord{},
		InterventionFlag: FlagNone,
	}

	for _, s := range sessions {
		sp.TimeSpentSeconds += idx.elapsedSeconds(s)
		sp.LastActivity = laterTime(sp.LastActivity, timePtr(s.StartedAt))
		sp.LastActivity = laterTime(sp.LastActivity, s.EndedAt)
		if s.IsCompleted() {
			sp.BestAccuracy = maxFloat(sp.BestAccuracy, s.AccuracyPercentage)
			sp.BestScore = maxFloat(sp.BestScore, s.FinalScore)
		}
	}

	// A progress row may only raise a best, and is ignored without sessions.
	if p, ok := idx.progressByStudent[studentID]; ok && len(sessions) > 0 {
		sp.BestAccuracy = maxFloat(sp.BestAccuracy, p.BestAccuracy)
		sp.BestScore = maxFloat(sp.BestScore, p.BestScore)
	}

	attempts := idx.attemptsByStudent[studentID]
	for _, a := range attempts {
		sp.TotalAttempts++
		if a.WasCorrect {
			sp.CorrectAttempts++
		}
		sp.LastActivity = laterTime(sp.LastActivity, timePtr(a.CreatedAt))
	}
	sp.SuccessScore = percent(sp.CorrectAttempts, sp.TotalAttempts)
	sp.FailureRate = failureRate(sp.CorrectAttempts, sp.TotalAttempts)
	sp.KeyStruggleWords = keyStruggleWords(attempts)
	sp.InterventionFlag = interventionFlag(sp)
	return sp
}

// elapsedSeconds uses the recorded duration, or the time since start for a
// session that is still running and has not reported one yet.
func (idx *assignmentIndex) elapsedSeconds(s *models.GameSession) int {
	if s.DurationSeconds > 0 || s.EndedAt != nil || s.CompletionStatus != models.StatusInProgress {
		return s.DurationSeconds
	}
	if idx.now.IsZero() || idx.now.Before(s.StartedAt) {
		return 0
	}
	return int(idx.now.Sub(s.StartedAt) / time.Second)
}

func keyStruggleWords(attempts []*models.VocabularyAttempt) []StruggleWord {
	tallies := tallyWords(attempts)
	words := make([]StruggleWord, 0)
	for _, key := range sortedKeys(tallies) {
		t := tallies[key]
		fr := failureRate(t.correct, t.total)
		if t.total < keyStruggleMinAttempts || fr <= keyStruggleFailureRateOver {
			continue
		}
		words = append(words, StruggleWord{
			VocabularyID: t.id,
			Word:         t.word,
			Attempts:     t.total,
			Errors:       t.total - t.correct,
			FailureRate:  fr,
		})
	}
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].FailureRate != words[j].FailureRate {
			return words[i].FailureRate > words[j].FailureRate
		}
		if words[i].Attempts != words[j].Attempts {
			return words[i].Attempts > words[j].Attempts
		}
		return words[i].VocabularyID < words[j].VocabularyID
	})
	if len(words) > keyStruggleWordLimit {
		words = words[:keyStruggleWordLimit]
	}
	return words
}

func interventionFlag(sp StudentProgress) InterventionFlag {
	switch {
	case sp.TotalAttempts > 0 && sp.FailureRate > HighFailureThreshold:
		return FlagHighFailure
	case sp.Status == models.StatusInProgress && sp.TimeSpentSeconds > UnusuallyLongSeconds:
		return FlagUnusuallyLong
	case sp.Status == models.StatusAbandoned:
		return FlagStoppedMidway
	case sp.Status == models.StatusInProgress && sp.TimeSpentSeconds > StoppedMidwaySeconds && sp.TotalAttempts == 0:
		return FlagStoppedMidway
	}
	return FlagNone
}

// RecommendIntervention maps a per-word failure rate to a follow-up.
func RecommendIntervention(failure float64) RecommendedIntervention {
	switch {
	case failure > 60:
		return InterventionIndividual
	case failure > 40:
		return InterventionSmallGroup
	}
	return InterventionMonitor
}

// WordStruggles lists every enrolled student who attempted the word, worst
// first.
func WordStruggles(in AssignmentInput, vocabularyID string) []WordStruggle {
	idx := newAssignmentIndex(in)

	type tally struct {
		total, correct int
		last           *time.Time
	}
	byStudent := make(map[string]*tally)
	for _, a := range idx.scoringAttempts {
		if a.VocabularyID == nil || *a.VocabularyID != vocabularyID {
			continue
		}
		t, ok := byStudent[a.StudentID]
		if !ok {
			t = &tally{}
			byStudent[a.StudentID] = t
		}
		t.total++
		if a.WasCorrect {
			t.correct++
		}
		t.last = laterTime(t.last, timePtr(a.CreatedAt))
	}

	out := make([]WordStruggle, 0, len(byStudent))
	for _, studentID := range sortedKeys(byStudent) {
		t := byStudent[studentID]
		fr := failureRate(t.correct, t.total)
		out = append(out, WordStruggle{
			StudentID:               studentID,
			Name:                    idx.name(studentID),
			Attempts:                t.total,
			Errors:                  t.total - t.correct,
			FailureRate:             fr,
			LastAttemptAt:           t.last,
			RecommendedIntervention: RecommendIntervention(fr),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FailureRate != out[j].FailureRate {
			return out[i].FailureRate > out[j].FailureRate
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}
