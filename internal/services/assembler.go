package services

import (
	"math"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/models"
)

// RoundPercent rounds a display percentage to a whole number, half away
// from zero.
func RoundPercent(v float64) float64 {
	return math.Round(v)
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := RoundPercent(*v)
	return &r
}

func roundTenths(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*10) / 10
	return &r
}

func minutes(seconds int) int {
	return int(math.Round(float64(seconds) / 60))
}

func minutesPtr(seconds *float64) *float64 {
	if seconds == nil {
		return nil
	}
	m := math.Round(*seconds / 60)
	return &m
}

// sectionRef keeps the difference between an unrequested section (nil) and
// a requested but empty one.
func sectionRef[T any](s []T) *[]T {
	if s == nil {
		return nil
	}
	return &s
}

// ===== ASSIGNMENT RESPONSES =====

type AssignmentOverviewMetrics struct {
	AssignmentID        string   `json:"assignmentId"`
	AssignmentTitle     string   `json:"assignmentTitle"`
	ClassID             string   `json:"classId"`
	ClassName           string   `json:"className"`
	GameType            string   `json:"gameType,omitempty"`
	GameConfigType      string   `json:"gameConfigType,omitempty"`
	SelectedGames       []string `json:"selectedGames,omitempty"`
	TotalStudents       int      `json:"totalStudents"`
	StudentsWithSession int      `json:"studentsWithSession"`
	StudentsCompleted   int      `json:"studentsCompleted"`
	StudentsInProgress  int      `json:"studentsInProgress"`
	StudentsAbandoned   int      `json:"studentsAbandoned"`
	StudentsNotStarted  int      `json:"studentsNotStarted"`
	AverageAccuracy     *float64 `json:"averageAccuracy"`
	AverageTimeSeconds  *float64 `json:"averageTimeSeconds"`
	AverageTimeMinutes  *float64 `json:"averageTimeMinutes"`
	CompletionRate      float64  `json:"completionRate"`
	ClassSuccessScore   *float64 `json:"classSuccessScore"`
	StudentsNeedingHelp int      `json:"studentsNeedingHelp"`
	TotalAttempts       int      `json:"totalAttempts"`
	NoAudience          bool     `json:"noAudience"`
}

type WordDifficultyResponse struct {
	Rank                       int      `json:"rank"`
	VocabularyID               string   `json:"vocabularyId"`
	Word                       string   `json:"word"`
	Translation                string   `json:"translation"`
	TotalAttempts              int      `json:"totalAttempts"`
	CorrectAttempts            int      `json:"correctAttempts"`
	Accuracy                   float64  `json:"accuracy"`
	FailureRate                float64  `json:"failureRate"`
	StudentsAttempted          int      `json:"studentsAttempted"`
	AverageResponseTimeSeconds *float64 `json:"averageResponseTimeSeconds"`
	InsightLevel               string   `json:"insightLevel"`
}

type StruggleWordResponse struct {
	VocabularyID string  `json:"vocabularyId"`
	Word         string  `json:"word"`
	Attempts     int     `json:"attempts"`
	Errors       int     `json:"errors"`
	FailureRate  float64 `json:"failureRate"`
}

type StudentProgressResponse struct {
	StudentID        string                 `json:"studentId"`
	Name             string                 `json:"name"`
	Status           string                 `json:"status"`
	SessionsCount    int                    `json:"sessionsCount"`
	BestAccuracy     *float64               `json:"bestAccuracy"`
	BestScore        *float64               `json:"bestScore"`
	TimeSpentMinutes int                    `json:"timeSpentMinutes"`
	LastActivity     *time.Time             `json:"lastActivity"`
	TotalAttempts    int                    `json:"totalAttempts"`
	CorrectAttempts  int                    `json:"correctAttempts"`
	SuccessScore     *float64               `json:"successScore"`
	FailureRate      float64                `json:"failureRate"`
	KeyStruggleWords []StruggleWordResponse `json:"keyStruggleWords"`
	InterventionFlag string                 `json:"interventionFlag"`
}

type AssignmentAnalyticsResponse struct {
	Overview AssignmentOverviewMetrics `json:"overview"`
	Words    []WordDifficultyResponse  `json:"words"`
	Students []StudentProgressResponse `json:"students"`
}

type WordStruggleResponse struct {
	StudentID               string     `json:"studentId"`
	Name                    string     `json:"name"`
	Attempts                int        `json:"attempts"`
	Errors                  int        `json:"errors"`
	FailureRate             float64    `json:"failureRate"`
	LastAttemptAt           *time.Time `json:"lastAttemptAt"`
	RecommendedIntervention string     `json:"recommendedIntervention"`
}

type WordStudentsResponse struct {
	VocabularyID string                 `json:"vocabularyId"`
	Students     []WordStruggleResponse `json:"students"`
}

func assembleOverview(ds *AssignmentDataset, o aggregation.Overview) AssignmentOverviewMetrics {
	out := AssignmentOverviewMetrics{
		TotalStudents:       o.TotalStudents,
		StudentsWithSession: o.StudentsWithSession,
		StudentsCompleted:   o.StudentsCompleted,
		StudentsInProgress:  o.StudentsInProgress,
		StudentsAbandoned:   o.StudentsAbandoned,
		StudentsNotStarted:  o.StudentsNotStarted,
		AverageAccuracy:     roundPtr(o.AverageAccuracy),
		AverageTimeSeconds:  roundPtr(o.AverageTimeSeconds),
		AverageTimeMinutes:  minutesPtr(o.AverageTimeSeconds),
		CompletionRate:      RoundPercent(o.CompletionRate),
		ClassSuccessScore:   roundPtr(o.ClassSuccessScore),
		StudentsNeedingHelp: o.StudentsNeedingHelp,
		TotalAttempts:       o.TotalAttempts,
		NoAudience:          o.NoAudience,
	}
	if ds != nil && ds.Assignment != nil {
		out.AssignmentID = ds.Assignment.ID
		out.AssignmentTitle = ds.Assignment.Title
		out.GameType = ds.Assignment.GameType
	}
	if ds != nil && ds.GameConfig != nil {
		out.GameConfigType = string(ds.GameConfig.ConfigType())
		if legacy, ok := ds.GameConfig.(models.LegacyGameConfig); ok {
			out.SelectedGames = legacy.SelectedGames
		}
	}
	if ds != nil && ds.Class != nil {
		out.ClassID = ds.Class.ID
		out.ClassName = ds.Class.Name
	}
	return out
}

func assembleWords(words []aggregation.WordDifficulty) []WordDifficultyResponse {
	out := make([]WordDifficultyResponse, 0, len(words))
	for _, w := range words {
		out = append(out, WordDifficultyResponse{
			Rank:                       w.Rank,
			VocabularyID:               w.VocabularyID,
			Word:                       w.Word,
			Translation:                w.Translation,
			TotalAttempts:              w.TotalAttempts,
			CorrectAttempts:            w.CorrectAttempts,
			Accuracy:                   RoundPercent(w.Accuracy),
			FailureRate:                RoundPercent(w.FailureRate),
			StudentsAttempted:          w.StudentsAttempted,
			AverageResponseTimeSeconds: roundTenths(w.AverageResponseTimeSeconds),
			InsightLevel:               string(w.InsightLevel),
		})
	}
	return out
}

func assembleStudents(roster []aggregation.StudentProgress) []StudentProgressResponse {
	out := make([]StudentProgressResponse, 0, len(roster))
	for _, sp := range roster {
		struggles := make([]StruggleWordResponse, 0, len(sp.KeyStruggleWords))
		for _, w := range sp.KeyStruggleWords {
			struggles = append(struggles, StruggleWordResponse{
				VocabularyID: w.VocabularyID,
				Word:         w.Word,
				Attempts:     w.Attempts,
				Errors:       w.Errors,
				FailureRate:  RoundPercent(w.FailureRate),
			})
		}
		out = append(out, StudentProgressResponse{
			StudentID:        sp.StudentID,
			Name:             sp.Name,
			Status:           string(sp.Status),
			SessionsCount:    sp.SessionsCount,
			BestAccuracy:     roundPtr(sp.BestAccuracy),
			BestScore:        sp.BestScore,
			TimeSpentMinutes: minutes(sp.TimeSpentSeconds),
			LastActivity:     sp.LastActivity,
			TotalAttempts:    sp.TotalAttempts,
			CorrectAttempts:  sp.CorrectAttempts,
			SuccessScore:     roundPtr(sp.SuccessScore),
			FailureRate:      RoundPercent(sp.FailureRate),
			KeyStruggleWords: struggles,
			InterventionFlag: string(sp.InterventionFlag),
		})
	}
	return out
}

func assembleAssignment(ds *AssignmentDataset, result aggregation.AssignmentResult) *AssignmentAnalyticsResponse {
	return &AssignmentAnalyticsResponse{
		Overview: assembleOverview(ds, result.Overview),
		Words:    assembleWords(result.Words),
		Students: assembleStudents(result.Students),
	}
}

func assembleWordStruggles(vocabularyID string, rows []aggregation.WordStruggle) *WordStudentsResponse {
	out := &WordStudentsResponse{VocabularyID: vocabularyID, Students: make([]WordStruggleResponse, 0, len(rows))}
	for _, r := range rows {
		out.Students = append(out.Students, WordStruggleResponse{
			StudentID:               r.StudentID,
			Name:                    r.Name,
			Attempts:                r.Attempts,
			Errors:                  r.Errors,
			FailureRate:             RoundPercent(r.FailureRate),
			LastAttemptAt:           r.LastAttemptAt,
			RecommendedIntervention: string(r.RecommendedIntervention),
		})
	}
	return out
}

// ===== LEADERBOARD RESPONSES =====

type LeaderboardEntry struct {
	Rank            int                `json:"rank"`
	ClassRank       int                `json:"classRank"`
	StudentID       string             `json:"studentId"`
	Name            string             `json:"name"`
	ClassID         string             `json:"classId"`
	ClassName       string             `json:"className"`
	Score           float64            `json:"score"`
	AchievedAt      time.Time          `json:"achievedAt"`
	Points          int                `json:"points"`
	XP              int                `json:"xp"`
	Gems            int                `json:"gems"`
	Level           int                `json:"level"`
	GamesPlayed     int                `json:"gamesPlayed"`
	TotalMinutes    int                `json:"totalMinutes"`
	AverageAccuracy *float64           `json:"averageAccuracy"`
	BestScores      map[string]float64 `json:"bestScores"`
	LastActivity    time.Time          `json:"lastActivity"`
	Warnings        []string           `json:"warnings,omitempty"`
}

type ClassLeaderboardEntry struct {
	Rank             int     `json:"rank"`
	ClassID          string  `json:"classId"`
	ClassName        string  `json:"className"`
	EnrolledStudents int     `json:"enrolledStudents"`
	ActiveStudents   int     `json:"activeStudents"`
	Sessions         int     `json:"sessions"`
	TotalPoints      int     `json:"totalPoints"`
	AveragePoints    float64 `json:"averagePoints"`
	TopStudentID     string  `json:"topStudentId,omitempty"`
	TopStudentName   string  `json:"topStudentName,omitempty"`
}

type LeaderboardSummary struct {
	ParticipatingStudents int    `json:"participatingStudents"`
	TotalSessions         int    `json:"totalSessions"`
	TotalPoints           int    `json:"totalPoints"`
	TopClassID            string `json:"topClassId,omitempty"`
	TopClassName          string `json:"topClassName,omitempty"`
}

type LeaderboardPayload struct {
	Scope         string                  `json:"scope"`
	TimePeriod    string                  `json:"timePeriod"`
	Metric        string                  `json:"metric"`
	Mode          string                  `json:"mode"`
	ScopeFallback bool                    `json:"scopeFallback"`
	WindowStart   *time.Time              `json:"windowStart"`
	GeneratedAt   time.Time               `json:"generatedAt"`
	NoAudience    bool                    `json:"noAudience"`
	Students      []LeaderboardEntry      `json:"students"`
	Classes       []ClassLeaderboardEntry `json:"classes"`
	Summary       LeaderboardSummary      `json:"summary"`
}

func assembleLeaderboard(q LeaderboardQuery, ds *LeaderboardDataset, board aggregation.Leaderboard, windowStart *time.Time, now time.Time) *LeaderboardPayload {
	out := &LeaderboardPayload{
		Scope:       q.Scope,
		TimePeriod:  q.Period,
		Metric:      string(board.Metric),
		Mode:        string(board.Mode),
		WindowStart: windowStart,
		GeneratedAt: now,
		NoAudience:  board.NoAudience,
		Students:    make([]LeaderboardEntry, 0, len(board.Students)),
		Classes:     make([]ClassLeaderboardEntry, 0, len(board.Classes)),
		Summary: LeaderboardSummary{
			ParticipatingStudents: board.Summary.ParticipatingStudents,
			TotalSessions:         board.Summary.TotalSessions,
			TotalPoints:           board.Summary.TotalPoints,
			TopClassID:            board.Summary.TopClassID,
			TopClassName:          board.Summary.TopClassName,
		},
	}
	if ds != nil {
		out.ScopeFallback = ds.ScopeFallback
	}

	for _, s := range board.Students {
		score := s.Score
		if board.Metric == aggregation.MetricAccuracy {
			score = RoundPercent(score)
		}
		out.Students = append(out.Students, LeaderboardEntry{
			Rank:            s.Rank,
			ClassRank:       s.ClassRank,
			StudentID:       s.StudentID,
			Name:            s.Name,
			ClassID:         s.ClassID,
			ClassName:       s.ClassName,
			Score:           score,
			AchievedAt:      s.AchievedAt,
			Points:          s.Points,
			XP:              s.XP,
			Gems:            s.Gems,
			Level:           s.Level,
			GamesPlayed:     s.GamesPlayed,
			TotalMinutes:    minutes(s.TotalSeconds),
			AverageAccuracy: roundPtr(s.AverageAccuracy),
			BestScores:      s.BestScores,
			LastActivity:    s.LastActivity,
			Warnings:        s.Warnings,
		})
	}
	for _, c := range board.Classes {
		out.Classes = append(out.Classes, ClassLeaderboardEntry{
			Rank:             c.Rank,
			ClassID:          c.ClassID,
			ClassName:        c.ClassName,
			EnrolledStudents: c.EnrolledStudents,
			ActiveStudents:   c.ActiveStudents,
			Sessions:         c.Sessions,
			TotalPoints:      c.TotalPoints,
			AveragePoints:    math.Round(c.AveragePoints*10) / 10,
			TopStudentID:     c.TopStudentID,
			TopStudentName:   c.TopStudentName,
		})
	}
	return out
}

// ===== VOCABULARY RESPONSES =====

type StudentRefResponse struct {
	StudentID string   `json:"studentId"`
	Name      string   `json:"name"`
	Accuracy  *float64 `json:"accuracy"`
}

type ClassVocabularyStatsResponse struct {
	TotalStudents            int                  `json:"totalStudents"`
	StudentsWithData         int                  `json:"studentsWithData"`
	TotalWords               int                  `json:"totalWords"`
	ProficientWords          int                  `json:"proficientWords"`
	LearningWords            int                  `json:"learningWords"`
	StrugglingWords          int                  `json:"strugglingWords"`
	AverageAccuracy          *float64             `json:"averageAccuracy"`
	TotalEncounters          int                  `json:"totalEncounters"`
	StudentsWithOverdueWords int                  `json:"studentsWithOverdueWords"`
	TopPerformers            []StudentRefResponse `json:"topPerformers"`
	StrugglingStudents       []StudentRefResponse `json:"strugglingStudents"`
}

type StudentVocabularyResponse struct {
	StudentID       string     `json:"studentId"`
	Name            string     `json:"name"`
	TotalWords      int        `json:"totalWords"`
	ProficientWords int        `json:"proficientWords"`
	LearningWords   int        `json:"learningWords"`
	StrugglingWords int        `json:"strugglingWords"`
	OverdueWords    int        `json:"overdueWords"`
	Encounters      int        `json:"encounters"`
	Accuracy        *float64   `json:"accuracy"`
	AverageMastery  *float64   `json:"averageMastery"`
	LastActivity    *time.Time `json:"lastActivity"`
}

type TrendPointResponse struct {
	Date            string   `json:"date"`
	ActiveStudents  int      `json:"activeStudents"`
	Encounters      int      `json:"encounters"`
	Correct         int      `json:"correct"`
	Accuracy        *float64 `json:"accuracy"`
	ProficientWords int      `json:"proficientWords"`
	LearningWords   int      `json:"learningWords"`
	StrugglingWords int      `json:"strugglingWords"`
}

type TopicResponse struct {
	Language          string   `json:"language"`
	Category          string   `json:"category"`
	Subcategory       string   `json:"subcategory"`
	CurriculumLevel   string   `json:"curriculumLevel"`
	TotalWords        int      `json:"totalWords"`
	StudentsEngaged   int      `json:"studentsEngaged"`
	AverageAccuracy   *float64 `json:"averageAccuracy"`
	IsWeak            bool     `json:"isWeak"`
	IsStrong          bool     `json:"isStrong"`
	RecommendedAction string   `json:"recommendedAction"`
}

type WordAnalyticsResponse struct {
	VocabularyID       string   `json:"vocabularyId"`
	Word               string   `json:"word"`
	Translation        string   `json:"translation"`
	Category           string   `json:"category"`
	Encounters         int      `json:"encounters"`
	Correct            int      `json:"correct"`
	Accuracy           *float64 `json:"accuracy"`
	Proficiency        string   `json:"proficiencyLevel"`
	StudentsStruggling int      `json:"studentsStruggling"`
	StudentsLearning   int      `json:"studentsLearning"`
	StudentsProficient int      `json:"studentsProficient"`
	AverageMastery     *float64 `json:"averageMastery"`
}

type VocabularyInsightsResponse struct {
	WeakestTopics            []TopicResponse             `json:"weakestTopics"`
	StrongestTopics          []TopicResponse             `json:"strongestTopics"`
	StudentsNeedingAttention []StudentVocabularyResponse `json:"studentsNeedingAttention"`
	Recommendations          []string                    `json:"recommendations"`
}

// VocabularyAnalytics is the vocabulary report. Sections that were not
// requested are omitted.
type VocabularyAnalytics struct {
	ClassStats      *ClassVocabularyStatsResponse `json:"classStats,omitempty"`
	StudentProgress *[]StudentVocabularyResponse  `json:"studentProgress,omitempty"`
	Trends          *[]TrendPointResponse         `json:"trends,omitempty"`
	TopicAnalysis   *[]TopicResponse              `json:"topicAnalysis,omitempty"`
	WordAnalysis    *[]WordAnalyticsResponse      `json:"wordAnalysis,omitempty"`
	Insights        VocabularyInsightsResponse    `json:"insights"`
	Source          string                        `json:"vocabularySource"`
	From            string                        `json:"from"`
	To              string                        `json:"to"`
	GeneratedAt     time.Time                     `json:"generatedAt"`
}

func studentRefs(refs []aggregation.StudentRef) []StudentRefResponse {
	out := make([]StudentRefResponse, 0, len(refs))
	for _, r := range refs {
		out = append(out, StudentRefResponse{StudentID: r.StudentID, Name: r.Name, Accuracy: roundPtr(r.Accuracy)})
	}
	return out
}

func studentVocabulary(students []aggregation.StudentVocabularyProgress) []StudentVocabularyResponse {
	if students == nil {
		return nil
	}
	out := make([]StudentVocabularyResponse, 0, len(students))
	for _, s := range students {
		out = append(out, StudentVocabularyResponse{
			StudentID:       s.StudentID,
			Name:            s.Name,
			TotalWords:      s.TotalWords,
			ProficientWords: s.ProficientWords,
			LearningWords:   s.LearningWords,
			StrugglingWords: s.StrugglingWords,
			OverdueWords:    s.OverdueWords,
			Encounters:      s.Encounters,
			Accuracy:        roundPtr(s.Accuracy),
			AverageMastery:  roundTenths(s.AverageMastery),
			LastActivity:    s.LastActivity,
		})
	}
	return out
}

func topicResponses(topics []aggregation.TopicAnalysis) []TopicResponse {
	if topics == nil {
		return nil
	}
	out := make([]TopicResponse, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicResponse{
			Language:          t.Language,
			Category:          t.Category,
			Subcategory:       t.Subcategory,
			CurriculumLevel:   t.CurriculumLevel,
			TotalWords:        t.TotalWords,
			StudentsEngaged:   t.StudentsEngaged,
			AverageAccuracy:   roundPtr(t.AverageAccuracy),
			IsWeak:            t.IsWeak,
			IsStrong:          t.IsStrong,
			RecommendedAction: t.RecommendedAction,
		})
	}
	return out
}

func trendResponses(points []aggregation.TrendPoint) []TrendPointResponse {
	if points == nil {
		return nil
	}
	out := make([]TrendPointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, TrendPointResponse{
			Date:            p.Date,
			ActiveStudents:  p.ActiveStudents,
			Encounters:      p.Encounters,
			Correct:         p.Correct,
			Accuracy:        roundPtr(p.Accuracy),
			ProficientWords: p.ProficientWords,
			LearningWords:   p.LearningWords,
			StrugglingWords: p.StrugglingWords,
		})
	}
	return out
}

func wordResponses(words []aggregation.WordAnalytics) []WordAnalyticsResponse {
	if words == nil {
		return nil
	}
	out := make([]WordAnalyticsResponse, 0, len(words))
	for _, w := range words {
		out = append(out, WordAnalyticsResponse{
			VocabularyID:       w.VocabularyID,
			Word:               w.Word,
			Translation:        w.Translation,
			Category:           w.Category,
			Encounters:         w.Encounters,
			Correct:            w.Correct,
			Accuracy:           roundPtr(w.Accuracy),
			Proficiency:        string(w.Proficiency),
			StudentsStruggling: w.StudentsStruggling,
			StudentsLearning:   w.StudentsLearning,
			StudentsProficient: w.StudentsProficient,
			AverageMastery:     roundTenths(w.AverageMastery),
		})
	}
	return out
}

func assembleVocabulary(a aggregation.VocabularyAnalytics, source string, trendRange DateRange, now time.Time) *VocabularyAnalytics {
	out := &VocabularyAnalytics{
		StudentProgress: sectionRef(studentVocabulary(a.Students)),
		Trends:          sectionRef(trendResponses(a.Trends)),
		TopicAnalysis:   sectionRef(topicResponses(a.Topics)),
		WordAnalysis:    sectionRef(wordResponses(a.Words)),
		Insights: VocabularyInsightsResponse{
			WeakestTopics:            topicResponses(a.Insights.WeakestTopics),
			StrongestTopics:          topicResponses(a.Insights.StrongestTopics),
			StudentsNeedingAttention: studentVocabulary(a.Insights.StudentsNeedingAttention),
			Recommendations:          a.Insights.Recommendations,
		},
		Source:      source,
		From:        trendRange.From.Format(DateLayout),
		To:          trendRange.To.Format(DateLayout),
		GeneratedAt: now,
	}
	if s := a.ClassStats; s != nil {
		out.ClassStats = &ClassVocabularyStatsResponse{
			TotalStudents:            s.TotalStudents,
			StudentsWithData:         s.StudentsWithData,
			TotalWords:               s.TotalWords,
			ProficientWords:          s.ProficientWords,
			LearningWords:            s.LearningWords,
			StrugglingWords:          s.StrugglingWords,
			AverageAccuracy:          roundPtr(s.AverageAccuracy),
			TotalEncounters:          s.TotalEncounters,
			StudentsWithOverdueWords: s.StudentsWithOverdueWords,
			TopPerformers:            studentRefs(s.TopPerformers),
			StrugglingStudents:       studentRefs(s.StrugglingStudents),
		}
	}
	return out
}
