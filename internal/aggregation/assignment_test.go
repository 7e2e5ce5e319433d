package aggregation

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func enroll(classID string, studentIDs ...string) []*models.ClassEnrollment {
	out := make([]*models.ClassEnrollment, 0, len(studentIDs))
	for _, id := range studentIDs {
		out = append(out, &models.ClassEnrollment{
			ID:        classID + "-" + id,
			ClassID:   classID,
			StudentID: id,
			Status:    models.EnrollmentActive,
		})
	}
	return out
}

func session(id, studentID string, status models.CompletionStatus, accuracy *float64) *models.GameSession {
	ended := baseTime.Add(30 * time.Minute)
	s := &models.GameSession{
		ID:                 id,
		StudentID:          studentID,
		AssignmentID:       ptr("assignment-1"),
		GameType:           "vocab-blast",
		StartedAt:          baseTime,
		CompletionStatus:   status,
		AccuracyPercentage: accuracy,
		DurationSeconds:    300,
	}
	if status == models.StatusCompleted || status == models.StatusAbandoned {
		s.EndedAt = &ended
	}
	return s
}

// attempts builds total attempts for one word, the first correct ones right.
func attempts(sessionID, studentID, vocabID string, total, correct int) []*models.VocabularyAttempt {
	out := make([]*models.VocabularyAttempt, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, &models.VocabularyAttempt{
			ID:           fmt.Sprintf("%s-%s-%s-%d", sessionID, studentID, vocabID, i),
			SessionID:    sessionID,
			StudentID:    studentID,
			VocabularyID: ptr(vocabID),
			WordText:     "word-" + vocabID,
			WasCorrect:   i < correct,
			CreatedAt:    baseTime.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

func concat[T any](parts ...[]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func TestAnalyzeAssignment_CoverageScenario(t *testing.T) {
	in := AssignmentInput{
		Enrollments: enroll("class-1", "student-a", "student-b", "student-c"),
		Sessions: []*models.GameSession{
			session("s-a", "student-a", models.StatusCompleted, ptr(80.0)),
			session("s-b", "student-b", models.StatusAbandoned, nil),
		},
		Now: baseTime.Add(time.Hour),
	}

	result := AnalyzeAssignment(in)

	o := result.Overview
	assert.Equal(t, 3, o.TotalStudents)
	assert.Equal(t, 2, o.StudentsWithSession)
	assert.Equal(t, 1, o.StudentsCompleted)
	assert.Equal(t, 1, o.StudentsAbandoned)
	assert.Equal(t, 1, o.StudentsNotStarted)
	require.NotNil(t, o.AverageAccuracy)
	assert.InDelta(t, 80.0, *o.AverageAccuracy, 1e-9)
	require.NotNil(t, o.AverageTimeSeconds)
	assert.InDelta(t, 300.0, *o.AverageTimeSeconds, 1e-9)
	assert.False(t, o.NoAudience)

	statuses := map[string]models.CompletionStatus{}
	for _, sp := range result.Students {
		statuses[sp.StudentID] = sp.Status
	}
	assert.Equal(t, map[string]models.CompletionStatus{
		"student-a": models.StatusCompleted,
		"student-b": models.StatusAbandoned,
		"student-c": models.StatusNotStarted,
	}, statuses)
}

func TestComputeOverview(t *testing.T) {
	t.Run("all null accuracies give nil average", func(t *testing.T) {
		o := ComputeOverview(AssignmentInput{
			Enrollments: enroll("class-1", "a", "b"),
			Sessions: []*models.GameSession{
				session("s1", "a", models.StatusCompleted, nil),
				session("s2", "b", models.StatusCompleted, nil),
			},
		})
		assert.Nil(t, o.AverageAccuracy)
		assert.Equal(t, 2, o.StudentsCompleted)
		assert.InDelta(t, 100.0, o.CompletionRate, 1e-9)
	})

	t.Run("no enrolment is a no audience result", func(t *testing.T) {
		o := ComputeOverview(AssignmentInput{
			Sessions: []*models.GameSession{session("s1", "a", models.StatusCompleted, ptr(50.0))},
		})
		assert.True(t, o.NoAudience)
		assert.Equal(t, 0, o.TotalStudents)
		assert.Equal(t, 0, o.StudentsWithSession)
		assert.Nil(t, o.AverageAccuracy)
		assert.Zero(t, o.CompletionRate)
	})

	t.Run("sessions of students not enrolled are ignored", func(t *testing.T) {
		o := ComputeOverview(AssignmentInput{
			Enrollments: enroll("class-1", "a"),
			Sessions: []*models.GameSession{
				session("s1", "a", models.StatusCompleted, ptr(60.0)),
				session("s2", "left-class", models.StatusCompleted, ptr(100.0)),
			},
		})
		assert.Equal(t, 1, o.StudentsWithSession)
		require.NotNil(t, o.AverageAccuracy)
		assert.InDelta(t, 60.0, *o.AverageAccuracy, 1e-9)
	})

	t.Run("in progress and abandoned sessions do not count toward accuracy", func(t *testing.T) {
		o := ComputeOverview(AssignmentInput{
			Enrollments: enroll("class-1", "a", "b", "c"),
			Sessions: []*models.GameSession{
				session("s1", "a", models.StatusCompleted, ptr(90.0)),
				session("s2", "b", models.StatusAbandoned, ptr(10.0)),
				session("s3", "c", models.StatusInProgress, ptr(20.0)),
			},
		})
		require.NotNil(t, o.AverageAccuracy)
		assert.InDelta(t, 90.0, *o.AverageAccuracy, 1e-9)
		assert.Equal(t, 1, o.StudentsInProgress)
	})

	t.Run("class success score and students needing help", func(t *testing.T) {
		o := ComputeOverview(AssignmentInput{
			Enrollments: enroll("class-1", "a", "b"),
			Sessions: []*models.GameSession{
				session("s1", "a", models.StatusCompleted, ptr(90.0)),
				session("s2", "b", models.StatusCompleted, ptr(40.0)),
			},
			Attempts: concat(
				attempts("s1", "a", "w1", 10, 9),
				attempts("s2", "b", "w1", 10, 5),
			),
		})
		require.NotNil(t, o.ClassSuccessScore)
		assert.InDelta(t, 70.0, *o.ClassSuccessScore, 1e-9)
		assert.Equal(t, 1, o.StudentsNeedingHelp)
		assert.Equal(t, 20, o.TotalAttempts)
	})
}

func TestRankWordDifficulty(t *testing.T) {
	in := AssignmentInput{
		Enrollments: enroll("class-1", "a", "b"),
		Sessions: []*models.GameSession{
			session("s1", "a", models.StatusCompleted, ptr(70.0)),
			session("s2", "b", models.StatusAbandoned, nil),
		},
		Attempts: concat(
			attempts("s1", "a", "W1", 10, 6),
			attempts("s1", "a", "W2", 2, 1),
			attempts("s1", "a", "W3", 4, 2),
			// abandoned session attempts must not affect the ranking
			attempts("s2", "b", "W1", 20, 0),
		),
	}

	words := RankWordDifficulty(in)
	require.Len(t, words, 3)

	assert.Equal(t, "W3", words[0].VocabularyID)
	assert.Equal(t, "W2", words[1].VocabularyID)
	assert.Equal(t, "W1", words[2].VocabularyID)
	assert.Equal(t, []int{1, 2, 3}, []int{words[0].Rank, words[1].Rank, words[2].Rank})

	assert.Equal(t, 10, words[2].TotalAttempts)
	assert.Equal(t, 6, words[2].CorrectAttempts)
	assert.InDelta(t, 60.0, words[2].Accuracy, 1e-9)
	assert.InDelta(t, 40.0, words[2].FailureRate, 1e-9)
	assert.Equal(t, InsightMonitor, words[2].InsightLevel)
	assert.Equal(t, InsightReview, words[0].InsightLevel)
	assert.Equal(t, 1, words[0].StudentsAttempted)
	assert.Equal(t, "word-W3", words[0].Word)
}

func TestRankWordDifficulty_ExactTiesUseAttemptsThenID(t *testing.T) {
	in := AssignmentInput{
		Enrollments: enroll("class-1", "a"),
		Sessions:    []*models.GameSession{session("s1", "a", models.StatusCompleted, nil)},
		Attempts: concat(
			// 1/3 and 2/6 are equal ratios
			attempts("s1", "a", "b-word", 3, 1),
			attempts("s1", "a", "a-word", 6, 2),
			attempts("s1", "a", "c-word", 6, 2),
		),
	}

	words := RankWordDifficulty(in)
	require.Len(t, words, 3)
	assert.Equal(t, "a-word", words[0].VocabularyID)
	assert.Equal(t, "c-word", words[1].VocabularyID)
	assert.Equal(t, "b-word", words[2].VocabularyID)
}

func TestRankWordDifficulty_SkipsAttemptsWithoutVocabularyID(t *testing.T) {
	unlinked := attempts("s1", "a", "x", 2, 0)
	for _, a := range unlinked {
		a.VocabularyID = nil
	}
	words := RankWordDifficulty(AssignmentInput{
		Enrollments: enroll("class-1", "a"),
		Sessions:    []*models.GameSession{session("s1", "a", models.StatusCompleted, nil)},
		Attempts:    unlinked,
	})
	assert.Empty(t, words)
}

func TestBuildRoster(t *testing.T) {
	t.Run("stale progress never marks a student without sessions as started", func(t *testing.T) {
		roster := BuildRoster(AssignmentInput{
			Enrollments: enroll("class-1", "c"),
			Progress: []*models.AssignmentProgress{{
				ID:           "p1",
				AssignmentID: "assignment-1",
				StudentID:    "c",
				Status:       models.StatusCompleted,
				BestAccuracy: ptr(95.0),
				BestScore:    ptr(950.0),
			}},
		})
		require.Len(t, roster, 1)
		assert.Equal(t, models.StatusNotStarted, roster[0].Status)
		assert.Nil(t, roster[0].BestAccuracy)
		assert.Nil(t, roster[0].BestScore)
		assert.Equal(t, FlagNone, roster[0].InterventionFlag)
	})

	t.Run("best is the maximum over completed sessions and never lowered by progress", func(t *testing.T) {
		first := session("s1", "a", models.StatusCompleted, ptr(70.0))
		first.FinalScore = ptr(700.0)
		second := session("s2", "a", models.StatusCompleted, ptr(90.0))
		second.FinalScore = ptr(650.0)
		abandoned := session("s3", "a", models.StatusAbandoned, ptr(99.0))

		roster := BuildRoster(AssignmentInput{
			Enrollments: enroll("class-1", "a"),
			Sessions:    []*models.GameSession{first, second, abandoned},
			Progress: []*models.AssignmentProgress{{
				ID: "p1", AssignmentID: "assignment-1", StudentID: "a",
				BestAccuracy: ptr(60.0), BestScore: ptr(800.0),
			}},
		})
		require.Len(t, roster, 1)
		require.NotNil(t, roster[0].BestAccuracy)
		assert.InDelta(t, 90.0, *roster[0].BestAccuracy, 1e-9)
		require.NotNil(t, roster[0].BestScore)
		assert.InDelta(t, 800.0, *roster[0].BestScore, 1e-9)
		assert.Equal(t, 3, roster[0].SessionsCount)
		assert.Equal(t, 900, roster[0].TimeSpentSeconds)
	})

	t.Run("key struggle words and high failure flag", func(t *testing.T) {
		roster := BuildRoster(AssignmentInput{
			Enrollments: enroll("class-1", "a"),
			Sessions:    []*models.GameSession{session("s1", "a", models.StatusCompleted, ptr(30.0))},
			Attempts: concat(
				attempts("s1", "a", "w1", 3, 0),
				attempts("s1", "a", "w2", 2, 1),
				attempts("s1", "a", "w3", 1, 0),
			),
		})
		require.Len(t, roster, 1)
		sp := roster[0]
		assert.Equal(t, 6, sp.TotalAttempts)
		assert.Equal(t, 1, sp.CorrectAttempts)
		require.Len(t, sp.KeyStruggleWords, 1)
		assert.Equal(t, "w1", sp.KeyStruggleWords[0].VocabularyID)
		assert.Equal(t, 3, sp.KeyStruggleWords[0].Errors)
		assert.Equal(t, FlagHighFailure, sp.InterventionFlag)
	})

	t.Run("long running in progress session is flagged", func(t *testing.T) {
		running := session("s1", "a", models.StatusInProgress, nil)
		running.DurationSeconds = 0

		roster := BuildRoster(AssignmentInput{
			Enrollments: enroll("class-1", "a", "b"),
			Sessions: []*models.GameSession{
				running,
				session("s2", "b", models.StatusAbandoned, nil),
			},
			Now: baseTime.Add(61 * time.Minute),
		})
		flags := map[string]InterventionFlag{}
		for _, sp := range roster {
			flags[sp.StudentID] = sp.InterventionFlag
		}
		assert.Equal(t, FlagUnusuallyLong, flags["a"])
		assert.Equal(t, FlagStoppedMidway, flags["b"])
	})

	t.Run("sorted by failure rate then name", func(t *testing.T) {
		roster := BuildRoster(AssignmentInput{
			Enrollments: enroll("class-1", "a", "b", "c"),
			Sessions: []*models.GameSession{
				session("s1", "a", models.StatusCompleted, nil),
				session("s2", "b", models.StatusCompleted, nil),
			},
			Attempts: concat(
				attempts("s1", "a", "w1", 4, 3),
				attempts("s2", "b", "w1", 4, 1),
			),
			Profiles: []*models.UserProfile{
				{UserID: "a", DisplayName: "Zoe"},
				{UserID: "b", DisplayName: "Yann"},
				{UserID: "c", DisplayName: "Amir"},
			},
		})
		require.Len(t, roster, 3)
		assert.Equal(t, []string{"Yann", "Zoe", "Amir"}, []string{roster[0].Name, roster[1].Name, roster[2].Name})
	})
}

func TestWordStruggles(t *testing.T) {
	in := AssignmentInput{
		Enrollments: enroll("class-1", "a", "b", "c"),
		Sessions: []*models.GameSession{
			session("s1", "a", models.StatusCompleted, nil),
			session("s2", "b", models.StatusCompleted, nil),
			session("s3", "c", models.StatusCompleted, nil),
		},
		Attempts: concat(
			attempts("s1", "a", "w1", 2, 1),
			attempts("s2", "b", "w1", 10, 3),
			attempts("s3", "c", "w2", 5, 0),
		),
	}

	rows := WordStruggles(in, "w1")
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].StudentID)
	assert.Equal(t, 7, rows[0].Errors)
	assert.Equal(t, InterventionIndividual, rows[0].RecommendedIntervention)
	assert.Equal(t, "a", rows[1].StudentID)
	assert.Equal(t, InterventionSmallGroup, rows[1].RecommendedIntervention)
	require.NotNil(t, rows[0].LastAttemptAt)
}

func TestWordInsight(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		failure float64
		want    InsightLevel
	}{
		{"few attempts mostly wrong", 4, 50, InsightReview},
		{"few attempts mostly right", 4, 25, InsightSuccess},
		{"problem", 10, 71, InsightProblem},
		{"review", 10, 60, InsightReview},
		{"monitor", 10, 40, InsightMonitor},
		{"success", 10, 30, InsightSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordInsight(tt.total, tt.failure))
		})
	}
}

func TestRecommendIntervention(t *testing.T) {
	assert.Equal(t, InterventionIndividual, RecommendIntervention(61))
	assert.Equal(t, InterventionSmallGroup, RecommendIntervention(60))
	assert.Equal(t, InterventionSmallGroup, RecommendIntervention(41))
	assert.Equal(t, InterventionMonitor, RecommendIntervention(40))
}

func TestClassifyStudent(t *testing.T) {
	assert.Equal(t, models.StatusNotStarted, ClassifyStudent(nil))
	assert.Equal(t, models.StatusCompleted, ClassifyStudent([]*models.GameSession{
		session("s1", "a", models.StatusAbandoned, nil),
		session("s2", "a", models.StatusCompleted, nil),
	}))
	assert.Equal(t, models.StatusInProgress, ClassifyStudent([]*models.GameSession{
		session("s1", "a", models.StatusAbandoned, nil),
		session("s2", "a", models.StatusInProgress, nil),
	}))
	assert.Equal(t, models.StatusAbandoned, ClassifyStudent([]*models.GameSession{
		session("s1", "a", models.StatusAbandoned, nil),
	}))
}

func TestAnalyzeAssignment_IsIdempotentAndOrderIndependent(t *testing.T) {
	in := AssignmentInput{
		Enrollments: enroll("class-1", "a", "b", "c", "d"),
		Sessions: []*models.GameSession{
			session("s1", "a", models.StatusCompleted, ptr(80.0)),
			session("s2", "b", models.StatusCompleted, ptr(55.0)),
			session("s3", "c", models.StatusAbandoned, nil),
		},
		Attempts: concat(
			attempts("s1", "a", "w1", 5, 4),
			attempts("s1", "a", "w2", 5, 1),
			attempts("s2", "b", "w1", 3, 1),
			attempts("s2", "b", "w3", 3, 3),
		),
		Now: baseTime.Add(2 * time.Hour),
	}
	shuffled := AssignmentInput{
		Enrollments: reversed(in.Enrollments),
		Sessions:    reversed(in.Sessions),
		Attempts:    reversed(in.Attempts),
		Now:         in.Now,
	}

	first, err := json.Marshal(AnalyzeAssignment(in))
	require.NoError(t, err)
	second, err := json.Marshal(AnalyzeAssignment(in))
	require.NoError(t, err)
	third, err := json.Marshal(AnalyzeAssignment(shuffled))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, string(first), string(third))
}
