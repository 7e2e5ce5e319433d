package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/language-gems/analytics-service/internal/cache"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/language-gems/analytics-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newVocabularyService(m *readerMocks) *vocabularyAnalyticsService {
	return newCachedVocabularyService(m, nil)
}

func newCachedVocabularyService(m *readerMocks, store cache.CacheService) *vocabularyAnalyticsService {
	svc := NewVocabularyAnalyticsService(m.vocabularyReaders(), store, time.Minute, newTestValidator(), testLogger(), time.UTC).(*vocabularyAnalyticsService)
	svc.now = fixedClock
	return svc
}

func stubVocabularyClass(m *readerMocks) {
	m.classes.On("ListByTeacher", mock.Anything, "teacher-1").Return([]*models.Class{{ID: "c1", TeacherID: "teacher-1"}}, nil)
	m.enrollments.On("ListActiveByClasses", mock.Anything, []string{"c1"}).Return(enrollments("c1", "a", "b"), nil)
	m.profiles.On("ListByUserIDs", mock.Anything, []string{"a", "b"}).Return(profiles(map[string]string{"a": "Ana", "b": "Ben"}), nil)
	m.vocabulary.On("ListItems", mock.Anything, mock.Anything).Return([]*models.VocabularyItem{
		{ID: "w1", Word: "manger", Category: "food"},
		{ID: "w2", Word: "chat", Category: "animals"},
	}, nil)
}

func TestVocabularyAnalyticsService_GetAnalytics(t *testing.T) {
	ctx := context.Background()
	seen := fixtureNow.Add(-time.Hour)

	t.Run("gems source with only the words section", func(t *testing.T) {
		m := newReaderMocks()
		stubVocabularyClass(m)
		m.vocabulary.On("ListGemCollection", mock.Anything, mock.MatchedBy(func(f repositories.VocabularyFilters) bool {
			return f.LastSeen.Start == nil && len(f.StudentIDs) == 2
		})).Return([]*models.VocabularyGemCollection{
			{ID: "g1", StudentID: "a", VocabularyItemID: "w1", TotalEncounters: 10, CorrectEncounters: 4, LastEncounteredAt: &seen},
			{ID: "g2", StudentID: "b", VocabularyItemID: "w2", TotalEncounters: 10, CorrectEncounters: 10, LastEncounteredAt: &seen},
		}, nil)

		resp, err := newVocabularyService(m).GetAnalytics(ctx, VocabularyQuery{
			TeacherID: "teacher-1", Source: "gems", Sections: []string{" words "},
		})
		require.NoError(t, err)

		assert.Nil(t, resp.ClassStats)
		assert.Nil(t, resp.Trends)
		assert.Nil(t, resp.StudentProgress)
		require.NotNil(t, resp.WordAnalysis)
		words := *resp.WordAnalysis
		require.Len(t, words, 2)
		assert.Equal(t, "w1", words[0].VocabularyID)
		assert.Equal(t, "struggling", words[0].Proficiency)
		assert.Equal(t, "gems", resp.Source)
		assert.Equal(t, "2025-02-11", resp.From)
		assert.Equal(t, "2025-03-12", resp.To)

		require.Len(t, resp.Insights.StudentsNeedingAttention, 1)
		assert.Equal(t, "a", resp.Insights.StudentsNeedingAttention[0].StudentID)

		m.vocabulary.AssertNotCalled(t, "ListAssignmentProgress", mock.Anything, mock.Anything)
		m.sessions.AssertNotCalled(t, "List", mock.Anything, mock.Anything)

		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.NotContains(t, body, "trends")
		assert.Contains(t, body, "wordAnalysis")
		assert.Contains(t, body, "insights")
	})

	t.Run("explicit range bounds records and trends", func(t *testing.T) {
		m := newReaderMocks()
		stubVocabularyClass(m)
		inRange := func(f repositories.VocabularyFilters) bool {
			return f.LastSeen.Start != nil && f.LastSeen.Start.Format(DateLayout) == "2025-03-10" &&
				f.LastSeen.End != nil && f.LastSeen.End.Format(DateLayout) == "2025-03-13"
		}
		m.vocabulary.On("ListGemCollection", mock.Anything, mock.MatchedBy(inRange)).Return([]*models.VocabularyGemCollection{}, nil)
		m.vocabulary.On("ListAssignmentProgress", mock.Anything, mock.MatchedBy(inRange)).Return([]*models.AssignmentVocabularyProgress{
			{ID: "p1", StudentID: "a", VocabularyID: "w1", SeenCount: 5, CorrectCount: 5, LastSeenAt: &seen},
		}, nil)
		m.sessions.On("List", mock.Anything, mock.Anything).Return([]*models.GameSession{{ID: "s1", StudentID: "a", StartedAt: seen}}, nil)

		resp, err := newVocabularyService(m).GetAnalytics(ctx, VocabularyQuery{
			TeacherID: "teacher-1", From: "2025-03-10", To: "2025-03-12",
		})
		require.NoError(t, err)

		require.NotNil(t, resp.ClassStats)
		assert.Equal(t, 1, resp.ClassStats.StudentsWithData)
		require.NotNil(t, resp.Trends)
		trends := *resp.Trends
		require.Len(t, trends, 3)
		assert.Equal(t, 1, trends[2].ActiveStudents)
		require.NotNil(t, resp.TopicAnalysis)
		require.NotNil(t, resp.StudentProgress)
		assert.Len(t, *resp.StudentProgress, 2)
	})

	t.Run("explicit range is cached apart from the default window", func(t *testing.T) {
		m := newReaderMocks()
		stubVocabularyClass(m)
		unbounded := func(f repositories.VocabularyFilters) bool { return f.LastSeen.Start == nil }
		bounded := func(f repositories.VocabularyFilters) bool { return f.LastSeen.Start != nil }
		m.vocabulary.On("ListGemCollection", mock.Anything, mock.MatchedBy(unbounded)).Return([]*models.VocabularyGemCollection{
			{ID: "g1", StudentID: "a", VocabularyItemID: "w1", TotalEncounters: 10, CorrectEncounters: 9, LastEncounteredAt: &seen},
		}, nil).Once()
		m.vocabulary.On("ListGemCollection", mock.Anything, mock.MatchedBy(bounded)).Return([]*models.VocabularyGemCollection{}, nil).Once()

		svc := newCachedVocabularyService(m, newMemoryCache())
		q := VocabularyQuery{TeacherID: "teacher-1", Source: "gems", Sections: []string{"stats"}}

		implicit, err := svc.GetAnalytics(ctx, q)
		require.NoError(t, err)
		require.NotNil(t, implicit.ClassStats)
		assert.Equal(t, 10, implicit.ClassStats.TotalEncounters)

		// same dates as the default window, but given explicitly
		q.From, q.To = "2025-02-11", "2025-03-12"
		explicit, err := svc.GetAnalytics(ctx, q)
		require.NoError(t, err)
		require.NotNil(t, explicit.ClassStats)
		assert.Equal(t, 0, explicit.ClassStats.TotalEncounters)
		m.vocabulary.AssertNumberOfCalls(t, "ListGemCollection", 2)

		again, err := svc.GetAnalytics(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 0, again.ClassStats.TotalEncounters)
		m.vocabulary.AssertNumberOfCalls(t, "ListGemCollection", 2)
	})

	t.Run("unknown section fails validation", func(t *testing.T) {
		_, err := newVocabularyService(newReaderMocks()).GetAnalytics(ctx, VocabularyQuery{
			TeacherID: "teacher-1", Sections: []string{"stats", "gossip"},
		})
		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "sections[1]", verrs[0].Field)
	})

	t.Run("missing teacher fails validation", func(t *testing.T) {
		_, err := newVocabularyService(newReaderMocks()).GetAnalytics(ctx, VocabularyQuery{})
		assert.True(t, IsValidation(err))
	})
}
