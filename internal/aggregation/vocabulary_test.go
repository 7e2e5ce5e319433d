package aggregation

import (
	"testing"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(studentID, vocabID string, encounters, correct int, lastSeen time.Time) VocabularyRecord {
	return VocabularyRecord{
		StudentID:    studentID,
		VocabularyID: vocabID,
		Encounters:   encounters,
		Correct:      correct,
		Mastery:      correct / 2,
		LastSeenAt:   &lastSeen,
	}
}

func vocabItems() []*models.VocabularyItem {
	return []*models.VocabularyItem{
		{ID: "w1", Word: "manger", Translation: "to eat", Language: "fr", Category: "food"},
		{ID: "w2", Word: "chat", Translation: "cat", Language: "fr", Category: "animals"},
		{ID: "w3", Word: "aller", Translation: "to go", Language: "fr", Category: "verbs"},
	}
}

func TestClassifyProficiency(t *testing.T) {
	tests := []struct {
		name       string
		encounters int
		correct    int
		want       Proficiency
	}{
		{"never seen", 0, 0, ProficiencyStruggling},
		{"too few encounters", 2, 2, ProficiencyStruggling},
		{"low accuracy", 10, 5, ProficiencyStruggling},
		{"perfect but not yet five encounters", 4, 4, ProficiencyLearning},
		{"learning", 10, 8, ProficiencyLearning},
		{"exactly sixty percent", 5, 3, ProficiencyLearning},
		{"proficient", 10, 9, ProficiencyProficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyProficiency(tt.encounters, tt.correct))
		})
	}
}

func TestMergeVocabularyRecords(t *testing.T) {
	early := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 0, 5)
	review := late.AddDate(0, 0, 2)

	records := MergeVocabularyRecords(
		[]*models.VocabularyGemCollection{
			{ID: "g1", StudentID: "a", VocabularyItemID: "w1", TotalEncounters: 5, CorrectEncounters: 4, MasteryLevel: 3, LastEncounteredAt: &early, NextReviewAt: &review},
			{ID: "g2", StudentID: "b", VocabularyItemID: "w1", TotalEncounters: 2, CorrectEncounters: 0},
			{ID: "g3", StudentID: "b", VocabularyItemID: ""},
		},
		[]*models.AssignmentVocabularyProgress{
			{ID: "p1", StudentID: "a", VocabularyID: "w1", SeenCount: 5, CorrectCount: 4, LastSeenAt: &late},
			{ID: "p2", StudentID: "a", VocabularyID: "w2", SeenCount: 1, CorrectCount: 1},
		},
	)

	require.Len(t, records, 3)
	merged := records[0]
	assert.Equal(t, "a", merged.StudentID)
	assert.Equal(t, "w1", merged.VocabularyID)
	assert.Equal(t, 10, merged.Encounters)
	assert.Equal(t, 8, merged.Correct)
	assert.Equal(t, 3, merged.Mastery)
	require.NotNil(t, merged.LastSeenAt)
	assert.True(t, late.Equal(*merged.LastSeenAt))
	assert.True(t, merged.OverdueAt(review.Add(time.Second)))
	assert.False(t, merged.OverdueAt(review))

	assert.Equal(t, "w2", records[1].VocabularyID)
	assert.Equal(t, "b", records[2].StudentID)
}

func TestAnalyzeVocabulary_ClassStatsAverageOnlyStudentsWithData(t *testing.T) {
	seen := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	result := AnalyzeVocabulary(VocabularyInput{
		Enrollments: enroll("class-1", "a", "b", "c"),
		Records: []VocabularyRecord{
			record("a", "w1", 10, 8, seen),
			record("b", "w1", 10, 4, seen),
			// not enrolled
			record("x", "w1", 10, 0, seen),
		},
		Items:    vocabItems(),
		Sections: SectionSet{SectionStats: true, SectionStudents: true},
		Now:      seen,
	})

	require.NotNil(t, result.ClassStats)
	stats := result.ClassStats
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 2, stats.StudentsWithData)
	assert.Equal(t, 1, stats.TotalWords)
	assert.Equal(t, 20, stats.TotalEncounters)
	assert.Equal(t, 1, stats.LearningWords)
	assert.Equal(t, 1, stats.StrugglingWords)
	require.NotNil(t, stats.AverageAccuracy)
	assert.InDelta(t, 60.0, *stats.AverageAccuracy, 1e-9)

	require.Len(t, stats.TopPerformers, 2)
	assert.Equal(t, "a", stats.TopPerformers[0].StudentID)
	require.Len(t, stats.StrugglingStudents, 1)
	assert.Equal(t, "b", stats.StrugglingStudents[0].StudentID)

	require.Len(t, result.Students, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		result.Students[0].StudentID, result.Students[1].StudentID, result.Students[2].StudentID,
	})
	assert.Nil(t, result.Students[2].Accuracy)
	assert.Equal(t, 0, result.Students[2].TotalWords)

	require.Len(t, result.Insights.StudentsNeedingAttention, 1)
	assert.Equal(t, "b", result.Insights.StudentsNeedingAttention[0].StudentID)

	assert.Nil(t, result.Trends)
	assert.Nil(t, result.Topics)
	assert.Nil(t, result.Words)
}

func TestAnalyzeVocabulary_OnlyRequestedSections(t *testing.T) {
	seen := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	result := AnalyzeVocabulary(VocabularyInput{
		Enrollments: enroll("class-1", "a", "b"),
		Records: []VocabularyRecord{
			record("a", "w1", 10, 8, seen),
			record("b", "w1", 10, 4, seen),
			record("a", "w2", 1, 1, seen),
		},
		Items:    vocabItems(),
		Sections: SectionSet{SectionWords: true},
		Now:      seen,
	})

	assert.Nil(t, result.ClassStats)
	assert.Nil(t, result.Students)
	assert.Nil(t, result.Trends)
	assert.Nil(t, result.Topics)
	require.Len(t, result.Words, 2)

	w1 := result.Words[0]
	assert.Equal(t, "w1", w1.VocabularyID)
	assert.Equal(t, "manger", w1.Word)
	assert.Equal(t, 20, w1.Encounters)
	require.NotNil(t, w1.Accuracy)
	assert.InDelta(t, 60.0, *w1.Accuracy, 1e-9)
	assert.Equal(t, ProficiencyLearning, w1.Proficiency)
	assert.Equal(t, 1, w1.StudentsLearning)
	assert.Equal(t, 1, w1.StudentsStruggling)
	assert.Equal(t, "w2", result.Words[1].VocabularyID)

	// insights are built even though students were not requested
	require.Len(t, result.Insights.StudentsNeedingAttention, 1)
	assert.Equal(t, "b", result.Insights.StudentsNeedingAttention[0].StudentID)
	assert.Equal(t, []string{
		"1 student(s) need attention; consider targeted intervention",
		"Class accuracy is below 70%; slow the pace of new vocabulary",
	}, result.Insights.Recommendations)
	require.Len(t, result.Insights.StrongestTopics, 1)
	assert.Equal(t, "animals", result.Insights.StrongestTopics[0].Category)
}

func TestAnalyzeVocabulary_InsightsIgnoreSections(t *testing.T) {
	seen := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	review := seen.AddDate(0, 0, 3)
	records := []VocabularyRecord{
		record("a", "w1", 10, 6, seen),
		record("b", "w2", 10, 5, seen),
	}
	records[0].NextReviewAt = &review

	analyze := func(sections SectionSet) VocabularyInsights {
		return AnalyzeVocabulary(VocabularyInput{
			Enrollments: enroll("class-1", "a", "b"),
			Records:     records,
			Items:       vocabItems(),
			Sections:    sections,
			Now:         seen.AddDate(0, 0, 10),
		}).Insights
	}

	full := analyze(nil)
	wordsOnly := analyze(SectionSet{SectionWords: true})
	assert.Equal(t, full.Recommendations, wordsOnly.Recommendations)
	assert.Contains(t, wordsOnly.Recommendations, "Class accuracy is below 70%; slow the pace of new vocabulary")
	assert.Contains(t, wordsOnly.Recommendations, "1 student(s) have words overdue for review")
}

func TestAnalyzeVocabulary_Trends(t *testing.T) {
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	seen := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)

	result := AnalyzeVocabulary(VocabularyInput{
		Enrollments: enroll("class-1", "a", "b"),
		Records: []VocabularyRecord{
			record("a", "w1", 10, 8, seen),
			record("b", "w1", 4, 1, seen.AddDate(0, 0, -30)),
		},
		Sessions: []*models.GameSession{
			{ID: "s1", StudentID: "a", StartedAt: seen},
			{ID: "s2", StudentID: "a", StartedAt: seen.Add(time.Hour)},
			{ID: "s3", StudentID: "outsider", StartedAt: seen},
		},
		Sections: SectionSet{SectionTrends: true},
		From:     from,
		To:       to,
		Now:      to,
	})

	require.Len(t, result.Trends, 3)
	assert.Equal(t, "2025-03-10", result.Trends[0].Date)
	assert.Nil(t, result.Trends[0].Accuracy)
	assert.Equal(t, 0, result.Trends[0].ActiveStudents)

	mid := result.Trends[1]
	assert.Equal(t, "2025-03-11", mid.Date)
	assert.Equal(t, 1, mid.ActiveStudents)
	assert.Equal(t, 10, mid.Encounters)
	assert.Equal(t, 1, mid.LearningWords)
	require.NotNil(t, mid.Accuracy)
	assert.InDelta(t, 80.0, *mid.Accuracy, 1e-9)

	assert.Equal(t, "2025-03-12", result.Trends[2].Date)
}

func TestTrendDays(t *testing.T) {
	from := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}, TrendDays(from, to, time.UTC))
	assert.Empty(t, TrendDays(to, from, time.UTC))
}

func TestAnalyzeVocabulary_TopicsAndInsights(t *testing.T) {
	seen := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	result := AnalyzeVocabulary(VocabularyInput{
		Enrollments: enroll("class-1", "a", "b"),
		Records: []VocabularyRecord{
			record("a", "w1", 10, 7, seen),
			record("b", "w1", 10, 5, seen),
			record("a", "w2", 5, 5, seen),
			record("b", "w3", 10, 2, seen),
			record("b", "unknown", 2, 1, seen),
		},
		Items:    vocabItems(),
		Sections: SectionSet{SectionTopics: true},
		Now:      seen,
	})

	require.Len(t, result.Topics, 4)
	food := result.Topics[0]
	assert.Equal(t, "food", food.Category)
	assert.Equal(t, 2, food.StudentsEngaged)
	assert.False(t, food.IsWeak)
	assert.False(t, food.IsStrong)
	assert.Equal(t, "Continue regular practice", food.RecommendedAction)

	byCategory := map[string]TopicAnalysis{}
	for _, topic := range result.Topics {
		byCategory[topic.Category] = topic
	}
	assert.True(t, byCategory["animals"].IsStrong)
	assert.True(t, byCategory["verbs"].IsWeak)
	assert.Equal(t, "Schedule targeted review of verbs vocabulary", byCategory["verbs"].RecommendedAction)
	assert.Contains(t, byCategory, "uncategorized")

	// uncategorized is 50% and verbs 20%
	require.Len(t, result.Insights.WeakestTopics, 2)
	assert.Equal(t, "verbs", result.Insights.WeakestTopics[0].Category)
	assert.Equal(t, "uncategorized", result.Insights.WeakestTopics[1].Category)
	require.Len(t, result.Insights.StrongestTopics, 1)
	assert.Equal(t, "animals", result.Insights.StrongestTopics[0].Category)
	assert.Contains(t, result.Insights.Recommendations, "Focus review on 2 weak topic(s), starting with verbs")
}

func TestSectionSet_Has(t *testing.T) {
	assert.True(t, SectionSet{}.Has(SectionTrends))
	assert.True(t, SectionSet(nil).Has(SectionWords))
	assert.True(t, SectionSet{SectionWords: true}.Has(SectionWords))
	assert.False(t, SectionSet{SectionWords: true}.Has(SectionTrends))
}
