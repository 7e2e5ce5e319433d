package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/language-gems/analytics-service/internal/aggregation"
	"github.com/language-gems/analytics-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAssignmentWorkbook(t *testing.T) {
	accuracy := 79.6
	generated := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	content, err := AssignmentWorkbook(
		AssignmentMeta{AssignmentID: "asg-1", Title: "Food vocab", ClassName: "7B French", GeneratedAt: generated},
		aggregation.AssignmentResult{
			Overview: aggregation.Overview{
				TotalStudents:       3,
				StudentsWithSession: 2,
				StudentsCompleted:   1,
				AverageAccuracy:     &accuracy,
				CompletionRate:      33.333,
			},
			Words: []aggregation.WordDifficulty{
				{Rank: 1, VocabularyID: "w2", Word: "chat", Translation: "cat", TotalAttempts: 4, CorrectAttempts: 1, Accuracy: 25, StudentsAttempted: 2, InsightLevel: aggregation.InsightReview},
			},
			Students: []aggregation.StudentProgress{
				{
					StudentID:        "a",
					Name:             "Ana",
					Status:           models.StatusCompleted,
					SessionsCount:    2,
					BestAccuracy:     &accuracy,
					TimeSpentSeconds: 600,
					FailureRate:      40,
					KeyStruggleWords: []aggregation.StruggleWord{{Word: "chat"}, {Word: "aller"}},
					InterventionFlag: aggregation.FlagHighFailure,
				},
			},
		},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{OverviewSheet, WordsSheet, StudentsSheet}, f.GetSheetList())

	t.Run("overview", func(t *testing.T) {
		rows, err := f.GetRows(OverviewSheet)
		require.NoError(t, err)
		assert.Equal(t, []string{"Metric", "Value"}, rows[0])
		assert.Equal(t, []string{"Assignment", "Food vocab"}, rows[1])
		assert.Equal(t, []string{"Total students", "3"}, rows[4])
		assert.Equal(t, []string{"Completion rate (%)", "33"}, rows[10])
		assert.Equal(t, []string{"Average accuracy (%)", "80"}, rows[11])
	})

	t.Run("words", func(t *testing.T) {
		rows, err := f.GetRows(WordsSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"1", "chat", "cat", "4", "1", "25", "2", "review"}, rows[1])
	})

	t.Run("students", func(t *testing.T) {
		rows, err := f.GetRows(StudentsSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Ana", rows[1][0])
		assert.Equal(t, "Completed", rows[1][1])
		assert.Equal(t, "10", rows[1][5])
		assert.Equal(t, "chat, aller", rows[1][7])
		assert.Equal(t, "high_failure", rows[1][8])
	})
}

func TestAssignmentMeta_Filename(t *testing.T) {
	at := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "assignment-analytics-Food_vocab7B-20250312.xlsx",
		AssignmentMeta{AssignmentID: "asg-1", Title: "Food vocab/7B!", GeneratedAt: at}.Filename())
	assert.Equal(t, "assignment-analytics-asg-1-20250312.xlsx",
		AssignmentMeta{AssignmentID: "asg-1", Title: "???", GeneratedAt: at}.Filename())
}
