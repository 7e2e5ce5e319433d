package validator

import (
	"testing"

	apperrors "github.com/language-gems/analytics-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaderboardParams struct {
	TeacherID string   `json:"teacherId" validate:"required"`
	Scope     string   `json:"scope" validate:"omitempty,leaderboard_scope"`
	Period    string   `json:"timePeriod" validate:"omitempty,time_period"`
	Metric    string   `json:"metric" validate:"omitempty,leaderboard_metric"`
	Source    string   `json:"source" validate:"omitempty,vocabulary_source"`
	Sections  []string `json:"sections" validate:"omitempty,dive,analytics_section"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid values pass", func(t *testing.T) {
		err := v.Validate(&leaderboardParams{
			TeacherID: "teacher-1",
			Scope:     "school",
			Period:    "all_time",
			Metric:    "accuracy",
			Source:    "gems",
			Sections:  []string{"stats", "words"},
		})
		assert.NoError(t, err)
	})

	t.Run("empty optional values pass", func(t *testing.T) {
		assert.NoError(t, v.Validate(&leaderboardParams{TeacherID: "teacher-1"}))
	})

	t.Run("errors use json field names and custom messages", func(t *testing.T) {
		err := v.Validate(&leaderboardParams{
			Scope:    "galaxy",
			Period:   "yearly",
			Metric:   "kills",
			Source:   "homework",
			Sections: []string{"stats", "gossip"},
		})
		require.Error(t, err)

		var verrs apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)

		byField := map[string]apperrors.ValidationError{}
		for _, e := range verrs {
			byField[e.Field] = e
		}
		assert.Equal(t, "is required", byField["teacherId"].Message)
		assert.Equal(t, "leaderboard_scope", byField["scope"].Rule)
		assert.Equal(t, "must be my-classes or school", byField["scope"].Message)
		assert.Equal(t, "must be daily, weekly, monthly or all_time", byField["timePeriod"].Message)
		assert.Equal(t, "must be points, xp, gems, score or accuracy", byField["metric"].Message)
		assert.Equal(t, "must be all, gems or assignments", byField["source"].Message)
		assert.Equal(t, "gossip", byField["sections[1]"].Value)
		assert.Equal(t, "must be stats, students, trends, topics or words", byField["sections[1]"].Message)
	})
}
