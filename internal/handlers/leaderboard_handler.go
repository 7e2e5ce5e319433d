package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/utils"
)

type LeaderboardHandler struct {
	BaseHandler
	service services.LeaderboardService
}

func NewLeaderboardHandler(service services.LeaderboardService, logger utils.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetLeaderboards ranks the teacher's students for the dashboard.
// @Summary Dashboard leaderboards
// @Tags dashboard
// @Produce json
// @Param teacherId query string false "Teacher ID"
// @Param classId query string false "Class ID"
// @Param limit query int false "Maximum students (default 100)"
// @Param scope query string false "my-classes or school"
// @Param timePeriod query string false "daily, weekly, monthly or all_time"
// @Param metric query string false "points, xp, gems, score or accuracy"
// @Success 200 {object} map[string]services.LeaderboardPayload
// @Router /dashboard/leaderboards [get]
func (h *LeaderboardHandler) GetLeaderboards(c *gin.Context) {
	teacher := h.teacherID(c)
	if teacher == "" {
		return
	}
	q := services.LeaderboardQuery{
		TeacherID: teacher,
		ClassID:   c.Query("classId"),
		Limit:     parseLimit(c),
		Scope:     c.Query("scope"),
		Period:    c.Query("timePeriod"),
		Metric:    c.Query("metric"),
	}
	h.LogRequest(c, "Getting leaderboards", "scope", q.Scope, "time_period", q.Period, "metric", q.Metric)

	board, err := h.service.GetLeaderboard(c.Request.Context(), q)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboards": board})
}
