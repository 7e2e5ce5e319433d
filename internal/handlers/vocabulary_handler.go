package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/utils"
)

type VocabularyHandler struct {
	BaseHandler
	service services.VocabularyAnalyticsService
}

func NewVocabularyHandler(service services.VocabularyAnalyticsService, logger utils.Logger) *VocabularyHandler {
	return &VocabularyHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetAnalytics returns class-wide vocabulary analytics. Only the sections
// named in ?sections= are computed; insights are always present.
// @Summary Vocabulary analytics
// @Tags vocabulary
// @Produce json
// @Param teacherId query string false "Teacher ID"
// @Param classId query string false "Class ID"
// @Param sections query string false "Comma separated: stats,students,trends,topics,words"
// @Param vocabularySource query string false "all, gems or assignments"
// @Param from query string false "First day (2006-01-02)"
// @Param to query string false "Last day (2006-01-02)"
// @Success 200 {object} map[string]services.VocabularyAnalytics
// @Router /vocabulary/analytics [get]
func (h *VocabularyHandler) GetAnalytics(c *gin.Context) {
	teacher := h.teacherID(c)
	if teacher == "" {
		return
	}
	q := services.VocabularyQuery{
		TeacherID: teacher,
		ClassID:   c.Query("classId"),
		Sections:  splitList(c, "sections"),
		From:      c.Query("from"),
		To:        c.Query("to"),
		Source:    c.Query("vocabularySource"),
	}
	h.LogRequest(c, "Getting vocabulary analytics", "class_id", q.ClassID, "sections", q.Sections)

	analytics, err := h.service.GetAnalytics(c.Request.Context(), q)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analytics": analytics})
}
