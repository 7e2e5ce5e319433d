package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/utils"
)

type AssignmentAnalyticsHandler struct {
	BaseHandler
	service services.AssignmentAnalyticsService
}

func NewAssignmentAnalyticsHandler(service services.AssignmentAnalyticsService, logger utils.Logger) *AssignmentAnalyticsHandler {
	return &AssignmentAnalyticsHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

func (h *AssignmentAnalyticsHandler) assignmentQuery(c *gin.Context) (services.AssignmentQuery, bool) {
	assignmentID := ParseStringIDParam(c, "assignmentId")
	if assignmentID == "" {
		return services.AssignmentQuery{}, false
	}
	teacher := h.teacherID(c)
	if teacher == "" {
		return services.AssignmentQuery{}, false
	}
	return services.AssignmentQuery{
		TeacherID:    teacher,
		AssignmentID: assignmentID,
		From:         c.Query("from"),
		To:           c.Query("to"),
	}, true
}

// GetAnalytics returns the coverage overview, word difficulty and student
// progress of one assignment.
// @Summary Assignment analytics
// @Tags assignment-analytics
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param teacherId query string false "Teacher ID"
// @Param from query string false "First day (2006-01-02)"
// @Param to query string false "Last day (2006-01-02)"
// @Success 200 {object} services.AssignmentAnalyticsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignment-analytics/{assignmentId} [get]
func (h *AssignmentAnalyticsHandler) GetAnalytics(c *gin.Context) {
	q, ok := h.assignmentQuery(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Getting assignment analytics", "assignment_id", q.AssignmentID)

	resp, err := h.service.GetAnalytics(c.Request.Context(), q)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MissingAssignmentID rejects the bare collection path.
func (h *AssignmentAnalyticsHandler) MissingAssignmentID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid assignmentId",
		Details: "ID cannot be empty",
	})
}

// GetWordStudents lists the students who practised one word.
// @Summary Students for a word
// @Tags assignment-analytics
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param vocabularyId path string true "Vocabulary ID"
// @Success 200 {object} services.WordStudentsResponse
// @Router /assignment-analytics/{assignmentId}/words/{vocabularyId}/students [get]
func (h *AssignmentAnalyticsHandler) GetWordStudents(c *gin.Context) {
	vocabularyID := ParseStringIDParam(c, "vocabularyId")
	if vocabularyID == "" {
		return
	}
	q, ok := h.assignmentQuery(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Getting word students", "assignment_id", q.AssignmentID, "vocabulary_id", vocabularyID)

	resp, err := h.service.GetWordStudents(c.Request.Context(), services.WordStudentsQuery{
		AssignmentQuery: q,
		VocabularyID:    vocabularyID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the assignment report as an xlsx workbook.
// @Summary Export assignment analytics
// @Tags assignment-analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param assignmentId path string true "Assignment ID"
// @Router /assignment-analytics/{assignmentId}/export [get]
func (h *AssignmentAnalyticsHandler) Export(c *gin.Context) {
	q, ok := h.assignmentQuery(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Exporting assignment analytics", "assignment_id", q.AssignmentID)

	file, err := h.service.Export(c.Request.Context(), q)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// NotifyInterventions publishes one alert per flagged student.
// @Summary Publish intervention alerts
// @Tags assignment-analytics
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} services.NotifyResult
// @Failure 500 {object} ErrorResponse "details carries the partial NotifyResult"
// @Router /assignment-analytics/{assignmentId}/interventions/notify [post]
func (h *AssignmentAnalyticsHandler) NotifyInterventions(c *gin.Context) {
	q, ok := h.assignmentQuery(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Publishing intervention alerts", "assignment_id", q.AssignmentID)

	result, err := h.service.NotifyInterventions(c.Request.Context(), q)
	if err != nil && result != nil {
		// publishing stopped partway
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to publish intervention alerts", err, result)
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
