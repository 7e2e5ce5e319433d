package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/services"
)

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, services.ValidationErrors{*validationError})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", err, map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var downstream *services.DownstreamError
	if errors.As(err, &downstream) {
		h.LogError(c, err, "Downstream failure", "op", downstream.Op)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to load analytics data",
			Details: downstream.Details,
			Code:    downstream.Code,
		})
		return
	}

	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err.Error())
	case services.IsForbidden(err):
		h.RespondWithError(c, http.StatusForbidden, "Forbidden - insufficient permissions", err)
	case errors.Is(err, services.ErrAssignmentNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Assignment not found", err)
	case errors.Is(err, services.ErrClassNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Class not found", err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
