package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/utils"
)

// CacheInvalidator drops every cached report of one teacher.
type CacheInvalidator interface {
	InvalidateTeacherCache(ctx context.Context, teacherID string) error
}

type CacheHandler struct {
	BaseHandler
	invalidator CacheInvalidator
}

func NewCacheHandler(invalidator CacheInvalidator, logger utils.Logger) *CacheHandler {
	return &CacheHandler{
		BaseHandler: NewBaseHandler(logger),
		invalidator: invalidator,
	}
}

// Invalidate forces the next vocabulary and leaderboard reads to hit the
// database.
// @Summary Invalidate cached reports
// @Tags cache
// @Success 204
// @Router /analytics-cache [delete]
func (h *CacheHandler) Invalidate(c *gin.Context) {
	teacher := h.teacherID(c)
	if teacher == "" {
		return
	}
	h.LogRequest(c, "Invalidating cached reports")

	if err := h.invalidator.InvalidateTeacherCache(c.Request.Context(), teacher); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
