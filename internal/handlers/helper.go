package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/services"
)

const userIDKey = "user_id"

// IdentityMiddleware copies the X-User-ID header into the gin context.
// Authentication happens upstream.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader("X-User-ID")); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// teacherID resolves the caller: the teacherId query parameter wins over the
// context identity. It writes a 400 and returns "" when neither is set.
func (h *BaseHandler) teacherID(c *gin.Context) string {
	if id := strings.TrimSpace(c.Query("teacherId")); id != "" {
		return id
	}
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	h.handleServiceError(c, services.ValidationErrors{*services.NewValidationError("teacherId", "is required", nil)})
	return ""
}

// parseLimit coerces a missing, non-numeric or non-positive limit to the
// default.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return services.DefaultLimit
	}
	return limit
}

// splitList reads a comma separated query value. Repeated parameters are
// joined.
func splitList(c *gin.Context, param string) []string {
	var out []string
	for _, raw := range c.QueryArray(param) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
