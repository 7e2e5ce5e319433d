package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/language-gems/analytics-service/internal/metrics"
	"github.com/language-gems/analytics-service/internal/services"
	"github.com/language-gems/analytics-service/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HandlerManager struct {
	assignmentHandler  *AssignmentAnalyticsHandler
	vocabularyHandler  *VocabularyHandler
	leaderboardHandler *LeaderboardHandler
	cacheHandler       *CacheHandler
}

func NewHandlerManager(serviceManager *services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		assignmentHandler:  NewAssignmentAnalyticsHandler(serviceManager.Assignments(), logger),
		vocabularyHandler:  NewVocabularyHandler(serviceManager.Vocabulary(), logger),
		leaderboardHandler: NewLeaderboardHandler(serviceManager.Leaderboards(), logger),
		cacheHandler:       NewCacheHandler(serviceManager, logger),
	}
}

// NewRouter builds the gin engine with the shared middleware and every route.
func NewRouter(hm *HandlerManager, logger utils.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(utils.ContextLogger(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(IdentityMiddleware())

	hm.SetupRoutes(router)
	return router
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		assignments := v1.Group("/assignment-analytics")
		{
			assignments.GET("", hm.assignmentHandler.MissingAssignmentID)
			assignments.GET("/:assignmentId", hm.assignmentHandler.GetAnalytics)
			assignments.GET("/:assignmentId/words/:vocabularyId/students", hm.assignmentHandler.GetWordStudents)
			assignments.GET("/:assignmentId/export", hm.assignmentHandler.Export)
			assignments.POST("/:assignmentId/interventions/notify", hm.assignmentHandler.NotifyInterventions)
		}

		v1.GET("/vocabulary/analytics", hm.vocabularyHandler.GetAnalytics)
		v1.GET("/dashboard/leaderboards", hm.leaderboardHandler.GetLeaderboards)
		v1.DELETE("/analytics-cache", hm.cacheHandler.Invalidate)
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "analytics-service",
	})
}
