package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes. POST endpoints are rate
// limited when h has a limiter.
func SetupRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", h.HealthCheck)

		// Reference data
		api.GET("/courts", h.Courts)
		api.GET("/case-types", h.CaseTypes)

		// Query history
		api.GET("/history", h.History)
		api.GET("/queries/:id", h.GetQuery)
		api.GET("/queries/:id/judgments", h.ListJudgments)
		api.GET("/judgments/:id/file", h.JudgmentFile)

		// Provider-backed endpoints
		fetch := api.Group("")
		if h.limiter != nil {
			fetch.Use(RateLimit(h.limiter))
		}
		fetch.POST("/fetch-case", h.FetchCase)
		fetch.POST("/fetch-causelist", h.FetchCauseList)
		fetch.POST("/download-judgment", h.DownloadJudgment)
	}
}
