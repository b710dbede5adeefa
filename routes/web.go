package routes

import (
	"net/http"

	"github.com/address-tagger/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the non-API routes.
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Indian Address Tagger",
			"version": controllers.Version,
			"docs":    "/docs",
		})
	})

	router.GET("/docs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"api": "Address Tagger API v1",
			"endpoints": map[string]string{
				"tag":         "POST /v1/addresses/tag",
				"parse":       "POST /v1/addresses/parse",
				"features":    "POST /v1/addresses/features",
				"batch":       "POST /v1/addresses/jobs",
				"job_status":  "GET /v1/addresses/jobs/:jobID/status",
				"job_results": "GET /v1/addresses/jobs/:jobID/results?format=ndjson&gzip=1",
				"classify":    "GET /v1/gazetteer/classify?name=",
				"suggest":     "GET /v1/gazetteer/suggest?q=&limit=&categories=",
				"stats":       "GET /v1/admin/stats",
				"invalidate":  "POST /v1/admin/cache/invalidate",
				"meili_seed":  "POST /v1/admin/meili/seed",
				"health":      "GET /health",
			},
		})
	})
}
