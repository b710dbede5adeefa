// Package routes wires the HTTP surface of the address tagger.
//
// - api.go: /v1 API routes and health checks
// - web.go: index and docs pages
// - routes.go: SetupAllRoutes
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupAllRoutes registers every route. Middleware is installed by the
// caller.
func SetupAllRoutes(router *gin.Engine, ctrl Controllers) {
	SetupWebRoutes(router)
	SetupHealthRoutes(router, ctrl.Address)
	SetupAPIRoutes(router, ctrl)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}
