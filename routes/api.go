package routes

import (
	"github.com/address-tagger/app/controllers"
	"github.com/gin-gonic/gin"
)

// Controllers groups every controller the router needs.
type Controllers struct {
	Address   *controllers.AddressController
	Gazetteer *controllers.GazetteerController
	Admin     *controllers.AdminController
}

// SetupAPIRoutes registers the /v1 API.
func SetupAPIRoutes(router *gin.Engine, ctrl Controllers) {
	v1 := router.Group("/v1")
	{
		addresses := v1.Group("/addresses")
		{
			addresses.POST("/tag", ctrl.Address.TagAddress)
			addresses.POST("/parse", ctrl.Address.ParseAddress)
			addresses.POST("/features", ctrl.Address.Features)
			addresses.POST("/jobs", ctrl.Address.BatchTag)
			addresses.GET("/jobs/:jobID/status", ctrl.Address.GetJobStatus)
			addresses.GET("/jobs/:jobID/results", ctrl.Address.GetJobResults)
		}

		gz := v1.Group("/gazetteer")
		{
			gz.GET("/classify", ctrl.Gazetteer.Classify)
			gz.GET("/suggest", ctrl.Gazetteer.Suggest)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/stats", ctrl.Admin.GetStats)
			admin.POST("/cache/invalidate", ctrl.Admin.InvalidateCache)
			admin.GET("/cache/entry", ctrl.Admin.CacheEntry)
			admin.POST("/meili/seed", ctrl.Admin.SeedSearch)
		}

		v1.GET("/health", ctrl.Address.HealthCheck)
	}
}

// SetupHealthRoutes registers the unversioned health endpoints.
func SetupHealthRoutes(router *gin.Engine, addressController *controllers.AddressController) {
	router.GET("/health", addressController.HealthCheck)
	router.GET("/ready", addressController.Ready)
	router.GET("/live", addressController.HealthCheck)
}
