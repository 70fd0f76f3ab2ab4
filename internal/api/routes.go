package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(cors.Default())

	api := router.Group("/api")
	{
		api.POST("/listings", handler.IngestListings)
		api.POST("/listings/search-area", handler.FindListingsInPolygon)
		api.POST("/listings/reindex", handler.RefreshIndex)
		api.POST("/duplicates/detect", handler.DetectDuplicates)
		api.POST("/objects/merge", handler.MergeObjects)
		api.POST("/objects/split", handler.SplitObjects)
		api.GET("/objects/:id/price", handler.PriceAtDate)
		api.POST("/session", handler.StartSession)
		api.POST("/evaluations", handler.Evaluate)
		api.GET("/evaluations", handler.GetEvaluations)
		api.PUT("/evaluations", handler.RestoreEvaluations)
		api.GET("/corridors", handler.GetCorridors)
		api.GET("/confidence", handler.GetConfidence)
		api.GET("/areas", handler.GetAreas)
		api.POST("/areas", handler.SaveArea)
	}
}
