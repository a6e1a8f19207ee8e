package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/personaforge/personaforge-backend/internal/handlers"
)

type RouterConfig struct {
	PersonaHandler   *handlers.PersonaHandler
	MigrationHandler *handlers.MigrationHandler
	AllowOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", handlers.OwnerHeader},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Personas
		api.POST("/personas/validate", cfg.PersonaHandler.Validate)
		api.POST("/personas", cfg.PersonaHandler.Create)
		api.GET("/personas", cfg.PersonaHandler.List)
		api.GET("/personas/:id", cfg.PersonaHandler.Get)
		api.GET("/personas/:id/comparison", cfg.PersonaHandler.Compare)
		api.DELETE("/personas/:id", cfg.PersonaHandler.Delete)

		// Batch migrations
		api.POST("/migrations", cfg.MigrationHandler.Submit)
		api.GET("/migrations", cfg.MigrationHandler.ListActive)
		api.GET("/migrations/:id", cfg.MigrationHandler.Get)
		api.POST("/migrations/:id/cancel", cfg.MigrationHandler.Cancel)
	}

	return router
}
