package router

import (
	"github.com/gin-gonic/gin"

	"personacard.app/agent/internal/http/handler"
	"personacard.app/agent/internal/http/middleware"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/service"
)

type RouterConfig struct {
	AdminAPIKey string
	// Metrics is optional; when nil /metrics is not mounted.
	Metrics *metrics.Metrics
	// Checks back /ready, keyed by dependency name.
	Checks map[string]handler.CheckFunc
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.Use(middleware.RequestID())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	health := handler.NewHealthHandler(cfg.Checks)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)

	api := router.Group("/api")

	cardHandler := handler.NewCardHandler(services.Cards(), services.Persona())
	UserRouter(api.Group("/users"), cardHandler)

	adminHandler := handler.NewAdminHandler(handler.AdminServices{
		Ingestion: services.Ingestion(),
		Persona:   services.Persona(),
		Pipeline:  services.Pipeline(),
		Credits:   services.Credits(),
		Data:      services.Data(),
		Tasks:     services.Tasks(),
	})
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
	AdminRouter(admin, adminHandler)
}

func UserRouter(rg *gin.RouterGroup, h *handler.CardHandler) {
	rg.GET("/:fid/card-latest", h.Latest)
	rg.POST("/:fid/cards", h.Generate)
}

func AdminRouter(rg *gin.RouterGroup, h *handler.AdminHandler) {
	rg.GET("/credits", h.Credits)

	users := rg.Group("/users/:fid")
	users.POST("/ingest-now", h.IngestNow)
	users.POST("/persona-now", h.PersonaNow)
	users.POST("/full-pipeline", h.FullPipeline)
	users.POST("/enqueue", h.Enqueue)
	users.DELETE("/data", h.ResetData)
}
