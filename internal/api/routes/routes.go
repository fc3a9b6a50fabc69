// Package routes wires the HTTP surface: public health/auth endpoints, the
// authenticated operational API, and the Prometheus scrape endpoint.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/api/handlers"
	"github.com/kestrelsec/aegis/internal/api/middleware"
	"github.com/kestrelsec/aegis/internal/config"
	"github.com/kestrelsec/aegis/internal/notify"
	"github.com/kestrelsec/aegis/internal/pipeline"
	"github.com/kestrelsec/aegis/internal/services"
	"github.com/kestrelsec/aegis/internal/store"
)

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	DB        *gorm.DB
	Pipeline  *pipeline.Pipeline
	Actions   *store.ActionStore
	Endpoints *store.EndpointStore
	Notify    *notify.Service
	Registry  *prometheus.Registry
}

// Register wires up API routes.
func Register(router *gin.Engine, cfg config.Config, deps Deps) {
	router.GET("/api/v1/health", handlers.HealthHandler)
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")

	authService := services.NewAuthService(deps.DB, cfg)
	authHandler := handlers.NewAuthHandler(authService)
	api.POST("/auth/login", authHandler.Login)

	threatHandler := handlers.NewThreatHandler(deps.DB, deps.Pipeline)
	actionHandler := handlers.NewActionHandler(deps.Actions)
	endpointHandler := handlers.NewEndpointHandler(deps.Endpoints)
	policyHandler := handlers.NewPolicyHandler(deps.DB)
	notificationHandler := handlers.NewNotificationHandler(deps.Notify)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/change-password", authHandler.ChangePassword)

		protected.POST("/threats/analyze", threatHandler.Analyze)
		protected.GET("/threats", threatHandler.List)

		protected.GET("/actions", actionHandler.List)
		protected.GET("/actions/:id", actionHandler.Get)

		protected.GET("/endpoints", endpointHandler.List)
		protected.GET("/policies", policyHandler.List)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/read", notificationHandler.MarkAllRead)
	}
}
