package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/handler"
	"github.com/noah-isme/roster-console/internal/middleware"
	"github.com/noah-isme/roster-console/internal/service"
	"github.com/noah-isme/roster-console/internal/session"
	"github.com/noah-isme/roster-console/pkg/config"
	"github.com/noah-isme/roster-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/roster-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roster-console/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Roster  *handler.RosterHandler
	Metrics *handler.MetricsHandler
}

// Setup builds the console engine.
func Setup(cfg *config.Config, h Handlers, sessions *session.Store, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/password-strength", h.Auth.PasswordStrength)

		roster := api.Group("/roster")
		roster.Use(middleware.RequireSession(sessions, logr))
		{
			roster.GET("", h.Roster.Enter)
			roster.GET("/options", h.Roster.Options)
			roster.PUT("/page", h.Roster.ChangePage)
			roster.POST("/filter", h.Roster.ApplyFilter)
			roster.DELETE("/filter", h.Roster.ResetFilter)
			roster.POST("/students/:id/delete", h.Roster.Delete)
			roster.POST("/dialog", h.Roster.OpenDialog)
			roster.PATCH("/dialog", h.Roster.UpdateDialog)
			roster.POST("/dialog/submit", h.Roster.SubmitDialog)
			roster.DELETE("/dialog", h.Roster.DismissDialog)
			if cfg.Export.Enabled {
				roster.GET("/export", h.Roster.Export)
			}
		}
	}

	return r
}
