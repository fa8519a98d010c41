// Package router assembles the gin engine: middleware chain first, then
// the messaging core's routes.
package router

import (
	"github.com/saipul12c/my-portofolio-sub004/internal/api"
	"github.com/saipul12c/my-portofolio-sub004/pkg/config"
	"github.com/saipul12c/my-portofolio-sub004/pkg/di"
	"github.com/saipul12c/my-portofolio-sub004/pkg/errors"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"
	"github.com/saipul12c/my-portofolio-sub004/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router over the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiterOpts := middleware.DefaultRateLimiterOptions()
	rateLimiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	rateLimiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, rateLimiterOpts)
	engine.Use(rateLimiter.Middleware())

	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	messageHandler := api.NewMessageHandler(r.Container.Gateway)
	presenceHandler := api.NewPresenceHandler(r.Container.Tracker)
	webhookHandler := api.NewWebhookHandler(r.Container.WebhookSender)

	api.RegisterRoutes(
		r.Engine,
		messageHandler,
		presenceHandler,
		webhookHandler,
		r.Container.SocketHandler,
		r.Container.JWTService,
		r.Container.Health,
	)
}

// corsMiddleware allows cross-origin requests from the configured
// origins, including the headers a websocket upgrade needs.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "" || allowAll:
			if origin == "" {
				origin = "*"
			}
		case !allowed[origin]:
			// Not an allowed origin; let the browser enforce it.
			c.Next()
			return
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}