package api

import (
	"github.com/saipul12c/my-portofolio-sub004/internal/ws"
	"github.com/saipul12c/my-portofolio-sub004/pkg/health"
	"github.com/saipul12c/my-portofolio-sub004/pkg/jwt"
	"github.com/saipul12c/my-portofolio-sub004/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires the messaging core's HTTP and websocket surfaces
// onto the engine. Caller-supplied identities are accepted where the
// route allows them; a bearer token, when present, always wins.
func RegisterRoutes(
	r *gin.Engine,
	messages *MessageHandler,
	presence *PresenceHandler,
	webhooks *WebhookHandler,
	socket *ws.Handler,
	jwtService *jwt.Service,
	checker *health.Checker,
) {
	auth := middleware.OptionalJWTAuthMiddleware(jwtService)

	msgGroup := r.Group("/messages")
	msgGroup.Use(auth)
	{
		msgGroup.POST("", messages.CreateMessage)
		msgGroup.GET("", messages.GetMessages)
		msgGroup.PATCH("/:id", messages.EditMessage)
		msgGroup.DELETE("/:id", messages.DeleteMessage)
		msgGroup.POST("/:id/react", messages.React)
	}

	presGroup := r.Group("/presence")
	presGroup.Use(auth)
	{
		presGroup.POST("", presence.SetPresence)
		presGroup.GET("/:userId", presence.GetPresence)
	}

	// Webhook injection is the anonymous producer path; no auth group.
	r.POST("/webhooks/:id/messages", webhooks.Execute)

	r.GET("/ws", socket.Serve)

	r.GET("/health", checker.Handler())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
