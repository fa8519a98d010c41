package api

import (
	"net/http"

	"github.com/saipul12c/my-portofolio-sub004/internal/adapters"
	"github.com/saipul12c/my-portofolio-sub004/pkg/errors"

	"github.com/gin-gonic/gin"
)

// WebhookHandler serves the webhook injection endpoint, the only producer
// path that creates messages without a user identity.
type WebhookHandler struct {
	sender *adapters.WebhookSender
}

// NewWebhookHandler creates the handler.
func NewWebhookHandler(sender *adapters.WebhookSender) *WebhookHandler {
	return &WebhookHandler{sender: sender}
}

type webhookMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Username  string `json:"username"`
}

// Execute handles POST /webhooks/:id/messages.
func (h *WebhookHandler) Execute(c *gin.Context) {
	var req webhookMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_BODY", "request body must be valid JSON"))
		return
	}

	enriched, err := h.sender.Send(c.Param("id"), req.ChannelID, req.Content, req.Username)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, enriched)
}
