package api

import (
	"net/http"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/pkg/errors"
	"github.com/saipul12c/my-portofolio-sub004/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves the request/response message surface.
type MessageHandler struct {
	gateway *gateway.Gateway
}

// NewMessageHandler creates the handler.
func NewMessageHandler(gw *gateway.Gateway) *MessageHandler {
	return &MessageHandler{gateway: gw}
}

type createMessageRequest struct {
	ChannelID   string              `json:"channel_id"`
	UserID      string              `json:"user_id"`
	Content     string              `json:"content"`
	Attachments []models.Attachment `json:"attachments"`
}

// CreateMessage handles POST /messages. An authenticated identity always
// takes precedence over a caller-supplied user_id.
func (h *MessageHandler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_BODY", "request body must be valid JSON"))
		return
	}

	userID := req.UserID
	bot := false
	if authID := c.GetString(middleware.ContextUserID); authID != "" {
		userID = authID
		bot = c.GetBool(middleware.ContextBot)
	}

	enriched, err := h.gateway.CreateMessage(gateway.Inbound{
		ChannelID:   req.ChannelID,
		UserID:      userID,
		Content:     req.Content,
		Attachments: req.Attachments,
		Bot:         bot,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, enriched)
}

// GetMessages handles GET /messages?channel_id&limit&before.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	channelID := c.Query("channel_id")

	var limit int
	if v := c.Query("limit"); v != "" {
		if err := parseInt(v, &limit); err != nil {
			c.Error(errors.NewBadRequestError("INVALID_LIMIT", "limit must be an integer"))
			return
		}
	}

	var before time.Time
	if v := c.Query("before"); v != "" {
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.Error(errors.NewBadRequestError("INVALID_BEFORE", "before must be an RFC 3339 timestamp"))
			return
		}
		before = parsed
	}

	messages, err := h.gateway.ReadMessages(channelID, limit, before)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// EditMessage handles PATCH /messages/:id.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_BODY", "request body must be valid JSON"))
		return
	}

	msg, err := h.gateway.EditMessage(c.Param("id"), req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// DeleteMessage handles DELETE /messages/:id, returning the removed
// record.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	msg, err := h.gateway.DeleteMessage(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

type reactRequest struct {
	Emoji  string `json:"emoji"`
	UserID string `json:"user_id"`
}

// React handles POST /messages/:id/react.
func (h *MessageHandler) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_BODY", "request body must be valid JSON"))
		return
	}

	userID := req.UserID
	if authID := c.GetString(middleware.ContextUserID); authID != "" {
		userID = authID
	}

	msg, err := h.gateway.React(c.Param("id"), req.Emoji, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": msg.ID, "reactions": msg.Reactions})
}
