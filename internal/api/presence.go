package api

import (
	"net/http"
	"strconv"

	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/internal/presence"
	"github.com/saipul12c/my-portofolio-sub004/pkg/errors"
	"github.com/saipul12c/my-portofolio-sub004/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// PresenceHandler serves the presence endpoints.
type PresenceHandler struct {
	tracker *presence.Tracker
}

// NewPresenceHandler creates the handler.
func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

type setPresenceRequest struct {
	UserID     string                `json:"user_id"`
	Status     models.PresenceStatus `json:"status"`
	Activities []string              `json:"activities"`
}

// SetPresence handles POST /presence.
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	var req setPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_BODY", "request body must be valid JSON"))
		return
	}

	userID := req.UserID
	if authID := c.GetString(middleware.ContextUserID); authID != "" {
		userID = authID
	}
	if userID == "" {
		c.Error(errors.NewBadRequestError("USER_REQUIRED", "user_id is required"))
		return
	}
	if !req.Status.Valid() {
		c.Error(errors.NewBadRequestError("INVALID_STATUS", "status must be one of online, offline, idle, custom"))
		return
	}

	rec, err := h.tracker.SetPresence(c.Request.Context(), userID, req.Status, req.Activities)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// GetPresence handles GET /presence/:userId.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	rec, err := h.tracker.GetPresence(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// parseInt is a tiny strconv wrapper shared by the handlers.
func parseInt(s string, out *int) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*out = v
	return nil
}
