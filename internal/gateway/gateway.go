// Package gateway is the single ingestion path for messages. Every
// producer (HTTP create, websocket events, bots, webhooks) validates,
// resolves identity, persists and broadcasts through here.
package gateway

import (
	"errors"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/hub"
	"github.com/saipul12c/my-portofolio-sub004/internal/metrics"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/internal/store"
	apperrors "github.com/saipul12c/my-portofolio-sub004/pkg/errors"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/google/uuid"
)

// MessageStore is the durable log surface the gateway writes through.
type MessageStore interface {
	Append(msg *models.Message) error
	Read(channelID string, limit int, before time.Time) []models.Message
	Edit(messageID, content string) (*models.Message, error)
	Delete(messageID string) (*models.Message, error)
	React(messageID, emoji, userID string) (*models.Message, bool, error)
}

// Publisher is the broadcast surface. Delivery success is decoupled from
// write durability; the gateway never learns whether subscribers got the
// event.
type Publisher interface {
	Publish(topic string, ev hub.Event)
}

// ProfileResolver resolves a sender profile for response enrichment. User
// records are owned elsewhere; this is a lookup, never a mutation.
type ProfileResolver interface {
	Resolve(userID string) models.Profile
}

// Inbound is a message creation request after identity resolution.
// UserID is empty only on producer paths that explicitly allow anonymous
// creation (webhook injection).
type Inbound struct {
	ChannelID   string
	UserID      string
	Content     string
	Attachments []models.Attachment
	Bot         bool
	WebhookID   string
	WebhookName string
}

// Enriched pairs a persisted message with its sender profile.
type Enriched struct {
	Message models.Message `json:"message"`
	Profile models.Profile `json:"profile"`
}

// ReactionUpdate is the compact event published on reaction changes.
type ReactionUpdate struct {
	MessageID string            `json:"message_id"`
	Reactions []models.Reaction `json:"reactions"`
}

// Options bound what the gateway accepts.
type Options struct {
	// MaxContentBytes rejects oversized content before persistence.
	MaxContentBytes int
}

// DefaultOptions returns the documented traffic limits.
func DefaultOptions() Options {
	return Options{MaxContentBytes: 4096}
}

// Gateway validates, persists and broadcasts messages.
type Gateway struct {
	store    MessageStore
	broker   Publisher
	profiles ProfileResolver
	log      *logger.Logger
	opts     Options
}

// New creates a gateway.
func New(st MessageStore, broker Publisher, profiles ProfileResolver, log *logger.Logger, opts Options) *Gateway {
	if opts.MaxContentBytes <= 0 {
		opts.MaxContentBytes = DefaultOptions().MaxContentBytes
	}
	return &Gateway{store: st, broker: broker, profiles: profiles, log: log, opts: opts}
}

// CreateMessage validates in, persists it to both logs and hands the
// enriched record to the broadcaster exactly once. Validation failures
// reject before any persistence is attempted.
func (g *Gateway) CreateMessage(in Inbound) (*Enriched, error) {
	if in.ChannelID == "" {
		return nil, apperrors.NewBadRequestError("CHANNEL_REQUIRED", "channel_id is required")
	}
	if in.Content == "" {
		return nil, apperrors.NewBadRequestError("CONTENT_REQUIRED", "content must not be empty")
	}
	if len(in.Content) > g.opts.MaxContentBytes {
		return nil, apperrors.NewBadRequestError("CONTENT_TOO_LARGE", "content exceeds the maximum message size")
	}
	if in.UserID == "" && in.WebhookID == "" {
		return nil, apperrors.NewBadRequestError("USER_REQUIRED", "user_id is required")
	}

	msg := &models.Message{
		ID:          uuid.New().String(),
		ChannelID:   in.ChannelID,
		Content:     in.Content,
		CreatedAt:   time.Now().UTC(),
		Attachments: in.Attachments,
		Bot:         in.Bot,
		WebhookID:   in.WebhookID,
	}
	if in.UserID != "" {
		uid := in.UserID
		msg.UserID = &uid
	}

	if err := g.store.Append(msg); err != nil {
		g.log.LogError(err, "message append failed", "channel_id", in.ChannelID)
		return nil, apperrors.NewInternalServerError("APPEND_FAILED", "failed to persist message")
	}
	metrics.MessagesCreated.Inc()

	enriched := &Enriched{Message: *msg, Profile: g.resolveProfile(in)}
	g.broker.Publish(msg.ChannelID, hub.Event{Type: hub.EventMessage, Data: enriched})
	return enriched, nil
}

// ReadMessages returns a channel's history, ascending by created_at.
func (g *Gateway) ReadMessages(channelID string, limit int, before time.Time) ([]models.Message, error) {
	if channelID == "" {
		return nil, apperrors.NewBadRequestError("CHANNEL_REQUIRED", "channel_id is required")
	}
	return g.store.Read(channelID, limit, before), nil
}

// EditMessage replaces a message's content.
func (g *Gateway) EditMessage(messageID, content string) (*models.Message, error) {
	if content == "" {
		return nil, apperrors.NewBadRequestError("CONTENT_REQUIRED", "content must not be empty")
	}
	if len(content) > g.opts.MaxContentBytes {
		return nil, apperrors.NewBadRequestError("CONTENT_TOO_LARGE", "content exceeds the maximum message size")
	}

	msg, err := g.store.Edit(messageID, content)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return msg, nil
}

// DeleteMessage removes a message from both logs.
func (g *Gateway) DeleteMessage(messageID string) (*models.Message, error) {
	msg, err := g.store.Delete(messageID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return msg, nil
}

// React adds a user to an emoji's reaction set and, when the set changed,
// publishes a compact reaction event to the message's channel.
func (g *Gateway) React(messageID, emoji, userID string) (*models.Message, error) {
	if emoji == "" {
		return nil, apperrors.NewBadRequestError("EMOJI_REQUIRED", "emoji is required")
	}
	if userID == "" {
		return nil, apperrors.NewBadRequestError("USER_REQUIRED", "user_id is required")
	}

	msg, changed, err := g.store.React(messageID, emoji, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if changed {
		g.broker.Publish(msg.ChannelID, hub.Event{
			Type: hub.EventReaction,
			Data: ReactionUpdate{MessageID: msg.ID, Reactions: msg.Reactions},
		})
	}
	return msg, nil
}

func (g *Gateway) resolveProfile(in Inbound) models.Profile {
	if in.WebhookID != "" && in.UserID == "" {
		name := in.WebhookName
		if name == "" {
			name = "Webhook"
		}
		return models.Profile{DisplayName: name, Bot: true}
	}

	profile := g.profiles.Resolve(in.UserID)
	if in.Bot {
		profile.Bot = true
	}
	return profile
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError("MESSAGE_NOT_FOUND", "no message with that id")
	}
	return apperrors.NewInternalServerError("STORE_ERROR", err.Error())
}
