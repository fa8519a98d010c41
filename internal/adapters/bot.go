// Package adapters holds the alternate message producers. Bots and
// webhooks feed the same ingestion gateway path as interactive clients:
// same validation, same persistence, same broadcast.
package adapters

import (
	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
)

// BotSender is an in-process producer bound to one bot principal. Every
// message it creates carries the bot flag.
type BotSender struct {
	gw    *gateway.Gateway
	botID string
}

// NewBotSender binds a sender to a bot identity.
func NewBotSender(gw *gateway.Gateway, botID string) *BotSender {
	return &BotSender{gw: gw, botID: botID}
}

// Send creates a bot message in the given channel.
func (b *BotSender) Send(channelID, content string) (*gateway.Enriched, error) {
	return b.gw.CreateMessage(gateway.Inbound{
		ChannelID: channelID,
		UserID:    b.botID,
		Content:   content,
		Bot:       true,
	})
}

// SendWithAttachments creates a bot message carrying attachments.
func (b *BotSender) SendWithAttachments(channelID, content string, attachments []models.Attachment) (*gateway.Enriched, error) {
	return b.gw.CreateMessage(gateway.Inbound{
		ChannelID:   channelID,
		UserID:      b.botID,
		Content:     content,
		Attachments: attachments,
		Bot:         true,
	})
}
