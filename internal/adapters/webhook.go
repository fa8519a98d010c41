package adapters

import (
	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
)

// WebhookSender creates messages on behalf of external webhooks. Webhook
// messages are the only anonymous producer path: they carry a nil user id
// and the webhook's id instead.
type WebhookSender struct {
	gw *gateway.Gateway
}

// NewWebhookSender creates a webhook sender over the gateway.
func NewWebhookSender(gw *gateway.Gateway) *WebhookSender {
	return &WebhookSender{gw: gw}
}

// Send creates an anonymous message attributed to the webhook. Username
// becomes the displayed sender name; it defaults inside the gateway when
// empty.
func (w *WebhookSender) Send(webhookID, channelID, content, username string) (*gateway.Enriched, error) {
	return w.gw.CreateMessage(gateway.Inbound{
		ChannelID:   channelID,
		Content:     content,
		WebhookID:   webhookID,
		WebhookName: username,
	})
}
