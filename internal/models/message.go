package models

import (
	"time"
)

// Attachment is an opaque reference to an uploaded file carried by a message.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Reaction is one emoji and the set of users who applied it. Users is kept
// as an ordered slice; membership is enforced by the store.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

// Message is a chat message. ID, ChannelID and CreatedAt never change after
// creation; Content, EditedAt and Reactions may mutate in place. UserID is
// nil for webhook-originated messages.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	UserID      *string      `json:"user_id"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Bot         bool         `json:"bot,omitempty"`
	WebhookID   string       `json:"webhook_id,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// AddReaction adds userID to the emoji's user set if absent. It reports
// whether the message changed.
func (m *Message) AddReaction(emoji, userID string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}
		for _, u := range m.Reactions[i].Users {
			if u == userID {
				return false
			}
		}
		m.Reactions[i].Users = append(m.Reactions[i].Users, userID)
		return true
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, Users: []string{userID}})
	return true
}

// Profile is the sender profile used to enrich created messages. User
// records live outside this service; the profile is resolved, not owned.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bot         bool   `json:"bot,omitempty"`
}
