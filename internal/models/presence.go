package models

import "time"

// PresenceStatus enumerates the presence states a user can report.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusIdle    PresenceStatus = "idle"
	StatusCustom  PresenceStatus = "custom"
)

// Valid reports whether s is a known presence status.
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusIdle, StatusCustom:
		return true
	}
	return false
}

// PresenceRecord is a user's last known status. Last writer wins; records
// are never expired automatically.
type PresenceRecord struct {
	UserID     string         `json:"user_id"`
	Status     PresenceStatus `json:"status"`
	Activities []string       `json:"activities,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TypingEvent is an ephemeral typing signal. It is broadcast to the
// channel's subscribers and never persisted.
type TypingEvent struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Typing    bool      `json:"typing"`
	At        time.Time `json:"at"`
}
