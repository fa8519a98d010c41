// Package presence tracks ephemeral user state: last-known presence
// records and typing signals. Nothing here touches the message logs.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/hub"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"
)

// Store persists presence records. Last writer wins; records have no
// expiry, so a user who disconnects uncleanly stays at their last
// reported status.
type Store interface {
	Set(ctx context.Context, rec models.PresenceRecord) error
	Get(ctx context.Context, userID string) (*models.PresenceRecord, error)
}

// Tracker upserts presence, synthesizes offline for unknown users, and
// emits typing signals to channel subscribers.
type Tracker struct {
	store  Store
	broker *hub.Broker
	log    *logger.Logger
}

// NewTracker creates a tracker over the given store and broker.
func NewTracker(store Store, broker *hub.Broker, log *logger.Logger) *Tracker {
	return &Tracker{store: store, broker: broker, log: log}
}

// SetPresence upserts the user's record and broadcasts it to every
// connection, not just topic subscribers.
func (t *Tracker) SetPresence(ctx context.Context, userID string, status models.PresenceStatus, activities []string) (*models.PresenceRecord, error) {
	rec := models.PresenceRecord{
		UserID:     userID,
		Status:     status,
		Activities: activities,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := t.store.Set(ctx, rec); err != nil {
		return nil, err
	}

	t.broker.PublishAll(hub.Event{Type: hub.EventPresence, Data: rec})
	return &rec, nil
}

// GetPresence returns the last known record, or a synthesized offline
// record when the user has never reported.
func (t *Tracker) GetPresence(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	rec, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &models.PresenceRecord{UserID: userID, Status: models.StatusOffline}, nil
	}
	return rec, nil
}

// EmitTyping broadcasts a typing signal to the channel's subscribers. The
// signal is never stored and never deduplicated: rapid repeated calls each
// produce a separate broadcast.
func (t *Tracker) EmitTyping(channelID, userID string, typing bool) models.TypingEvent {
	ev := models.TypingEvent{
		ChannelID: channelID,
		UserID:    userID,
		Typing:    typing,
		At:        time.Now().UTC(),
	}
	t.broker.Publish(channelID, hub.Event{Type: hub.EventTyping, Data: ev})
	return ev
}

// MemoryStore is the default in-process presence store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.PresenceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.PresenceRecord)}
}

func (m *MemoryStore) Set(_ context.Context, rec models.PresenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*models.PresenceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
