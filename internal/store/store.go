// Package store owns the durable message logs: one global log holding
// every message ever created, plus one log per channel. The global log is
// the durability source of truth; channel logs are the fast path for a
// channel's history and can be rebuilt from the global log.
package store

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/metrics"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned when a message id resolves to nothing.
var ErrNotFound = errors.New("message not found")

// Key namespaces. Log entry keys embed a zero-padded nanosecond timestamp
// plus a process-local sequence number so entries sort chronologically and
// never collide within one process.
const (
	globalPrefix  = "log:global:"
	channelPrefix = "log:channel:"
	indexPrefix   = "idx:msg:"
	markerPrefix  = "meta:channel:"
)

// channelKeyPart encodes a channel id for key embedding. Channel ids are
// caller-supplied text; encoding keeps an id containing the key separator
// (`c1:secret`) out of channel `c1`'s prefix range.
func channelKeyPart(channelID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(channelID))
}

func channelLogPrefix(channelID string) string {
	return channelPrefix + channelKeyPart(channelID) + ":"
}

func channelMarkerKey(channelID string) string {
	return markerPrefix + channelKeyPart(channelID)
}

// locator records where a message lives in both logs.
type locator struct {
	ChannelID  string `json:"channel_id"`
	GlobalKey  string `json:"global_key"`
	ChannelKey string `json:"channel_key"`
}

// Options bound read sizes.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultOptions returns the read bounds used when none are configured.
func DefaultOptions() Options {
	return Options{DefaultLimit: 50, MaxLimit: 100}
}

// LogStore is a pebble-backed append-only message store. Mutations within
// one channel are serialized; different channels proceed independently.
type LogStore struct {
	db   *pebble.DB
	log  *logger.Logger
	opts Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	seq uint64

	// put performs one durable key write; a seam for write-failure tests.
	put func(key, value []byte) error
}

// Open opens (or creates) the pebble database at path.
func Open(path string, log *logger.Logger, opts Options) (*LogStore, error) {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultOptions().DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultOptions().MaxLimit
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	log.Info("log store opened", "path", path)

	s := &LogStore{
		db:    db,
		log:   log,
		opts:  opts,
		locks: make(map[string]*sync.Mutex),
	}
	s.put = func(key, value []byte) error {
		return s.db.Set(key, value, pebble.Sync)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *LogStore) Close() error {
	return s.db.Close()
}

// Ping verifies the store can serve reads. A miss is healthy; only an
// engine-level failure counts as down.
func (s *LogStore) Ping() error {
	_, closer, err := s.db.Get([]byte("meta:ping"))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil
		}
		return err
	}
	closer.Close()
	return nil
}

// channelLock returns the mutex serializing mutations for one channel.
func (s *LogStore) channelLock(channelID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelID] = l
	}
	return l
}

// entrySuffix builds the sortable key suffix for a log entry.
func (s *LogStore) entrySuffix(ts time.Time) string {
	return fmt.Sprintf("%020d-%06d", ts.UTC().UnixNano(), atomic.AddUint64(&s.seq, 1))
}

// Append writes msg to the global log and to its channel's log. The global
// log write is authoritative: if it fails the append fails. A channel log
// failure is logged, counted and swallowed; the caller still sees success.
func (s *LogStore) Append(msg *models.Message) error {
	lock := s.channelLock(msg.ChannelID)
	lock.Lock()
	defer lock.Unlock()

	suffix := s.entrySuffix(msg.CreatedAt)
	globalKey := globalPrefix + suffix
	channelKey := channelLogPrefix(msg.ChannelID) + suffix

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := s.put([]byte(globalKey), data); err != nil {
		return fmt.Errorf("append to global log: %w", err)
	}

	loc, err := json.Marshal(locator{
		ChannelID:  msg.ChannelID,
		GlobalKey:  globalKey,
		ChannelKey: channelKey,
	})
	if err != nil {
		return fmt.Errorf("marshal locator: %w", err)
	}
	if err := s.put([]byte(indexPrefix+msg.ID), loc); err != nil {
		// Without its index the global entry would be unlocatable; take
		// it back out so a failed append leaves nothing behind.
		if derr := s.db.Delete([]byte(globalKey), pebble.Sync); derr != nil {
			s.log.LogError(derr, "orphaned global entry after index write failure",
				"message_id", msg.ID, "global_key", globalKey)
		}
		return fmt.Errorf("index message: %w", err)
	}

	if err := s.writeChannelEntry(msg.ChannelID, channelKey, data); err != nil {
		metrics.ChannelLogWriteFailures.Inc()
		s.log.LogError(err, "channel log write failed after global write",
			"channel_id", msg.ChannelID, "message_id", msg.ID)
	}

	return nil
}

// writeChannelEntry writes one channel log entry, materializing the
// channel's marker on first use.
func (s *LogStore) writeChannelEntry(channelID, channelKey string, data []byte) error {
	if err := s.put([]byte(channelKey), data); err != nil {
		return err
	}
	return s.put([]byte(channelMarkerKey(channelID)), []byte("1"))
}

// Read returns up to limit messages for a channel, ascending by created_at.
// When the channel holds more than limit records the most recent ones are
// returned. A zero or negative limit falls back to the default bound; the
// max bound is always enforced. Records at or after before are excluded
// when before is non-zero. A missing or unreadable channel log yields an
// empty slice, never an error.
func (s *LogStore) Read(channelID string, limit int, before time.Time) []models.Message {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}

	prefix := channelLogPrefix(channelID)
	upper := keyUpperBound(prefix)
	if !before.IsZero() {
		upper = []byte(fmt.Sprintf("%s%020d", prefix, before.UTC().UnixNano()))
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upper,
	})
	if err != nil {
		s.log.LogError(err, "channel log read failed", "channel_id", channelID)
		return []models.Message{}
	}
	defer iter.Close()

	// Walk backwards so the trim keeps the most recent records, then
	// restore ascending order.
	out := make([]models.Message, 0, limit)
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var msg models.Message
		if err := json.Unmarshal(iter.Value(), &msg); err != nil {
			s.log.LogError(err, "skipping unreadable log entry",
				"channel_id", channelID, "key", string(iter.Key()))
			continue
		}
		out = append(out, msg)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Get returns the current record for a message id.
func (s *LogStore) Get(messageID string) (*models.Message, error) {
	loc, err := s.locate(messageID)
	if err != nil {
		return nil, err
	}
	return s.readGlobal(loc)
}

// Edit replaces a message's content in place, stamping edited_at. The
// global log update is authoritative; the channel log update is
// best-effort.
func (s *LogStore) Edit(messageID, content string) (*models.Message, error) {
	loc, err := s.locate(messageID)
	if err != nil {
		return nil, err
	}

	lock := s.channelLock(loc.ChannelID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.readGlobal(loc)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg.Content = content
	msg.EditedAt = &now

	if err := s.updateBothLogs(loc, msg); err != nil {
		return nil, err
	}
	metrics.MessagesEdited.Inc()
	return msg, nil
}

// Delete removes a message from both logs and drops its id index. The
// channel log removal is best-effort.
func (s *LogStore) Delete(messageID string) (*models.Message, error) {
	loc, err := s.locate(messageID)
	if err != nil {
		return nil, err
	}

	lock := s.channelLock(loc.ChannelID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.readGlobal(loc)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete([]byte(loc.GlobalKey), pebble.Sync); err != nil {
		return nil, fmt.Errorf("delete from global log: %w", err)
	}
	if err := s.db.Delete([]byte(indexPrefix+messageID), pebble.Sync); err != nil {
		return nil, fmt.Errorf("drop message index: %w", err)
	}
	if loc.ChannelKey != "" {
		if err := s.db.Delete([]byte(loc.ChannelKey), pebble.Sync); err != nil {
			metrics.ChannelLogWriteFailures.Inc()
			s.log.LogError(err, "channel log delete failed after global delete",
				"channel_id", loc.ChannelID, "message_id", messageID)
		}
	}

	metrics.MessagesDeleted.Inc()
	return msg, nil
}

// React adds userID to the emoji's user set if absent. Reacting twice with
// the same (message, emoji, user) triple is a no-op. It returns the updated
// message and whether anything changed.
func (s *LogStore) React(messageID, emoji, userID string) (*models.Message, bool, error) {
	loc, err := s.locate(messageID)
	if err != nil {
		return nil, false, err
	}

	lock := s.channelLock(loc.ChannelID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := s.readGlobal(loc)
	if err != nil {
		return nil, false, err
	}

	if !msg.AddReaction(emoji, userID) {
		return msg, false, nil
	}

	if err := s.updateBothLogs(loc, msg); err != nil {
		return nil, false, err
	}
	metrics.ReactionsApplied.Inc()
	return msg, true, nil
}

// HasChannelLog reports whether a channel log has been materialized.
func (s *LogStore) HasChannelLog(channelID string) bool {
	_, closer, err := s.db.Get([]byte(channelMarkerKey(channelID)))
	if err != nil {
		return false
	}
	closer.Close()
	return true
}

func (s *LogStore) locate(messageID string) (*locator, error) {
	v, closer, err := s.db.Get([]byte(indexPrefix + messageID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup message %s: %w", messageID, err)
	}
	defer closer.Close()

	var loc locator
	if err := json.Unmarshal(v, &loc); err != nil {
		return nil, fmt.Errorf("decode locator for %s: %w", messageID, err)
	}
	return &loc, nil
}

func (s *LogStore) readGlobal(loc *locator) (*models.Message, error) {
	v, closer, err := s.db.Get([]byte(loc.GlobalKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read global entry: %w", err)
	}
	defer closer.Close()

	var msg models.Message
	if err := json.Unmarshal(v, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

// updateBothLogs rewrites a message in the global log (authoritative) and
// mirrors it into the channel log best-effort.
func (s *LogStore) updateBothLogs(loc *locator, msg *models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.put([]byte(loc.GlobalKey), data); err != nil {
		return fmt.Errorf("update global log: %w", err)
	}
	if loc.ChannelKey != "" {
		if err := s.put([]byte(loc.ChannelKey), data); err != nil {
			metrics.ChannelLogWriteFailures.Inc()
			s.log.LogError(err, "channel log update failed after global update",
				"channel_id", loc.ChannelID, "message_id", msg.ID)
		}
	}
	return nil
}

// scanGlobal walks every global log entry in arrival order.
func (s *LogStore) scanGlobal(fn func(key string, msg models.Message) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(globalPrefix),
		UpperBound: keyUpperBound(globalPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(globalPrefix)) {
			break
		}
		var msg models.Message
		if err := json.Unmarshal(iter.Value(), &msg); err != nil {
			s.log.LogError(err, "skipping unreadable global entry", "key", string(iter.Key()))
			continue
		}
		if err := fn(string(iter.Key()), msg); err != nil {
			return err
		}
	}
	return iter.Error()
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix string) []byte {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return b[:i+1]
		}
	}
	return nil
}
