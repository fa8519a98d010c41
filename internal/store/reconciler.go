package store

import (
	"encoding/json"
	"fmt"

	"github.com/saipul12c/my-portofolio-sub004/internal/metrics"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
)

// Reconcile backfills missing channel logs from the global log. It runs
// once at startup, before the gateway accepts traffic. Channels that
// already have a log are left untouched, so re-running against unchanged
// state changes nothing. It returns the number of channels materialized.
func (s *LogStore) Reconcile() (int, error) {
	type entry struct {
		globalKey string
		msg       models.Message
	}

	// Group the global log by channel, preserving arrival order.
	byChannel := make(map[string][]entry)
	var order []string
	err := s.scanGlobal(func(key string, msg models.Message) error {
		if _, seen := byChannel[msg.ChannelID]; !seen {
			order = append(order, msg.ChannelID)
		}
		byChannel[msg.ChannelID] = append(byChannel[msg.ChannelID], entry{globalKey: key, msg: msg})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan global log: %w", err)
	}

	materialized := 0
	for _, channelID := range order {
		if s.HasChannelLog(channelID) {
			continue
		}

		lock := s.channelLock(channelID)
		lock.Lock()
		for _, e := range byChannel[channelID] {
			channelKey := channelLogPrefix(channelID) + s.entrySuffix(e.msg.CreatedAt)

			data, err := json.Marshal(e.msg)
			if err != nil {
				lock.Unlock()
				return materialized, fmt.Errorf("marshal message %s: %w", e.msg.ID, err)
			}
			if err := s.put([]byte(channelKey), data); err != nil {
				lock.Unlock()
				return materialized, fmt.Errorf("materialize channel %s: %w", channelID, err)
			}

			// Repoint the id index at the new channel entry so later
			// edits and deletes touch the right key.
			loc, err := json.Marshal(locator{
				ChannelID:  channelID,
				GlobalKey:  e.globalKey,
				ChannelKey: channelKey,
			})
			if err != nil {
				lock.Unlock()
				return materialized, fmt.Errorf("marshal locator: %w", err)
			}
			if err := s.put([]byte(indexPrefix+e.msg.ID), loc); err != nil {
				lock.Unlock()
				return materialized, fmt.Errorf("index message %s: %w", e.msg.ID, err)
			}
		}
		if err := s.put([]byte(channelMarkerKey(channelID)), []byte("1")); err != nil {
			lock.Unlock()
			return materialized, fmt.Errorf("mark channel %s: %w", channelID, err)
		}
		lock.Unlock()

		materialized++
		metrics.ReconciledChannels.Inc()
		s.log.Info("channel log materialized from global log",
			"channel_id", channelID, "records", len(byChannel[channelID]))
	}

	return materialized, nil
}
