package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/metrics"
	"github.com/saipul12c/my-portofolio-sub004/internal/models"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *LogStore {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	s, err := Open(t.TempDir(), log, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMessage(channelID, userID, content string, at time.Time) *models.Message {
	return &models.Message{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		UserID:    &userID,
		Content:   content,
		CreatedAt: at,
	}
}

func TestAppendAndRead(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	msg := testMessage("c1", "u1", "hello", base)
	require.NoError(t, s.Append(msg))

	got := s.Read("c1", 10, time.Time{})
	require.Len(t, got, 1)
	assert.Equal(t, msg.ID, got[0].ID)
	assert.Equal(t, "hello", got[0].Content)
	require.NotNil(t, got[0].UserID)
	assert.Equal(t, "u1", *got[0].UserID)

	// Read-your-writes holds for the id index as well.
	byID, err := s.Get(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, byID.ID)
}

func TestReadAscendingAndTrimmedToMostRecent(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := testMessage("c1", "u1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Append(msg))
	}

	got := s.Read("c1", 2, time.Time{})
	require.Len(t, got, 2)
	assert.Equal(t, "m3", got[0].Content)
	assert.Equal(t, "m4", got[1].Content)
	assert.True(t, got[0].CreatedAt.Before(got[1].CreatedAt))
}

func TestReadBeforeExcludesAtOrAfter(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := testMessage("c1", "u1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.Append(msg))
	}

	got := s.Read("c1", 10, base.Add(3*time.Second))
	require.Len(t, got, 3)
	assert.Equal(t, "m0", got[0].Content)
	assert.Equal(t, "m2", got[2].Content)
}

func TestReadEnforcesMaxLimit(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	s, err := Open(t.TempDir(), log, Options{DefaultLimit: 2, MaxLimit: 3})
	require.NoError(t, err)
	defer s.Close()

	base := time.Now().UTC()
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(testMessage("c1", "u1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Millisecond))))
	}

	assert.Len(t, s.Read("c1", 0, time.Time{}), 2)   // default applied
	assert.Len(t, s.Read("c1", 100, time.Time{}), 3) // max enforced
}

func TestReadMissingChannelYieldsEmpty(t *testing.T) {
	s := testStore(t)

	got := s.Read("never-written", 10, time.Time{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEdit(t *testing.T) {
	s := testStore(t)

	msg := testMessage("c1", "u1", "before", time.Now().UTC())
	require.NoError(t, s.Append(msg))

	updated, err := s.Edit(msg.ID, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Content)
	require.NotNil(t, updated.EditedAt)
	assert.Equal(t, msg.ID, updated.ID)
	assert.Equal(t, msg.ChannelID, updated.ChannelID)

	// Both logs reflect the edit.
	got := s.Read("c1", 10, time.Time{})
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].Content)
	byID, err := s.Get(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", byID.Content)
}

func TestEditUnknownMessage(t *testing.T) {
	s := testStore(t)

	_, err := s.Edit("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesFromBothLogs(t *testing.T) {
	s := testStore(t)

	msg := testMessage("c1", "u1", "doomed", time.Now().UTC())
	require.NoError(t, s.Append(msg))

	removed, err := s.Delete(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, removed.ID)

	assert.Empty(t, s.Read("c1", 10, time.Time{}))
	_, err = s.Get(msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactIdempotent(t *testing.T) {
	s := testStore(t)

	msg := testMessage("c1", "u1", "react to me", time.Now().UTC())
	require.NoError(t, s.Append(msg))

	updated, changed, err := s.React(msg.ID, "👍", "u1")
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, updated.Reactions, 1)
	assert.Equal(t, []string{"u1"}, updated.Reactions[0].Users)

	updated, changed, err = s.React(msg.ID, "👍", "u1")
	require.NoError(t, err)
	assert.False(t, changed)
	require.Len(t, updated.Reactions, 1)
	assert.Equal(t, []string{"u1"}, updated.Reactions[0].Users)

	_, changed, err = s.React(msg.ID, "👍", "u2")
	require.NoError(t, err)
	assert.True(t, changed)

	byID, err := s.Get(msg.ID)
	require.NoError(t, err)
	require.Len(t, byID.Reactions, 1)
	assert.Equal(t, []string{"u1", "u2"}, byID.Reactions[0].Users)
}

func TestChannelsAreIndependent(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	require.NoError(t, s.Append(testMessage("c1", "u1", "in c1", base)))
	require.NoError(t, s.Append(testMessage("c2", "u2", "in c2", base)))

	c1 := s.Read("c1", 10, time.Time{})
	require.Len(t, c1, 1)
	assert.Equal(t, "in c1", c1[0].Content)

	c2 := s.Read("c2", 10, time.Time{})
	require.Len(t, c2, 1)
	assert.Equal(t, "in c2", c2[0].Content)
}

func TestConcurrentAppendsOneChannel(t *testing.T) {
	s := testStore(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := testMessage("c1", "u1", fmt.Sprintf("m%d", i), time.Now().UTC())
			assert.NoError(t, s.Append(msg))
		}(i)
	}
	wg.Wait()

	got := s.Read("c1", 100, time.Time{})
	assert.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.Before(got[i-1].CreatedAt),
			"created_at must be non-decreasing within the channel log")
	}
}

// writeGlobalOnly fabricates the legacy on-disk layout: entries in the
// global log with no channel log materialized.
func writeGlobalOnly(t *testing.T, s *LogStore, msg *models.Message) {
	t.Helper()
	suffix := s.entrySuffix(msg.CreatedAt)
	globalKey := globalPrefix + suffix
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, s.db.Set([]byte(globalKey), data, pebble.Sync))

	loc, err := json.Marshal(locator{
		ChannelID: msg.ChannelID,
		GlobalKey: globalKey,
	})
	require.NoError(t, err)
	require.NoError(t, s.db.Set([]byte(indexPrefix+msg.ID), loc, pebble.Sync))
}

func TestReconcileBackfillsMissingChannelLogs(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	var ids []string
	for i := 0; i < 3; i++ {
		msg := testMessage("legacy", "u1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
		writeGlobalOnly(t, s, msg)
		ids = append(ids, msg.ID)
	}

	require.False(t, s.HasChannelLog("legacy"))
	assert.Empty(t, s.Read("legacy", 10, time.Time{}))

	n, err := s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.True(t, s.HasChannelLog("legacy"))

	got := s.Read("legacy", 10, time.Time{})
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, ids[i], m.ID)
	}

	// Backfilled entries stay editable through the id index.
	_, err = s.Edit(ids[0], "edited after backfill")
	require.NoError(t, err)
	got = s.Read("legacy", 10, time.Time{})
	assert.Equal(t, "edited after backfill", got[0].Content)
}

func TestReconcileIdempotent(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		writeGlobalOnly(t, s, testMessage("legacy", "u1", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	n, err := s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	first := s.Read("legacy", 100, time.Time{})

	n, err = s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	second := s.Read("legacy", 100, time.Time{})

	assert.Equal(t, first, second)
}

func TestReconcileNeverOverwritesExistingChannelLog(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()

	// Three records appended normally: channel log exists with three
	// entries.
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(testMessage("c1", "u1", fmt.Sprintf("live%d", i), base.Add(time.Duration(i)*time.Second))))
	}

	// Two more records only in the global log, as if their channel
	// writes had been lost.
	for i := 3; i < 5; i++ {
		writeGlobalOnly(t, s, testMessage("c1", "u1", fmt.Sprintf("lost%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	n, err := s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got := s.Read("c1", 100, time.Time{})
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("live%d", i), m.Content)
	}
}

func TestChannelIdsWithSeparatorStayIsolated(t *testing.T) {
	s := testStore(t)

	base := time.Now().UTC()
	require.NoError(t, s.Append(testMessage("c1", "u1", "public", base)))
	require.NoError(t, s.Append(testMessage("c1:secret", "u2", "private", base.Add(time.Second))))

	got := s.Read("c1", 10, time.Time{})
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ChannelID)
	assert.Equal(t, "public", got[0].Content)

	got = s.Read("c1:secret", 10, time.Time{})
	require.Len(t, got, 1)
	assert.Equal(t, "private", got[0].Content)

	assert.True(t, s.HasChannelLog("c1"))
	assert.True(t, s.HasChannelLog("c1:secret"))
	assert.False(t, s.HasChannelLog("c1:"))
}

func TestAppendSwallowsChannelLogWriteFailure(t *testing.T) {
	s := testStore(t)

	realPut := s.put
	s.put = func(key, value []byte) error {
		if strings.HasPrefix(string(key), channelPrefix) {
			return errors.New("disk full")
		}
		return realPut(key, value)
	}

	before := testutil.ToFloat64(metrics.ChannelLogWriteFailures)

	msg := testMessage("c1", "u1", "still accepted", time.Now().UTC())
	require.NoError(t, s.Append(msg))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ChannelLogWriteFailures))

	// The global log and id index hold the record even though the
	// channel mirror is missing.
	byID, err := s.Get(msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "still accepted", byID.Content)
	assert.Empty(t, s.Read("c1", 10, time.Time{}))
	assert.False(t, s.HasChannelLog("c1"))

	// Once writes recover, the reconciler heals the mirror.
	s.put = realPut
	n, err := s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, s.Read("c1", 10, time.Time{}), 1)
}

func TestFailedIndexWriteLeavesNoGlobalEntry(t *testing.T) {
	s := testStore(t)

	realPut := s.put
	s.put = func(key, value []byte) error {
		if strings.HasPrefix(string(key), indexPrefix) {
			return errors.New("disk full")
		}
		return realPut(key, value)
	}

	msg := testMessage("c1", "u1", "doomed", time.Now().UTC())
	require.Error(t, s.Append(msg))

	_, err := s.Get(msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries := 0
	require.NoError(t, s.scanGlobal(func(string, models.Message) error {
		entries++
		return nil
	}))
	assert.Zero(t, entries)
}
