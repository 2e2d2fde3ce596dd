// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattermost/janus-exporter/service/state"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T, maxEntries int) *journal {
	t.Helper()
	log, err := mlog.NewLogger()
	require.NoError(t, err)
	j, err := newJournal(JournalConfig{
		Enable:     true,
		DataSource: filepath.Join(t.TempDir(), "db"),
		MaxEntries: maxEntries,
	}, log)
	require.NoError(t, err)
	return j
}

func TestJournal(t *testing.T) {
	t.Run("invalid data source", func(t *testing.T) {
		log, err := mlog.NewLogger()
		require.NoError(t, err)
		j, err := newJournal(JournalConfig{Enable: true, MaxEntries: 10}, log)
		require.Error(t, err)
		require.Nil(t, j)
	})

	t.Run("record and list", func(t *testing.T) {
		j := newTestJournal(t, 10)

		start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			j.record(state.Anomaly{
				Kind:   state.AnomalyMalformed,
				Reason: fmt.Sprintf("reason %d", i),
			}, json.RawMessage(fmt.Sprint(i)), start.Add(time.Duration(i)*time.Second))
		}

		var entries []JournalEntry
		require.Eventually(t, func() bool {
			var err error
			entries, err = j.list(10)
			require.NoError(t, err)
			return len(entries) == 3
		}, 5*time.Second, 10*time.Millisecond)

		for i, entry := range entries {
			require.Equal(t, fmt.Sprintf("reason %d", 2-i), entry.Reason)
			require.Equal(t, fmt.Sprint(2-i), string(entry.Raw))
			require.True(t, start.Add(time.Duration(2-i)*time.Second).Equal(entry.Time))
		}

		entries, err := j.list(1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "reason 2", entries[0].Reason)

		require.NoError(t, j.close())
	})

	t.Run("write with uuid id", func(t *testing.T) {
		j := newTestJournal(t, 10)
		defer func() {
			require.NoError(t, j.close())
		}()

		entry := JournalEntry{
			ID:     uuid.NewRandom().String(),
			Time:   time.Now().UTC(),
			Kind:   string(state.AnomalyUnknownType),
			Reason: "unknown event type 512",
		}
		require.Greater(t, len(entryKey(entry)), 64)
		require.NoError(t, j.write(entry))

		entries, err := j.list(10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, entry.ID, entries[0].ID)
		require.Equal(t, entry.Reason, entries[0].Reason)
	})

	t.Run("raw is copied", func(t *testing.T) {
		j := newTestJournal(t, 10)
		defer func() {
			require.NoError(t, j.close())
		}()

		raw := json.RawMessage(`{"type": 4}`)
		j.record(state.Anomaly{Kind: state.AnomalyUnknownType}, raw, time.Now())
		copy(raw, `{"type": 8}`)

		var entries []JournalEntry
		require.Eventually(t, func() bool {
			var err error
			entries, err = j.list(10)
			require.NoError(t, err)
			return len(entries) == 1
		}, 5*time.Second, 10*time.Millisecond)
		require.JSONEq(t, `{"type": 4}`, string(entries[0].Raw))
		require.NotEmpty(t, entries[0].ID)
	})

	t.Run("trim", func(t *testing.T) {
		j := newTestJournal(t, 10)
		defer func() {
			require.NoError(t, j.close())
		}()

		start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 12; i++ {
			err := j.write(JournalEntry{
				ID:     fmt.Sprint(i),
				Time:   start.Add(time.Duration(i) * time.Second),
				Kind:   string(state.AnomalyMalformed),
				Reason: fmt.Sprintf("reason %d", i),
			})
			require.NoError(t, err)
		}

		entries, err := j.list(100)
		require.NoError(t, err)
		require.Len(t, entries, 10)
		require.Equal(t, "reason 11", entries[0].Reason)
		require.Equal(t, "reason 2", entries[9].Reason)
	})
}

func TestJournaled(t *testing.T) {
	require.True(t, journaled(state.AnomalyMalformed))
	require.True(t, journaled(state.AnomalyUnknownType))
	require.False(t, journaled(state.AnomalyOrphan))
	require.False(t, journaled(state.AnomalyUnknownName))
	require.False(t, journaled(state.AnomalyDuplicate))
	require.False(t, journaled(state.AnomalyLeakedEntities))
}
