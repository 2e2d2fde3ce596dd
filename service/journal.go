// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/janus-exporter/service/state"
	"github.com/mattermost/janus-exporter/service/store"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pborman/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	journalKeyPrefix = "anomaly:"
	journalChSize    = 1024
)

// JournalEntry is a persisted record of an event that could not be applied.
type JournalEntry struct {
	ID     string          `msgpack:"id" json:"id"`
	Time   time.Time       `msgpack:"time" json:"time"`
	Kind   string          `msgpack:"kind" json:"kind"`
	Reason string          `msgpack:"reason" json:"reason"`
	Key    string          `msgpack:"key,omitempty" json:"key,omitempty"`
	Raw    json.RawMessage `msgpack:"raw,omitempty" json:"raw,omitempty"`
}

type journal struct {
	store      store.Store
	maxEntries int
	log        mlog.LoggerIFace
	entryCh    chan JournalEntry
	wg         sync.WaitGroup
	// mut serializes writes and trimming against reads.
	mut sync.Mutex

	timeMut  sync.Mutex
	lastTime time.Time
}

func newJournal(cfg JournalConfig, log mlog.LoggerIFace) (*journal, error) {
	st, err := store.New(cfg.DataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	j := &journal{
		store:      st,
		maxEntries: cfg.MaxEntries,
		log:        log,
		entryCh:    make(chan JournalEntry, journalChSize),
	}

	j.wg.Add(1)
	go j.writer()

	return j, nil
}

// journaled reports whether anomalies of the given kind are persisted. Only
// events that couldn't be understood at all are worth keeping.
func journaled(kind state.AnomalyKind) bool {
	return kind == state.AnomalyMalformed || kind == state.AnomalyUnknownType
}

// record queues an entry for writing. It never blocks, entries are dropped
// if the writer can't keep up.
func (j *journal) record(a state.Anomaly, raw json.RawMessage, at time.Time) {
	entry := JournalEntry{
		ID:     uuid.NewRandom().String(),
		Time:   j.nextTime(at),
		Kind:   string(a.Kind),
		Reason: a.Reason,
		Key:    a.Key,
		Raw:    append(json.RawMessage(nil), raw...),
	}

	select {
	case j.entryCh <- entry:
	default:
		j.log.Warn("journal: queue is full, dropping entry", mlog.String("kind", entry.Kind))
	}
}

// nextTime returns at, moved forward if needed so that entry keys stay
// strictly ordered by recording order.
func (j *journal) nextTime(at time.Time) time.Time {
	j.timeMut.Lock()
	defer j.timeMut.Unlock()
	at = at.UTC()
	if !at.After(j.lastTime) {
		at = j.lastTime.Add(time.Nanosecond)
	}
	j.lastTime = at
	return at
}

func (j *journal) writer() {
	defer j.wg.Done()
	for entry := range j.entryCh {
		if err := j.write(entry); err != nil {
			j.log.Error("journal: failed to write entry", mlog.Err(err))
		}
	}
}

func entryKey(entry JournalEntry) string {
	return fmt.Sprintf("%s%020d:%s", journalKeyPrefix, entry.Time.UnixNano(), entry.ID)
}

func (j *journal) write(entry JournalEntry) error {
	data, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	j.mut.Lock()
	defer j.mut.Unlock()

	if err := j.store.Put(entryKey(entry), data); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	return j.trim()
}

// trim drops the oldest entries beyond the retention limit. It runs
// once the limit is exceeded by a tenth to keep key scans infrequent.
func (j *journal) trim() error {
	if j.store.Len() <= j.maxEntries+j.maxEntries/10 {
		return nil
	}

	keys, err := j.store.Keys(journalKeyPrefix)
	if err != nil {
		return err
	}

	for i := 0; i < len(keys)-j.maxEntries; i++ {
		if err := j.store.Delete(keys[i]); err != nil {
			return err
		}
	}

	return nil
}

// list returns up to limit entries, newest first.
func (j *journal) list(limit int) ([]JournalEntry, error) {
	j.mut.Lock()
	defer j.mut.Unlock()

	keys, err := j.store.Keys(journalKeyPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, min(limit, len(keys)))
	for i := len(keys) - 1; i >= 0 && len(entries) < limit; i-- {
		data, err := j.store.Get(keys[i])
		if err != nil {
			return nil, fmt.Errorf("failed to get entry: %w", err)
		}
		var entry JournalEntry
		if err := msgpack.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// close flushes queued entries and closes the underlying store.
func (j *journal) close() error {
	close(j.entryCh)
	j.wg.Wait()
	return j.store.Close()
}
