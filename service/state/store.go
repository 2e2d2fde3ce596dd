// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package state holds the live model of media server entities derived from
// the event stream.
//
// A Store is not safe for concurrent use. Callers must serialize access.
package state

import (
	"fmt"

	"github.com/mattermost/janus-exporter/service/events"
)

type AnomalyKind string

const (
	AnomalyMalformed      AnomalyKind = "malformed"
	AnomalyUnknownType    AnomalyKind = "unknown_type"
	AnomalyUnknownName    AnomalyKind = "unknown_name"
	AnomalyOrphan         AnomalyKind = "orphan"
	AnomalyDuplicate      AnomalyKind = "duplicate"
	AnomalyLeakedEntities AnomalyKind = "leaked_entities"
)

// Anomaly describes a non fatal inconsistency between the event stream and
// the current state.
type Anomaly struct {
	Kind   AnomalyKind
	Reason string
	Key    string
}

type AnomalyFunc func(a Anomaly)

type Option func(s *Store)

// WithAnomalyFunc sets the function the store reports anomalies to.
func WithAnomalyFunc(fn AnomalyFunc) Option {
	return func(s *Store) {
		s.onAnomaly = fn
	}
}

type Store struct {
	sessions   map[uint64]*Session
	rooms      map[events.ID]*Room
	users      map[uint64]*User
	publishers map[uint64]*Publisher
	// peer connections by handle, valued by owning session.
	peerConns map[uint64]uint64
	// open transport connections by transport instance.
	transports map[events.ID]int

	onAnomaly AnomalyFunc
}

func New(opts ...Option) *Store {
	s := &Store{
		sessions:   make(map[uint64]*Session),
		rooms:      make(map[events.ID]*Room),
		users:      make(map[uint64]*User),
		publishers: make(map[uint64]*Publisher),
		peerConns:  make(map[uint64]uint64),
		transports: make(map[events.ID]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) report(kind AnomalyKind, reason string, key any) {
	if s.onAnomaly == nil {
		return
	}
	s.onAnomaly(Anomaly{
		Kind:   kind,
		Reason: reason,
		Key:    fmt.Sprint(key),
	})
}

// Snapshot is a point in time count of the live entities.
type Snapshot struct {
	Sessions        int `json:"sessions"`
	Rooms           int `json:"rooms"`
	Users           int `json:"users"`
	Publishers      int `json:"publishers"`
	Subscribers     int `json:"subscribers"`
	PeerConnections int `json:"peer_connections"`
	Transports      int `json:"transports"`
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Sessions:        len(s.sessions),
		Rooms:           len(s.rooms),
		Users:           len(s.users),
		Publishers:      len(s.publishers),
		PeerConnections: len(s.peerConns),
	}
	for _, p := range s.publishers {
		snap.Subscribers += len(p.subscribers)
	}
	for _, n := range s.transports {
		snap.Transports += n
	}
	return snap
}

// CheckInvariants returns the list of violated cross entity invariants. It's
// meant to be called once the event stream has settled.
func (s *Store) CheckInvariants() []error {
	var errs []error
	for id, r := range s.rooms {
		if r.UserCount < 1 {
			errs = append(errs, fmt.Errorf("room %q has a user count of %d", id, r.UserCount))
		}
	}
	for handleID, u := range s.users {
		if _, ok := s.rooms[u.RoomID]; !ok {
			errs = append(errs, fmt.Errorf("user %d references missing room %q", handleID, u.RoomID))
		}
	}
	for id, n := range s.transports {
		if n < 1 {
			errs = append(errs, fmt.Errorf("transport %q has a connection count of %d", id, n))
		}
	}
	return errs
}
