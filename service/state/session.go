// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package state

import (
	"slices"
	"time"

	"github.com/mattermost/janus-exporter/service/events"
)

type Session struct {
	ID        uint64
	CreatedAt time.Time
}

// CreateSession stores a new session and returns whether it was created.
func (s *Store) CreateSession(sessionID uint64, createdAt time.Time) bool {
	if _, ok := s.sessions[sessionID]; ok {
		s.report(AnomalyDuplicate, "session created twice", sessionID)
		return false
	}
	s.sessions[sessionID] = &Session{
		ID:        sessionID,
		CreatedAt: createdAt,
	}
	return true
}

func (s *Store) GetSession(sessionID uint64) (Session, bool) {
	ss := s.sessions[sessionID]
	if ss == nil {
		return Session{}, false
	}
	return *ss, true
}

func (s *Store) RemoveSession(sessionID uint64) (Session, bool) {
	ss := s.sessions[sessionID]
	if ss == nil {
		s.report(AnomalyOrphan, "destroy of unknown session", sessionID)
		return Session{}, false
	}
	delete(s.sessions, sessionID)
	return *ss, true
}

// OpenPeerConnection marks the handle as having an established peer
// connection. It returns false if one was already open.
func (s *Store) OpenPeerConnection(handleID, sessionID uint64) bool {
	if _, ok := s.peerConns[handleID]; ok {
		s.report(AnomalyDuplicate, "peer connection up twice on the same handle", handleID)
		return false
	}
	s.peerConns[handleID] = sessionID
	return true
}

// ClosePeerConnection returns whether the handle had an open peer connection.
func (s *Store) ClosePeerConnection(handleID uint64) bool {
	if _, ok := s.peerConns[handleID]; !ok {
		s.report(AnomalyOrphan, "hangup without peer connection", handleID)
		return false
	}
	delete(s.peerConns, handleID)
	return true
}

// ClosePeerConnectionsBySession closes all the peer connections bound to the
// session and returns their handles in order.
func (s *Store) ClosePeerConnectionsBySession(sessionID uint64) []uint64 {
	var handles []uint64
	for handleID, sid := range s.peerConns {
		if sid == sessionID {
			handles = append(handles, handleID)
			delete(s.peerConns, handleID)
		}
	}
	slices.Sort(handles)
	return handles
}

func (s *Store) ConnectTransport(id events.ID) {
	s.transports[id]++
}

// DisconnectTransport returns whether a connection was open for the
// transport instance.
func (s *Store) DisconnectTransport(id events.ID) bool {
	n := s.transports[id]
	if n <= 0 {
		s.report(AnomalyOrphan, "disconnect of unknown transport connection", id)
		return false
	}
	if n == 1 {
		delete(s.transports, id)
	} else {
		s.transports[id] = n - 1
	}
	return true
}
