// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package state

import (
	"slices"
	"time"

	"github.com/mattermost/janus-exporter/service/events"
)

type Room struct {
	ID        events.ID
	UserCount int
}

type User struct {
	HandleID    uint64
	SessionID   uint64
	DisplayName string
	FeedID      events.ID
	RoomID      events.ID
	JoinedAt    time.Time
}

// CreateOrGetRoom returns the room for the given id, creating it with no
// members if it doesn't exist. A newly created room must be incremented
// right after.
func (s *Store) CreateOrGetRoom(roomID events.ID) (Room, bool) {
	if r := s.rooms[roomID]; r != nil {
		return *r, false
	}
	r := &Room{ID: roomID}
	s.rooms[roomID] = r
	return *r, true
}

// IncrementRoom adds a member to the room, creating it if needed. It returns
// whether the room was created.
func (s *Store) IncrementRoom(roomID events.ID) (Room, bool) {
	_, created := s.CreateOrGetRoom(roomID)
	r := s.rooms[roomID]
	r.UserCount++
	return *r, created
}

// DecrementRoom removes a member from the room. The room is deleted when its
// count reaches zero. Decrementing a missing room is a no-op.
func (s *Store) DecrementRoom(roomID events.ID) (room Room, removed bool, ok bool) {
	r := s.rooms[roomID]
	if r == nil {
		s.report(AnomalyOrphan, "decrement of missing room", roomID)
		return Room{}, false, false
	}
	r.UserCount--
	if r.UserCount <= 0 {
		r.UserCount = 0
		delete(s.rooms, roomID)
		return *r, true, true
	}
	return *r, false, true
}

func (s *Store) GetRoom(roomID events.ID) (Room, bool) {
	r := s.rooms[roomID]
	if r == nil {
		return Room{}, false
	}
	return *r, true
}

// UpsertUser stores the user under its handle. If a user was already bound
// to the handle it's replaced and returned.
func (s *Store) UpsertUser(handleID uint64, u User) (User, bool) {
	u.HandleID = handleID
	prev := s.users[handleID]
	s.users[handleID] = &u
	if prev == nil {
		return User{}, false
	}
	s.report(AnomalyDuplicate, "user joined twice on the same handle", handleID)
	return *prev, true
}

func (s *Store) GetUser(handleID uint64) (User, bool) {
	u := s.users[handleID]
	if u == nil {
		return User{}, false
	}
	return *u, true
}

// RemoveUsersByFeed removes all the users publishing the given feed, ordered
// by handle.
func (s *Store) RemoveUsersByFeed(feedID events.ID) []User {
	return s.removeUsers(func(u *User) bool {
		return u.FeedID == feedID
	})
}

// RemoveUsersBySession removes all the users bound to the given session,
// ordered by handle.
func (s *Store) RemoveUsersBySession(sessionID uint64) []User {
	return s.removeUsers(func(u *User) bool {
		return u.SessionID == sessionID
	})
}

func (s *Store) removeUsers(match func(u *User) bool) []User {
	var removed []User
	for handleID, u := range s.users {
		if match(u) {
			removed = append(removed, *u)
			delete(s.users, handleID)
		}
	}
	slices.SortFunc(removed, func(a, b User) int {
		return compareUint64(a.HandleID, b.HandleID)
	})
	return removed
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
