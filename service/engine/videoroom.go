// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package engine

import (
	"fmt"

	"github.com/mattermost/janus-exporter/service/events"
	"github.com/mattermost/janus-exporter/service/state"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

type videoRoomHandler func(e *Engine, ev events.Event, ve events.VideoRoomEvent)

var videoRoomHandlers = map[string]videoRoomHandler{
	"joined":      (*Engine).handleJoined,
	"leaving":     (*Engine).handleLeaving,
	"published":   (*Engine).handlePublished,
	"unpublished": (*Engine).handleUnpublished,
	"subscribing": (*Engine).handleSubscribing,
	"subscribed":  (*Engine).handleSubscribed,
}

// Video room actions that are valid but don't drive any state change.
var ignoredVideoRoomActions = map[string]bool{
	"configured":      true,
	"created":         true,
	"edited":          true,
	"destroyed":       true,
	"kicked":          true,
	"switched":        true,
	"updated":         true,
	"moderated":       true,
	"talking":         true,
	"stopped-talking": true,
}

func (e *Engine) handleVideoRoom(ev events.Event, de events.DataEvent) {
	ve, err := de.VideoRoom()
	if err != nil {
		e.malformed(err)
		return
	}

	handler, ok := videoRoomHandlers[ve.Event]
	if !ok {
		if ignoredVideoRoomActions[ve.Event] {
			e.log.Debug("engine: videoroom event", append(e.logFields(ev), mlog.String("event", ve.Event))...)
			return
		}
		e.anomaly(state.AnomalyUnknownName, fmt.Sprintf("unsupported videoroom event %q", ve.Event), ev.HandleID)
		return
	}

	handler(e, ev, ve)
}

func (e *Engine) handleJoined(ev events.Event, ve events.VideoRoomEvent) {
	if ev.HandleID == 0 || ve.Room == "" {
		e.anomaly(state.AnomalyMalformed, "joined event without handle or room", ev.HandleID)
		return
	}

	user := state.User{
		SessionID:   ev.SessionID,
		DisplayName: ve.Display,
		FeedID:      ve.ID,
		RoomID:      ve.Room,
		JoinedAt:    e.now(),
	}

	prev, exists := e.store.GetUser(ev.HandleID)
	if exists && prev.RoomID == ve.Room {
		user.JoinedAt = prev.JoinedAt
	}
	e.store.UpsertUser(ev.HandleID, user)

	if exists {
		if prev.RoomID == ve.Room {
			return
		}
		// The handle moved to a different room.
		e.leaveRoom(prev.RoomID)
	} else {
		e.metrics.IncUsers()
	}

	if _, created := e.store.IncrementRoom(ve.Room); created {
		e.metrics.IncRooms()
	}
}

func (e *Engine) handleLeaving(ev events.Event, ve events.VideoRoomEvent) {
	if ve.ID == "" {
		e.anomaly(state.AnomalyMalformed, "leaving event without feed", ev.HandleID)
		return
	}

	users := e.store.RemoveUsersByFeed(ve.ID)
	if len(users) == 0 {
		e.anomaly(state.AnomalyOrphan, "leaving without joined user", ve.ID)
	}
	for _, u := range users {
		e.retireUser(u)
	}

	if n := e.store.RemoveSubscribersByFeed(ve.ID); n > 0 {
		e.metrics.DecSubscribers(n)
	}

	// The feed may leave without unpublishing first.
	for _, p := range e.store.RemovePublishersByFeed(ve.ID) {
		e.metrics.DecPublishers()
		if len(p.Subscribers) > 0 {
			e.metrics.DecSubscribers(len(p.Subscribers))
		}
	}
}

func (e *Engine) handlePublished(ev events.Event, ve events.VideoRoomEvent) {
	if ev.HandleID == 0 || ve.ID == "" {
		e.anomaly(state.AnomalyMalformed, "published event without handle or feed", ev.HandleID)
		return
	}

	created := e.store.UpsertPublisher(ev.HandleID, state.Publisher{
		SessionID: ev.SessionID,
		FeedID:    ve.ID,
		CreatedAt: e.now(),
	})
	if created {
		e.metrics.IncPublishers()
	}
}

func (e *Engine) handleUnpublished(ev events.Event, ve events.VideoRoomEvent) {
	if ve.ID == "" {
		e.anomaly(state.AnomalyMalformed, "unpublished event without feed", ev.HandleID)
		return
	}

	pubs := e.store.RemovePublishersByFeed(ve.ID)
	if len(pubs) == 0 {
		e.anomaly(state.AnomalyOrphan, "unpublished without publisher", ve.ID)
		return
	}

	var removed int
	for _, p := range pubs {
		e.metrics.DecPublishers()
		removed += len(p.Subscribers)
	}

	// Subscriptions held by the departing session on other feeds go away as
	// well. There is no dedicated unsubscribe event to rely on.
	for _, p := range pubs {
		removed += e.store.RemoveSubscribersBySession(p.SessionID)
	}

	if removed > 0 {
		e.metrics.DecSubscribers(removed)
	}
}

func (e *Engine) handleSubscribing(_ events.Event, _ events.VideoRoomEvent) {
	e.metrics.IncSubscribingAttempts()
}

func (e *Engine) handleSubscribed(ev events.Event, ve events.VideoRoomEvent) {
	if ve.Feed == "" {
		e.anomaly(state.AnomalyMalformed, "subscribed event without feed", ev.HandleID)
		return
	}

	e.metrics.IncSubscriptions()
	added := e.store.AddSubscriber(ve.Feed, ev.HandleID, state.Subscriber{
		SessionID:    ev.SessionID,
		SubscribedAt: e.now(),
	})
	if added {
		e.metrics.IncSubscribers()
	}
}

// retireUser records the end of a user session.
func (e *Engine) retireUser(u state.User) {
	e.metrics.ObserveUserSessionDuration(e.sessionMinutes(u.JoinedAt))
	e.metrics.DecUsers()
	e.leaveRoom(u.RoomID)
}

func (e *Engine) leaveRoom(roomID events.ID) {
	if _, removed, ok := e.store.DecrementRoom(roomID); ok && removed {
		e.metrics.DecRooms()
	}
}
