// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package state

import (
	"slices"
	"time"

	"github.com/mattermost/janus-exporter/service/events"
)

const (
	MediaAudio = "audio"
	MediaVideo = "video"
)

type Publisher struct {
	HandleID    uint64
	SessionID   uint64
	FeedID      events.ID
	AudioActive bool
	VideoActive bool
	CreatedAt   time.Time
	// Subscribers is only populated on values returned by the store.
	Subscribers []Subscriber

	subscribers map[uint64]*Subscriber
	// audioSeen and videoSeen are set on the first receiving report and
	// never cleared.
	audioSeen bool
	videoSeen bool
}

type Subscriber struct {
	HandleID     uint64
	SessionID    uint64
	FeedID       events.ID
	SubscribedAt time.Time
}

func (p *Publisher) value() Publisher {
	v := *p
	v.subscribers = nil
	v.Subscribers = make([]Subscriber, 0, len(p.subscribers))
	for _, sub := range p.subscribers {
		v.Subscribers = append(v.Subscribers, *sub)
	}
	slices.SortFunc(v.Subscribers, func(a, b Subscriber) int {
		return compareUint64(a.HandleID, b.HandleID)
	})
	return v
}

// UpsertPublisher stores a publisher under its handle and returns whether it
// was created. An existing publisher keeps its subscribers and media state.
func (s *Store) UpsertPublisher(handleID uint64, p Publisher) bool {
	if prev := s.publishers[handleID]; prev != nil {
		s.report(AnomalyDuplicate, "publisher published twice on the same handle", handleID)
		prev.FeedID = p.FeedID
		prev.SessionID = p.SessionID
		return false
	}

	p.HandleID = handleID
	p.Subscribers = nil
	p.subscribers = make(map[uint64]*Subscriber)
	s.publishers[handleID] = &p
	return true
}

func (s *Store) GetPublisher(handleID uint64) (Publisher, bool) {
	p := s.publishers[handleID]
	if p == nil {
		return Publisher{}, false
	}
	return p.value(), true
}

// RemovePublishersByFeed removes all the publishers of the given feed,
// ordered by handle. Returned values include the removed subscribers.
func (s *Store) RemovePublishersByFeed(feedID events.ID) []Publisher {
	return s.removePublishers(func(p *Publisher) bool {
		return p.FeedID == feedID
	})
}

// RemovePublishersBySession removes all the publishers bound to the given
// session, ordered by handle.
func (s *Store) RemovePublishersBySession(sessionID uint64) []Publisher {
	return s.removePublishers(func(p *Publisher) bool {
		return p.SessionID == sessionID
	})
}

func (s *Store) removePublishers(match func(p *Publisher) bool) []Publisher {
	var removed []Publisher
	for handleID, p := range s.publishers {
		if match(p) {
			removed = append(removed, p.value())
			delete(s.publishers, handleID)
		}
	}
	slices.SortFunc(removed, func(a, b Publisher) int {
		return compareUint64(a.HandleID, b.HandleID)
	})
	return removed
}

// publisherByFeed returns the publisher with the lowest handle for the feed.
func (s *Store) publisherByFeed(feedID events.ID) *Publisher {
	var found *Publisher
	for handleID, p := range s.publishers {
		if p.FeedID != feedID {
			continue
		}
		if found == nil || handleID < found.HandleID {
			found = p
		}
	}
	return found
}

// SetMediaReceiving updates the receiving state of a medium for the publisher
// bound to the handle. It returns whether this is the first time the medium
// is reported as receiving for the publisher and whether the publisher exists.
func (s *Store) SetMediaReceiving(handleID uint64, medium string, receiving bool) (first bool, ok bool) {
	p := s.publishers[handleID]
	if p == nil {
		s.report(AnomalyOrphan, "media event for unknown publisher", handleID)
		return false, false
	}

	var active, seen *bool
	switch medium {
	case MediaAudio:
		active, seen = &p.AudioActive, &p.audioSeen
	case MediaVideo:
		active, seen = &p.VideoActive, &p.videoSeen
	default:
		s.report(AnomalyUnknownName, "unsupported medium "+medium, handleID)
		return false, true
	}

	*active = receiving
	if !receiving || *seen {
		return false, true
	}
	*seen = true
	return true, true
}

// AddSubscriber binds a subscriber to the publisher of the given feed. It
// returns false if no publisher exists for the feed or if the handle is
// already subscribed to it.
func (s *Store) AddSubscriber(feedID events.ID, handleID uint64, sub Subscriber) bool {
	p := s.publisherByFeed(feedID)
	if p == nil {
		s.report(AnomalyOrphan, "subscription to unknown feed", feedID)
		return false
	}
	if _, ok := p.subscribers[handleID]; ok {
		return false
	}
	sub.HandleID = handleID
	sub.FeedID = feedID
	p.subscribers[handleID] = &sub
	return true
}

// RemoveSubscribersBySession removes, from every publisher, the subscribers
// bound to the given session and returns how many were removed.
func (s *Store) RemoveSubscribersBySession(sessionID uint64) int {
	return s.removeSubscribers(func(sub *Subscriber) bool {
		return sub.SessionID == sessionID
	})
}

// RemoveSubscribersByFeed removes the subscribers of the given feed and
// returns how many were removed.
func (s *Store) RemoveSubscribersByFeed(feedID events.ID) int {
	return s.removeSubscribers(func(sub *Subscriber) bool {
		return sub.FeedID == feedID
	})
}

func (s *Store) removeSubscribers(match func(sub *Subscriber) bool) int {
	var n int
	for _, p := range s.publishers {
		for handleID, sub := range p.subscribers {
			if match(sub) {
				delete(p.subscribers, handleID)
				n++
			}
		}
	}
	return n
}
