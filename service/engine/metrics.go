// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package engine

// Metrics is the set of instruments driven by the engine. Calls must not
// block.
type Metrics interface {
	// IncSessions increments both the active and total sessions.
	IncSessions()
	DecSessions()
	// IncRooms increments both the active and total rooms.
	IncRooms()
	DecRooms()
	// IncUsers increments both the active and total users.
	IncUsers()
	DecUsers()
	ObserveUserSessionDuration(minutes float64)
	IncPublishers()
	DecPublishers()
	// IncSubscribers and DecSubscribers only affect the active subscribers.
	IncSubscribers()
	DecSubscribers(n int)
	// IncSubscriptions counts completed subscriptions, duplicates included.
	IncSubscriptions()
	IncSubscribingAttempts()
	IncPeerConnections()
	IncActivePeerConnections()
	DecActivePeerConnections()
	IncICEConnections()
	IncICEDisconnects()
	IncMediaStreams(mediaType string)
	// IncWebSocketConnections increments both the active and total connections.
	IncWebSocketConnections()
	IncWebSocketDisconnects()
	DecWebSocketConnections()
	IncAnomalies(kind string)
}
