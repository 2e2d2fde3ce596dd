// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package engine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mattermost/janus-exporter/service/events"
	"github.com/mattermost/janus-exporter/service/state"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/stretchr/testify/require"
)

type metricsRecorder struct {
	values       map[string]float64
	negative     map[string]bool
	observations []float64
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		values:   make(map[string]float64),
		negative: make(map[string]bool),
	}
}

func (m *metricsRecorder) add(name string, delta float64) {
	m.values[name] += delta
	if m.values[name] < 0 {
		m.negative[name] = true
	}
}

func (m *metricsRecorder) IncSessions() {
	m.add("sessions_active", 1)
	m.add("sessions_total", 1)
}
func (m *metricsRecorder) DecSessions() { m.add("sessions_active", -1) }
func (m *metricsRecorder) IncRooms() {
	m.add("rooms_active", 1)
	m.add("rooms_total", 1)
}
func (m *metricsRecorder) DecRooms() { m.add("rooms_active", -1) }
func (m *metricsRecorder) IncUsers() {
	m.add("users_active", 1)
	m.add("users_total", 1)
}
func (m *metricsRecorder) DecUsers() { m.add("users_active", -1) }
func (m *metricsRecorder) ObserveUserSessionDuration(minutes float64) {
	m.observations = append(m.observations, minutes)
}
func (m *metricsRecorder) IncPublishers() { m.add("server_publishers_active", 1) }
func (m *metricsRecorder) DecPublishers() { m.add("server_publishers_active", -1) }
func (m *metricsRecorder) IncSubscribers() { m.add("server_subscribers_active", 1) }
func (m *metricsRecorder) DecSubscribers(n int) {
	m.add("server_subscribers_active", -float64(n))
}
func (m *metricsRecorder) IncSubscriptions() { m.add("server_subscribers_total", 1) }
func (m *metricsRecorder) IncSubscribingAttempts() { m.add("server_subscribing_total", 1) }
func (m *metricsRecorder) IncPeerConnections() { m.add("server_peerconnections_total", 1) }
func (m *metricsRecorder) IncActivePeerConnections() { m.add("server_peerconnections_active", 1) }
func (m *metricsRecorder) DecActivePeerConnections() { m.add("server_peerconnections_active", -1) }
func (m *metricsRecorder) IncICEConnections() { m.add("server_ice_connections_total", 1) }
func (m *metricsRecorder) IncICEDisconnects() { m.add("server_ice_disconnects_total", 1) }
func (m *metricsRecorder) IncMediaStreams(mediaType string) {
	m.add("server_media_total{type="+mediaType+"}", 1)
}
func (m *metricsRecorder) IncWebSocketConnections() {
	m.add("server_websocket_active", 1)
	m.add("server_websocket_connections_total", 1)
}
func (m *metricsRecorder) IncWebSocketDisconnects() { m.add("server_websocket_disconnects_total", 1) }
func (m *metricsRecorder) DecWebSocketConnections() { m.add("server_websocket_active", -1) }
func (m *metricsRecorder) IncAnomalies(kind string) {
	m.add("server_event_anomalies_total{kind="+kind+"}", 1)
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type TestHelper struct {
	tb        testing.TB
	engine    *Engine
	metrics   *metricsRecorder
	clock     *testClock
	anomalies []state.Anomaly
	raws      []json.RawMessage
}

func SetupTestHelper(tb testing.TB) *TestHelper {
	tb.Helper()

	log, err := mlog.NewLogger()
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, log.Shutdown())
	})

	th := &TestHelper{
		tb:      tb,
		metrics: newMetricsRecorder(),
		clock:   &testClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	}

	var cfg Config
	cfg.SetDefaults()
	th.engine, err = New(cfg, th.metrics, log,
		WithClock(th.clock.Now),
		WithAnomalyHook(func(a state.Anomaly, raw json.RawMessage) {
			th.anomalies = append(th.anomalies, a)
			th.raws = append(th.raws, raw)
		}))
	require.NoError(tb, err)
	require.NotNil(tb, th.engine)

	return th
}

func (th *TestHelper) process(data string) {
	th.tb.Helper()
	ev, err := events.Parse(json.RawMessage(data))
	require.NoError(th.tb, err)
	th.engine.Process(ev)
}

func (th *TestHelper) value(name string) float64 {
	return th.metrics.values[name]
}

func (th *TestHelper) anomalyKinds() []state.AnomalyKind {
	kinds := make([]state.AnomalyKind, 0, len(th.anomalies))
	for _, a := range th.anomalies {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// requireConsistent checks that no gauge went negative and that the active
// gauges match the live state.
func (th *TestHelper) requireConsistent() {
	th.tb.Helper()
	require.Empty(th.tb, th.metrics.negative)
	require.Empty(th.tb, th.engine.CheckInvariants())

	snap := th.engine.Snapshot()
	require.Equal(th.tb, float64(snap.Sessions), th.value("sessions_active"))
	require.Equal(th.tb, float64(snap.Rooms), th.value("rooms_active"))
	require.Equal(th.tb, float64(snap.Users), th.value("users_active"))
	require.Equal(th.tb, float64(snap.Publishers), th.value("server_publishers_active"))
	require.Equal(th.tb, float64(snap.Subscribers), th.value("server_subscribers_active"))
	require.Equal(th.tb, float64(snap.PeerConnections), th.value("server_peerconnections_active"))
	require.Equal(th.tb, float64(snap.Transports), th.value("server_websocket_active"))
}

func sessionEvent(sessionID uint64, name string) string {
	return fmt.Sprintf(`{"type": 1, "session_id": %d, "timestamp": 1700000000000000, "event": {"name": %q}}`, sessionID, name)
}

func videoRoomEvent(sessionID, handleID uint64, data string) string {
	return fmt.Sprintf(`{"type": 64, "session_id": %d, "handle_id": %d, "timestamp": 1700000000000000,
		"event": {"plugin": "janus.plugin.videoroom", "data": %s}}`, sessionID, handleID, data)
}

func joined(sessionID, handleID uint64, room, feed int) string {
	return videoRoomEvent(sessionID, handleID, fmt.Sprintf(`{"event": "joined", "room": %d, "id": %d, "display": "user%d"}`, room, feed, feed))
}

func leaving(sessionID, handleID uint64, room, feed int) string {
	return videoRoomEvent(sessionID, handleID, fmt.Sprintf(`{"event": "leaving", "room": %d, "id": %d}`, room, feed))
}

func published(sessionID, handleID uint64, room, feed int) string {
	return videoRoomEvent(sessionID, handleID, fmt.Sprintf(`{"event": "published", "room": %d, "id": %d}`, room, feed))
}

func unpublished(sessionID, handleID uint64, room, feed int) string {
	return videoRoomEvent(sessionID, handleID, fmt.Sprintf(`{"event": "unpublished", "room": %d, "id": %d}`, room, feed))
}

func subscribed(sessionID, handleID uint64, room, feed int) string {
	return videoRoomEvent(sessionID, handleID, fmt.Sprintf(`{"event": "subscribed", "room": %d, "feed": %d}`, room, feed))
}

func mediaReceiving(sessionID, handleID uint64, medium string, receiving bool) string {
	return fmt.Sprintf(`{"type": 32, "session_id": %d, "handle_id": %d, "event": {"media": %q, "receiving": %t}}`,
		sessionID, handleID, medium, receiving)
}

func webrtcEvent(sessionID, handleID uint64, field, value string) string {
	return fmt.Sprintf(`{"type": 16, "session_id": %d, "handle_id": %d, "event": {%q: %q, "stream_id": 1, "component_id": 1}}`,
		sessionID, handleID, field, value)
}

func websocketEvent(id, name string) string {
	return fmt.Sprintf(`{"type": 128, "timestamp": 1700000000000000, "event": {"transport": "janus.transport.websockets", "id": %q,
		"data": {"event": %q, "admin_api": false, "ip": "127.0.0.1", "port": 40000}}}`, id, name)
}
