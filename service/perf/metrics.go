// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package perf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	mediaTypeLabel   = "type"
	anomalyKindLabel = "kind"
)

// Metrics exports the state of the video room deployment as observed
// through the events stream.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	RoomsActive    prometheus.Gauge
	RoomsTotal     prometheus.Counter
	UsersActive    prometheus.Gauge
	UsersTotal     prometheus.Counter
	UsersSession   prometheus.Histogram

	PublishersActive  prometheus.Gauge
	SubscribersActive prometheus.Gauge
	SubscribersTotal  prometheus.Counter
	SubscribingTotal  prometheus.Counter

	PeerConnsActive  prometheus.Gauge
	PeerConnsTotal   prometheus.Counter
	ICEConnsTotal    prometheus.Counter
	ICEDisconnsTotal prometheus.Counter
	MediaTotal       *prometheus.CounterVec

	WSActive       prometheus.Gauge
	WSConnsTotal   prometheus.Counter
	WSDisconnTotal prometheus.Counter

	AnomaliesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics. If registry is nil a
// new one is created along with the process and Go runtime collectors.
// Buckets are the user session duration histogram buckets, in minutes.
func NewMetrics(cfg Config, buckets []float64, registry *prometheus.Registry) *Metrics {
	var m Metrics

	withProcess := registry == nil
	if registry != nil {
		m.registry = registry
	} else {
		m.registry = prometheus.NewRegistry()
	}

	reg := prometheus.WrapRegistererWith(prometheus.Labels(cfg.ConstLabels), m.registry)
	if withProcess {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: cfg.Namespace,
		}))
		reg.MustRegister(collectors.NewGoCollector())
	}

	newGauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}

	m.SessionsActive = newGauge("sessions_active", "Number of active Janus sessions")
	m.SessionsTotal = newCounter("sessions_total", "Total number of Janus sessions since start")
	m.RoomsActive = newGauge("rooms_active", "Number of active rooms")
	m.RoomsTotal = newCounter("rooms_total", "Total number of rooms since start")
	m.UsersActive = newGauge("users_active", "Number of users currently in a room")
	m.UsersTotal = newCounter("users_total", "Total number of users since start")

	m.UsersSession = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "users_session_duration",
		Help:    "Duration of user sessions in minutes",
		Buckets: buckets,
	})
	reg.MustRegister(m.UsersSession)

	m.PublishersActive = newGauge("server_publishers_active", "Number of active publishers")
	m.SubscribersActive = newGauge("server_subscribers_active", "Number of active subscribers")
	m.SubscribersTotal = newCounter("server_subscribers_total", "Total number of completed subscriptions")
	m.SubscribingTotal = newCounter("server_subscribing_total",
		"Total number of attempts to subscribe to a remote feed")

	m.PeerConnsActive = newGauge("server_peerconnections_active", "Number of active peer connections")
	m.PeerConnsTotal = newCounter("server_peerconnections_total", "Total number of peer connections since start")
	m.ICEConnsTotal = newCounter("server_ice_connections_total", "Total number of ICE connections since start")
	m.ICEDisconnsTotal = newCounter("server_ice_disconnects_total", "Total number of ICE disconnects since start")

	m.MediaTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "server_media_total",
			Help: "Total number of media streams received",
		},
		[]string{mediaTypeLabel},
	)
	reg.MustRegister(m.MediaTotal)

	m.WSActive = newGauge("server_websocket_active", "Number of active WebSocket connections to Janus")
	m.WSConnsTotal = newCounter("server_websocket_connections_total", "Total number of WebSocket connections to Janus")
	m.WSDisconnTotal = newCounter("server_websocket_disconnects_total",
		"Total number of WebSocket disconnects from Janus")

	m.AnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "server_event_anomalies_total",
			Help: "Total number of events that could not be reconciled",
		},
		[]string{anomalyKindLabel},
	)
	reg.MustRegister(m.AnomaliesTotal)

	return &m
}

func (m *Metrics) IncSessions() {
	m.SessionsActive.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) DecSessions() {
	m.SessionsActive.Dec()
}

func (m *Metrics) IncRooms() {
	m.RoomsActive.Inc()
	m.RoomsTotal.Inc()
}

func (m *Metrics) DecRooms() {
	m.RoomsActive.Dec()
}

func (m *Metrics) IncUsers() {
	m.UsersActive.Inc()
	m.UsersTotal.Inc()
}

func (m *Metrics) DecUsers() {
	m.UsersActive.Dec()
}

func (m *Metrics) ObserveUserSessionDuration(minutes float64) {
	m.UsersSession.Observe(minutes)
}

func (m *Metrics) IncPublishers() {
	m.PublishersActive.Inc()
}

func (m *Metrics) DecPublishers() {
	m.PublishersActive.Dec()
}

func (m *Metrics) IncSubscribers() {
	m.SubscribersActive.Inc()
}

func (m *Metrics) DecSubscribers(n int) {
	m.SubscribersActive.Sub(float64(n))
}

func (m *Metrics) IncSubscriptions() {
	m.SubscribersTotal.Inc()
}

func (m *Metrics) IncSubscribingAttempts() {
	m.SubscribingTotal.Inc()
}

func (m *Metrics) IncPeerConnections() {
	m.PeerConnsTotal.Inc()
}

func (m *Metrics) IncActivePeerConnections() {
	m.PeerConnsActive.Inc()
}

func (m *Metrics) DecActivePeerConnections() {
	m.PeerConnsActive.Dec()
}

func (m *Metrics) IncICEConnections() {
	m.ICEConnsTotal.Inc()
}

func (m *Metrics) IncICEDisconnects() {
	m.ICEDisconnsTotal.Inc()
}

func (m *Metrics) IncMediaStreams(mediaType string) {
	m.MediaTotal.With(prometheus.Labels{mediaTypeLabel: mediaType}).Inc()
}

func (m *Metrics) IncWebSocketConnections() {
	m.WSActive.Inc()
	m.WSConnsTotal.Inc()
}

func (m *Metrics) IncWebSocketDisconnects() {
	m.WSDisconnTotal.Inc()
}

func (m *Metrics) DecWebSocketConnections() {
	m.WSActive.Dec()
}

func (m *Metrics) IncAnomalies(kind string) {
	m.AnomaliesTotal.With(prometheus.Labels{anomalyKindLabel: kind}).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
