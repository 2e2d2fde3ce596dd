// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	model "github.com/prometheus/client_model/go"
)

// Stats holds the current values of the service gauges.
type Stats struct {
	Sessions        float64 `json:"sessions"`
	Rooms           float64 `json:"rooms"`
	Users           float64 `json:"users"`
	Publishers      float64 `json:"publishers"`
	Subscribers     float64 `json:"subscribers"`
	PeerConnections float64 `json:"peerconnections"`
	WebSockets      float64 `json:"websockets"`
}

func gaugeValue(g prometheus.Gauge) (float64, error) {
	var m model.Metric
	if err := g.Write(&m); err != nil {
		return 0, err
	}
	return m.GetGauge().GetValue(), nil
}

func (s *Service) getStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var stats Stats
	for _, g := range []struct {
		gauge prometheus.Gauge
		dst   *float64
	}{
		{s.metrics.SessionsActive, &stats.Sessions},
		{s.metrics.RoomsActive, &stats.Rooms},
		{s.metrics.UsersActive, &stats.Users},
		{s.metrics.PublishersActive, &stats.Publishers},
		{s.metrics.SubscribersActive, &stats.Subscribers},
		{s.metrics.PeerConnsActive, &stats.PeerConnections},
		{s.metrics.WSActive, &stats.WebSockets},
	} {
		val, err := gaugeValue(g.gauge)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		*g.dst = val
	}

	s.writeJSON(w, http.StatusOK, stats)
}
