// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package engine

import (
	"fmt"

	"github.com/mattermost/janus-exporter/service/events"
	"github.com/mattermost/janus-exporter/service/state"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/sdp/v3"
)

const (
	iceStateConnected    = "connected"
	iceStateDisconnected = "disconnected"
	connStateUp          = "webrtcup"
	connStateHangup      = "hangup"
)

// ICE states that are valid but don't drive any metric.
var ignoredICEStates = map[string]bool{
	"gathering":  true,
	"connecting": true,
	"ready":      true,
	"failed":     true,
}

func (e *Engine) handleSession(ev events.Event) {
	se, err := ev.Session()
	if err != nil {
		e.malformed(err)
		return
	}

	switch se.Name {
	case "created":
		if e.store.CreateSession(ev.SessionID, e.now()) {
			e.metrics.IncSessions()
		}
	case "destroyed", "timeout":
		if _, ok := e.store.RemoveSession(ev.SessionID); ok {
			e.metrics.DecSessions()
		}
		e.sweepSession(ev.SessionID)
	default:
		e.log.Debug("engine: session event", append(e.logFields(ev), mlog.String("name", se.Name))...)
	}
}

// sweepSession drops whatever is still bound to a destroyed session.
func (e *Engine) sweepSession(sessionID uint64) {
	var subscribers int
	pubs := e.store.RemovePublishersBySession(sessionID)
	for _, p := range pubs {
		e.metrics.DecPublishers()
		subscribers += len(p.Subscribers)
	}
	subscribers += e.store.RemoveSubscribersBySession(sessionID)
	if subscribers > 0 {
		e.metrics.DecSubscribers(subscribers)
	}

	users := e.store.RemoveUsersBySession(sessionID)
	for _, u := range users {
		e.retireUser(u)
	}

	handles := e.store.ClosePeerConnectionsBySession(sessionID)
	for range handles {
		e.metrics.DecActivePeerConnections()
	}

	if n := len(pubs) + subscribers + len(users) + len(handles); n > 0 {
		e.anomaly(state.AnomalyLeakedEntities, fmt.Sprintf("swept %d entities left by destroyed session", n), sessionID)
	}
}

func (e *Engine) handleHandle(ev events.Event) {
	he, err := ev.Handle()
	if err != nil {
		e.malformed(err)
		return
	}
	e.log.Debug("engine: handle event", append(e.logFields(ev),
		mlog.String("name", he.Name),
		mlog.String("plugin", he.Plugin))...)
}

func (e *Engine) handleJSEP(ev events.Event) {
	je, err := ev.JSEP()
	if err != nil {
		e.malformed(err)
		return
	}

	var desc sdp.SessionDescription
	if err := desc.Unmarshal([]byte(je.JSEP.SDP)); err != nil {
		e.anomaly(state.AnomalyMalformed, "failed to parse sdp: "+err.Error(), ev.HandleID)
		return
	}

	media := make([]string, 0, len(desc.MediaDescriptions))
	for _, md := range desc.MediaDescriptions {
		media = append(media, md.MediaName.Media)
	}

	e.log.Debug("engine: negotiation", append(e.logFields(ev),
		mlog.Bool("remote", je.Remote()),
		mlog.String("sdpType", je.JSEP.Type),
		mlog.Any("media", media))...)
}

func (e *Engine) handleWebRTC(ev events.Event) {
	we, err := ev.WebRTC()
	if err != nil {
		e.malformed(err)
		return
	}

	switch {
	case we.ICE != "":
		switch {
		case we.ICE == iceStateConnected:
			e.metrics.IncICEConnections()
		case we.ICE == iceStateDisconnected:
			e.metrics.IncICEDisconnects()
		case ignoredICEStates[we.ICE]:
		default:
			e.anomaly(state.AnomalyUnknownName, "unsupported ice state "+we.ICE, ev.HandleID)
		}
	case we.Connection != "":
		switch we.Connection {
		case connStateUp:
			e.metrics.IncPeerConnections()
			if e.store.OpenPeerConnection(ev.HandleID, ev.SessionID) {
				e.metrics.IncActivePeerConnections()
			}
		case connStateHangup:
			if e.store.ClosePeerConnection(ev.HandleID) {
				e.metrics.DecActivePeerConnections()
			}
		default:
			e.anomaly(state.AnomalyUnknownName, "unsupported connection state "+we.Connection, ev.HandleID)
		}
	case we.SelectedPair != "", we.DTLS != "":
		e.log.Debug("engine: transport event", append(e.logFields(ev),
			mlog.String("selectedPair", we.SelectedPair),
			mlog.String("dtls", we.DTLS))...)
	default:
		e.anomaly(state.AnomalyUnknownName, "unsupported webrtc event", ev.HandleID)
	}
}

func (e *Engine) handleMedia(ev events.Event) {
	me, err := ev.Media()
	if err != nil {
		e.malformed(err)
		return
	}

	switch {
	case me.Receiving != nil:
		if first, _ := e.store.SetMediaReceiving(ev.HandleID, me.Media, *me.Receiving); first {
			e.metrics.IncMediaStreams(me.Media)
		}
	case me.IsStats():
		// Statistics are decoded for validation only.
	default:
		e.anomaly(state.AnomalyUnknownName, "unsupported media event", ev.HandleID)
	}
}

func (e *Engine) handleData(ev events.Event) {
	de, err := ev.Data()
	if err != nil {
		e.malformed(err)
		return
	}

	switch {
	case de.Plugin == events.VideoRoomPlugin:
		e.handleVideoRoom(ev, de)
	case de.Transport == events.WebSocketsTransport:
		e.handleWebSocket(ev, de)
	case de.Plugin != "":
		e.anomaly(state.AnomalyUnknownName, "unsupported plugin "+de.Plugin, ev.HandleID)
	case de.Transport != "":
		e.anomaly(state.AnomalyUnknownName, "unsupported transport "+de.Transport, de.ID)
	default:
		e.anomaly(state.AnomalyMalformed, "data event without plugin or transport", ev.HandleID)
	}
}

func (e *Engine) handleWebSocket(_ events.Event, de events.DataEvent) {
	te, err := de.TransportData()
	if err != nil {
		e.malformed(err)
		return
	}

	switch te.Event {
	case "connected":
		e.store.ConnectTransport(de.ID)
		e.metrics.IncWebSocketConnections()
	case "disconnected":
		e.metrics.IncWebSocketDisconnects()
		if e.store.DisconnectTransport(de.ID) {
			e.metrics.DecWebSocketConnections()
		}
	default:
		e.anomaly(state.AnomalyUnknownName, "unsupported transport event "+te.Event, de.ID)
	}
}

func (e *Engine) handleCore(ev events.Event) {
	ce, err := ev.Core()
	if err != nil {
		e.malformed(err)
		return
	}
	e.log.Debug("engine: core event", mlog.String("status", ce.Status), mlog.Int("signum", ce.Signum))
}
