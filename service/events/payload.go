// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	VideoRoomPlugin     = "janus.plugin.videoroom"
	WebSocketsTransport = "janus.transport.websockets"
)

type SessionEvent struct {
	Name      string         `json:"name"`
	Transport *TransportInfo `json:"transport,omitempty"`
}

type TransportInfo struct {
	Transport string `json:"transport"`
	ID        ID     `json:"id"`
}

type HandleEvent struct {
	Name     string `json:"name"`
	Plugin   string `json:"plugin"`
	OpaqueID string `json:"opaque_id,omitempty"`
}

type JSEP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type JSEPEvent struct {
	Owner string `json:"owner"`
	JSEP  *JSEP  `json:"jsep"`
}

func (e JSEPEvent) Remote() bool {
	return e.Owner == "remote"
}

// WebRTCEvent carries exactly one of its state fields.
type WebRTCEvent struct {
	ICE          string          `json:"ice,omitempty"`
	Connection   string          `json:"connection,omitempty"`
	SelectedPair string          `json:"selected-pair,omitempty"`
	DTLS         string          `json:"dtls,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	StreamID     int             `json:"stream_id"`
	ComponentID  int             `json:"component_id"`
	Candidates   json.RawMessage `json:"candidates,omitempty"`
}

// MediaStats holds the RTCP derived counters of a statistics media event.
type MediaStats struct {
	Base            *uint32 `json:"base,omitempty"`
	LSR             uint32  `json:"lsr"`
	Lost            uint64  `json:"lost"`
	LostByRemote    uint64  `json:"lost-by-remote"`
	JitterLocal     uint32  `json:"jitter-local"`
	JitterRemote    uint32  `json:"jitter-remote"`
	PacketsSent     uint64  `json:"packets-sent"`
	PacketsReceived uint64  `json:"packets-received"`
	BytesSent       uint64  `json:"bytes-sent"`
	BytesReceived   uint64  `json:"bytes-received"`
	NacksSent       uint64  `json:"nacks-sent"`
	NacksReceived   uint64  `json:"nacks-received"`
}

type MediaEvent struct {
	Media     string `json:"media"`
	MID       string `json:"mid,omitempty"`
	Receiving *bool  `json:"receiving,omitempty"`
	MediaStats
}

// IsStats reports whether the event is a statistics report rather than a
// receiving state change.
func (e MediaEvent) IsStats() bool {
	return e.Base != nil
}

// DataEvent is the payload of plugin and transport originated events.
type DataEvent struct {
	Plugin    string          `json:"plugin,omitempty"`
	Transport string          `json:"transport,omitempty"`
	ID        ID              `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	payload json.RawMessage
}

// Body returns the plugin or transport specific data. Some producers send
// the data inline in the event object rather than nested in a "data" field.
func (e DataEvent) Body() json.RawMessage {
	data := bytes.TrimSpace(e.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return e.payload
	}
	return e.Data
}

type VideoRoomEvent struct {
	Event   string `json:"event"`
	Room    ID     `json:"room"`
	ID      ID     `json:"id"`
	Feed    ID     `json:"feed"`
	Display string `json:"display,omitempty"`
	Private ID     `json:"private_id,omitempty"`
}

type TransportDataEvent struct {
	Event    string `json:"event"`
	AdminAPI bool   `json:"admin_api"`
	IP       string `json:"ip,omitempty"`
	Port     int    `json:"port,omitempty"`
}

type CoreEvent struct {
	Status string `json:"status"`
	Signum int    `json:"signum,omitempty"`
}

func (e Event) decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s payload: %w", ErrMalformedEvent, e.Type, err)
	}
	return nil
}

func (e Event) Session() (SessionEvent, error) {
	var se SessionEvent
	err := e.decode(&se)
	return se, err
}

func (e Event) Handle() (HandleEvent, error) {
	var he HandleEvent
	err := e.decode(&he)
	return he, err
}

func (e Event) JSEP() (JSEPEvent, error) {
	var je JSEPEvent
	if err := e.decode(&je); err != nil {
		return je, err
	}
	if je.JSEP == nil {
		return je, fmt.Errorf("%w: jsep", ErrMissingField)
	}
	return je, nil
}

func (e Event) WebRTC() (WebRTCEvent, error) {
	var we WebRTCEvent
	err := e.decode(&we)
	return we, err
}

func (e Event) Media() (MediaEvent, error) {
	var me MediaEvent
	err := e.decode(&me)
	return me, err
}

func (e Event) Data() (DataEvent, error) {
	var de DataEvent
	if err := e.decode(&de); err != nil {
		return de, err
	}
	de.payload = e.Payload
	return de, nil
}

func (e Event) Core() (CoreEvent, error) {
	var ce CoreEvent
	err := e.decode(&ce)
	return ce, err
}

// VideoRoom decodes the body of a video room plugin event.
func (e DataEvent) VideoRoom() (VideoRoomEvent, error) {
	var ve VideoRoomEvent
	if err := json.Unmarshal(e.Body(), &ve); err != nil {
		return ve, fmt.Errorf("%w: failed to decode videoroom data: %w", ErrMalformedEvent, err)
	}
	return ve, nil
}

// TransportData decodes the body of a transport event.
func (e DataEvent) TransportData() (TransportDataEvent, error) {
	var te TransportDataEvent
	if err := json.Unmarshal(e.Body(), &te); err != nil {
		return te, fmt.Errorf("%w: failed to decode transport data: %w", ErrMalformedEvent, err)
	}
	return te, nil
}
