// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidBatch   = errors.New("invalid batch")
	ErrMalformedEvent = errors.New("malformed event")
	ErrMissingField   = errors.New("missing required field")
)

// Event is a single decoded event. Kind specific data is kept undecoded in
// Payload and is accessed through the typed accessors (Session, Media, ...).
type Event struct {
	Type      Type
	SessionID uint64
	// HandleID is zero when the event does not carry a handle.
	HandleID uint64
	// Timestamp is expressed in microseconds since the epoch.
	Timestamp int64
	Payload   json.RawMessage
	// Raw holds the full encoded event as received.
	Raw json.RawMessage
}

type rawEvent struct {
	Type      *Type           `json:"type"`
	SessionID *uint64         `json:"session_id"`
	HandleID  *uint64         `json:"handle_id"`
	Timestamp int64           `json:"timestamp"`
	Event     json.RawMessage `json:"event"`
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMicro(e.Timestamp)
}

// Parse decodes a single event object. Unknown type codes are accepted, it's
// up to the caller to decide what to do with them.
func Parse(data json.RawMessage) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if raw.Type == nil {
		return Event{}, fmt.Errorf("%w: type", ErrMissingField)
	}

	ev := Event{
		Type:      *raw.Type,
		Timestamp: raw.Timestamp,
		Payload:   raw.Event,
		Raw:       data,
	}

	if ev.Type.sessionBound() && raw.SessionID == nil {
		return Event{}, fmt.Errorf("%w: session_id", ErrMissingField)
	}
	if raw.SessionID != nil {
		ev.SessionID = *raw.SessionID
	}
	if raw.HandleID != nil {
		ev.HandleID = *raw.HandleID
	}

	if ev.Type.Known() {
		payload := bytes.TrimSpace(raw.Event)
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			return Event{}, fmt.Errorf("%w: event", ErrMissingField)
		}
		if payload[0] != '{' {
			return Event{}, fmt.Errorf("%w: event should be an object", ErrMalformedEvent)
		}
	}

	return ev, nil
}

// Flatten splits a batch into its single events. A batch can be one event
// object or an array, arbitrarily nested, of them. Elements that are not
// objects are kept so that parsing can reject them individually.
func Flatten(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidBatch)
	}

	switch data[0] {
	case '{':
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: invalid json", ErrInvalidBatch)
		}
		return []json.RawMessage{json.RawMessage(data)}, nil
	case '[':
		var out []json.RawMessage
		if err := flatten(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: should be an object or an array", ErrInvalidBatch)
	}
}

func flatten(data json.RawMessage, out *[]json.RawMessage) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			if err := flatten(item, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, item)
	}
	return nil
}
