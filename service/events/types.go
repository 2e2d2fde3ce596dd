// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Type identifies the kind of an event as emitted by the Janus event handlers.
type Type int

const (
	TypeSession   Type = 1
	TypeHandle    Type = 2
	TypeJSEP      Type = 8
	TypeWebRTC    Type = 16
	TypeMedia     Type = 32
	TypePlugin    Type = 64
	TypeTransport Type = 128
	TypeCore      Type = 256
)

var typeNames = map[Type]string{
	TypeSession:   "session",
	TypeHandle:    "handle",
	TypeJSEP:      "jsep",
	TypeWebRTC:    "webrtc",
	TypeMedia:     "media",
	TypePlugin:    "plugin",
	TypeTransport: "transport",
	TypeCore:      "core",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// Known reports whether t is one of the recognized type codes.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// sessionBound reports whether events of type t always carry a session.
// Core and transport events never do, plugin events only when a session
// exists.
func (t Type) sessionBound() bool {
	switch t {
	case TypeSession, TypeHandle, TypeJSEP, TypeWebRTC, TypeMedia:
		return true
	}
	return false
}

// ID is an opaque identifier for rooms, feeds and transport instances.
// Upstream may encode these either as JSON numbers or strings, both are
// normalized to their textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: should be a number or a string", data)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}
