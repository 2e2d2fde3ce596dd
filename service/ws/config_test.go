// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerConfigIsValid(t *testing.T) {
	t.Run("empty struct", func(t *testing.T) {
		var cfg ServerConfig
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid ReadBufferSize value: should be greater than zero", err.Error())
	})

	t.Run("invalid PingInterval", func(t *testing.T) {
		cfg := ServerConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    time.Millisecond,
		}
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid PingInterval value: should be at least 1 second", err.Error())
	})

	t.Run("invalid MaxMessageSize", func(t *testing.T) {
		cfg := ServerConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    time.Second,
		}
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid MaxMessageSize value: should be greater than zero", err.Error())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := ServerConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    time.Second,
			MaxMessageSize:  1024,
		}
		require.NoError(t, cfg.IsValid())
	})
}

func TestClientConfigIsValid(t *testing.T) {
	t.Run("empty struct", func(t *testing.T) {
		var cfg ClientConfig
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid URL value: should not be empty", err.Error())
	})

	t.Run("invalid scheme", func(t *testing.T) {
		cfg := ClientConfig{URL: "http://localhost/ws"}
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, `invalid URL value: should start with "ws://" or "wss://"`, err.Error())
	})

	t.Run("password without user", func(t *testing.T) {
		cfg := ClientConfig{URL: "ws://localhost/ws", Password: "secret"}
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid Username value: should not be empty when a password is set", err.Error())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := ClientConfig{URL: "wss://localhost/ws", Username: "janus", Password: "secret"}
		require.NoError(t, cfg.IsValid())
	})
}
