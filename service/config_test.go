// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"testing"

	"github.com/mattermost/janus-exporter/service/auth"

	"github.com/stretchr/testify/require"
)

func TestConfigIsValid(t *testing.T) {
	t.Run("empty struct", func(t *testing.T) {
		var cfg Config
		require.Error(t, cfg.IsValid())
	})

	t.Run("defaults", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		require.NoError(t, cfg.IsValid())
		require.False(t, cfg.Journal.Enable)
		require.False(t, cfg.API.Security.Enabled())
		require.Equal(t, "janus", cfg.Metrics.Namespace)
	})

	t.Run("invalid security", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.API.Security.EventsUser = "janus"
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "failed to validate security config: invalid EventsPasswordHash value: should not be empty", err.Error())

		hash, err := auth.HashPassword("secret")
		require.NoError(t, err)
		cfg.API.Security.EventsPasswordHash = hash
		require.NoError(t, cfg.IsValid())
	})

	t.Run("invalid websocket", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.API.WebSocket.PingIntervalSeconds = 0
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "failed to validate websocket config: invalid PingIntervalSeconds value: should be a positive number", err.Error())

		cfg.API.WebSocket.PingIntervalSeconds = 10
		cfg.API.WebSocket.MaxMessageSizeBytes = -1
		err = cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "failed to validate websocket config: invalid MaxMessageSizeBytes value: should be a positive number", err.Error())
	})

	t.Run("invalid journal", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.Journal.Enable = true
		cfg.Journal.DataSource = ""
		err := cfg.IsValid()
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid DataSource value: should not be empty")

		cfg.Journal.DataSource = "/tmp/db"
		cfg.Journal.MaxEntries = 0
		err = cfg.IsValid()
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid MaxEntries value: should be a positive number")
	})

	t.Run("invalid metrics", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.Metrics.Namespace = "janus-gateway"
		err := cfg.IsValid()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to validate metrics config")
	})
}
