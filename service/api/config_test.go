// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	t.Run("empty struct", func(t *testing.T) {
		var cfg Config
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid ListenAddress value: should not be empty", err.Error())
	})

	t.Run("negative timeouts", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		cfg.ReadTimeoutSeconds = -1
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid ReadTimeoutSeconds value: should not be negative", err.Error())

		cfg.ReadTimeoutSeconds = 0
		cfg.WriteTimeoutSeconds = -1
		err = cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid WriteTimeoutSeconds value: should not be negative", err.Error())
	})

	t.Run("negative body size", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		cfg.MaxBodySizeBytes = -1
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid MaxBodySizeBytes value: should not be negative", err.Error())
	})

	t.Run("missing tls cert", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		cfg.TLS.Enable = true
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid TLS config: invalid CertFile value: should not be empty", err.Error())
	})

	t.Run("missing tls key", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		cfg.TLS.Enable = true
		cfg.TLS.CertFile = "cert.pem"
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid TLS config: invalid CertKey value: should not be empty", err.Error())
	})

	t.Run("unreadable tls files", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		cfg.TLS.Enable = true
		cfg.TLS.CertFile = "missing_cert.pem"
		cfg.TLS.CertKey = "missing_key.pem"
		err := cfg.IsValid()
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid TLS config: failed to load cert files")
	})

	t.Run("valid no tls", func(t *testing.T) {
		var cfg Config
		cfg.ListenAddress = ":8080"
		err := cfg.IsValid()
		require.NoError(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		require.NoError(t, cfg.IsValid())
		require.Equal(t, 30*time.Second, cfg.readTimeout())
		require.Equal(t, time.Minute, cfg.writeTimeout())
	})
}
