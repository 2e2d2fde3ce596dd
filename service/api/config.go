// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package api

import (
	"crypto/tls"
	"fmt"
	"time"
)

type TLSConfig struct {
	Enable   bool
	CertFile string `toml:"cert_file"`
	CertKey  string `toml:"cert_key"`
}

func (c TLSConfig) IsValid() error {
	if !c.Enable {
		return nil
	}

	if c.CertFile == "" {
		return fmt.Errorf("invalid CertFile value: should not be empty")
	}

	if c.CertKey == "" {
		return fmt.Errorf("invalid CertKey value: should not be empty")
	}

	if _, err := tls.LoadX509KeyPair(c.CertFile, c.CertKey); err != nil {
		return fmt.Errorf("failed to load cert files: %w", err)
	}

	return nil
}

type Config struct {
	ListenAddress string `toml:"listen_address"`
	TLS           TLSConfig
	// ReadTimeoutSeconds bounds the time allowed to read a full request,
	// body included. Janus posts events in batches so this is kept generous.
	ReadTimeoutSeconds  int `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
	// MaxBodySizeBytes limits the size of an events batch.
	MaxBodySizeBytes int64 `toml:"max_body_size_bytes"`
}

func (c Config) IsValid() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("invalid ListenAddress value: should not be empty")
	}

	if c.ReadTimeoutSeconds < 0 {
		return fmt.Errorf("invalid ReadTimeoutSeconds value: should not be negative")
	}

	if c.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("invalid WriteTimeoutSeconds value: should not be negative")
	}

	if c.MaxBodySizeBytes < 0 {
		return fmt.Errorf("invalid MaxBodySizeBytes value: should not be negative")
	}

	if err := c.TLS.IsValid(); err != nil {
		return fmt.Errorf("invalid TLS config: %w", err)
	}

	return nil
}

func (c *Config) SetDefaults() {
	c.ListenAddress = ":8080"
	c.ReadTimeoutSeconds = 30
	c.WriteTimeoutSeconds = 60
	c.MaxBodySizeBytes = 10 * 1024 * 1024
}

func (c Config) readTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c Config) writeTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}
