// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"fmt"
	"time"

	"github.com/mattermost/janus-exporter/logger"
	"github.com/mattermost/janus-exporter/service/api"
	"github.com/mattermost/janus-exporter/service/auth"
	"github.com/mattermost/janus-exporter/service/engine"
	"github.com/mattermost/janus-exporter/service/perf"
)

type WebSocketConfig struct {
	// PingIntervalSeconds is how often connected producers get pinged.
	PingIntervalSeconds int `toml:"ping_interval_seconds"`
	// MaxMessageSizeBytes limits the size of a single events batch.
	MaxMessageSizeBytes int64 `toml:"max_message_size_bytes"`
}

func (c WebSocketConfig) IsValid() error {
	if c.PingIntervalSeconds <= 0 {
		return fmt.Errorf("invalid PingIntervalSeconds value: should be a positive number")
	}

	if c.MaxMessageSizeBytes <= 0 {
		return fmt.Errorf("invalid MaxMessageSizeBytes value: should be a positive number")
	}

	return nil
}

func (c WebSocketConfig) pingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

type APIConfig struct {
	HTTP      api.Config      `toml:"http"`
	Security  auth.Config     `toml:"security"`
	WebSocket WebSocketConfig `toml:"websocket"`
}

func (c APIConfig) IsValid() error {
	if err := c.Security.IsValid(); err != nil {
		return fmt.Errorf("failed to validate security config: %w", err)
	}

	if err := c.HTTP.IsValid(); err != nil {
		return fmt.Errorf("failed to validate http config: %w", err)
	}

	if err := c.WebSocket.IsValid(); err != nil {
		return fmt.Errorf("failed to validate websocket config: %w", err)
	}

	return nil
}

type JournalConfig struct {
	// Enable turns on persistence of rejected events.
	Enable     bool   `toml:"enable"`
	DataSource string `toml:"data_source"`
	// MaxEntries is the number of entries retained. Older ones get dropped.
	MaxEntries int `toml:"max_entries"`
}

func (c JournalConfig) IsValid() error {
	if !c.Enable {
		return nil
	}

	if c.DataSource == "" {
		return fmt.Errorf("invalid DataSource value: should not be empty")
	}

	if c.MaxEntries <= 0 {
		return fmt.Errorf("invalid MaxEntries value: should be a positive number")
	}

	return nil
}

type Config struct {
	API     APIConfig
	Metrics perf.Config
	Engine  engine.Config
	Journal JournalConfig
	Logger  logger.Config
}

func (c Config) IsValid() error {
	if err := c.API.IsValid(); err != nil {
		return err
	}

	if err := c.Metrics.IsValid(); err != nil {
		return fmt.Errorf("failed to validate metrics config: %w", err)
	}

	if err := c.Engine.IsValid(); err != nil {
		return fmt.Errorf("failed to validate engine config: %w", err)
	}

	if err := c.Journal.IsValid(); err != nil {
		return fmt.Errorf("failed to validate journal config: %w", err)
	}

	return c.Logger.IsValid()
}

func (c *Config) SetDefaults() {
	c.API.HTTP.SetDefaults()
	c.API.Security.CacheExpirationMinutes = 60
	c.API.WebSocket.PingIntervalSeconds = 30
	c.API.WebSocket.MaxMessageSizeBytes = 4 * 1024 * 1024
	c.Metrics.SetDefaults()
	c.Engine.SetDefaults()
	c.Journal.Enable = false
	c.Journal.DataSource = "/tmp/janus_exporter_db"
	c.Journal.MaxEntries = 1000
	c.Logger.EnableConsole = true
	c.Logger.ConsoleJSON = false
	c.Logger.ConsoleLevel = "INFO"
	c.Logger.EnableFile = false
	c.Logger.FileJSON = true
	c.Logger.FileLocation = "janus_exporter.log"
	c.Logger.FileLevel = "DEBUG"
	c.Logger.FileMaxSizeMB = 100
	c.Logger.FileCompress = true
	c.Logger.EnableColor = false
}
