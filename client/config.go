// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package client

import (
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	// URL is the base URL of the exporter (e.g. http://localhost:8080).
	URL string
	// Username and Password are the optional basic auth credentials used
	// to post events.
	Username string
	Password string

	wsURL string
}

func (c *Config) Parse() error {
	if c.URL == "" {
		return fmt.Errorf("invalid URL value: should not be empty")
	}
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("invalid URL scheme %q", u.Scheme)
	}
	u.Path += wsPath
	c.wsURL = u.String()

	if c.Password != "" && c.Username == "" {
		return fmt.Errorf("invalid Username value: should not be empty when a password is set")
	}

	return nil
}
