// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// EventsUser is the basic auth user event producers must present. Leaving
	// it empty disables authentication.
	EventsUser string `toml:"events_user"`
	// EventsPasswordHash is the bcrypt hash of the events password.
	EventsPasswordHash string `toml:"events_password_hash"`
	// CacheExpirationMinutes is how long verified credentials are remembered so
	// that the hash doesn't get recomputed on every request.
	CacheExpirationMinutes int `toml:"cache_expiration_minutes"`
}

func (c Config) Enabled() bool {
	return c.EventsUser != ""
}

func (c Config) IsValid() error {
	if !c.Enabled() {
		return nil
	}

	if c.EventsPasswordHash == "" {
		return fmt.Errorf("invalid EventsPasswordHash value: should not be empty")
	}

	if _, err := bcrypt.Cost([]byte(c.EventsPasswordHash)); err != nil {
		return fmt.Errorf("invalid EventsPasswordHash value: %w", err)
	}

	if c.CacheExpirationMinutes <= 0 {
		return fmt.Errorf("invalid CacheExpirationMinutes value: should be a positive number")
	}

	return nil
}
