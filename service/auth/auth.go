// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package auth verifies the basic auth credentials of event producers.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

var ErrUnauthorized = errors.New("authentication failed")

type Authenticator struct {
	cfg   Config
	cache *credentialCache
}

func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &Authenticator{
		cfg:   cfg,
		cache: newCredentialCache(time.Duration(cfg.CacheExpirationMinutes) * time.Minute),
	}, nil
}

// Enabled reports whether credentials are checked at all.
func (a *Authenticator) Enabled() bool {
	return a.cfg.Enabled()
}

// Authenticate returns ErrUnauthorized if the given credentials don't match
// the configured ones. It always succeeds when authentication is disabled.
func (a *Authenticator) Authenticate(user, password string) error {
	if !a.Enabled() {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(user), []byte(a.cfg.EventsUser)) != 1 {
		return fmt.Errorf("%w: unknown user", ErrUnauthorized)
	}

	digest := credentialsDigest(user, password)
	if a.cache.has(digest) {
		return nil
	}

	if err := compareKeyHash(a.cfg.EventsPasswordHash, password); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	a.cache.put(digest)

	return nil
}
