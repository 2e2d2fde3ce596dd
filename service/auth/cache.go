// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package auth

import (
	"sync"
	"time"
)

type credentialCache struct {
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time

	mut sync.RWMutex
}

func newCredentialCache(ttl time.Duration) *credentialCache {
	return &credentialCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *credentialCache) has(digest string) bool {
	c.mut.RLock()
	expiresAt, ok := c.entries[digest]
	c.mut.RUnlock()
	if !ok {
		return false
	}
	if c.now().After(expiresAt) {
		c.mut.Lock()
		delete(c.entries, digest)
		c.mut.Unlock()
		return false
	}
	return true
}

func (c *credentialCache) put(digest string) {
	c.mut.Lock()
	defer c.mut.Unlock()

	// A single user is configured, stale digests are dropped on every insert.
	now := c.now()
	for d, expiresAt := range c.entries {
		if now.After(expiresAt) {
			delete(c.entries, d)
		}
	}
	c.entries[digest] = now.Add(c.ttl)
}
