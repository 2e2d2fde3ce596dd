// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package store provides the persistent key/value storage backing the
// anomaly journal.
package store

import (
	"errors"
)

var (
	ErrNotFound = errors.New("error: not found")
	ErrEmptyKey = errors.New("error: empty key")
	ErrConflict = errors.New("error: key already exists")
	ErrKeySize  = errors.New("error: key too large")
)

// maxKeySize bounds a single key in bytes.
const maxKeySize = 256

// maxValueSize bounds a single stored value. Journal entries carry the raw
// event so this follows the default API body limit.
const maxValueSize = 16 * 1024 * 1024

type Store interface {
	// Set stores value at key, overwriting any existing entry.
	Set(key string, value []byte) error
	// Put stores value at key, failing with ErrConflict if the key exists.
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	// Keys returns the keys matching prefix in lexicographic order.
	Keys(prefix string) ([]string, error)
	Len() int
	Close() error
}

func New(dataSource string) (Store, error) {
	return newBitcaskStore(dataSource)
}
