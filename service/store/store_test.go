// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package store

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dbDir := t.TempDir()
	store, err := New(dbDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	return store, dbDir
}

func TestNew(t *testing.T) {
	t.Run("invalid db path", func(t *testing.T) {
		store, err := New("")
		require.Error(t, err)
		require.Nil(t, store)
	})

	t.Run("valid", func(t *testing.T) {
		store, err := New(t.TempDir())
		require.NoError(t, err)
		require.NotNil(t, store)
		err = store.Close()
		require.NoError(t, err)
	})
}

func TestPut(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()

	t.Run("setting", func(t *testing.T) {
		val, err := store.Get("key")
		require.Error(t, err)
		require.Equal(t, ErrNotFound, err)
		require.Empty(t, val)

		err = store.Put("key", []byte("value"))
		require.NoError(t, err)
	})

	t.Run("conflict", func(t *testing.T) {
		err := store.Put("key", []byte("value"))
		require.Error(t, err)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("long keys", func(t *testing.T) {
		key := "anomaly:01760000000000000000:" + strings.Repeat("f", 36)
		require.Greater(t, len(key), 64)
		require.NoError(t, store.Put(key, []byte("value")))
		val, err := store.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte("value"), val)

		err = store.Put(strings.Repeat("k", maxKeySize+1), []byte("value"))
		require.ErrorIs(t, err, ErrKeySize)
	})

	t.Run("empty key", func(t *testing.T) {
		err := store.Put("", []byte("value"))
		require.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		var nErrors int32
		n := 10
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				err := store.Put("key2", []byte("value2"))
				if err != nil {
					atomic.AddInt32(&nErrors, 1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(n-1), nErrors)
	})
}

func TestGetSet(t *testing.T) {
	store, dbDir := newTestStore(t)

	t.Run("getting missing key", func(t *testing.T) {
		val, err := store.Get("missing")
		require.Error(t, err)
		require.Equal(t, ErrNotFound, err)
		require.Empty(t, val)
	})

	t.Run("getting empty key", func(t *testing.T) {
		_, err := store.Get("")
		require.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("setting empty key", func(t *testing.T) {
		err := store.Set("", nil)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("setting", func(t *testing.T) {
		err := store.Set("key", []byte("value"))
		require.NoError(t, err)
	})

	t.Run("getting", func(t *testing.T) {
		val, err := store.Get("key")
		require.NoError(t, err)
		require.Equal(t, []byte("value"), val)
	})

	t.Run("update", func(t *testing.T) {
		err := store.Set("key", []byte("updated"))
		require.NoError(t, err)
		val, err := store.Get("key")
		require.NoError(t, err)
		require.Equal(t, []byte("updated"), val)
	})

	t.Run("binary value", func(t *testing.T) {
		data := []byte{0x00, 0xff, 0x82, 0xa4}
		err := store.Set("bin", data)
		require.NoError(t, err)
		val, err := store.Get("bin")
		require.NoError(t, err)
		require.Equal(t, data, val)
	})

	t.Run("getting after reopening", func(t *testing.T) {
		err := store.Close()
		require.NoError(t, err)
		store, err := New(dbDir)
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()

		val, err := store.Get("key")
		require.NoError(t, err)
		require.Equal(t, []byte("updated"), val)
	})
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()

	t.Run("delete empty", func(t *testing.T) {
		err := store.Delete("")
		require.Error(t, err)
		require.Equal(t, ErrEmptyKey, err)
	})

	t.Run("delete missing", func(t *testing.T) {
		err := store.Delete("key")
		require.NoError(t, err)
	})

	t.Run("delete existing", func(t *testing.T) {
		err := store.Set("key", []byte("value"))
		require.NoError(t, err)
		require.Equal(t, 1, store.Len())

		err = store.Delete("key")
		require.NoError(t, err)
		require.Zero(t, store.Len())

		val, err := store.Get("key")
		require.Error(t, err)
		require.ErrorIs(t, err, ErrNotFound)
		require.Empty(t, val)
	})
}

func TestKeys(t *testing.T) {
	store, _ := newTestStore(t)
	defer store.Close()

	t.Run("empty", func(t *testing.T) {
		keys, err := store.Keys("")
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	for i := 5; i > 0; i-- {
		require.NoError(t, store.Set(fmt.Sprintf("a:%02d", i), []byte("v")))
	}
	require.NoError(t, store.Set("b:01", []byte("v")))

	t.Run("all", func(t *testing.T) {
		keys, err := store.Keys("")
		require.NoError(t, err)
		require.Equal(t, []string{"a:01", "a:02", "a:03", "a:04", "a:05", "b:01"}, keys)
		require.Equal(t, 6, store.Len())
	})

	t.Run("prefix", func(t *testing.T) {
		keys, err := store.Keys("a:")
		require.NoError(t, err)
		require.Equal(t, []string{"a:01", "a:02", "a:03", "a:04", "a:05"}, keys)

		keys, err = store.Keys("c:")
		require.NoError(t, err)
		require.Empty(t, keys)
	})
}
