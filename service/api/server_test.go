// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package api

import (
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	log, err := mlog.NewLogger()
	require.NoError(t, err)
	defer func() {
		err := log.Shutdown()
		require.NoError(t, err)
	}()

	t.Run("invalid config", func(t *testing.T) {
		s, err := NewServer(Config{}, log)
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("nil logger", func(t *testing.T) {
		s, err := NewServer(Config{ListenAddress: ":0"}, nil)
		require.EqualError(t, err, "invalid nil logger")
		require.Nil(t, s)
	})

	t.Run("not started", func(t *testing.T) {
		s, err := NewServer(Config{ListenAddress: ":0"}, log)
		require.NoError(t, err)
		require.Empty(t, s.Addr())
	})
}

func TestStartServer(t *testing.T) {
	log, err := mlog.NewLogger()
	require.NoError(t, err)
	defer func() {
		err := log.Shutdown()
		require.NoError(t, err)
	}()

	t.Run("port unavailable", func(t *testing.T) {
		listener, err := net.Listen("tcp", ":0")
		require.NoError(t, err)
		defer func() {
			err := listener.Close()
			require.NoError(t, err)
		}()

		cfg := Config{
			ListenAddress: listener.Addr().String(),
		}
		s, err := NewServer(cfg, log)
		require.NoError(t, err)
		require.NotNil(t, s)

		err = s.Start()
		require.Error(t, err)
		err = s.Stop()
		require.NoError(t, err)
	})

	t.Run("plaintext", func(t *testing.T) {
		cfg := Config{
			ListenAddress: ":0",
		}
		s, err := NewServer(cfg, log)
		require.NoError(t, err)
		require.NotNil(t, s)

		s.RegisterHandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
		s.RegisterHandler("/teapot", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		err = s.Start()
		require.NoError(t, err)
		require.NotEmpty(t, s.Addr())

		client := &http.Client{}

		_, port, err := net.SplitHostPort(s.Addr())
		require.NoError(t, err)

		resp, err := client.Get("http://localhost:" + port + "/ping")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "pong", string(body))

		resp, err = client.Get("http://localhost:" + port + "/teapot")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusTeapot, resp.StatusCode)

		resp, err = client.Get("http://localhost:" + port + "/missing")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		err = s.Stop()
		require.NoError(t, err)

		_, err = client.Get("http://localhost:" + port + "/ping")
		require.Error(t, err)
	})
}
