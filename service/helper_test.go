// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type TestHelper struct {
	srvc   *Service
	cfg    Config
	tb     testing.TB
	apiURL string
	wsURL  string
}

func SetupTestHelper(tb testing.TB, cfgFn func(cfg *Config)) *TestHelper {
	tb.Helper()

	th := &TestHelper{
		tb: tb,
	}

	th.cfg.SetDefaults()
	th.cfg.API.HTTP.ListenAddress = ":0"
	th.cfg.Journal.Enable = true
	th.cfg.Journal.DataSource = filepath.Join(tb.TempDir(), "db")
	th.cfg.Logger.ConsoleLevel = "ERROR"
	if cfgFn != nil {
		cfgFn(&th.cfg)
	}

	var err error
	th.srvc, err = New(th.cfg)
	require.NoError(th.tb, err)
	require.NotNil(th.tb, th.srvc)

	err = th.srvc.Start()
	require.NoError(th.tb, err)

	_, port, err := net.SplitHostPort(th.srvc.apiServer.Addr())
	require.NoError(th.tb, err)
	th.apiURL = "http://localhost:" + port
	th.wsURL = "ws://localhost:" + port + "/ws"

	return th
}

func (th *TestHelper) Teardown() {
	err := th.srvc.Stop()
	require.NoError(th.tb, err)
}

func (th *TestHelper) postEvents(body string) *http.Response {
	th.tb.Helper()
	resp, err := http.Post(th.apiURL+"/event", "application/json", bytes.NewBufferString(body))
	require.NoError(th.tb, err)
	th.tb.Cleanup(func() {
		resp.Body.Close()
	})
	return resp
}

func (th *TestHelper) getStats() Stats {
	th.tb.Helper()
	resp, err := http.Get(th.apiURL + "/stats")
	require.NoError(th.tb, err)
	defer resp.Body.Close()
	require.Equal(th.tb, http.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(th.tb, json.NewDecoder(resp.Body).Decode(&stats))
	return stats
}
