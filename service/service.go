// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/janus-exporter/logger"
	"github.com/mattermost/janus-exporter/service/api"
	"github.com/mattermost/janus-exporter/service/auth"
	"github.com/mattermost/janus-exporter/service/engine"
	"github.com/mattermost/janus-exporter/service/perf"
	"github.com/mattermost/janus-exporter/service/state"
	"github.com/mattermost/janus-exporter/service/ws"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/prometheus/procfs"
)

type Service struct {
	cfg       Config
	apiServer *api.Server
	wsServer  *ws.Server
	auth      *auth.Authenticator
	metrics   *perf.Metrics
	journal   *journal
	log       *mlog.Logger
	procFS    *procfs.FS

	// engineMut serializes all access to the engine.
	engineMut sync.Mutex
	engine    *engine.Engine

	wsDoneCh chan struct{}
}

func New(cfg Config) (_ *Service, retErr error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	s := &Service{
		cfg:      cfg,
		log:      log,
		wsDoneCh: make(chan struct{}),
	}

	defer func() {
		if retErr == nil {
			return
		}
		if s.journal != nil {
			if err := s.journal.close(); err != nil {
				s.log.Error("failed to close journal", mlog.Err(err))
			}
		}
		_ = s.log.Shutdown()
	}()

	s.log.Info(serviceName + ": starting up", getVersionInfo().logFields()...)

	if fs, err := procfs.NewDefaultFS(); err != nil {
		s.log.Warn("procfs is not available, system info will be disabled", mlog.Err(err))
	} else {
		s.procFS = &fs
	}

	s.auth, err = auth.NewAuthenticator(cfg.API.Security)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	s.metrics = perf.NewMetrics(cfg.Metrics, cfg.Engine.UserSessionBuckets(), nil)

	if cfg.Journal.Enable {
		s.journal, err = newJournal(cfg.Journal, s.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create journal: %w", err)
		}
	}

	s.engine, err = engine.New(cfg.Engine, s.metrics, s.log, engine.WithAnomalyHook(s.onAnomaly))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s.apiServer, err = api.NewServer(cfg.API.HTTP, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create api server: %w", err)
	}

	wsConfig := ws.ServerConfig{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		PingInterval:    cfg.API.WebSocket.pingInterval(),
		MaxMessageSize:  cfg.API.WebSocket.MaxMessageSizeBytes,
	}
	s.wsServer, err = ws.NewServer(wsConfig, s.log, ws.WithUpgradeCb(s.wsAuthHandler))
	if err != nil {
		return nil, fmt.Errorf("failed to create ws server: %w", err)
	}

	s.apiServer.RegisterHandleFunc("/", s.getRoot)
	s.apiServer.RegisterHandleFunc("/monitor/", s.getMonitor)
	s.apiServer.RegisterHandleFunc("/event", s.postEvents)
	s.apiServer.RegisterHandleFunc("/version", s.getVersion)
	s.apiServer.RegisterHandleFunc("/stats", s.getStats)
	s.apiServer.RegisterHandleFunc("/system", s.getSystemInfo)
	s.apiServer.RegisterHandleFunc("/anomalies", s.getAnomalies)
	s.apiServer.RegisterHandler("/metrics", s.metrics.Handler())
	s.apiServer.RegisterHandler("/ws", s.wsServer)

	return s, nil
}

func (s *Service) Start() error {
	go s.wsReader()

	if err := s.apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

func (s *Service) Stop() error {
	var retErr error
	if err := s.apiServer.Stop(); err != nil {
		retErr = fmt.Errorf("failed to stop API server: %w", err)
	}

	s.wsServer.Close()
	<-s.wsDoneCh

	if s.journal != nil {
		if err := s.journal.close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close journal: %w", err)
		}
	}

	s.log.Info(serviceName + ": shutdown complete")

	if err := s.log.Shutdown(); err != nil && retErr == nil {
		retErr = fmt.Errorf("failed to shutdown logger: %w", err)
	}

	return retErr
}

// onAnomaly runs under engineMut.
func (s *Service) onAnomaly(a state.Anomaly, raw json.RawMessage) {
	if s.journal == nil || !journaled(a.Kind) {
		return
	}
	s.journal.record(a, raw, time.Now())
}

// Snapshot returns the current entity counts.
func (s *Service) Snapshot() state.Snapshot {
	s.engineMut.Lock()
	defer s.engineMut.Unlock()
	return s.engine.Snapshot()
}
