// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mattermost/janus-exporter/service/events"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const (
	defaultAnomaliesLimit = 50
	maxAnomaliesLimit     = 1000
)

func (s *Service) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode data", mlog.Err(err))
	}
}

type httpError struct {
	Error string `json:"error"`
}

func (s *Service) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, httpError{Error: err.Error()})
}

func (s *Service) authHandler(w http.ResponseWriter, r *http.Request) (int, error) {
	if !s.auth.Enabled() {
		return http.StatusOK, nil
	}

	user, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="janus-exporter"`)
		return http.StatusUnauthorized, errors.New("missing credentials")
	}

	if err := s.auth.Authenticate(user, password); err != nil {
		s.log.Warn("auth: request rejected", mlog.String("user", user), mlog.Err(err))
		w.Header().Set("WWW-Authenticate", `Basic realm="janus-exporter"`)
		return http.StatusUnauthorized, err
	}

	return http.StatusOK, nil
}

func (s *Service) wsAuthHandler(connID string, w http.ResponseWriter, r *http.Request) error {
	if code, err := s.authHandler(w, r); err != nil {
		s.log.Debug("ws: upgrade refused", mlog.String("connID", connID))
		http.Error(w, err.Error(), code)
		return err
	}
	return nil
}

func (s *Service) getRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprintln(w, "Janus events server, this page does nothing, Janus must POST to /event")
}

func (s *Service) getMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "up")
}

func (s *Service) postEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if code, err := s.authHandler(w, r); err != nil {
		s.writeError(w, code, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.apiServer.MaxBodySize()))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read body: %w", err))
		return
	}

	res, err := s.ingest(data)
	if errors.Is(err, events.ErrInvalidBatch) {
		s.log.Debug("api: invalid batch", mlog.Err(err))
		s.writeError(w, http.StatusBadRequest, err)
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Service) getAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	if code, err := s.authHandler(w, r); err != nil {
		s.writeError(w, code, err)
		return
	}

	if s.journal == nil {
		s.writeError(w, http.StatusNotFound, errors.New("journal is disabled"))
		return
	}

	limit := defaultAnomaliesLimit
	if val := r.URL.Query().Get("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 || n > maxAnomaliesLimit {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit value: should be in the range (0, %d]", maxAnomaliesLimit))
			return
		}
		limit = n
	}

	entries, err := s.journal.list(limit)
	if err != nil {
		s.log.Error("failed to list journal entries", mlog.Err(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entries)
}
