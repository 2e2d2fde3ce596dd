// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const (
	receiveChSize = 256
)

type UpgradeCb func(connID string, w http.ResponseWriter, r *http.Request) error

// Server accepts WebSocket connections and forwards everything it reads to
// a single receive channel. The receiving side must keep draining it until
// it gets closed by Close.
type Server struct {
	cfg       ServerConfig
	log       mlog.LoggerIFace
	conns     map[string]*conn
	upgradeCb UpgradeCb
	mut       sync.RWMutex
	closed    bool
	receiveCh chan Message
}

func NewServer(cfg ServerConfig, log mlog.LoggerIFace, opts ...Option) (*Server, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if log == nil {
		return nil, fmt.Errorf("invalid nil logger")
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		conns:     make(map[string]*conn),
		receiveCh: make(chan Message, receiveChSize),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return s, nil
}

func (s *Server) ReceiveCh() <-chan Message {
	return s.receiveCh
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := newID()

	if s.upgradeCb != nil {
		if err := s.upgradeCb(connID, w, r); err != nil {
			s.log.Debug("ws: upgrade rejected", mlog.String("connID", connID), mlog.Err(err))
			return
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  s.cfg.ReadBufferSize,
		WriteBufferSize: s.cfg.WriteBufferSize,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("ws: failed to upgrade connection", mlog.Err(err))
		return
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	conn := newConn(connID, ws)
	defer conn.Close()
	defer close(conn.closeCh)
	if !s.addConn(conn) {
		s.log.Debug("ws: server is closing, dropping connection", mlog.String("connID", connID))
		return
	}

	s.receiveCh <- newOpenMessage(connID)

	defer s.removeConn(conn.id)
	defer func() {
		s.receiveCh <- newCloseMessage(connID)
	}()

	go s.pinger(conn)

	readTimeout := 2 * s.cfg.PingInterval
	extendDeadline := func() error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	}
	ws.SetPongHandler(func(string) error {
		return extendDeadline()
	})

	for {
		if err := extendDeadline(); err != nil {
			s.log.Error("ws: failed to set read deadline", mlog.String("connID", connID), mlog.Err(err))
			return
		}

		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("ws: read failed", mlog.String("connID", connID), mlog.Err(err))
			}
			return
		}

		var msgType MessageType
		switch mt {
		case websocket.TextMessage:
			msgType = TextMessage
		case websocket.BinaryMessage:
			msgType = BinaryMessage
		default:
			continue
		}

		s.receiveCh <- Message{
			ConnID: connID,
			Type:   msgType,
			Data:   data,
		}
	}
}

func (s *Server) pinger(c *conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				s.log.Debug("ws: failed to send ping", mlog.String("connID", c.id), mlog.Err(err))
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// Close drops all connections and closes the receive channel once every
// connection has delivered its close message.
func (s *Server) Close() {
	s.mut.Lock()
	if s.closed {
		s.mut.Unlock()
		return
	}
	s.closed = true
	s.mut.Unlock()

	for _, conn := range s.getConns() {
		if err := conn.Close(); err != nil {
			s.log.Error("ws: failed to close conn", mlog.Err(err))
		}
		<-conn.closeCh
	}
	close(s.receiveCh)
}
