// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsConnClosed int32 = iota
	wsConnOpen
	wsConnClosing
)

// Client is a send-only WebSocket client. Incoming messages other than
// control frames are discarded.
type Client struct {
	cfg       ClientConfig
	ws        *websocket.Conn
	writeMut  sync.Mutex
	errorCh   chan error
	closeCh   chan struct{}
	wg        sync.WaitGroup
	connState int32
}

// NewClient dials the configured URL and returns a connected client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	header := http.Header{}
	if cfg.Username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		header.Set("Authorization", "Basic "+token)
	}

	ws, resp, err := websocket.DefaultDialer.Dial(cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	c := &Client{
		cfg:     cfg,
		ws:      ws,
		errorCh: make(chan error, 1),
		closeCh: make(chan struct{}),
	}

	c.setConnState(wsConnOpen)
	c.wg.Add(1)
	go c.connReader()

	return c, nil
}

// connReader keeps reading so that pings get answered and a closed
// connection is noticed.
func (c *Client) connReader() {
	defer func() {
		close(c.closeCh)
		c.wg.Done()
	}()

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.sendError(fmt.Errorf("failed to read message: %w", err))
			return
		}
	}
}

func (c *Client) sendError(err error) {
	if c.getConnState() != wsConnOpen {
		return
	}
	select {
	case c.errorCh <- err:
	default:
	}
}

// Send writes data as a single text message.
func (c *Client) Send(data []byte) error {
	if c.getConnState() != wsConnOpen {
		return fmt.Errorf("failed to send message: connection is closed")
	}

	c.writeMut.Lock()
	defer c.writeMut.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWaitTime)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// ErrorCh returns a channel that is used to receive client errors
// asynchronously.
func (c *Client) ErrorCh() <-chan error {
	return c.errorCh
}

// Done returns a channel that's closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.closeCh
}

// Close sends a close frame and closes the underlying connection.
func (c *Client) Close() error {
	if c.getConnState() != wsConnOpen {
		return nil
	}
	c.setConnState(wsConnClosing)

	c.writeMut.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWaitTime))
	c.writeMut.Unlock()

	err := c.ws.Close()
	c.wg.Wait()
	c.setConnState(wsConnClosed)
	return err
}

func (c *Client) setConnState(st int32) {
	atomic.StoreInt32(&c.connState, st)
}

func (c *Client) getConnState() int32 {
	return atomic.LoadInt32(&c.connState)
}
