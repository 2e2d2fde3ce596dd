// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"github.com/mattermost/janus-exporter/service/events"
	"github.com/mattermost/janus-exporter/service/ws"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

// IngestResult summarizes the processing of a batch.
type IngestResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// ingest applies a batch of events in order. An error is returned only if
// the batch as a whole can't be decoded, single events that fail to parse
// are rejected individually.
func (s *Service) ingest(data []byte) (IngestResult, error) {
	var res IngestResult

	items, err := events.Flatten(data)
	if err != nil {
		return res, err
	}

	s.engineMut.Lock()
	defer s.engineMut.Unlock()

	for _, item := range items {
		ev, err := events.Parse(item)
		if err != nil {
			s.engine.Reject(item, err)
			res.Rejected++
			continue
		}
		s.engine.Process(ev)
		res.Accepted++
	}

	return res, nil
}

func (s *Service) wsReader() {
	defer close(s.wsDoneCh)

	for msg := range s.wsServer.ReceiveCh() {
		switch msg.Type {
		case ws.OpenMessage:
			s.log.Debug("ws: producer connected", mlog.String("connID", msg.ConnID))
		case ws.CloseMessage:
			s.log.Debug("ws: producer disconnected", mlog.String("connID", msg.ConnID))
		case ws.TextMessage:
			res, err := s.ingest(msg.Data)
			if err != nil {
				s.log.Warn("ws: failed to ingest batch", mlog.String("connID", msg.ConnID), mlog.Err(err))
				continue
			}
			if res.Rejected > 0 {
				s.log.Debug("ws: batch partially rejected",
					mlog.String("connID", msg.ConnID),
					mlog.Int("accepted", res.Accepted),
					mlog.Int("rejected", res.Rejected))
			}
		default:
			s.log.Warn("ws: unexpected message", mlog.String("connID", msg.ConnID),
				mlog.String("type", msg.Type.String()))
		}
	}
}
