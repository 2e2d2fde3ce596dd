// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

// Package engine reconciles the Janus event stream into live state and
// drives the matching metrics.
//
// An Engine processes one event at a time and performs no locking. Callers
// receiving events concurrently must serialize calls to Process and Reject.
package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mattermost/janus-exporter/service/events"
	"github.com/mattermost/janus-exporter/service/state"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"golang.org/x/time/rate"
)

// AnomalyHook is called for every anomaly along with the raw event that
// caused it, if any.
type AnomalyHook func(a state.Anomaly, raw json.RawMessage)

type Option func(e *Engine)

// WithClock overrides the function used to get the current time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithAnomalyHook(hook AnomalyHook) Option {
	return func(e *Engine) {
		e.anomalyHook = hook
	}
}

type Engine struct {
	cfg         Config
	store       *state.Store
	metrics     Metrics
	log         mlog.LoggerIFace
	limiter     *rate.Limiter
	now         func() time.Time
	anomalyHook AnomalyHook

	// current is the event being processed.
	current *events.Event
}

func New(cfg Config, metrics Metrics, log mlog.LoggerIFace, opts ...Option) (*Engine, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if metrics == nil {
		return nil, fmt.Errorf("invalid nil metrics")
	}
	if log == nil {
		return nil, fmt.Errorf("invalid nil logger")
	}

	e := &Engine{
		cfg:     cfg,
		metrics: metrics,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.AnomalyLogRate), cfg.AnomalyLogBurst),
		now:     time.Now,
	}
	e.store = state.New(state.WithAnomalyFunc(e.reportAnomaly))

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

type eventHandler func(e *Engine, ev events.Event)

var eventHandlers = map[events.Type]eventHandler{
	events.TypeSession:   (*Engine).handleSession,
	events.TypeHandle:    (*Engine).handleHandle,
	events.TypeJSEP:      (*Engine).handleJSEP,
	events.TypeWebRTC:    (*Engine).handleWebRTC,
	events.TypeMedia:     (*Engine).handleMedia,
	events.TypePlugin:    (*Engine).handleData,
	events.TypeTransport: (*Engine).handleData,
	events.TypeCore:      (*Engine).handleCore,
}

// Process applies a single event.
func (e *Engine) Process(ev events.Event) {
	e.current = &ev
	defer func() {
		e.current = nil
	}()

	handler, ok := eventHandlers[ev.Type]
	if !ok {
		e.anomaly(state.AnomalyUnknownType, "unsupported event type", ev.Type)
		return
	}
	handler(e, ev)
}

// Reject reports an event that could not be decoded.
func (e *Engine) Reject(raw json.RawMessage, err error) {
	e.current = &events.Event{Raw: raw}
	defer func() {
		e.current = nil
	}()
	e.anomaly(state.AnomalyMalformed, fmt.Sprintf("rejected event: %s", err.Error()), "")
}

// Snapshot returns the current entity counts.
func (e *Engine) Snapshot() state.Snapshot {
	return e.store.Snapshot()
}

// CheckInvariants returns the state invariants currently violated.
func (e *Engine) CheckInvariants() []error {
	return e.store.CheckInvariants()
}

func (e *Engine) anomaly(kind state.AnomalyKind, reason string, key any) {
	e.reportAnomaly(state.Anomaly{
		Kind:   kind,
		Reason: reason,
		Key:    fmt.Sprint(key),
	})
}

func (e *Engine) malformed(err error) {
	e.anomaly(state.AnomalyMalformed, err.Error(), "")
}

func (e *Engine) reportAnomaly(a state.Anomaly) {
	e.metrics.IncAnomalies(string(a.Kind))

	var raw json.RawMessage
	if e.current != nil {
		raw = e.current.Raw
	}

	if e.limiter.Allow() {
		fields := []mlog.Field{
			mlog.String("kind", string(a.Kind)),
			mlog.String("key", a.Key),
		}
		if e.current != nil && e.current.Type != 0 {
			fields = append(fields,
				mlog.Int("type", int(e.current.Type)),
				mlog.Uint("sessionID", e.current.SessionID),
				mlog.Uint("handleID", e.current.HandleID),
			)
		}
		e.log.Warn("engine: "+a.Reason, fields...)
	}

	if e.anomalyHook != nil {
		e.anomalyHook(a, raw)
	}
}

// sessionMinutes returns the whole minutes elapsed since the given time,
// clamped to [0, UserSessionMaxMinutes].
func (e *Engine) sessionMinutes(since time.Time) float64 {
	minutes := math.Round(e.now().Sub(since).Minutes())
	return math.Max(0, math.Min(minutes, float64(e.cfg.UserSessionMaxMinutes)))
}

func (e *Engine) logFields(ev events.Event) []mlog.Field {
	return []mlog.Field{
		mlog.String("type", ev.Type.String()),
		mlog.Uint("sessionID", ev.SessionID),
		mlog.Uint("handleID", ev.HandleID),
	}
}
