// Package monitor runs a monitoring session against one organization of the
// alarm backend: it polls the live feed, classifies every reading and turns
// classification edges into notifications.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/alerter"
	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/scadawatch/scadawatch/internal/metrics"
	"github.com/scadawatch/scadawatch/internal/normalizer"
	"github.com/scadawatch/scadawatch/internal/poller"
	"github.com/scadawatch/scadawatch/internal/types"
)

const alarmsQueryKey = "scada-alarms"

// Backend is the part of the backend client a session needs.
type Backend interface {
	FetchAlarms(ctx context.Context) (types.ScadaFeed, error)
	UpdateStatus(ctx context.Context, id string, status types.Status, message string) (types.RawRecord, error)
	SetOrganization(org string)
	Organization() string
}

// Options configures a session.
type Options struct {
	Organization  string
	Operator      string // recorded as acknowledgedBy/resolvedBy on local updates
	Interval      time.Duration
	Cache         *cache.Cache
	Metrics       *metrics.Metrics
	EngineOptions []alerter.Option
	Now           func() time.Time
}

// Session is one monitoring session. Transition memory lives as long as the
// session and is cleared on organization switch.
type Session struct {
	backend  Backend
	engine   *alerter.Engine
	alarms   *poller.Query[types.ScadaFeed]
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	operator string
	now      func() time.Time

	// procMu serializes snapshot processing with organization switches and
	// local status changes. gen is bumped by both; a snapshot requested
	// under an older generation is discarded.
	procMu sync.Mutex
	gen    atomic.Uint64

	mu      sync.RWMutex
	current []types.Alarm
	healthy bool
}

// NewSession creates a session with a fresh transition store.
func NewSession(backend Backend, dispatcher alerter.Dispatcher, logger zerolog.Logger, opts Options) *Session {
	s := &Session{
		backend:  backend,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "monitor").Logger(),
		operator: opts.Operator,
		now:      opts.Now,
		healthy:  true,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Organization != "" {
		backend.SetOrganization(opts.Organization)
	}

	engineOpts := append([]alerter.Option{alerter.WithMetrics(opts.Metrics), alerter.WithClock(s.now)}, opts.EngineOptions...)
	s.engine = alerter.NewEngine(alerter.NewTransitionStore(), dispatcher, logger, engineOpts...)

	s.alarms = poller.New(alarmsQueryKey, opts.Interval, s.fetch,
		poller.WithCache[types.ScadaFeed](opts.Cache),
		poller.WithMetrics[types.ScadaFeed](opts.Metrics),
		poller.WithLogger[types.ScadaFeed](logger),
		poller.OnUpdate(s.trackHealth),
	)
	return s
}

// Run polls the alarm feed until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info().
		Str("organization", s.backend.Organization()).
		Msg("Monitoring session started")
	s.alarms.Run(ctx)
	s.engine.Close()
	s.logger.Info().Msg("Monitoring session stopped")
}

// Refresh fetches and processes the feed once.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.alarms.Refetch(ctx)
	return err
}

func (s *Session) fetch(ctx context.Context) (types.ScadaFeed, error) {
	gen := s.gen.Load()
	feed, err := s.backend.FetchAlarms(ctx)
	if err != nil {
		return types.ScadaFeed{}, err
	}
	s.process(ctx, feed, gen)
	return feed, nil
}

// process runs one feed snapshot through normalize, classify and detect.
func (s *Session) process(ctx context.Context, feed types.ScadaFeed, gen uint64) {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	if s.gen.Load() != gen {
		s.logger.Debug().Msg("Discarded feed snapshot requested before a rescope")
		return
	}

	alarms, errs := normalizer.NormalizeFeed(feed)
	for _, err := range errs {
		s.logger.Debug().Err(err).Msg("Dropped malformed alarm record")
	}
	s.metrics.AddDropped(len(errs))

	for _, alarm := range alarms {
		reading, err := normalizer.Reading(alarm)
		if err != nil {
			s.metrics.ObserveEvaluation(false, err)
			s.logger.Debug().Err(err).Str("alarm_id", alarm.ID).Msg("Unreadable alarm value")
			continue
		}
		c, err := evaluator.Classify(reading)
		s.metrics.ObserveEvaluation(c.OutOfRange, err)
		if err != nil {
			// an invalid sample says nothing about the alarm state
			s.logger.Debug().Err(err).Str("alarm_id", alarm.ID).Msg("Reading not classified")
			continue
		}
		s.engine.Observe(ctx, alarm, c)
	}

	s.mu.Lock()
	s.current = alarms
	s.mu.Unlock()
}

func (s *Session) trackHealth(state poller.State[types.ScadaFeed]) {
	s.mu.Lock()
	was := s.healthy
	s.healthy = !state.IsError
	s.mu.Unlock()

	switch {
	case was && state.IsError:
		s.logger.Error().Err(state.Err).Msg("Alarm feed unavailable")
	case !was && !state.IsError:
		s.logger.Info().Msg("Alarm feed reachable again")
	}
}

// SwitchOrganization rescopes the session. Transition memory, pending
// escalations and firing alerts of the previous organization are dropped.
func (s *Session) SwitchOrganization(ctx context.Context, org string) error {
	s.procMu.Lock()
	prev := s.backend.Organization()
	// the new scope is in place before the generation moves, so a fetch
	// that observes the new generation also requests the new organization
	s.backend.SetOrganization(org)
	s.engine.Reset()
	s.gen.Add(1)
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.procMu.Unlock()

	s.logger.Info().Str("from", prev).Str("to", org).Msg("Organization switched")
	s.alarms.Invalidate()
	return s.Refresh(ctx)
}

// UpdateStatus acknowledges or resolves an alarm. The change is applied
// locally first and rolled back if the backend rejects it; on success the
// feed is refetched for confirmation.
func (s *Session) UpdateStatus(ctx context.Context, id string, status types.Status, message string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	s.procMu.Lock()
	s.gen.Add(1)
	s.mu.Lock()
	prev, found := s.replace(id, func(a types.Alarm) types.Alarm {
		return applyStatus(a, status, message, s.operator, s.now())
	})
	s.mu.Unlock()
	s.procMu.Unlock()

	if _, err := s.backend.UpdateStatus(ctx, id, status, message); err != nil {
		if found {
			s.mu.Lock()
			s.replace(id, func(types.Alarm) types.Alarm { return prev })
			s.mu.Unlock()
		}
		s.logger.Error().Err(err).Str("alarm_id", id).Str("status", string(status)).Msg("Status update failed, rolled back")
		return err
	}

	s.logger.Info().Str("alarm_id", id).Str("status", string(status)).Msg("Alarm status updated")
	// snapshots requested while the update was in flight predate it
	s.procMu.Lock()
	s.gen.Add(1)
	s.procMu.Unlock()
	s.alarms.Invalidate()
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Confirmation refetch failed")
	}
	return nil
}

// replace swaps the alarm with the given id. Callers hold mu.
func (s *Session) replace(id string, fn func(types.Alarm) types.Alarm) (types.Alarm, bool) {
	for i := range s.current {
		if s.current[i].ID == id {
			prev := s.current[i]
			s.current[i] = fn(prev)
			return prev, true
		}
	}
	return types.Alarm{}, false
}

func applyStatus(a types.Alarm, status types.Status, message, operator string, now time.Time) types.Alarm {
	a.Status = status
	switch status {
	case types.StatusAcknowledged:
		a.AcknowledgedAt = &now
		a.AcknowledgedBy = operator
	case types.StatusResolved:
		a.ResolvedAt = &now
		a.ResolvedBy = operator
		a.ResolutionMessage = message
	case types.StatusActive:
		a.AcknowledgedAt, a.AcknowledgedBy = nil, ""
		a.ResolvedAt, a.ResolvedBy, a.ResolutionMessage = nil, "", ""
	}
	return a
}

// Alarms returns the latest normalized alarms, including pending local
// status changes.
func (s *Session) Alarms() []types.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Alarm, len(s.current))
	copy(out, s.current)
	return out
}

// Alarm returns one alarm of the latest feed.
func (s *Session) Alarm(id string) (types.Alarm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.current {
		if a.ID == id {
			return a, true
		}
	}
	return types.Alarm{}, false
}

// State returns the feed poll state.
func (s *Session) State() poller.State[types.ScadaFeed] {
	return s.alarms.State()
}

// GetActiveAlerts returns the alerts currently firing.
func (s *Session) GetActiveAlerts() []types.Alert {
	return s.engine.GetActiveAlerts()
}

// Organization returns the organization the session is scoped to.
func (s *Session) Organization() string {
	return s.backend.Organization()
}
