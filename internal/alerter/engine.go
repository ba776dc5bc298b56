package alerter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/scadawatch/scadawatch/internal/metrics"
	"github.com/scadawatch/scadawatch/internal/types"
)

// EventKind names the alarm lifecycle edge being notified.
type EventKind string

const (
	EventRaised    EventKind = "raised"
	EventResolved  EventKind = "resolved"
	EventEscalated EventKind = "escalated"
)

// Event is emitted on a detected transition.
type Event struct {
	Kind           EventKind
	Alarm          types.Alarm
	Classification evaluator.Classification
	Alert          types.Alert
	At             time.Time
}

// Dispatcher delivers events. Implementations must not block for long: they
// run inside the monitoring tick.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Engine turns classifications into raised/resolved events and keeps the set
// of firing alerts.
type Engine struct {
	store      *TransitionStore
	dispatcher Dispatcher
	flap       *FlapDetector
	escalation *EscalationManager
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time

	activeAlerts map[string]*types.Alert
	mu           sync.RWMutex
}

// Option configures the engine.
type Option func(*Engine)

// WithFlapDetector suppresses notifications of flapping alarms.
func WithFlapDetector(f *FlapDetector) Option {
	return func(e *Engine) {
		e.flap = f
	}
}

// WithEscalation re-notifies alarms that stay raised.
func WithEscalation(m *EscalationManager) Option {
	return func(e *Engine) {
		e.escalation = m
	}
}

// WithMetrics instruments the engine.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over an injected transition store.
func NewEngine(store *TransitionStore, dispatcher Dispatcher, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		dispatcher:   dispatcher,
		logger:       logger.With().Str("component", "alerter").Logger(),
		now:          time.Now,
		activeAlerts: make(map[string]*types.Alert),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.escalation != nil {
		e.escalation.SetHandler(e.escalate)
	}
	return e
}

// Observe records a classification of an alarm and dispatches an event when
// it crosses into or out of the out-of-range state.
func (e *Engine) Observe(ctx context.Context, alarm types.Alarm, c evaluator.Classification) Transition {
	t := e.store.Detect(alarm.ID, c)
	switch t {
	case Entered:
		e.raise(ctx, alarm, c)
	case Left:
		e.resolve(ctx, alarm, c)
	default:
		if e.flap.CheckStable(alarm.ID) {
			e.logger.Info().Str("alarm_id", alarm.ID).Msg("Notifications resumed after flapping")
		}
	}
	return t
}

func (e *Engine) raise(ctx context.Context, alarm types.Alarm, c evaluator.Classification) {
	now := e.now()
	alert := &types.Alert{
		ID:          alarm.ID,
		Description: alarm.Description,
		Type:        alarm.Type,
		Zone:        alarm.Zone,
		Severity:    alarm.Severity,
		State:       types.AlertFiring,
		FiredAt:     now,
		Value:       alarm.Value,
		SetPoint:    alarm.SetPoint,
		Unit:        alarm.Unit,
		Message:     raisedMessage(alarm),
	}

	e.mu.Lock()
	e.activeAlerts[alarm.ID] = alert
	active := len(e.activeAlerts)
	e.mu.Unlock()

	e.metrics.ObserveTransition(string(EventRaised))
	e.metrics.SetActiveAlerts(active)

	e.logger.Info().
		Str("alarm_id", alarm.ID).
		Str("description", alarm.Description).
		Str("severity", string(alarm.Severity)).
		Str("value", alarm.Value).
		Msg("Alarm raised")

	if e.escalation != nil {
		e.escalation.StartEscalation(*alert)
	}
	e.emit(ctx, Event{Kind: EventRaised, Alarm: alarm, Classification: c, Alert: *alert, At: now})
}

func (e *Engine) resolve(ctx context.Context, alarm types.Alarm, c evaluator.Classification) {
	now := e.now()

	e.mu.Lock()
	alert, exists := e.activeAlerts[alarm.ID]
	if !exists {
		alert = &types.Alert{
			ID:          alarm.ID,
			Description: alarm.Description,
			Type:        alarm.Type,
			Zone:        alarm.Zone,
			Severity:    alarm.Severity,
			FiredAt:     now,
		}
	}
	delete(e.activeAlerts, alarm.ID)
	active := len(e.activeAlerts)
	e.mu.Unlock()

	resolved := *alert
	resolved.State = types.AlertResolved
	resolved.ResolvedAt = &now
	resolved.Value = alarm.Value
	duration := now.Sub(alert.FiredAt)
	resolved.Message = fmt.Sprintf("Recovered: %s (was out of range for %s)", alarm.Description, duration.Round(time.Second))

	e.metrics.ObserveTransition(string(EventResolved))
	e.metrics.SetActiveAlerts(active)

	e.logger.Info().
		Str("alarm_id", alarm.ID).
		Dur("duration", duration).
		Msg("Alarm resolved")

	if e.escalation != nil {
		e.escalation.CancelEscalation(alarm.ID)
	}
	e.emit(ctx, Event{Kind: EventResolved, Alarm: alarm, Classification: c, Alert: resolved, At: now})
}

func (e *Engine) escalate(alert types.Alert) {
	e.mu.RLock()
	current, firing := e.activeAlerts[alert.ID]
	e.mu.RUnlock()
	if !firing || !current.FiredAt.Equal(alert.FiredAt) {
		return
	}
	alarm := types.Alarm{
		ID:          alert.ID,
		Description: alert.Description,
		Type:        alert.Type,
		Zone:        alert.Zone,
		Severity:    alert.Severity,
		Status:      types.StatusActive,
		Value:       alert.Value,
		SetPoint:    alert.SetPoint,
		Unit:        alert.Unit,
		Timestamp:   alert.FiredAt,
	}
	e.emit(context.Background(), Event{Kind: EventEscalated, Alarm: alarm, Alert: alert, At: e.now()})
}

func (e *Engine) emit(ctx context.Context, event Event) {
	if event.Kind != EventEscalated {
		if flapping, started := e.flap.RecordChange(event.Alarm.ID); flapping {
			if started {
				e.logger.Warn().Str("alarm_id", event.Alarm.ID).Msg("Alarm flapping, notifications suppressed")
			}
			e.metrics.ObserveSuppressed()
			return
		}
	}
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(ctx, event)
}

// Reset forgets all transition memory, pending escalations, flap history and
// firing alerts.
func (e *Engine) Reset() {
	e.store.Reset()
	if e.escalation != nil {
		e.escalation.Stop()
	}
	e.flap.Reset()

	e.mu.Lock()
	e.activeAlerts = make(map[string]*types.Alert)
	e.mu.Unlock()
	e.metrics.SetActiveAlerts(0)
}

// Close stops background timers.
func (e *Engine) Close() {
	if e.escalation != nil {
		e.escalation.Stop()
	}
}

// GetActiveAlerts returns all firing alerts, oldest first.
func (e *Engine) GetActiveAlerts() []types.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	alerts := make([]types.Alert, 0, len(e.activeAlerts))
	for _, alert := range e.activeAlerts {
		alerts = append(alerts, *alert)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].FiredAt.Equal(alerts[j].FiredAt) {
			return alerts[i].ID < alerts[j].ID
		}
		return alerts[i].FiredAt.Before(alerts[j].FiredAt)
	})
	return alerts
}

func raisedMessage(alarm types.Alarm) string {
	if alarm.Partition == types.PartitionBinary {
		return fmt.Sprintf("%s is %s (expected %s)", alarm.Description, alarm.Value, alarm.SetPoint)
	}
	limits := ""
	if alarm.LowLimit != nil {
		limits += fmt.Sprintf(" low %g", *alarm.LowLimit)
	}
	if alarm.HighLimit != nil {
		limits += fmt.Sprintf(" high %g", *alarm.HighLimit)
	}
	unit := ""
	if alarm.Unit != "" {
		unit = " " + alarm.Unit
	}
	return fmt.Sprintf("%s at %s%s outside limits%s", alarm.Description, alarm.Value, unit, limits)
}
