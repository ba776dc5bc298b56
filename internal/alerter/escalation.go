package alerter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/types"
)

// EscalateFunc is called when a raised alarm is still firing after its
// escalation delay.
type EscalateFunc func(alert types.Alert)

// EscalationManager re-notifies unresolved alarms after a per-severity delay.
type EscalationManager struct {
	log        zerolog.Logger
	delays     map[types.Severity]time.Duration
	onEscalate EscalateFunc
	mu         sync.Mutex
	timers     map[string]context.CancelFunc // alarm id -> cancel func
}

// NewEscalationManager creates an escalation manager. Severities without a
// positive delay never escalate.
func NewEscalationManager(log zerolog.Logger, delays map[types.Severity]time.Duration, onEscalate EscalateFunc) *EscalationManager {
	return &EscalationManager{
		log:        log.With().Str("component", "escalation").Logger(),
		delays:     delays,
		onEscalate: onEscalate,
		timers:     make(map[string]context.CancelFunc),
	}
}

// SetHandler replaces the escalation callback.
func (m *EscalationManager) SetHandler(fn EscalateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEscalate = fn
}

// StartEscalation arms the escalation timer of a raised alarm, replacing any
// pending timer for the same id.
func (m *EscalationManager) StartEscalation(alert types.Alert) {
	delay := m.delays[alert.Severity]
	if delay <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.timers[alert.ID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.timers[alert.ID] = cancel

	m.log.Debug().
		Str("alarm_id", alert.ID).
		Dur("delay", delay).
		Msg("escalation timer started")

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		m.mu.Lock()
		// a newer timer may have replaced this one
		if ctx.Err() != nil {
			m.mu.Unlock()
			return
		}
		delete(m.timers, alert.ID)
		fn := m.onEscalate
		m.mu.Unlock()

		m.log.Warn().
			Str("alarm_id", alert.ID).
			Str("severity", string(alert.Severity)).
			Msg("escalating unresolved alarm")
		if fn != nil {
			fn(alert)
		}
	}()
}

// CancelEscalation cancels the pending escalation of a resolved alarm.
func (m *EscalationManager) CancelEscalation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.timers[id]; ok {
		cancel()
		delete(m.timers, id)
		m.log.Debug().Str("alarm_id", id).Msg("escalation cancelled")
	}
}

// Pending returns the number of armed timers.
func (m *EscalationManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Stop cancels all pending escalation timers.
func (m *EscalationManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, cancel := range m.timers {
		cancel()
		delete(m.timers, key)
	}
}
