package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/alerter"
	"github.com/scadawatch/scadawatch/internal/client"
	"github.com/scadawatch/scadawatch/internal/metrics"
	"github.com/scadawatch/scadawatch/internal/types"
	"golang.org/x/time/rate"
)

// Backend submits notification requests to the alarm backend.
type Backend interface {
	SendNotification(ctx context.Context, n client.Notification) error
}

// NotificationDeliveryError records a backend submission that failed and was
// replaced by a local notification.
type NotificationDeliveryError struct {
	AlarmID string
	Kind    alerter.EventKind
	Err     error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery failed for %s alarm %s: %v", e.Kind, e.AlarmID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}

// Notifier dispatches alarm events to the backend, falling back to a single
// local notification when the submission fails.
type Notifier struct {
	backend Backend
	local   LocalNotifier
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = m
	}
}

// WithFallbackRate caps local notifications at every interval with the
// given burst. A zero interval leaves them unlimited.
func WithFallbackRate(every time.Duration, burst int) Option {
	return func(n *Notifier) {
		if every <= 0 {
			n.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// New creates a notifier. A nil local notifier logs fallbacks instead.
func New(backend Backend, local LocalNotifier, logger zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		backend: backend,
		local:   local,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
	if n.local == nil {
		n.local = NewLogNotifier(logger)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dispatch submits the event to the backend. Failures are logged and
// answered with one local notification; the backend is never retried and
// nothing is returned to the caller.
func (n *Notifier) Dispatch(ctx context.Context, event alerter.Event) {
	payload := Payload(event)
	err := n.backend.SendNotification(ctx, payload)
	n.metrics.ObserveNotification(err)
	if err == nil {
		n.logger.Debug().
			Str("alarm_id", payload.AlarmID).
			Str("kind", string(event.Kind)).
			Msg("Notification submitted")
		return
	}

	derr := &NotificationDeliveryError{AlarmID: payload.AlarmID, Kind: event.Kind, Err: err}
	n.logger.Error().Err(derr).Str("alarm_id", payload.AlarmID).Msg("Backend notification failed, using local fallback")
	n.fallback(ctx, event)
}

func (n *Notifier) fallback(ctx context.Context, event alerter.Event) {
	if n.limiter != nil && !n.limiter.Allow() {
		n.logger.Warn().Str("alarm_id", event.Alarm.ID).Msg("Local notification rate limited")
		n.metrics.ObserveFallback(errRateLimited)
		return
	}
	title, body := formatMessage(event)
	err := n.local.Notify(ctx, title, body)
	n.metrics.ObserveFallback(err)
	if err != nil {
		n.logger.Error().Err(err).Str("alarm_id", event.Alarm.ID).Msg("Local notification failed")
	}
}

// Payload builds the backend notification body for an event.
func Payload(event alerter.Event) client.Notification {
	alarm := event.Alarm
	return client.Notification{
		Type:        alarm.Type,
		Description: alarm.Description,
		Value:       alarm.Value,
		Unit:        alarm.Unit,
		Severity:    alarm.Severity,
		Details:     details(event),
		AlarmID:     alarm.ID,
	}
}

func details(event alerter.Event) string {
	msg := event.Alert.Message
	switch event.Kind {
	case alerter.EventResolved:
		return msg
	case alerter.EventEscalated:
		return "Still unresolved: " + msg
	}
	if event.Alarm.Zone != "" {
		msg += " (zone " + event.Alarm.Zone + ")"
	}
	return msg
}

// formatMessage reduces an event to a title and body.
func formatMessage(event alerter.Event) (string, string) {
	var emoji string
	switch event.Alarm.Severity {
	case types.SeverityCritical:
		emoji = "🔴"
	case types.SeverityWarning:
		emoji = "⚠️"
	default:
		emoji = "ℹ️"
	}
	if event.Kind == alerter.EventResolved {
		emoji = "🟢"
	}

	title := fmt.Sprintf("%s %s: %s", emoji, strings.ToUpper(string(event.Kind)), event.Alarm.Description)
	body := event.Alert.Message
	if body == "" {
		body = fmt.Sprintf("%s is %s", event.Alarm.Description, event.Alarm.Value)
	}
	return title, body
}
