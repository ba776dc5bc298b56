package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	shoutrrrtypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
)

var errRateLimited = errors.New("local notification rate limited")

// LocalNotifier delivers a reduced title/body notification on this host.
type LocalNotifier interface {
	Notify(ctx context.Context, title, body string) error
}

// LogNotifier writes local notifications to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-only local notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "local-notifier").Logger()}
}

// Notify implements LocalNotifier.
func (l *LogNotifier) Notify(_ context.Context, title, body string) error {
	l.logger.Warn().Str("title", title).Str("body", body).Msg("Local notification")
	return nil
}

type sender interface {
	Send(message string, params *shoutrrrtypes.Params) []error
}

// ShoutrrrNotifier sends local notifications through a shoutrrr service URL
// (ntfy, gotify, a desktop gateway).
type ShoutrrrNotifier struct {
	sender sender
}

// NewShoutrrrNotifier creates a notifier for one or more shoutrrr URLs.
func NewShoutrrrNotifier(urls ...string) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, errors.New("shoutrrr: no service url")
	}
	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("shoutrrr: %w", err)
	}
	return &ShoutrrrNotifier{sender: router}, nil
}

// Notify implements LocalNotifier.
func (s *ShoutrrrNotifier) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := shoutrrrtypes.Params{"title": title}
	var errs []error
	for _, err := range s.sender.Send(body, &params) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
