// Package notify fans textual alerts out to configured sinks.
// Delivery is best effort: one sink failing never blocks the others
// or the caller.
package notify

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/panel-tools/checkin/internal/config"
)

// Notifier delivers one message to one sink.
type Notifier interface {
	Send(title, message string) error
}

// Alerter is the minimal fan-out surface consumers depend on.
type Alerter interface {
	Notify(title, message string)
}

var _ Alerter = (*Dispatcher)(nil)

// Dispatcher delivers each alert to every configured sink.
type Dispatcher struct {
	sinks []Notifier
	log   zerolog.Logger
}

// NewDispatcher builds sinks from config. Unknown sink types are
// skipped with a warning.
func NewDispatcher(cfgs []config.NotifierConfig, logger zerolog.Logger) *Dispatcher {
	client := &http.Client{Timeout: 15 * time.Second}

	dispatcher := &Dispatcher{log: logger}
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "ntfy":
			dispatcher.sinks = append(dispatcher.sinks, NewNtfyNotifier(cfg.URL, client))
		case "discord":
			dispatcher.sinks = append(dispatcher.sinks, NewDiscordNotifier(cfg.URL, client))
		default:
			logger.Warn().Str("type", cfg.Type).Msg("Unknown notifier type, skipping")
		}
	}
	return dispatcher
}

// NewDispatcherWithSinks wires pre-built sinks, primarily for tests.
func NewDispatcherWithSinks(logger zerolog.Logger, sinks ...Notifier) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: logger}
}

// Notify sends the alert to every sink, logging failures.
func (d *Dispatcher) Notify(title, message string) {
	for _, sink := range d.sinks {
		if err := sink.Send(title, message); err != nil {
			d.log.Error().Err(err).Str("title", title).Msg("Failed to send notification")
			continue
		}
		d.log.Info().Str("title", title).Msg("Notification sent")
	}
}

// Sinks reports how many sinks are configured.
func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}
