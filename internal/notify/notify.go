// Package notify formats new match events and delivers them to the
// configured sinks (Discord webhook, websocket relay, log).
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"matchwatch/internal/matchlog"
)

// Header is the first line of every event message
const Header = "Detected the following new events:"

// Notification is one batch of new events for a single match
type Notification struct {
	ID       string              `json:"id"`
	MatchURL string              `json:"match_url"`
	Events   []matchlog.LogEntry `json:"events"`
	Content  string              `json:"content"`
	SentAt   time.Time           `json:"sent_at"`
}

// Sink delivers a notification to one destination
type Sink interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// DeliveryError reports that a sink could not deliver a notification.
// The state that produced the notification is not rolled back.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// FormatEvent renders one event as "time , player , action , details , matchURL"
func FormatEvent(e matchlog.LogEntry, matchURL string) string {
	return strings.Join([]string{e.Time, e.Player, e.Action, e.Details, matchURL}, " , ")
}

// FormatEvents renders the full message for a diff: the header line followed
// by one line per event in diff order
func FormatEvents(matchURL string, events []matchlog.LogEntry) string {
	var b strings.Builder
	b.WriteString(Header)
	for _, e := range events {
		b.WriteByte('\n')
		b.WriteString(FormatEvent(e, matchURL))
	}
	return b.String()
}

// Dispatcher fans a notification out to every sink
type Dispatcher struct {
	sinks []Sink
	now   func() time.Time
	log   zerolog.Logger
}

// NewDispatcher creates a dispatcher. With no sinks, notifications go to the log.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	if len(sinks) == 0 {
		sinks = []Sink{NewLogSink()}
	}
	return &Dispatcher{
		sinks: sinks,
		now:   time.Now,
		log:   zlog.With().Str("component", "notify").Logger(),
	}
}

// Sinks returns the configured sink names
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// NotifyEvents sends one message describing events to every sink.
// Every sink is attempted; failures are joined as *DeliveryError values.
func (d *Dispatcher) NotifyEvents(ctx context.Context, matchURL string, events []matchlog.LogEntry) error {
	if len(events) == 0 {
		return nil
	}

	n := &Notification{
		ID:       uuid.Must(uuid.NewV7()).String(),
		MatchURL: matchURL,
		Events:   events,
		Content:  FormatEvents(matchURL, events),
		SentAt:   d.now().UTC(),
	}

	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, n); err != nil {
			d.log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("notification", n.ID).
				Str("url", matchURL).
				Msg("delivery failed")
			errs = append(errs, &DeliveryError{Sink: sink.Name(), Err: err})
			continue
		}
		d.log.Info().
			Str("sink", sink.Name()).
			Str("notification", n.ID).
			Str("url", matchURL).
			Int("events", len(events)).
			Msg("notification sent")
	}
	return errors.Join(errs...)
}
