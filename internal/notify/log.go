package notify

import (
	"context"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// LogSink writes notifications to the structured log.
// Used when no remote sink is configured.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink that logs at info level
func NewLogSink() *LogSink {
	return &LogSink{log: zlog.With().Str("component", "notify.log").Logger()}
}

// Name identifies the sink in delivery errors
func (s *LogSink) Name() string { return "log" }

// Send logs the notification content; it never fails
func (s *LogSink) Send(ctx context.Context, n *Notification) error {
	s.log.Info().
		Str("notification", n.ID).
		Str("url", n.MatchURL).
		Int("events", len(n.Events)).
		Msg(n.Content)
	return nil
}
