package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

// LogSink writes every event as a structured log line. It is the audit
// channel of last resort when no push transport is connected.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, event models.SessionEvent) error {
	s.logger.Info().
		Str("event_id", event.ID).
		Int64("session_id", event.SessionID).
		Str("type", event.Type).
		Int64("actor_id", event.ActorID).
		Ints64("recipients", event.Recipients).
		Str("note", event.Note).
		Msg("session event")
	return nil
}
