package server

import (
	"github.com/rs/zerolog"
	"github.com/tablepilot/auth-service/auth"
)

var _ auth.EventLogger = (*ZerologEventLogger)(nil)

// ZerologEventLogger writes security events as structured log records.
// Storage, alerting and retention happen downstream of the log pipeline.
type ZerologEventLogger struct {
	logger zerolog.Logger
}

func NewZerologEventLogger(logger zerolog.Logger) *ZerologEventLogger {
	return &ZerologEventLogger{logger: logger}
}

func (l *ZerologEventLogger) Log(event auth.Event) {
	e := l.logger.Info().
		Str("event", string(event.Kind)).
		Str("actor", event.ActorID).
		Str("remote", event.RemoteAddr).
		Time("at", event.Timestamp)
	if event.Role != "" {
		e = e.Str("role", string(event.Role))
	}
	for k, v := range event.Details {
		e = e.Str("detail_"+k, v)
	}
	e.Msg("security event")
}
