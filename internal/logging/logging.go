// Package logging provides structured, per-request logging built on
// zerolog.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"rubyshd/internal/model"
)

// Setup builds the process-wide logger. dev switches to a human-readable
// console writer at debug level; production defaults to JSON at info level.
func Setup(dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)
	}
	return logger
}

// LogRequest records one completed request with the fields the pipeline
// needs for observability: peer address, protocol, identity, requested
// path and the outcome status slug. connID is the per-connection
// correlation ID tlsserver.ConnectionID extracted from the request's
// context; an empty string omits the field (for callers whose context
// carries no connection ID).
func LogRequest(logger zerolog.Logger, req model.Request, status model.Status, duration time.Duration, connID string) {
	event := logger.Info()
	if status == model.StatusOtherServerError {
		event = logger.Error()
	}
	if connID != "" {
		event = event.Str("conn_id", connID)
	}
	event.
		Str("peer", req.PeerAddr.String()).
		Str("protocol", req.Protocol.String()).
		Str("identity", req.PeerIdentity.String()).
		Str("path", req.Path).
		Str("host", req.Host).
		Str("status", status.String()).
		Dur("duration", duration).
		Msg("request served")
}
