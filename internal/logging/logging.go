// Package logging builds the process-wide zerolog logger and a JSONL
// logger for audit events. No caller in this repository writes attempt or
// job-lifecycle events to either logger: attempts are persisted only to
// each job's attempts.json, and NewAuditLog is not wired into the service.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the base logger. When pretty is true, output is a
// human-readable console writer (for local/dev use); otherwise it emits
// one JSON object per line, suitable for shipping to a log aggregator or
// tailing as the audit trail.
func New(pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// NewAuditLog builds a dedicated logger for append-only audit events
// (attempts, job transitions), always JSONL regardless of the primary
// logger's pretty setting, writing to path if non-empty or stdout
// otherwise.
func NewAuditLog(path string) (zerolog.Logger, error) {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		out = f
	}
	return zerolog.New(out).With().Timestamp().Logger(), nil
}
