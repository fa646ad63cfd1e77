// Package report implements the log-backed pass reporter.
package report

import (
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/core"
)

// Logger emits pass summaries and per-project diagnostics through zerolog.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Report(r *core.RunReport) {
	event := l.log.Info()
	if r.Aborted {
		event = l.log.Warn()
	}
	event.
		Str("pass", r.ID).
		Time("started", r.StartedAt).
		Dur("duration", r.FinishedAt.Sub(r.StartedAt)).
		Int("total", r.Total).
		Int("no_change", r.NoChange).
		Int("new_versions", r.NewVersions).
		Int("fetch_errors", r.FetchErrors).
		Int("parse_errors", r.ParseErrors).
		Int("storage_errors", r.StorageErrors).
		Bool("aborted", r.Aborted).
		Msg("pass report")
}

func (l *Logger) LogDiagnostic(projectID int64, kind, detail string) {
	l.log.Debug().
		Int64("project_id", projectID).
		Str("kind", kind).
		Msg(detail)
}
