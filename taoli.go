// Package taoli supervises the taoli monitoring application: the Streamlit
// web dashboard and the optional background CLI monitor. It starts, stops,
// restarts and reports on those two processes, tracking them through
// pidfiles with process-table discovery as fallback.
package taoli

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fcrre26/taoli/internal/history"
	"github.com/fcrre26/taoli/internal/logger"
	"github.com/fcrre26/taoli/internal/manager"
	"github.com/fcrre26/taoli/internal/service"
)

// Re-export core types for external consumers. Aliases keep conversions
// zero-cost.

type Kind = service.Kind

const (
	Web        = service.Web
	CLIMonitor = service.CLIMonitor
)

type Settings = service.Settings

type Status = manager.Status

type Event = history.Event

// Supervisor is a thin facade over internal/manager for embedding.
type Supervisor struct {
	inner   *manager.Manager
	journal *history.SQLiteSink
}

// New builds a Supervisor from settings. The action journal is opened
// best-effort: the supervisor works without it.
func New(settings Settings, log *slog.Logger) *Supervisor {
	m := manager.New(settings, log)
	s := &Supervisor{inner: m}
	if sink, err := history.NewSQLite(settings.JournalPath()); err == nil {
		s.journal = sink
		m.SetJournal(sink)
	} else {
		log.Debug("action journal unavailable", "error", err)
	}
	return s
}

// NewLogger builds the supervisor's console+file logger for settings.
func NewLogger(settings Settings, debug bool) *slog.Logger {
	return logger.New(logger.Config{Path: filepath.Join(settings.LogDir(), "taolictl.log")}, debug)
}

func (s *Supervisor) Start(k Kind) error         { return s.inner.Start(k) }
func (s *Supervisor) Stop(k Kind) error          { return s.inner.Stop(k) }
func (s *Supervisor) Restart(k Kind) error       { return s.inner.Restart(k) }
func (s *Supervisor) StatusOf(k Kind) Status     { return s.inner.StatusOf(k) }
func (s *Supervisor) StatusAll() map[Kind]Status { return s.inner.StatusAll() }
func (s *Supervisor) LogPath(k Kind) string      { return s.inner.LogPath(k) }
func (s *Supervisor) Settings() Settings         { return s.inner.Settings() }

// Recent replays the newest journal entries, most recent first.
func (s *Supervisor) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.inner.Recent(ctx, limit)
}

// Close releases the journal handle.
func (s *Supervisor) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}
