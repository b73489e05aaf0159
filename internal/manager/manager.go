// Package manager orchestrates pidfiles, process discovery, the process
// controller and the port guard into the start/stop/restart/status
// operations for the two managed services.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fcrre26/taoli/internal/bootstrap"
	"github.com/fcrre26/taoli/internal/detector"
	"github.com/fcrre26/taoli/internal/history"
	"github.com/fcrre26/taoli/internal/pidfile"
	"github.com/fcrre26/taoli/internal/portguard"
	"github.com/fcrre26/taoli/internal/process"
	"github.com/fcrre26/taoli/internal/service"
)

// ErrAlreadyRunning refuses a start when the service already has a live
// process. A normal outcome, surfaced as a warning with exit 1.
var ErrAlreadyRunning = errors.New("already running")

// Status is the transient state of one service, computed on demand and
// never persisted.
type Status struct {
	Kind      service.Kind
	Running   bool
	PID       int
	Port      int // 0 when the service does not listen
	PortBound bool
	LogFile   string
}

const (
	defaultStopWait = 10 * time.Second
	portFreeSettle  = time.Second
	restartPause    = 2 * time.Second
)

// Manager owns no process state: every decision re-resolves the PID from the
// pidfile (authoritative) or the process table (fallback).
type Manager struct {
	settings service.Settings
	descs    map[service.Kind]service.Descriptor
	ctl      process.Controller
	guard    portguard.Guard
	journal  history.Sink
	log      *slog.Logger

	stopWait time.Duration
	pause    time.Duration

	// preflight runs the toolchain checks before a start; replaced in tests.
	preflight func(k service.Kind) error
}

func New(settings service.Settings, log *slog.Logger) *Manager {
	m := &Manager{
		settings: settings,
		descs:    make(map[service.Kind]service.Descriptor),
		guard:    portguard.Guard{Logger: log},
		log:      log,
		stopWait: defaultStopWait,
		pause:    restartPause,
	}
	m.preflight = m.ensureToolchain
	m.rebuildDescriptors()
	return m
}

// SetJournal attaches the action journal. Passing nil disables journaling.
func (m *Manager) SetJournal(s history.Sink) { m.journal = s }

// Settings returns the resolved supervisor settings.
func (m *Manager) Settings() service.Settings { return m.settings }

// LogPath returns the log file of a service, for the status display and the
// logs command.
func (m *Manager) LogPath(k service.Kind) string { return m.descs[k].LogFile }

func (m *Manager) rebuildDescriptors() {
	for _, k := range service.Kinds() {
		m.descs[k] = m.settings.Descriptor(k)
	}
}

// ensureToolchain is the fatal precondition gate: a usable python
// interpreter (the configured one when set, PATH otherwise), and for the web
// dashboard its python packages.
func (m *Manager) ensureToolchain(k service.Kind) error {
	python, err := bootstrap.ResolvePython(m.settings.Python)
	if err != nil {
		return err
	}
	if m.settings.Python != python {
		m.settings.Python = python
		m.rebuildDescriptors()
	}
	if k == service.Web {
		return bootstrap.EnsureWebDeps(python, m.log)
	}
	return nil
}

// Start launches a service. It refuses with ErrAlreadyRunning when a live
// PID resolves, and for the web dashboard it frees the listen port first if
// an orphaned instance still holds it.
func (m *Manager) Start(k service.Kind) error {
	if err := m.preflight(k); err != nil {
		return err
	}
	d := m.descs[k]
	if pid, ok := detector.Resolve(d); ok {
		return fmt.Errorf("%s is %w (pid %d); run restart to replace it", d.Name, ErrAlreadyRunning, pid)
	}
	if d.Port > 0 && m.guard.IsBound(d.Port) {
		m.log.Warn("port already bound, freeing it", "port", d.Port)
		m.guard.Free(d.Port)
		m.record(history.Event{Service: d.Name, Action: history.ActionPortFree, Detail: fmt.Sprintf("port %d", d.Port)})
		time.Sleep(portFreeSettle)
	}

	pid, err := m.ctl.Start(d)
	if err != nil {
		m.log.Error("start failed", "service", d.Name, "error", err)
		return err
	}
	if err := (pidfile.Store{Path: d.PIDFile}).Write(pid); err != nil {
		m.log.Warn("could not write pidfile", "path", d.PIDFile, "error", err)
	}
	m.record(history.Event{Service: d.Name, Action: history.ActionStart, PID: pid})

	switch k {
	case service.Web:
		m.log.Info("web dashboard started", "pid", pid, "url", m.settings.URL())
	default:
		m.log.Info("cli monitor started", "pid", pid, "log", d.LogFile)
	}
	return nil
}

// Stop terminates a service if it is running and clears its pidfile. A
// service that is not running is an informational outcome, never an error.
// For the web dashboard the listen port is re-checked afterwards in case the
// PID-based stop missed a child still holding the socket.
func (m *Manager) Stop(k service.Kind) error {
	d := m.descs[k]
	pid, ok := detector.Resolve(d)
	if ok {
		outcome := m.ctl.Stop(pid, m.stopWait)
		(pidfile.Store{Path: d.PIDFile}).Clear()
		action := history.ActionStop
		if outcome == process.Killed {
			action = history.ActionKill
			m.log.Warn("graceful stop timed out, process killed", "service", d.Name, "pid", pid)
		}
		m.record(history.Event{Service: d.Name, Action: action, PID: pid, Detail: outcome.String()})
		m.log.Info("service stopped", "service", d.Name, "pid", pid)
	} else {
		m.log.Info("service is not running", "service", d.Name)
	}
	if d.Port > 0 && m.guard.IsBound(d.Port) {
		m.log.Warn("port still bound after stop, freeing it", "port", d.Port)
		m.guard.Free(d.Port)
		m.record(history.Event{Service: d.Name, Action: history.ActionPortFree, Detail: fmt.Sprintf("port %d", d.Port)})
	}
	return nil
}

// Restart is stop, a fixed pause, then start. Not atomic: a failure in the
// start leg leaves the service stopped and the caller re-invokes start.
func (m *Manager) Restart(k service.Kind) error {
	if err := m.Stop(k); err != nil {
		return err
	}
	time.Sleep(m.pause)
	return m.Start(k)
}

// StatusOf recomputes the service status from OS state.
func (m *Manager) StatusOf(k service.Kind) Status {
	d := m.descs[k]
	pid, ok := detector.Resolve(d)
	st := Status{Kind: k, Running: ok, PID: pid, LogFile: d.LogFile}
	if d.Port > 0 {
		st.Port = d.Port
		st.PortBound = m.guard.IsBound(d.Port)
	}
	return st
}

// StatusAll reports every managed service, keyed by kind.
func (m *Manager) StatusAll() map[service.Kind]Status {
	out := make(map[service.Kind]Status, len(m.descs))
	for _, k := range service.Kinds() {
		out[k] = m.StatusOf(k)
	}
	return out
}

// Recent replays the newest journal entries.
func (m *Manager) Recent(ctx context.Context, limit int) ([]history.Event, error) {
	if m.journal == nil {
		return nil, nil
	}
	return m.journal.Recent(ctx, limit)
}

func (m *Manager) record(e history.Event) {
	if m.journal == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := m.journal.Record(context.Background(), e); err != nil {
		m.log.Debug("journal write failed", "error", err)
	}
}
