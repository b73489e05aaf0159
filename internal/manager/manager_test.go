package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fcrre26/taoli/internal/detector"
	"github.com/fcrre26/taoli/internal/history"
	"github.com/fcrre26/taoli/internal/process"
	"github.com/fcrre26/taoli/internal/service"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager builds a manager whose services are disposable shell
// sleepers with unique command-line markers, so resolve and stop work the
// same way they do against the real services.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	settings := service.Settings{BaseDir: dir, Python: "python3", Entry: "taoli.py", Port: 8501}
	m := New(settings, discardLogger())
	m.preflight = func(service.Kind) error { return nil }
	m.stopWait = 3 * time.Second
	m.pause = 100 * time.Millisecond
	m.ctl = process.Controller{StartWindow: 300 * time.Millisecond}

	for _, k := range service.Kinds() {
		marker := fmt.Sprintf("taoli-mgr-test-%s-%d-%d", k, os.Getpid(), time.Now().UnixNano())
		m.descs[k] = service.Descriptor{
			Kind:    k,
			Name:    k.String(),
			Command: fmt.Sprintf("sh -c 'while :; do sleep 1; done # %s'", marker),
			Pattern: marker,
			PIDFile: filepath.Join(dir, k.String()+".pid"),
			LogFile: filepath.Join(dir, k.String()+".log"),
		}
	}
	t.Cleanup(func() {
		for _, k := range service.Kinds() {
			_ = m.Stop(k)
		}
	})
	return m
}

func TestStartIsIdempotent(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	if err := m.Start(service.Web); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	err := m.Start(service.Web)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start should refuse with ErrAlreadyRunning, got %v", err)
	}
	// Exactly one live process for the pattern.
	st := m.StatusOf(service.Web)
	if !st.Running || st.PID == 0 {
		t.Fatalf("expected running service, got %+v", st)
	}
}

func TestStopThenStatusNotRunning(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	if err := m.Start(service.CLIMonitor); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(service.CLIMonitor); err != nil {
		t.Fatal(err)
	}
	st := m.StatusOf(service.CLIMonitor)
	if st.Running {
		t.Fatalf("service still running after stop: %+v", st)
	}
	if _, err := os.Stat(m.descs[service.CLIMonitor].PIDFile); !os.IsNotExist(err) {
		t.Fatal("pidfile should be cleared after stop")
	}
}

func TestStopNotRunningIsFine(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	if err := m.Stop(service.Web); err != nil {
		t.Fatalf("stop on a stopped service must not error: %v", err)
	}
}

func TestRestartOnStoppedBehavesLikeStart(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	if err := m.Restart(service.Web); err != nil {
		t.Fatalf("restart on stopped service failed: %v", err)
	}
	if st := m.StatusOf(service.Web); !st.Running {
		t.Fatalf("expected running after restart, got %+v", st)
	}
}

func TestStatusHealsStalePIDFile(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	d := m.descs[service.Web]
	if err := os.WriteFile(d.PIDFile, []byte("99999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	st := m.StatusOf(service.Web)
	if st.Running {
		t.Fatalf("stale pid must not read as running: %+v", st)
	}
	if _, err := os.Stat(d.PIDFile); !os.IsNotExist(err) {
		t.Fatal("stale pidfile should have been deleted by the status query")
	}
}

func TestStartFailurePointsAtLog(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	d := m.descs[service.Web]
	d.Command = "sh -c 'echo broken; exit 2'"
	m.descs[service.Web] = d
	err := m.Start(service.Web)
	if !errors.Is(err, process.ErrExitedEarly) {
		t.Fatalf("expected launch failure, got %v", err)
	}
}

func TestPreflightFailureAbortsStart(t *testing.T) {
	m := newTestManager(t)
	boom := errors.New("toolchain broken")
	m.preflight = func(service.Kind) error { return boom }
	if err := m.Start(service.Web); !errors.Is(err, boom) {
		t.Fatalf("expected preflight error, got %v", err)
	}
}

func TestPreflightKeepsConfiguredPython(t *testing.T) {
	requireUnix(t)
	pathDir := t.TempDir()
	for _, name := range []string{"python3", "python"} {
		if err := os.WriteFile(filepath.Join(pathDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", pathDir)

	custom := filepath.Join(t.TempDir(), "venv-python")
	if err := os.WriteFile(custom, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	m := New(service.Settings{BaseDir: dir, Python: custom, Entry: "taoli.py", Port: 8501}, discardLogger())
	if err := m.ensureToolchain(service.CLIMonitor); err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	if m.settings.Python != custom {
		t.Fatalf("configured interpreter was replaced: got %s, want %s", m.settings.Python, custom)
	}
	if cmd := m.descs[service.CLIMonitor].Command; !strings.HasPrefix(cmd, custom+" ") {
		t.Fatalf("launch command does not use the configured interpreter: %q", cmd)
	}
}

func TestPreflightResolvesEmptyPythonFromPath(t *testing.T) {
	requireUnix(t)
	pathDir := t.TempDir()
	fake := filepath.Join(pathDir, "python3")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", pathDir)

	m := New(service.Settings{BaseDir: t.TempDir(), Entry: "taoli.py", Port: 8501}, discardLogger())
	if err := m.ensureToolchain(service.CLIMonitor); err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	if m.settings.Python != fake {
		t.Fatalf("expected PATH resolution to %s, got %s", fake, m.settings.Python)
	}
}

func TestJournalRecordsStartAndStop(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	sink, err := history.NewSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sink.Close() }()
	m.SetJournal(sink)

	if err := m.Start(service.Web); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(service.Web); err != nil {
		t.Fatal(err)
	}
	events, err := m.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	var sawStart, sawStop bool
	for _, e := range events {
		switch e.Action {
		case history.ActionStart:
			sawStart = true
		case history.ActionStop:
			sawStop = true
		}
	}
	if !sawStart || !sawStop {
		t.Fatalf("journal missing events: %+v", events)
	}
}

func TestJournalRecordsKillEscalation(t *testing.T) {
	requireUnix(t)
	m := newTestManager(t)
	m.stopWait = time.Second
	sink, err := history.NewSQLite(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sink.Close() }()
	m.SetJournal(sink)

	// The shell ignores SIGTERM, so only the SIGKILL escalation ends it.
	d := m.descs[service.CLIMonitor]
	d.Command = fmt.Sprintf("sh -c 'trap \"\" TERM; while :; do sleep 1; done # %s'", d.Pattern)
	m.descs[service.CLIMonitor] = d

	if err := m.Start(service.CLIMonitor); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(service.CLIMonitor); err != nil {
		t.Fatal(err)
	}
	events, err := m.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	var sawKill bool
	for _, e := range events {
		if e.Action == history.ActionKill {
			sawKill = true
			if e.Detail != "killed" {
				t.Fatalf("expected killed detail, got %q", e.Detail)
			}
		}
	}
	if !sawKill {
		t.Fatalf("journal missing kill event: %+v", events)
	}
}

func TestStatusAllCoversBothKinds(t *testing.T) {
	m := newTestManager(t)
	all := m.StatusAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 services, got %d", len(all))
	}
	for _, k := range service.Kinds() {
		if _, ok := all[k]; !ok {
			t.Fatalf("missing status for %s", k)
		}
	}
}

// TestStartFreesBoundPort spawns a helper copy of the test binary that binds
// a port, then verifies Start(web) terminates it before launching.
func TestStartFreesBoundPort(t *testing.T) {
	requireUnix(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	helper := exec.Command(os.Args[0], "-test.run", "TestHelperListener$")
	helper.Env = append(os.Environ(), "GO_WANT_HELPER_LISTENER=1", "HELPER_PORT="+strconv.Itoa(port))
	out, _ := helper.StdoutPipe()
	if err := helper.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = helper.Process.Kill()
		_, _ = helper.Process.Wait()
	}()
	// Wait for the helper to report the bound socket.
	buf := make([]byte, 5)
	if _, err := io.ReadFull(out, buf); err != nil || string(buf) != "ready" {
		t.Fatalf("helper never became ready: %q %v", buf, err)
	}

	m := newTestManager(t)
	d := m.descs[service.Web]
	d.Port = port
	m.descs[service.Web] = d

	if !m.guard.IsBound(port) {
		t.Fatal("sanity: helper should hold the port")
	}
	if err := m.Start(service.Web); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// The helper must be gone; our sleeper does not bind, so the port frees.
	deadline := time.Now().Add(3 * time.Second)
	for m.guard.IsBound(port) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if m.guard.IsBound(port) {
		t.Fatal("port owner was not terminated")
	}
	if _, ok := detector.Resolve(m.descs[service.Web]); !ok {
		t.Fatal("web service should be running after the port was freed")
	}
}

// TestHelperListener is not a real test: it is the subprocess body used by
// TestStartFreesBoundPort.
func TestHelperListener(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_LISTENER") != "1" {
		t.Skip("helper process body")
	}
	port, err := strconv.Atoi(os.Getenv("HELPER_PORT"))
	if err != nil {
		os.Exit(1)
	}
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = l.Close() }()
	fmt.Print("ready")
	time.Sleep(60 * time.Second)
}
