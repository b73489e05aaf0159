//go:build !windows

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fcrre26/taoli/internal/pidfile"
	"github.com/fcrre26/taoli/internal/service"
)

// Start launches the descriptor's command as a detached background process
// with combined stdout/stderr appended to the service log file, then holds
// for the start-check window and re-verifies liveness. Returns the new PID.
func (c Controller) Start(d service.Descriptor) (int, error) {
	if err := os.MkdirAll(filepath.Dir(d.LogFile), 0o750); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	logF, err := os.OpenFile(d.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}

	cmd := BuildCommand(d.Command)
	cmd.Stdout = logF
	cmd.Stderr = logF
	// Own process group so stop can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = logF.Close()
		return 0, fmt.Errorf("launch %s: %w", d.Name, err)
	}
	// The child holds its own descriptor now.
	_ = logF.Close()
	pid := cmd.Process.Pid

	// Reap the child whenever it exits while the supervisor is still alive
	// (the menu loop can outlive the services it manages).
	go func() { _ = cmd.Wait() }()

	deadline := time.Now().Add(c.startWindow())
	for time.Now().Before(deadline) {
		if !pidfile.Alive(pid) {
			return 0, fmt.Errorf("%w: check %s", ErrExitedEarly, d.LogFile)
		}
		time.Sleep(startPollInterval)
	}
	if !pidfile.Alive(pid) {
		return 0, fmt.Errorf("%w: check %s", ErrExitedEarly, d.LogFile)
	}
	return pid, nil
}

// Stop sends a graceful SIGTERM to the process group, polls liveness once
// per second up to wait, then escalates to SIGKILL. It blocks the caller for
// up to wait and always leaves the process stopped; the outcome records
// whether the escalation was needed.
func (c Controller) Stop(pid int, wait time.Duration) StopOutcome {
	if !pidfile.Alive(pid) {
		return NotRunning
	}
	signalGroup(pid, syscall.SIGTERM)

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !pidfile.Alive(pid) {
			return Stopped
		}
		time.Sleep(stopPollInterval)
	}

	signalGroup(pid, syscall.SIGKILL)
	time.Sleep(killSettle)
	return Killed
}

// Alive reports process liveness at the OS level.
func (c Controller) Alive(pid int) bool { return pidfile.Alive(pid) }

// signalGroup targets the process group first; processes the supervisor did
// not start itself may not lead a group, so the bare PID is the fallback.
func signalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil {
		_ = syscall.Kill(pid, sig)
	}
}
