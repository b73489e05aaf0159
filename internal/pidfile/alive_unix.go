//go:build !windows

package pidfile

import (
	"bytes"
	"errors"
	"os"
	"strconv"
	"syscall"
)

// Alive reports whether a process with the given pid exists and is not a
// zombie. EPERM still counts as alive: the process exists but belongs to
// another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err != nil && !errors.Is(err, syscall.EPERM) {
		return false
	}
	return !isZombie(pid)
}

// isZombie checks /proc/<pid>/status for the Z state on Linux. A child that
// exited inside the start-check window is reaped by init only after the
// supervisor releases it, so kill(pid, 0) alone would report it alive.
func isZombie(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
