// Package pidfile persists a single PID per managed service. A pidfile is
// the authoritative handle to a previously started background process; a
// stale entry (file present, process gone or PID reused) is discarded on
// read so callers never act on a dead PID.
package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store reads and writes one pidfile. Single writer, no locking: the
// supervisor is the only process touching it.
type Store struct {
	Path string
}

// Read returns the stored PID when the file exists, its first line parses as
// a positive integer and a live process with that PID exists. Any other
// outcome removes the file and reports absence.
//
// The second line, when present, holds the process start time in Unix
// seconds; a mismatch against the current process start time means the PID
// was reused by an unrelated process and the entry is stale.
func (s Store) Read() (int, bool) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, false
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil || pid <= 0 {
		s.Clear()
		return 0, false
	}
	if !Alive(pid) {
		s.Clear()
		return 0, false
	}
	if stampLine, _, _ := strings.Cut(rest, "\n"); stampLine != "" {
		stamp, err := strconv.ParseInt(strings.TrimSpace(stampLine), 10, 64)
		if err == nil && stamp > 0 {
			if cur := procStartUnix(pid); cur > 0 && cur != stamp {
				s.Clear()
				return 0, false
			}
		}
	}
	return pid, true
}

// Write records the PID together with its start-time stamp.
func (s Store) Write(pid int) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o750); err != nil {
		return err
	}
	content := strconv.Itoa(pid)
	if stamp := procStartUnix(pid); stamp > 0 {
		content += "\n" + strconv.FormatInt(stamp, 10)
	}
	return os.WriteFile(s.Path, []byte(content+"\n"), 0o600)
}

// Clear removes the pidfile. Idempotent; a missing file is not an error.
func (s Store) Clear() {
	_ = os.Remove(s.Path)
}
