package detector

import (
	"os"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/fcrre26/taoli/internal/pidfile"
)

// PatternDetector scans the live process table for the first process whose
// command line contains Pattern. The supervisor itself and its parent are
// skipped so the scan never matches the invocation that is running it.
type PatternDetector struct {
	Pattern string
}

func (d PatternDetector) Find() (int, bool) {
	if strings.TrimSpace(d.Pattern) == "" {
		return 0, false
	}
	return FindByPattern(d.Pattern)
}

func (d PatternDetector) Describe() string { return "pattern:" + d.Pattern }

// FindByPattern returns the PID of the first live process whose command line
// contains pattern.
func FindByPattern(pattern string) (int, bool) {
	procs, err := gopsproc.Processes()
	if err != nil {
		return 0, false
	}
	self := os.Getpid()
	parent := os.Getppid()
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self || pid == parent {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if strings.Contains(cmdline, pattern) && pidfile.Alive(pid) {
			return pid, true
		}
	}
	return 0, false
}
