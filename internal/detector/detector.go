// Package detector locates a running managed process. The pidfile is the
// authoritative source of truth; scanning the process table for a
// command-line pattern is a degraded fallback that can collide with
// unrelated processes and is only consulted when the pidfile yields nothing.
package detector

import (
	"github.com/fcrre26/taoli/internal/pidfile"
	"github.com/fcrre26/taoli/internal/service"
)

// Detector is a strategy that determines if a managed process is running.
type Detector interface {
	// Find returns the PID of the detected process, when one is running.
	Find() (int, bool)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}

// PIDFileDetector detects a process via its pidfile. Stale entries are
// discarded by the store itself.
type PIDFileDetector struct {
	Store pidfile.Store
}

func (d PIDFileDetector) Find() (int, bool) { return d.Store.Read() }
func (d PIDFileDetector) Describe() string  { return "pidfile:" + d.Store.Path }

// Resolve locates the live PID for a service: pidfile first, pattern scan
// second. It is a pure query over OS state plus one file read; nothing is
// cached between calls.
func Resolve(d service.Descriptor) (int, bool) {
	for _, det := range []Detector{
		PIDFileDetector{Store: pidfile.Store{Path: d.PIDFile}},
		PatternDetector{Pattern: d.Pattern},
	} {
		if pid, ok := det.Find(); ok {
			return pid, true
		}
	}
	return 0, false
}
