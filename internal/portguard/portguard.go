// Package portguard arbitrates the web dashboard's TCP port. Orphaned
// instances from earlier runs can keep the port bound; freeing it is
// best-effort force-termination, not coordination, which is good enough for
// a single-operator local tool.
package portguard

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

type Guard struct {
	Logger *slog.Logger
}

// IsBound reports whether a listening socket is bound to port on this host.
func (g Guard) IsBound(port int) bool {
	if len(g.owners(port)) > 0 {
		return true
	}
	// Connection enumeration can be incomplete without privileges; probing
	// the bind itself is authoritative for "can we take the port".
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return true
	}
	_ = l.Close()
	return false
}

// Free terminates every process owning a listener on port, escalating from
// Terminate to Kill. It never fails: an unowned or already-free port is fine.
func (g Guard) Free(port int) {
	pids := g.owners(port)
	if len(pids) == 0 {
		return
	}
	for _, pid := range pids {
		p, err := gopsproc.NewProcess(pid)
		if err != nil {
			continue
		}
		g.log("freeing port", "port", port, "pid", pid)
		if err := p.Terminate(); err == nil {
			for i := 0; i < 10; i++ {
				if running, _ := p.IsRunning(); !running {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}
		}
		if running, _ := p.IsRunning(); running {
			_ = p.Kill()
		}
	}
}

// owners returns the PIDs of processes with a LISTEN socket on port.
func (g Guard) owners(port int) []int32 {
	conns, err := gopsnet.Connections("tcp")
	if err != nil {
		return nil
	}
	var pids []int32
	seen := make(map[int32]bool)
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port != uint32(port) {
			continue
		}
		if c.Pid > 0 && !seen[c.Pid] {
			seen[c.Pid] = true
			pids = append(pids, c.Pid)
		}
	}
	return pids
}

func (g Guard) log(msg string, args ...any) {
	if g.Logger != nil {
		g.Logger.Debug(msg, args...)
	}
}
