package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fcrre26/taoli"
	"github.com/fcrre26/taoli/internal/logtail"
	"github.com/fcrre26/taoli/internal/service"
)

// Status prints both services with their log paths.
func (c *command) Status() error {
	for _, k := range service.Kinds() {
		st := c.sup.StatusOf(k)
		c.printStatusLine(st)
	}
	return nil
}

func (c *command) printStatusLine(st taoli.Status) {
	state := "stopped"
	if st.Running {
		state = fmt.Sprintf("running (pid %d)", st.PID)
	}
	_, _ = fmt.Fprintf(c.out, "%-12s %s\n", st.Kind.String()+":", state)
	if st.Port > 0 {
		bound := "free"
		if st.PortBound {
			bound = "bound"
		}
		_, _ = fmt.Fprintf(c.out, "%-12s port %d %s, %s\n", "", st.Port, bound, c.sup.Settings().URL())
	}
	_, _ = fmt.Fprintf(c.out, "%-12s log: %s\n", "", st.LogFile)
}

// Logs follows a service log in the foreground until interrupted. A log
// file that does not exist yet is reported and the command returns at once.
func (c *command) Logs(target string) error {
	kind := taoli.Web
	if target == "cli" {
		kind = taoli.CLIMonitor
	} else if target != "" {
		return fmt.Errorf("unknown logs target %q (expected no argument or 'cli')", target)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.followLog(ctx, kind)
}

func (c *command) followLog(ctx context.Context, kind taoli.Kind) error {
	path := c.sup.LogPath(kind)
	_, _ = fmt.Fprintf(c.out, "following %s (interrupt to return)\n", path)
	err := logtail.Follow(ctx, path, c.out)
	if errors.Is(err, logtail.ErrNoLogFile) {
		_, _ = fmt.Fprintf(c.out, "log file not found: %s (has %s been started?)\n", path, kind)
		return nil
	}
	return err
}

// History prints the most recent journal entries.
func (c *command) History(limit int) error {
	events, err := c.sup.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintln(c.out, "no recorded actions")
		return nil
	}
	for _, e := range events {
		detail := ""
		if e.Detail != "" {
			detail = "  " + e.Detail
		}
		_, _ = fmt.Fprintf(c.out, "%s  %-12s %-10s pid=%d%s\n",
			e.OccurredAt.Local().Format("2006-01-02 15:04:05"), e.Service, e.Action, e.PID, detail)
	}
	return nil
}
