package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fcrre26/taoli"
)

const menuActions = `
  1) start web dashboard      5) follow web log
  2) stop web dashboard       6) start cli monitor
  3) restart web dashboard    7) stop cli monitor
  4) refresh status           8) follow cli log

  0) exit
`

// Menu is the interactive loop: show status, show actions, read one line,
// dispatch, redisplay. An explicit exit selection (or EOF) is the only way
// out; invalid input redisplays after a short delay.
func (c *command) Menu() error {
	scanner := bufio.NewScanner(c.in)
	for {
		c.printMenuHeader()
		_, _ = fmt.Fprint(c.out, menuActions)
		_, _ = fmt.Fprint(c.out, "select> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}
		choice := strings.TrimSpace(scanner.Text())
		if c.dispatchMenu(choice) {
			return nil
		}
	}
}

func (c *command) printMenuHeader() {
	_, _ = fmt.Fprintf(c.out, "\n== taoli supervisor (%s) ==\n", c.sup.Settings().URL())
	for _, st := range []taoli.Status{c.sup.StatusOf(taoli.Web), c.sup.StatusOf(taoli.CLIMonitor)} {
		c.printStatusLine(st)
	}
}

// dispatchMenu runs one selection; true means exit.
func (c *command) dispatchMenu(choice string) bool {
	switch choice {
	case "0", "q", "quit", "exit":
		return true
	case "1":
		c.report(c.sup.Start(taoli.Web))
	case "2":
		c.report(c.sup.Stop(taoli.Web))
	case "3":
		c.report(c.sup.Restart(taoli.Web))
	case "4":
		// Status redisplays on every loop pass anyway.
	case "5":
		c.menuLogs(taoli.Web)
	case "6":
		c.report(c.sup.Start(taoli.CLIMonitor))
	case "7":
		c.report(c.sup.Stop(taoli.CLIMonitor))
	case "8":
		c.menuLogs(taoli.CLIMonitor)
	default:
		_, _ = fmt.Fprintf(c.out, "invalid selection %q\n", choice)
		time.Sleep(time.Second)
	}
	return false
}

// menuLogs follows a log until interrupt, then returns to the menu instead
// of exiting the process.
func (c *command) menuLogs(kind taoli.Kind) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	c.report(c.followLog(ctx, kind))
}

func (c *command) report(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
	}
}
