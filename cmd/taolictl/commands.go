package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fcrre26/taoli"
	"github.com/fcrre26/taoli/internal/service"
)

// command binds the CLI handlers to a supervisor instance.
type command struct {
	sup *taoli.Supervisor
	out io.Writer
	in  io.Reader
}

func newCommand(v *viper.Viper, debug bool) *command {
	settings := service.FromViper(v)
	log := taoli.NewLogger(settings, debug)
	return &command{
		sup: taoli.New(settings, log),
		out: os.Stdout,
		in:  os.Stdin,
	}
}

// buildRoot wires the command tree. The root command with no arguments runs
// the interactive menu.
func buildRoot() *cobra.Command {
	v := viper.New()
	service.RegisterDefaults(v)

	var debug bool
	root := &cobra.Command{
		Use:   "taolictl",
		Short: "Supervise the taoli monitoring dashboard and CLI monitor",
		Long: `taolictl starts, stops and reports on the two taoli processes:
the Streamlit web dashboard and the background CLI monitor.

Examples:
  taolictl                # interactive menu
  taolictl start          # start the web dashboard
  taolictl status         # status of both services
  taolictl logs cli       # follow the CLI monitor log`,
		// Errors are printed once by main; usage still prints on failure so an
		// unknown command shows both the error and the command list.
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return newCommand(v, debug).Menu()
		},
	}

	pf := root.PersistentFlags()
	pf.String("base-dir", v.GetString("base_dir"), "install directory holding the entry script, pidfiles and logs")
	pf.String("python", v.GetString("python"), "python interpreter (resolved from PATH when empty)")
	pf.String("entry", v.GetString("entry"), "monitored application entry script")
	pf.Int("port", v.GetInt("port"), "web dashboard listen port")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	_ = v.BindPFlag("base_dir", pf.Lookup("base-dir"))
	_ = v.BindPFlag("python", pf.Lookup("python"))
	_ = v.BindPFlag("entry", pf.Lookup("entry"))
	_ = v.BindPFlag("port", pf.Lookup("port"))

	root.AddCommand(
		&cobra.Command{
			Use:   "menu",
			Short: "Interactive menu (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).Menu()
			},
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the web dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).sup.Start(taoli.Web)
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the web dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).sup.Stop(taoli.Web)
			},
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the web dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).sup.Restart(taoli.Web)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show status of both services and their log paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).Status()
			},
		},
		&cobra.Command{
			Use:   "logs [cli]",
			Short: "Follow the web dashboard log, or the CLI monitor log with 'cli'",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				target := ""
				if len(args) == 1 {
					target = args[0]
				}
				return newCommand(v, debug).Logs(target)
			},
		},
		&cobra.Command{
			Use:   "cli",
			Short: "Start the CLI monitor in the background",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).sup.Start(taoli.CLIMonitor)
			},
		},
		&cobra.Command{
			Use:   "cli-stop",
			Short: "Stop the CLI monitor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return newCommand(v, debug).sup.Stop(taoli.CLIMonitor)
			},
		},
	)
	root.AddCommand(newHistoryCommand(v, &debug))

	return root
}

func newHistoryCommand(v *viper.Viper, debug *bool) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent supervisor actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(v, *debug).History(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of journal entries to show")
	return cmd
}
