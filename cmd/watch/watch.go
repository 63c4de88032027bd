// Package watch provides the "fuelkit watch" commands that republish the fuel
// figure whenever the spreadsheet is saved.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/fuelkit/cmd/publish"
	"github.com/klytics/fuelkit/internal/config"
	"github.com/klytics/fuelkit/internal/output"
	w "github.com/klytics/fuelkit/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Republish whenever the spreadsheet changes",
		Long: `Watch the spreadsheet and publish the current month's figure each time
it is saved. Bursts of writes from sync clients are collapsed into one publish.

Example:
  fuelkit watch start --now
  fuelkit watch status
  fuelkit watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		debounce time.Duration
		now      bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start watching the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			console := output.NewConsole(cmd.OutOrStdout())
			logger := publish.Logger(cmd)

			watcher, err := w.New(w.Config{Path: cfg.FilePath, Debounce: debounce})
			if err != nil {
				return err
			}
			watcher.Logger = logger

			handle := func(ctx context.Context, _ string) error {
				runner, err := publish.NewRunner(cfg, publish.Options{}, console, logger)
				if err != nil {
					return err
				}
				if _, err := runner.Run(ctx); err != nil {
					console.Warn("Publish failed: %v", err)
					return err
				}
				return nil
			}
			watcher.Handler = handle

			stateDir := w.DefaultStateDir()
			if err := w.WritePIDFile(stateDir); err != nil {
				console.Warn("Warning: could not write PID file: %v", err)
			}
			defer w.RemovePIDFile(stateDir)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if now {
				// A failed first publish is reported but does not stop the watcher.
				_ = handle(ctx, cfg.FilePath)
			}

			console.Line("Watching %s", cfg.FilePath)
			console.Dim("Press Ctrl+C to stop")

			if err := watcher.Start(ctx); err != nil {
				return err
			}
			console.Line("Stopping watcher...")
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", w.DefaultDebounce, "Quiet period before a change is published")
	cmd.Flags().BoolVar(&now, "now", false, "Publish once immediately before watching")

	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()
			pid, err := w.ReadPIDFile(stateDir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(stateDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(stateDir)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a watcher is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()

			pid, err := w.ReadPIDFile(stateDir)
			running := err == nil

			if running {
				process, err := os.FindProcess(pid)
				if err != nil {
					running = false
				} else if err := process.Signal(syscall.Signal(0)); err != nil {
					// Stale PID file from a crashed watcher.
					running = false
					w.RemovePIDFile(stateDir)
				}
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")

			if !running {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{"running": false})
				}
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"running": true, "pid": pid})
			}
			fmt.Fprintf(out, "Watcher is running (PID %d)\n", pid)
			return nil
		},
	}
}
