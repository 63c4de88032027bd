// Package history provides the "fuelkit history" commands for viewing past publishes.
package history

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/fuelkit/internal/config"
	histpkg "github.com/klytics/fuelkit/internal/history"
)

// NewCommand creates the "history" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View and manage the log of published readings",
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func historyPath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.History.Path, nil
}

func newListCmd() *cobra.Command {
	var (
		last  int
		since string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent published readings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			entries, err := histpkg.ReadEntries(path)
			if err != nil {
				return err
			}

			var sinceTime time.Time
			if since != "" {
				t, err := time.ParseInLocation("2006-01-02", since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since date: %w (use YYYY-MM-DD)", err)
				}
				sinceTime = t
			}

			filtered := histpkg.FilterEntries(entries, sinceTime, time.Time{})
			if last > 0 && len(filtered) > last {
				filtered = filtered[len(filtered)-last:]
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			if len(filtered) == 0 {
				fmt.Fprintln(out, "No published readings found.")
				return nil
			}

			fmt.Fprintf(out, "History: %d entries\n", len(filtered))
			fmt.Fprintf(out, "File: %s\n\n", path)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TIMESTAMP\tCELL\tAMOUNT\tLEFT\tTOPIC\n")
			for _, e := range filtered {
				fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Cell, e.Amount, e.Left, e.Topic)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show last N entries")
	cmd.Flags().StringVar(&since, "since", "", "Only entries since date (YYYY-MM-DD)")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the history log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			if err := histpkg.Clear(path); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"cleared": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show history log path and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			size := histpkg.Size(path)
			entries, _ := histpkg.ReadEntries(path)

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":    path,
					"size":    size,
					"entries": len(entries),
				})
			}

			fmt.Fprintf(out, "History: %s\n", path)
			if size == 0 {
				fmt.Fprintln(out, "Size:    empty (no entries)")
			} else {
				fmt.Fprintf(out, "Size:    %s\n", formatSize(size))
			}
			fmt.Fprintf(out, "Entries: %d\n", len(entries))
			return nil
		},
	}
}

func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
