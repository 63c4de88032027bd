// Package doctor provides the "fuelkit doctor" command for checking setup health.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/fuelkit/internal/config"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/reading"
)

// probeTimeout bounds the broker connection check.
const probeTimeout = 5 * time.Second

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// prober is replaced in tests.
var prober = mqtt.Probe

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the spreadsheet, configuration and broker",
		Long:  "Run diagnostic checks to verify fuelkit can read the spreadsheet and reach the broker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			checks := runChecks(cmd.Context(), cfg)

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(checks)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			fmt.Fprintln(out, "fuelkit doctor")
			fmt.Fprintln(out, "==============")
			fmt.Fprintln(out)

			okCount, warnCount, errCount := 0, 0, 0
			for _, c := range checks {
				var icon string
				switch c.Status {
				case "ok":
					icon = green("✓")
					okCount++
				case "warning":
					icon = yellow("!")
					warnCount++
				case "error":
					icon = red("✗")
					errCount++
				}
				fmt.Fprintf(out, "  %s %s: %s\n", icon, c.Name, c.Message)
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config) []Check {
	if ctx == nil {
		ctx = context.Background()
	}
	var checks []Check

	checks = append(checks, Check{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	configFile := config.ConfigPath()
	if _, err := os.Stat(configFile); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: configFile})
	} else {
		checks = append(checks, Check{
			Name:    "Config File",
			Status:  "warning",
			Message: "Not found, using defaults (run 'fuelkit config init')",
		})
	}

	checks = append(checks, checkSpreadsheet(cfg)...)
	checks = append(checks, checkBroker(ctx, cfg))

	return checks
}

func checkSpreadsheet(cfg *config.Config) []Check {
	if _, err := os.Stat(cfg.FilePath); err != nil {
		return []Check{{
			Name:    "Spreadsheet",
			Status:  "error",
			Message: fmt.Sprintf("%s not found (set file_path)", cfg.FilePath),
		}}
	}
	checks := []Check{{Name: "Spreadsheet", Status: "ok", Message: cfg.FilePath}}

	r := &reading.Reader{Path: cfg.FilePath, Sheet: cfg.Sheet, Column: cfg.Column}
	rd, err := r.Read()
	if err != nil {
		return append(checks, Check{Name: "Current Month", Status: "error", Message: err.Error()})
	}
	return append(checks, Check{
		Name:    "Current Month",
		Status:  "ok",
		Message: fmt.Sprintf("%s!%s = %v", rd.Sheet, rd.Location, rd.Value),
	})
}

func checkBroker(ctx context.Context, cfg *config.Config) Check {
	opts, err := cfg.MQTTOptions()
	if err != nil {
		return Check{Name: "Broker", Status: "error", Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := prober(ctx, opts); err != nil {
		return Check{Name: "Broker", Status: "error", Message: err.Error()}
	}
	return Check{Name: "Broker", Status: "ok", Message: "Reachable at " + opts.Broker}
}
