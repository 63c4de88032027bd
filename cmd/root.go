// Package cmd contains all CLI commands for the fuelkit binary.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klytics/fuelkit/cmd/completion"
	cmdconfig "github.com/klytics/fuelkit/cmd/config"
	"github.com/klytics/fuelkit/cmd/doctor"
	cmdhistory "github.com/klytics/fuelkit/cmd/history"
	"github.com/klytics/fuelkit/cmd/publish"
	"github.com/klytics/fuelkit/cmd/read"
	"github.com/klytics/fuelkit/cmd/version"
	cmdwatch "github.com/klytics/fuelkit/cmd/watch"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fuelkit",
		Short: "Publish this month's fuel figure from a spreadsheet to MQTT",
		Long: `fuelkit reads the current month's fuel amount from a spreadsheet
(row = month, column F) and publishes {"limit","left","amount"} to an MQTT topic.

Run without a subcommand to read and publish once.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return publish.Run(cmd, publish.Options{})
		},
	}

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	flags.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flags.BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	flags.String("file", "", "Spreadsheet path (overrides file_path)")
	flags.String("broker", "", "Broker address (overrides broker_address)")
	flags.String("topic", "", "Topic to publish to (overrides topic)")
	flags.Float64("limit", 0, "Tank capacity (overrides limit)")

	viper.BindPFlag("file_path", flags.Lookup("file"))
	viper.BindPFlag("broker_address", flags.Lookup("broker"))
	viper.BindPFlag("topic", flags.Lookup("topic"))
	viper.BindPFlag("limit", flags.Lookup("limit"))

	// Register subcommands
	rootCmd.AddCommand(publish.NewCommand())
	rootCmd.AddCommand(read.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdhistory.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors. An
// interrupt cancels the run; it is reported and the process exits cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		fmt.Println("Process interrupted by user")
		return
	}

	code := output.ExitUserError
	if errors.Is(err, mqtt.ErrConnect) {
		code = output.ExitSystemError
	}
	if jsonOutput && cmd != nil {
		output.PrintJSONError(os.Stdout, cmd.CommandPath(), err, code)
	} else {
		output.WriteError("%s", err)
	}
	stop()
	os.Exit(code)
}
