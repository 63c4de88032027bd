// Package publish provides the command that reads the fuel figure and publishes it.
package publish

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/klytics/fuelkit/internal/config"
	"github.com/klytics/fuelkit/internal/history"
	"github.com/klytics/fuelkit/internal/mqtt"
	"github.com/klytics/fuelkit/internal/output"
	"github.com/klytics/fuelkit/internal/pipeline"
	"github.com/klytics/fuelkit/internal/reading"
)

// Options tune a single run.
type Options struct {
	DryRun bool
	Month  int // 0 means the current month
}

// NewCommand returns the publish subcommand.
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Read this month's fuel figure and publish it",
		Long: `Reads the fuel amount for the current month from the spreadsheet and
publishes {"limit","left","amount"} to the configured topic. The connection is
opened for this one message and closed again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Read and build the message without publishing")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "Read the row for this month (1-12) instead of the current one")

	return cmd
}

// Run performs one read → build → publish cycle for cmd's configuration.
func Run(cmd *cobra.Command, opts Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	jsonFlag, _ := cmd.Flags().GetBool("json")
	var console *output.Console
	if jsonFlag {
		console = output.NewConsole(io.Discard)
	} else {
		console = output.NewConsole(cmd.OutOrStdout())
	}

	runner, err := NewRunner(cfg, opts, console, Logger(cmd))
	if err != nil {
		return err
	}

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	if jsonFlag {
		return output.PrintJSON(cmd.OutOrStdout(), cmd.CommandPath(), result)
	}
	return nil
}

// NewRunner wires a pipeline runner from the configuration.
func NewRunner(cfg *config.Config, opts Options, console *output.Console, logger *log.Logger) (*pipeline.Runner, error) {
	mqttOpts, err := cfg.MQTTOptions()
	if err != nil {
		return nil, err
	}
	mqttOpts.Logger = logger

	reader := &reading.Reader{
		Path:   cfg.FilePath,
		Sheet:  cfg.Sheet,
		Column: cfg.Column,
		Month:  opts.Month,
	}

	runner := pipeline.New(reader, mqtt.NewPublisher(mqttOpts), console)
	runner.Limit = cfg.Limit
	runner.Topic = cfg.Topic
	runner.DryRun = opts.DryRun
	runner.History = history.NewLog(cfg.History.Path, cfg.History.Enabled)
	return runner, nil
}

// Logger returns the diagnostic logger: stderr with --verbose, discarded otherwise.
func Logger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	logger := log.New(os.Stderr, "[fuelkit] ", log.LstdFlags)
	mqtt.EnableLogging(logger, false)
	return logger
}
