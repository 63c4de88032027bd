// Package read provides the command that shows this month's fuel figure
// without publishing it.
package read

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klytics/fuelkit/internal/config"
	"github.com/klytics/fuelkit/internal/message"
	"github.com/klytics/fuelkit/internal/output"
	"github.com/klytics/fuelkit/internal/reading"
)

type readResult struct {
	*reading.Reading
	Cell   string         `json:"cell"`
	Status message.Status `json:"status"`
}

// NewCommand returns the read subcommand.
func NewCommand() *cobra.Command {
	var month int

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Show the fuel figure for a month without publishing",
		Example: `  fuelkit read
  fuelkit read --month 3 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			r := &reading.Reader{
				Path:   cfg.FilePath,
				Sheet:  cfg.Sheet,
				Column: cfg.Column,
				Month:  month,
			}
			rd, err := r.Read()
			if err != nil {
				return err
			}

			result := readResult{
				Reading: rd,
				Cell:    rd.Location.String(),
				Status:  message.Build(cfg.Limit, rd.Value),
			}

			jsonFlag, _ := cmd.Flags().GetBool("json")
			if jsonFlag {
				return output.PrintJSON(cmd.OutOrStdout(), cmd.CommandPath(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:   %s\n", rd.Path)
			fmt.Fprintf(out, "Cell:   %s!%s\n", rd.Sheet, result.Cell)
			fmt.Fprintf(out, "Amount: %v\n", result.Status.Amount)
			fmt.Fprintf(out, "Left:   %v of %v\n", result.Status.Left, result.Status.Limit)
			return nil
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "Read the row for this month (1-12) instead of the current one")
	return cmd
}
