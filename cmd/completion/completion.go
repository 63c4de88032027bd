// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for fuelkit.

Install instructions:
  Bash:       fuelkit completion bash > /etc/bash_completion.d/fuelkit
              echo 'source <(fuelkit completion bash)' >> ~/.bashrc
  Zsh:        fuelkit completion zsh > ~/.zsh/completions/_fuelkit
  Fish:       fuelkit completion fish > ~/.config/fish/completions/fuelkit.fish
  PowerShell: fuelkit completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# fuelkit bash completion")
				fmt.Fprintln(out, "# Install: fuelkit completion bash > /etc/bash_completion.d/fuelkit")
				fmt.Fprintln(out)
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintln(out, "# fuelkit zsh completion")
				fmt.Fprintln(out, "# Install: fuelkit completion zsh > ~/.zsh/completions/_fuelkit")
				fmt.Fprintln(out)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# fuelkit fish completion")
				fmt.Fprintln(out, "# Install: fuelkit completion fish > ~/.config/fish/completions/fuelkit.fish")
				fmt.Fprintln(out)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# fuelkit PowerShell completion")
				fmt.Fprintln(out, "# Install: fuelkit completion powershell >> $PROFILE")
				fmt.Fprintln(out)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
	return cmd
}
