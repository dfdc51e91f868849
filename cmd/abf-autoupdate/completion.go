package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for abf-autoupdate.

To load completions:

Bash:
  $ source <(abf-autoupdate completion bash)
  # To load completions for each session, execute once:
  $ abf-autoupdate completion bash > /etc/bash_completion.d/abf-autoupdate

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  # To load completions for each session, execute once:
  $ abf-autoupdate completion zsh > "${fpath[1]}/_abf-autoupdate"
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ abf-autoupdate completion fish | source
  # To load completions for each session, execute once:
  $ abf-autoupdate completion fish > ~/.config/fish/completions/abf-autoupdate.fish

PowerShell:
  PS> abf-autoupdate completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> abf-autoupdate completion powershell > abf-autoupdate.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return fmt.Errorf("unsupported shell %q", args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
