package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:
  $ source <(carrier-probe completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ carrier-probe completion bash > /etc/bash_completion.d/carrier-probe
  # macOS:
  $ carrier-probe completion bash > /usr/local/etc/bash_completion.d/carrier-probe

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ carrier-probe completion zsh > "${fpath[1]}/_carrier-probe"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ carrier-probe completion fish | source

  # To load completions for each session, execute once:
  $ carrier-probe completion fish > ~/.config/fish/completions/carrier-probe.fish

PowerShell:
  PS> carrier-probe completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> carrier-probe completion powershell > carrier-probe.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE:                  runCompletion,
	}
}

func runCompletion(cmd *cobra.Command, args []string) error {
	root := cmd.Root()
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return root.GenBashCompletion(out)
	case "zsh":
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, true)
	case "powershell":
		return root.GenPowerShellCompletion(out)
	}
	return nil
}
