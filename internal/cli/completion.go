package cli

import (
	"net"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tracelane.

Besides commands and flags, the scripts complete flag values: PDG exports
(*.json) for --graph, the configured server URL for --server, output
formats for --format and the cache kinds for --cache. For example:

  $ tracelane view --server <TAB>      # http://localhost:7420
  $ tracelane render -g <TAB>          # *.json files
  $ tracelane serve --cache <TAB>      # none file redis

To load completions:

Bash:
  $ source <(tracelane completion bash)

  # For every new session (Linux):
  $ tracelane completion bash > /etc/bash_completion.d/tracelane

Zsh:
  $ tracelane completion zsh > "${fpath[1]}/_tracelane"

Fish:
  $ tracelane completion fish > ~/.config/fish/completions/tracelane.fish

PowerShell:
  PS> tracelane completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// registerCompletions attaches value completions to tracelane's flags on
// every command that defines them.
func (c *CLI) registerCompletions(root *cobra.Command) {
	fixed := func(values ...string) cobra.CompletionFunc {
		return cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp)
	}
	files := func(exts ...string) cobra.CompletionFunc {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return exts, cobra.ShellCompDirectiveFilterFileExt
		}
	}
	byFlag := map[string]cobra.CompletionFunc{
		"graph":    files("json"),
		"config":   files("toml"),
		"output":   files(formatSVG, formatDOT),
		"log-file": files("log"),
		"format":   fixed(formatDOT, formatSVG),
		"engine":   fixed("neato", "dot"),
		"cache":    fixed(cacheNone, cacheFile, cacheRedis),
		"server":   c.completeServer,
	}

	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		for name, fn := range byFlag {
			if cmd.LocalFlags().Lookup(name) == nil {
				continue
			}
			// Only fails for unknown or already registered flags.
			_ = cmd.RegisterFlagCompletionFunc(name, fn)
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(root)
}

// completeServer suggests the URL a local "tracelane serve" listens on.
func (c *CLI) completeServer(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		cfg = DefaultConfig()
	}
	host, port, err := net.SplitHostPort(cfg.Server.Listen)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return []string{"http://" + net.JoinHostPort(host, port)}, cobra.ShellCompDirectiveNoFileComp
}
