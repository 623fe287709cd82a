package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dotpkg/dotpkg/internal/version"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/style"
)

var (
	verbosity      int
	dryRun         bool
	nonInteractive bool
	manifestDir    string
	noColor        bool

	rootCmd = &cobra.Command{
		Use:   "dotpkg",
		Short: "Manifest-driven package installation for dotfiles",
		Long: `dotpkg provisions development machines from declarative YAML
manifests: profiles select packages, categories give them backend
priority chains, and installation is batched per package manager
(mise, brew, apt, ppa).`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			if noColor {
				style.DisableColors()
			}
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Resolve and verify, but issue no install commands")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Auto-skip unresolved packages instead of prompting")
	rootCmd.PersistentFlags().StringVar(&manifestDir, "manifest-dir", "", "Directory holding packages.yaml (default: $DOTFILES_ROOT/manifests)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dotpkg version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(dotpkg completion bash)

Zsh:
  $ dotpkg completion zsh > "${fpath[1]}/_dotpkg"

Fish:
  $ dotpkg completion fish | source

PowerShell:
  PS> dotpkg completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate bash completion")
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate zsh completion")
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true); err != nil {
				log.Error().Err(err).Msg("Failed to generate fish completion")
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate powershell completion")
			}
		}
	},
}
