package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/orchestrator"
	"github.com/dotpkg/dotpkg/pkg/retrylog"
	"github.com/dotpkg/dotpkg/pkg/style"
)

var retryCmd = &cobra.Command{
	Use:   "retry [logfile]",
	Short: "Re-attempt the packages from a previous run's retry log",
	Long: `Retry loads the packages a previous run could not resolve and runs
the installation pipeline over just that list. With no argument the
most recent retry log is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			path = retrylog.Latest(retrylog.DefaultDir())
			if path == "" {
				return errors.New(errors.ErrRetryLogRead, "no retry log found; run an install first")
			}
		}

		run, err := retrylog.Load(path)
		if err != nil {
			return err
		}
		names := run.Packages()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), style.Info("retry log holds no packages"))
			return nil
		}

		cfg, plat, m, err := loadSetup()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), style.Info(fmt.Sprintf(
			"retrying %d packages from %s", len(names), path)))

		summary, err := orchestrator.InstallPackages(cmd.Context(), m, run.Profile, names, orchestrator.Options{
			Platform:        plat,
			DryRun:          dryRun,
			NonInteractive:  nonInteractive || cfg.NonInteractive,
			MaxAlternatives: cfg.Verify.MaxAlternatives,
			Out:             cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		if summary.Failed() > 0 {
			exitStatus = 1
		}
		return nil
	},
}
