package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotpkg/dotpkg/pkg/orchestrator"
	"github.com/dotpkg/dotpkg/pkg/style"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [profile]",
	Short: "Check that every package identifier exists under its backend",
	Long: `Verify resolves the profile exactly as install does, but stops after
checking identifiers against the backend listings. Nothing is
installed and nothing is prompted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, plat, m, err := loadSetup()
		if err != nil {
			return err
		}
		profile, err := profileArg(args, cfg)
		if err != nil {
			return err
		}

		report, err := orchestrator.VerifyProfile(cmd.Context(), m, profile, orchestrator.Options{
			Platform:        plat,
			MaxAlternatives: cfg.Verify.MaxAlternatives,
			Out:             cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, skip := range report.Skips {
			fmt.Fprintln(out, style.Skipped(skip.Package, string(skip.Reason)))
		}
		if len(report.Issues) == 0 {
			fmt.Fprintln(out, style.Success(fmt.Sprintf("%d packages verified", report.Considered)))
			return nil
		}

		rows := make([][]string, 0, len(report.Issues))
		for _, issue := range report.Issues {
			rows = append(rows, []string{
				issue.Package,
				string(issue.Backend),
				issue.Identifier,
				string(issue.Status),
				strings.Join(issue.Alternatives, ", "),
			})
		}
		fmt.Fprintln(out, style.RenderTable(
			[]string{"package", "backend", "identifier", "status", "alternatives"}, rows))
		fmt.Fprintln(out, style.Warning(fmt.Sprintf("%d of %d packages could not be verified",
			len(report.Issues), report.Considered)))
		return nil
	},
}
