package main

import (
	"github.com/spf13/cobra"

	"github.com/dotpkg/dotpkg/pkg/config"
	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/orchestrator"
	"github.com/dotpkg/dotpkg/pkg/platform"
)

// exitStatus lets a command report a non-zero exit without turning
// expected outcomes (failed installs) into printed errors. main reads
// it after Execute.
var exitStatus int

// loadSetup resolves settings, platform, and the merged manifest for
// commands that operate on a profile.
func loadSetup() (*config.Settings, platform.Platform, *manifest.Manifest, error) {
	cfg, err := config.Load(manifestDir)
	if err != nil {
		return nil, "", nil, err
	}
	plat := platform.Detect()
	m, err := manifest.LoadDir(cfg.ManifestDir, plat)
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, plat, m, nil
}

// profileArg applies the configured default when no profile is named.
func profileArg(args []string, cfg *config.Settings) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.DefaultProfile != "" {
		return cfg.DefaultProfile, nil
	}
	return "", errors.New(errors.ErrInvalidInput, "no profile named and no default_profile configured")
}

var installCmd = &cobra.Command{
	Use:   "install [profile]",
	Short: "Install a profile's packages",
	Long: `Install resolves the profile's package set, picks a backend for each
package by walking its priority chain, verifies that every identifier
exists, and installs in one batched call per backend. Packages with no
usable backend are skipped, never fatal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.install")

		cfg, plat, m, err := loadSetup()
		if err != nil {
			return err
		}
		profile, err := profileArg(args, cfg)
		if err != nil {
			return err
		}

		logger.Info().
			Str("profile", profile).
			Str("platform", string(plat)).
			Bool("dryRun", dryRun).
			Msg("Starting install")

		summary, err := orchestrator.InstallProfile(cmd.Context(), m, profile, orchestrator.Options{
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
