// Package paths centralizes where dotpkg keeps its files on disk,
// following the XDG base directory spec via adrg/xdg.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppDirName is the directory dotpkg claims under each XDG base dir.
const AppDirName = "dotpkg"

// StateDir holds run artifacts that should survive the process: log
// files and retry logs.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppDirName)
}

// LogDir is where per-run log files land.
func LogDir() string {
	return StateDir()
}

// RetryDir is where retry logs land.
func RetryDir() string {
	return filepath.Join(StateDir(), "retry")
}

// DotfilesRoot resolves the dotfiles repository: $DOTFILES_ROOT when
// set, otherwise ~/.dotfiles.
func DotfilesRoot() string {
	if root := os.Getenv("DOTFILES_ROOT"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dotfiles"
	}
	return filepath.Join(home, ".dotfiles")
}

// ManifestDir is the default location of packages.yaml inside the
// dotfiles repository.
func ManifestDir() string {
	return filepath.Join(DotfilesRoot(), "manifests")
}

// ExpandHome resolves a leading ~ in user-supplied paths.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
