package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/platform"
	"github.com/dotpkg/dotpkg/pkg/style"
)

func TestMain(m *testing.M) {
	style.DisableColors()
	os.Exit(m.Run())
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no error", nil, 0},
		{"user abort", errors.New(errors.ErrUserAbort, "aborted"), 130},
		{"parse error", errors.New(errors.ErrManifestParse, "bad yaml"), 2},
		{"schema error", errors.New(errors.ErrManifestSchema, "bad manifest"), 2},
		{"anything else", errors.New(errors.ErrInstallFailed, "boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

const testManifest = `
version: 1
categories:
  core:
    description: everyday tools
    priority: [apt]
packages:
  git:
    category: core
    apt: {}
  curl:
    category: core
    apt: {}
profiles:
  minimal:
    description: bare minimum
    packages: [git]
  everything:
    include: [core]
`

func writeManifestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "packages.yaml"), []byte(testManifest), 0o644)
	require.NoError(t, err)
	return dir
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestListProfiles(t *testing.T) {
	t.Setenv(platform.EnvOverride, string(platform.Ubuntu))
	dir := writeManifestDir(t)

	out, err := execute(t, "list", "profiles", "--manifest-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "minimal")
	assert.Contains(t, out, "everything")
	assert.Contains(t, out, "bare minimum")
}

func TestListCategories(t *testing.T) {
	t.Setenv(platform.EnvOverride, string(platform.Ubuntu))
	dir := writeManifestDir(t)

	out, err := execute(t, "list", "categories", "--manifest-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "core")
	assert.Contains(t, out, "apt")
}

func TestListRejectsUnknownKind(t *testing.T) {
	_, err := execute(t, "list", "nonsense")
	assert.Error(t, err)
}

func TestDocsPrintsManifestReference(t *testing.T) {
	out, err := execute(t, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Manifest format")
	assert.Contains(t, out, "priority")
}

func TestVersionCommandExists(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"version"})
	require.NoError(t, err)
	assert.Equal(t, "version", cmd.Name())
}

func TestInstallRejectsMissingManifest(t *testing.T) {
	t.Setenv(platform.EnvOverride, string(platform.Ubuntu))
	empty := t.TempDir()

	_, err := execute(t, "install", "minimal", "--manifest-dir", empty, "--non-interactive")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrManifestAccess))
}
