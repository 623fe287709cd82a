package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotpkg/dotpkg/pkg/manifest"
)

// WriteManifest drops inline YAML into dir under the given file name
// and returns the full path.
func WriteManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// LoadManifest parses a base document, and an optional platform
// overlay, from inline YAML.
func LoadManifest(t *testing.T, base, overlay string) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	basePath := WriteManifest(t, dir, manifest.BaseFileName, base)
	overlayPath := ""
	if overlay != "" {
		overlayPath = WriteManifest(t, dir, "packages-overlay.yaml", overlay)
	}
	m, err := manifest.Load(basePath, overlayPath)
	require.NoError(t, err)
	return m
}
