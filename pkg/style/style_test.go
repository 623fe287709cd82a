package style

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	DisableColors()
	m.Run()
}

func TestDryRunCarriesStablePrefix(t *testing.T) {
	line := DryRun("brew install ripgrep")
	assert.True(t, strings.HasPrefix(line, DryRunPrefix), "got %q", line)
	assert.Contains(t, line, "brew install ripgrep")
}

func TestLineHelpers(t *testing.T) {
	assert.Contains(t, Success("done"), "done")
	assert.Contains(t, ErrorLine("boom"), "boom")
	assert.Contains(t, Warning("careful"), "careful")
	assert.Contains(t, Skipped("fzf", "no available backend"), "no available backend")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"BACKEND", "INSTALLED", "FAILED"},
		[][]string{
			{"apt", "12", "0"},
			{"brew", "3", "1"},
		},
	)

	assert.Contains(t, out, "BACKEND")
	assert.Contains(t, out, "apt")
	assert.Contains(t, out, "brew")
	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
}
