package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotpkg/dotpkg/pkg/backends"
	dotpkgerrors "github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/interact"
	"github.com/dotpkg/dotpkg/pkg/platform"
	"github.com/dotpkg/dotpkg/pkg/style"
	"github.com/dotpkg/dotpkg/pkg/testutil"
	"github.com/dotpkg/dotpkg/pkg/verify"
)

func TestMain(m *testing.M) {
	style.DisableColors()
	os.Exit(m.Run())
}

const aptListingCmd = "dpkg-query -W -f ${binary:Package} ${db:Status-Status}\n"

// run wires a scripted runner into a full hermetic pipeline on ubuntu
// with auto-skip resolution.
type run struct {
	runner *testutil.Runner
	out    bytes.Buffer
	opts   Options
}

func newRun(t *testing.T) *run {
	t.Helper()
	r := &run{runner: testutil.NewRunner()}
	registry := backends.NewRegistry(backends.Options{
		Runner:        r.runner,
		Out:           &r.out,
		AptSourcesDir: t.TempDir(),
	})
	r.opts = Options{
		Platform: platform.Ubuntu,
		Registry: registry,
		Resolver: interact.NewAutoSkip(&r.out),
		Out:      &r.out,
		RetryDir: t.TempDir(),
	}
	return r
}

func TestAlreadyInstalledIsNoOpSuccess(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  core:
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
    packages: [git, curl]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = "git installed\ncurl installed\n"
	r.runner.Outputs["apt-cache pkgnames"] = "git\ncurl\n"

	summary, err := InstallProfile(context.Background(), m, "minimal", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Considered)
	assert.Equal(t, 2, summary.Already())
	assert.Equal(t, 0, summary.Installed())
	assert.Equal(t, 0, summary.Failed())
	assert.Equal(t, 0, r.runner.CountCalls("sudo apt-get install"))
}

func TestUnavailableBackendSkipsPackage(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  tools:
    priority: [mise]
packages:
  foo-cli:
    category: tools
    mise: {}
profiles:
  dev:
    packages: [foo-cli]
`, "")
	r := newRun(t)
	r.runner.Missing["mise"] = true

	summary, err := InstallProfile(context.Background(), m, "dev", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Considered)
	require.Len(t, summary.Skips, 1)
	assert.Equal(t, "foo-cli", summary.Skips[0].Package)
	assert.Equal(t, SkipNoBackend, summary.Skips[0].Reason)
	assert.Equal(t, 0, summary.Failed())
}

func TestFuzzyIssueIsAutoSkippedNotSubstituted(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  core:
    priority: [apt]
packages:
  python-pytest:
    category: core
    apt: {}
profiles:
  py:
    packages: [python-pytest]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "python3-pytest\n"
	r.runner.Outputs["apt-cache search --names-only python-pytest"] = ""

	summary, err := InstallProfile(context.Background(), m, "py", r.opts)
	require.NoError(t, err)

	require.Len(t, summary.Skips, 1)
	assert.Equal(t, SkipUser, summary.Skips[0].Reason)
	assert.Equal(t, 0, summary.Installed())
	assert.Equal(t, 0, r.runner.CountCalls("sudo apt-get install"))
	assert.Contains(t, r.out.String(), "python3-pytest")
}

const fullManifest = `
version: 1
categories:
  langs:
    priority: [mise]
  cli:
    priority: [brew, apt]
  sys:
    priority: [apt]
  extra:
    priority: [ppa]
packages:
  node:
    category: langs
    mise: {}
  ripgrep:
    category: cli
    brew: {}
  htop:
    category: sys
    apt: {}
  neovim:
    category: extra
    ppa:
      repo: ppa:neovim-ppa/stable
profiles:
  full:
    packages: [node, ripgrep, htop, neovim]
`

// scriptFull makes every backend list cleanly with all four packages
// available and nothing installed.
func scriptFull(r *run) {
	r.runner.Outputs["mise ls --installed"] = ""
	r.runner.Outputs["mise registry"] = "node\ngo\n"
	r.runner.Outputs["brew list -1 --formula"] = ""
	r.runner.Outputs["brew formulae"] = "ripgrep\nfzf\n"
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "htop\nneovim\n"
}

func TestDryRunSpansAllBackendsWithZeroInstalls(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)
	r.opts.DryRun = true
	scriptFull(r)

	summary, err := InstallProfile(context.Background(), m, "full", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Considered)
	assert.Len(t, summary.Backends, 4)
	assert.Equal(t, 4, summary.count(backends.StatusDryRun))
	assert.Equal(t, 0, summary.Failed())

	// Intent is printed, nothing mutating runs.
	assert.Contains(t, r.out.String(), style.DryRunPrefix)
	assert.Equal(t, 0, r.runner.CountCalls("sudo"))
	assert.Equal(t, 0, r.runner.CountCalls("mise use"))
	assert.Equal(t, 0, r.runner.CountCalls("brew install"))
}

func TestDryRunIsIdempotent(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")

	summaries := make([]*RunSummary, 2)
	for i := range summaries {
		r := newRun(t)
		r.opts.DryRun = true
		scriptFull(r)
		s, err := InstallProfile(context.Background(), m, "full", r.opts)
		require.NoError(t, err)
		summaries[i] = s
	}
	assert.Equal(t, summaries[0], summaries[1])
}

func TestPPAAddsRepoAndRefreshesOnce(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)
	scriptFull(r)

	summary, err := InstallProfile(context.Background(), m, "full", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Failed())
	assert.Equal(t, 4, summary.Installed())
	assert.Equal(t, 1, r.runner.CountCalls("sudo add-apt-repository"))
	assert.Equal(t, 1, r.runner.CountCalls("sudo apt-get update"))
	assert.Equal(t, 1, r.runner.CountCalls("sudo apt-get install -y neovim"))
}

// chooser scripts interactive decisions for tests.
type chooser struct {
	choices interact.Choices
	err     error
}

func (c *chooser) Resolve([]verify.Issue) (interact.Choices, error) {
	return c.choices, c.err
}

func TestSubstituteRewritesIdentifierBeforeDispatch(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  core:
    priority: [apt]
packages:
  python-pytest:
    category: core
    apt: {}
profiles:
  py:
    packages: [python-pytest]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "python3-pytest\n"
	r.runner.Outputs["apt-cache search --names-only python-pytest"] = ""
	r.opts.Resolver = &chooser{choices: interact.Choices{
		"python-pytest": {Substitute: "python3-pytest"},
	}}

	summary, err := InstallProfile(context.Background(), m, "py", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Installed())
	assert.Equal(t, 1, r.runner.CountCalls("sudo apt-get install -y python3-pytest"))
	assert.Empty(t, summary.RetryLogPath, "substituted issues are resolved")
}

func TestAbortStopsBeforeAnyDispatch(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)
	scriptFull(r)
	r.runner.Outputs["apt-cache pkgnames"] = "htop\n" // neovim missing -> issue
	r.runner.Outputs["apt-cache search --names-only neovim"] = ""
	r.opts.Resolver = &chooser{err: dotpkgerrors.New(dotpkgerrors.ErrUserAbort, "aborted")}

	summary, err := InstallProfile(context.Background(), m, "full", r.opts)
	require.Error(t, err)
	assert.True(t, dotpkgerrors.IsErrorCode(err, dotpkgerrors.ErrUserAbort))

	assert.Empty(t, summary.Backends)
	assert.Equal(t, 0, r.runner.CountCalls("sudo apt-get install"))
	assert.Equal(t, 0, r.runner.CountCalls("mise use"))
}

func TestRetryLogRecordsAutoSkippedIssues(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  core:
    priority: [apt]
packages:
  ghost:
    category: core
    apt: {}
profiles:
  py:
    packages: [ghost]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "git\n"
	r.runner.Outputs["apt-cache search --names-only ghost"] = ""

	summary, err := InstallProfile(context.Background(), m, "py", r.opts)
	require.NoError(t, err)

	require.NotEmpty(t, summary.RetryLogPath)
	assert.Equal(t, r.opts.RetryDir, filepath.Dir(summary.RetryLogPath))
	data, readErr := os.ReadFile(summary.RetryLogPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), `"ghost"`)
}

func TestPriorityOverrideBeatsCategoryDefault(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  cli:
    priority: [brew, apt]
packages:
  fzf:
    category: cli
    priority: [apt]
    apt: {}
profiles:
  one:
    packages: [fzf]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "fzf\n"

	summary, err := InstallProfile(context.Background(), m, "one", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Installed())
	assert.Equal(t, 0, r.runner.CountCalls("brew"))
	assert.Equal(t, 1, r.runner.CountCalls("sudo apt-get install -y fzf"))
}

func TestChainFallsThroughMissingConfig(t *testing.T) {
	// brew is first in the chain but the package only carries an apt
	// block, so dispatch falls through without error.
	m := testutil.LoadManifest(t, `
version: 1
categories:
  cli:
    priority: [brew, apt]
packages:
  htop:
    category: cli
    apt: {}
profiles:
  one:
    packages: [htop]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "htop\n"

	summary, err := InstallProfile(context.Background(), m, "one", r.opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Installed())
	assert.Empty(t, summary.Skips)
}

func TestPlatformGatesAptOnMacOS(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  sys:
    priority: [apt]
packages:
  htop:
    category: sys
    apt: {}
profiles:
  one:
    packages: [htop]
`, "")
	r := newRun(t)
	r.opts.Platform = platform.MacOS

	summary, err := InstallProfile(context.Background(), m, "one", r.opts)
	require.NoError(t, err)

	require.Len(t, summary.Skips, 1)
	assert.Equal(t, SkipNoBackend, summary.Skips[0].Reason)
	assert.Equal(t, 0, r.runner.CountCalls("sudo"))
}

func TestFailuresLandInSummaryNotError(t *testing.T) {
	m := testutil.LoadManifest(t, `
version: 1
categories:
  sys:
    priority: [apt]
packages:
  good:
    category: sys
    apt: {}
  bad:
    category: sys
    apt: {}
profiles:
  one:
    packages: [good, bad]
`, "")
	r := newRun(t)
	r.runner.Outputs[aptListingCmd] = ""
	r.runner.Outputs["apt-cache pkgnames"] = "good\nbad\n"
	r.runner.Errs["sudo apt-get install -y bad good"] = errors.New("exit status 100")
	r.runner.Errs["sudo apt-get install -y good bad"] = errors.New("exit status 100")
	r.runner.Errs["sudo apt-get install -y bad"] = errors.New("exit status 100")

	summary, err := InstallProfile(context.Background(), m, "one", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Installed())
	assert.Equal(t, 1, summary.Failed())
	assert.Contains(t, r.out.String(), "1 failed")
}

func TestUnknownProfileIsAnError(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)

	_, err := InstallProfile(context.Background(), m, "nope", r.opts)
	require.Error(t, err)
	assert.True(t, dotpkgerrors.IsErrorCode(err, dotpkgerrors.ErrProfileNotFound))
}

func TestVerifyProfileReportsWithoutInstalling(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)
	scriptFull(r)
	r.runner.Outputs["apt-cache pkgnames"] = "htop\n" // neovim missing
	r.runner.Outputs["apt-cache search --names-only neovim"] = "neovim-qt\n"

	report, err := VerifyProfile(context.Background(), m, "full", r.opts)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Considered)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "neovim", report.Issues[0].Package)
	assert.Equal(t, verify.StatusFuzzy, report.Issues[0].Status)
	assert.Equal(t, 0, r.runner.CountCalls("sudo apt-get install"))
}

func TestInstallPackagesDrivesRetry(t *testing.T) {
	m := testutil.LoadManifest(t, fullManifest, "")
	r := newRun(t)
	scriptFull(r)

	summary, err := InstallPackages(context.Background(), m, "retry", []string{"htop"}, r.opts)
	require.NoError(t, err)

	assert.Equal(t, "retry", summary.Profile)
	assert.Equal(t, 1, summary.Installed())
	assert.True(t, strings.Contains(r.out.String(), "1 installed"))
}
