package backends

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotpkg/dotpkg/pkg/cache"
	dperrors "github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/style"
)

func TestMain(m *testing.M) {
	style.DisableColors()
	m.Run()
}

func testOptions(runner *fakeRunner) (Options, *bytes.Buffer) {
	var out bytes.Buffer
	return Options{Runner: runner, Out: &out}, &out
}

func TestRegistryCoversAllBackends(t *testing.T) {
	opts, _ := testOptions(newFakeRunner())
	reg := NewRegistry(opts)

	require.Len(t, reg, 4)
	for _, id := range manifest.AllBackends() {
		require.Contains(t, reg, id)
		assert.Equal(t, id, reg[id].ID())
	}
}

func TestExtractIdentifier(t *testing.T) {
	opts, _ := testOptions(newFakeRunner())
	brew := NewBrew(opts)

	id, err := brew.ExtractIdentifier("ripgrep", manifest.Package{
		Brew: &manifest.BackendConfig{Name: "rg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rg", id)

	// Empty config name falls back to the package name.
	id, err = brew.ExtractIdentifier("ripgrep", manifest.Package{
		Brew: &manifest.BackendConfig{},
	})
	require.NoError(t, err)
	assert.Equal(t, "ripgrep", id)

	// No block at all advances the priority chain via NO_CONFIG.
	_, err = brew.ExtractIdentifier("ripgrep", manifest.Package{})
	require.Error(t, err)
	assert.True(t, dperrors.IsErrorCode(err, dperrors.ErrNoConfig))
}

func TestAvailableChecksBinary(t *testing.T) {
	runner := newFakeRunner()
	runner.missing["mise"] = true
	runner.missing["add-apt-repository"] = true
	opts, _ := testOptions(runner)
	reg := NewRegistry(opts)

	assert.False(t, reg[manifest.BackendMise].Available())
	assert.True(t, reg[manifest.BackendBrew].Available())
	assert.True(t, reg[manifest.BackendApt].Available())
	// ppa needs add-apt-repository on top of apt-get.
	assert.False(t, reg[manifest.BackendPPA].Available())
}

func TestMiseListings(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["mise ls --installed"] = "node 22.1.0 ~/.config/mise\nnode 20.0.0 ~/.config/mise\nterraform 1.9.0\n"
	runner.outputs["mise registry"] = "node core:node\nterraform aqua:hashicorp/terraform\nripgrep aqua:BurntSushi/ripgrep\n"
	opts, _ := testOptions(runner)
	mise := NewMise(opts)
	c := cache.New()
	ctx := context.Background()

	src := mise.Source(false)
	assert.True(t, c.IsInstalled(ctx, src, "node"))
	assert.True(t, c.IsInstalled(ctx, src, "terraform"))
	assert.False(t, c.IsInstalled(ctx, src, "ripgrep"))
	assert.True(t, c.Exists(ctx, src, "ripgrep"))

	// One listing each, independent of lookup count.
	assert.Equal(t, 1, runner.countCalls("mise ls"))
	assert.Equal(t, 1, runner.countCalls("mise registry"))
}

func TestMiseInstallBulkBatches(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["mise ls --installed"] = ""
	runner.outputs["mise registry"] = "node core:node\ngo core:go\n"
	opts, _ := testOptions(runner)
	mise := NewMise(opts)

	summary := mise.InstallBulk(context.Background(), cache.New(), []Request{
		{Package: "node", Identifier: "node"},
		{Package: "go", Identifier: "go"},
	}, false)

	assert.Equal(t, 2, summary.Count(StatusInstalled))
	assert.Equal(t, 1, runner.countCalls("mise use -g node go"))
}

func TestBrewSearchSkipsHeaders(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["brew search --quiet pytest"] = "==> Formulae\npytest\npython-pytest\n\n==> Casks\n"
	opts, _ := testOptions(runner)
	brew := NewBrew(opts)

	results, err := brew.Search(context.Background(), "pytest")
	require.NoError(t, err)
	assert.Equal(t, []string{"pytest", "python-pytest"}, results)
}

func TestBrewInstallBulkPartitionsCasks(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["brew list -1 --formula"] = "git\n"
	runner.outputs["brew list -1 --cask"] = ""
	runner.outputs["brew formulae"] = "git\nripgrep\nfzf\n"
	runner.outputs["brew casks"] = "kitty\nwezterm\n"
	opts, _ := testOptions(runner)
	brew := NewBrew(opts)

	summary := brew.InstallBulk(context.Background(), cache.New(), []Request{
		{Package: "git", Identifier: "git"},
		{Package: "ripgrep", Identifier: "ripgrep"},
		{Package: "fzf", Identifier: "fzf"},
		{Package: "kitty", Identifier: "kitty", Cask: true},
	}, false)

	assert.Equal(t, 1, summary.Count(StatusAlready), "git already installed")
	assert.Equal(t, 3, summary.Count(StatusInstalled))
	assert.Equal(t, 1, runner.countCalls("brew install ripgrep fzf"))
	assert.Equal(t, 1, runner.countCalls("brew install --cask kitty"))
}

func TestAptListInstalledFiltersStatusAndArch(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["dpkg-query -W -f ${binary:Package} ${db:Status-Status}\n"] =
		"git installed\nlibfoo:amd64 installed\nremoved-pkg config-files\n"
	opts, _ := testOptions(runner)
	apt := NewApt(opts)

	installed, err := apt.source.ListInstalled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "libfoo"}, installed)
}

func TestAptSearchParsesNames(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["apt-cache search --names-only pytest"] =
		"python3-pytest - Simple, powerful testing in Python3\npython3-pytest-cov - coverage plugin\n"
	opts, _ := testOptions(runner)
	apt := NewApt(opts)

	results, err := apt.Search(context.Background(), "pytest")
	require.NoError(t, err)
	assert.Equal(t, []string{"python3-pytest", "python3-pytest-cov"}, results)
}

func TestAptInstallBulkBatchesWithSudo(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["dpkg-query -W -f ${binary:Package} ${db:Status-Status}\n"] = ""
	runner.outputs["apt-cache pkgnames"] = "git\ncurl\nhtop\n"
	opts, _ := testOptions(runner)
	apt := NewApt(opts)

	summary := apt.InstallBulk(context.Background(), cache.New(), []Request{
		{Package: "git", Identifier: "git"},
		{Package: "curl", Identifier: "curl"},
		{Package: "htop", Identifier: "htop"},
	}, false)

	assert.Equal(t, 3, summary.Count(StatusInstalled))
	assert.Equal(t, 1, runner.countCalls("sudo apt-get install -y git curl htop"))
}

func TestBatchFailureFallsBackPerPackage(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["dpkg-query -W -f ${binary:Package} ${db:Status-Status}\n"] = ""
	runner.outputs["apt-cache pkgnames"] = ""
	runner.errs["sudo apt-get install -y good bad"] = errors.New("exit status 100")
	runner.errs["sudo apt-get install -y bad"] = errors.New("exit status 100")
	opts, _ := testOptions(runner)
	apt := NewApt(opts)

	summary := apt.InstallBulk(context.Background(), cache.New(), []Request{
		{Package: "good", Identifier: "good"},
		{Package: "bad", Identifier: "bad"},
	}, false)

	assert.Equal(t, 1, summary.Count(StatusInstalled))
	assert.Equal(t, 1, summary.Failed())
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		if r.Package == "bad" {
			assert.Contains(t, r.Reason, "exit status 100")
		}
	}
}

func TestDryRunIssuesNoInstallCommands(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["dpkg-query -W -f ${binary:Package} ${db:Status-Status}\n"] = ""
	runner.outputs["apt-cache pkgnames"] = "git\n"
	opts, out := testOptions(runner)
	apt := NewApt(opts)

	summary := apt.InstallBulk(context.Background(), cache.New(), []Request{
		{Package: "git", Identifier: "git"},
	}, true)

	assert.Equal(t, 1, summary.Count(StatusDryRun))
	assert.Equal(t, 0, runner.countCalls("sudo apt-get install"))
	assert.Contains(t, out.String(), "[dry-run]")
	assert.Contains(t, out.String(), "apt-get install -y git")
}
