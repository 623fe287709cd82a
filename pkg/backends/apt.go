package backends

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/manifest"
)

// Apt is the system package-manager adapter for Debian-family hosts.
type Apt struct {
	runner Runner
	out    io.Writer
	source *aptSource
}

// NewApt creates the apt adapter.
func NewApt(opts Options) *Apt {
	runner := opts.runner()
	return &Apt{
		runner: runner,
		out:    opts.out(),
		source: &aptSource{runner: runner},
	}
}

// ID returns the backend identifier.
func (a *Apt) ID() manifest.BackendID { return manifest.BackendApt }

// Available reports whether apt-get is on PATH.
func (a *Apt) Available() bool {
	_, err := a.runner.LookPath("apt-get")
	return err == nil
}

// ExtractIdentifier resolves the apt package name for a package.
func (a *Apt) ExtractIdentifier(name string, pkg manifest.Package) (string, error) {
	cfg := pkg.Config(manifest.BackendApt)
	if cfg == nil {
		return "", errors.Newf(errors.ErrNoConfig, "package %q has no apt configuration", name)
	}
	return identifierFor(name, cfg), nil
}

// Source returns the single dpkg namespace; apt has no cask notion.
func (a *Apt) Source(bool) cache.Source { return a.source }

// Search runs `apt-cache search --names-only`, taking the package name
// from each "name - description" line.
func (a *Apt) Search(ctx context.Context, needle string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	output, err := a.runner.Output(ctx, "apt-cache", "search", "--names-only", needle)
	if err != nil {
		return nil, fmt.Errorf("apt-cache search: %w", err)
	}
	return FirstFields(output), nil
}

// InstallBulk batches everything into one `apt-get install -y`.
func (a *Apt) InstallBulk(ctx context.Context, c *cache.Cache, reqs []Request, dryRun bool) Summary {
	op := bulkOp{
		backend: manifest.BackendApt,
		out:     a.out,
		describe: func(ids []string) string {
			return "sudo apt-get install -y " + strings.Join(ids, " ")
		},
		batch: func(ctx context.Context, ids []string) error {
			return a.runner.Sudo(ctx, "apt-get", append([]string{"install", "-y"}, ids...)...)
		},
		single: func(ctx context.Context, id string) error {
			return a.runner.Sudo(ctx, "apt-get", "install", "-y", id)
		},
	}
	return Summary{
		Backend: manifest.BackendApt,
		Results: op.run(ctx, c, a.source, reqs, dryRun),
	}
}

// aptSource lists the dpkg database for the cache. The ppa adapter
// shares it: packages installed from a PPA land in the same database,
// and sharing keeps the listing count at one for both backends.
type aptSource struct {
	runner Runner
}

func (s *aptSource) CacheKey() string { return "apt" }

// ListInstalled asks dpkg-query for fully-installed packages.
func (s *aptSource) ListInstalled(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	output, err := s.runner.Output(ctx, "dpkg-query", "-W", "-f", "${binary:Package} ${db:Status-Status}\n")
	if err != nil {
		return nil, fmt.Errorf("dpkg-query: %w", err)
	}

	var installed []string
	for _, line := range ParseLines(output) {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] != "installed" {
			continue
		}
		// Strip any :arch qualifier so names match manifest entries.
		name := fields[0]
		if idx := strings.IndexByte(name, ':'); idx > 0 {
			name = name[:idx]
		}
		installed = append(installed, name)
	}
	return installed, nil
}

// ListAvailable asks the apt cache for every known package name.
func (s *aptSource) ListAvailable(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	output, err := s.runner.Output(ctx, "apt-cache", "pkgnames")
	if err != nil {
		return nil, fmt.Errorf("apt-cache pkgnames: %w", err)
	}
	return ParseLines(output), nil
}
