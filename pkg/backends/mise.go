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

// Mise is the version-manager adapter. Tools are activated globally
// with `mise use -g`, which installs them as a side effect; the
// registry listing doubles as the available set.
type Mise struct {
	runner Runner
	out    io.Writer
	source *miseSource
}

// NewMise creates the mise adapter.
func NewMise(opts Options) *Mise {
	runner := opts.runner()
	return &Mise{
		runner: runner,
		out:    opts.out(),
		source: &miseSource{runner: runner},
	}
}

// ID returns the backend identifier.
func (m *Mise) ID() manifest.BackendID { return manifest.BackendMise }

// Available reports whether the mise binary is on PATH.
func (m *Mise) Available() bool {
	_, err := m.runner.LookPath("mise")
	return err == nil
}

// ExtractIdentifier resolves the mise tool name for a package.
func (m *Mise) ExtractIdentifier(name string, pkg manifest.Package) (string, error) {
	cfg := pkg.Config(manifest.BackendMise)
	if cfg == nil {
		return "", errors.Newf(errors.ErrNoConfig, "package %q has no mise configuration", name)
	}
	return identifierFor(name, cfg), nil
}

// Source returns the single mise namespace; the cask flag is
// meaningless here.
func (m *Mise) Source(bool) cache.Source { return m.source }

// Search returns nothing: mise has no native search facility, so
// verification falls through to the transform and cache-scan tiers.
func (m *Mise) Search(context.Context, string) ([]string, error) {
	return nil, nil
}

// InstallBulk activates all tools in one `mise use -g` invocation.
func (m *Mise) InstallBulk(ctx context.Context, c *cache.Cache, reqs []Request, dryRun bool) Summary {
	op := bulkOp{
		backend: manifest.BackendMise,
		out:     m.out,
		describe: func(ids []string) string {
			return "mise use -g " + strings.Join(ids, " ")
		},
		batch: func(ctx context.Context, ids []string) error {
			return m.runner.Run(ctx, "mise", append([]string{"use", "-g"}, ids...)...)
		},
		single: func(ctx context.Context, id string) error {
			return m.runner.Run(ctx, "mise", "use", "-g", id)
		},
	}
	return Summary{
		Backend: manifest.BackendMise,
		Results: op.run(ctx, c, m.source, reqs, dryRun),
	}
}

// miseSource lists the mise namespace for the cache.
type miseSource struct {
	runner Runner
}

func (s *miseSource) CacheKey() string { return "mise" }

// ListInstalled parses `mise ls --installed`, whose first column is
// the tool name (one line per installed version).
func (s *miseSource) ListInstalled(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	output, err := s.runner.Output(ctx, "mise", "ls", "--installed")
	if err != nil {
		return nil, fmt.Errorf("mise ls: %w", err)
	}
	return FirstFields(output), nil
}

// ListAvailable parses `mise registry`, the catalog of every tool
// short-name mise can install.
func (s *miseSource) ListAvailable(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	output, err := s.runner.Output(ctx, "mise", "registry")
	if err != nil {
		return nil, fmt.Errorf("mise registry: %w", err)
	}
	return FirstFields(output), nil
}
