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

// Brew is the general-purpose package-manager adapter. Formulae and
// casks are different namespaces with separate listings and separate
// install paths, so the adapter carries two cache sources and
// partitions each bulk install accordingly.
type Brew struct {
	runner  Runner
	out     io.Writer
	formula *brewSource
	cask    *brewSource
}

// NewBrew creates the homebrew adapter.
func NewBrew(opts Options) *Brew {
	runner := opts.runner()
	return &Brew{
		runner:  runner,
		out:     opts.out(),
		formula: &brewSource{runner: runner, cask: false},
		cask:    &brewSource{runner: runner, cask: true},
	}
}

// ID returns the backend identifier.
func (b *Brew) ID() manifest.BackendID { return manifest.BackendBrew }

// Available reports whether the brew binary is on PATH.
func (b *Brew) Available() bool {
	_, err := b.runner.LookPath("brew")
	return err == nil
}

// ExtractIdentifier resolves the formula or cask name for a package.
func (b *Brew) ExtractIdentifier(name string, pkg manifest.Package) (string, error) {
	cfg := pkg.Config(manifest.BackendBrew)
	if cfg == nil {
		return "", errors.Newf(errors.ErrNoConfig, "package %q has no brew configuration", name)
	}
	return identifierFor(name, cfg), nil
}

// Source returns the formula or cask namespace.
func (b *Brew) Source(cask bool) cache.Source {
	if cask {
		return b.cask
	}
	return b.formula
}

// Search runs `brew search --quiet`, which covers both namespaces.
func (b *Brew) Search(ctx context.Context, needle string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	output, err := b.runner.Output(ctx, "brew", "search", "--quiet", needle)
	if err != nil {
		return nil, fmt.Errorf("brew search: %w", err)
	}

	var results []string
	for _, line := range ParseLines(output) {
		// Section headers show up when casks match too.
		if strings.HasPrefix(line, "==>") {
			continue
		}
		results = append(results, line)
	}
	return results, nil
}

// InstallBulk partitions requests into formulae and casks and batches
// each partition into one `brew install` invocation.
func (b *Brew) InstallBulk(ctx context.Context, c *cache.Cache, reqs []Request, dryRun bool) Summary {
	var formulae, casks []Request
	for _, req := range reqs {
		if req.Cask {
			casks = append(casks, req)
		} else {
			formulae = append(formulae, req)
		}
	}

	summary := Summary{Backend: manifest.BackendBrew}
	summary.Results = append(summary.Results,
		b.installPartition(ctx, c, b.formula, formulae, dryRun, false)...)
	summary.Results = append(summary.Results,
		b.installPartition(ctx, c, b.cask, casks, dryRun, true)...)
	return summary
}

func (b *Brew) installPartition(ctx context.Context, c *cache.Cache, src cache.Source, reqs []Request, dryRun, cask bool) []Result {
	if len(reqs) == 0 {
		return nil
	}

	base := []string{"install"}
	display := "brew install "
	if cask {
		base = append(base, "--cask")
		display = "brew install --cask "
	}

	op := bulkOp{
		backend: manifest.BackendBrew,
		out:     b.out,
		describe: func(ids []string) string {
			return display + strings.Join(ids, " ")
		},
		batch: func(ctx context.Context, ids []string) error {
			return b.runner.Run(ctx, "brew", append(base, ids...)...)
		},
		single: func(ctx context.Context, id string) error {
			return b.runner.Run(ctx, "brew", append(base, id)...)
		},
	}
	return op.run(ctx, c, src, reqs, dryRun)
}

// brewSource lists one brew namespace for the cache.
type brewSource struct {
	runner Runner
	cask   bool
}

func (s *brewSource) CacheKey() string {
	if s.cask {
		return "brew-cask"
	}
	return "brew"
}

func (s *brewSource) ListInstalled(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	ns := "--formula"
	if s.cask {
		ns = "--cask"
	}
	output, err := s.runner.Output(ctx, "brew", "list", "-1", ns)
	if err != nil {
		return nil, fmt.Errorf("brew list %s: %w", ns, err)
	}
	return ParseLines(output), nil
}

func (s *brewSource) ListAvailable(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	cmd := "formulae"
	if s.cask {
		cmd = "casks"
	}
	output, err := s.runner.Output(ctx, "brew", cmd)
	if err != nil {
		return nil, fmt.Errorf("brew %s: %w", cmd, err)
	}
	return ParseLines(output), nil
}
