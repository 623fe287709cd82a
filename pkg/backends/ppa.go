package backends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/style"
)

const defaultAptSourcesDir = "/etc/apt/sources.list.d"

// PPA is the third-party-repository adapter. It rides on apt for the
// actual installs; what it adds is repository management: add every
// missing repository first, refresh the package index exactly once,
// then install everything in one batch. The naive per-package path
// would re-run the minutes-long index refresh once per package.
type PPA struct {
	runner     Runner
	out        io.Writer
	apt        *Apt
	sourcesDir string
}

// NewPPA creates the ppa adapter on top of an existing apt adapter so
// the two share one dpkg cache namespace.
func NewPPA(opts Options, apt *Apt) *PPA {
	dir := opts.AptSourcesDir
	if dir == "" {
		dir = defaultAptSourcesDir
	}
	return &PPA{
		runner:     opts.runner(),
		out:        opts.out(),
		apt:        apt,
		sourcesDir: dir,
	}
}

// ID returns the backend identifier.
func (p *PPA) ID() manifest.BackendID { return manifest.BackendPPA }

// Available requires both apt-get and add-apt-repository.
func (p *PPA) Available() bool {
	if !p.apt.Available() {
		return false
	}
	_, err := p.runner.LookPath("add-apt-repository")
	return err == nil
}

// ExtractIdentifier resolves the package name from the ppa block.
func (p *PPA) ExtractIdentifier(name string, pkg manifest.Package) (string, error) {
	cfg := pkg.Config(manifest.BackendPPA)
	if cfg == nil {
		return "", errors.Newf(errors.ErrNoConfig, "package %q has no ppa configuration", name)
	}
	return identifierFor(name, cfg), nil
}

// Source shares apt's dpkg namespace.
func (p *PPA) Source(bool) cache.Source { return p.apt.source }

// Search delegates to apt's search; once a repository is added its
// packages appear in the same cache.
func (p *PPA) Search(ctx context.Context, needle string) ([]string, error) {
	return p.apt.Search(ctx, needle)
}

// IsRepositoryAdded scans the apt sources directory for the repository
// spec, so AddRepository stays idempotent.
func (p *PPA) IsRepositoryAdded(repoSpec string) bool {
	needle := normalizeRepoSpec(repoSpec)
	if needle == "" {
		return false
	}

	entries, err := os.ReadDir(p.sourcesDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".list", ".sources":
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.sourcesDir, entry.Name()))
		if err != nil {
			continue
		}
		if strings.Contains(string(data), needle) {
			return true
		}
	}
	return false
}

// AddRepository registers a third-party repository, fetching its
// signing key first when one is configured. The index is deliberately
// not refreshed here; InstallBulk refreshes once for the whole batch.
func (p *PPA) AddRepository(ctx context.Context, repoSpec, keyURL string, dryRun bool) error {
	if dryRun {
		if keyURL != "" {
			fmt.Fprintln(p.out, style.DryRun(fmt.Sprintf("fetch signing key %s", keyURL)))
		}
		fmt.Fprintln(p.out, style.DryRun(fmt.Sprintf("sudo add-apt-repository -y --no-update %s", repoSpec)))
		return nil
	}

	if keyURL != "" {
		if err := p.fetchSigningKey(ctx, repoSpec, keyURL); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	err := p.runner.Sudo(ctx, "add-apt-repository", "-y", "--no-update", repoSpec)
	if err != nil {
		return errors.Wrapf(err, errors.ErrRepoAdd, "failed to add repository %s", repoSpec)
	}
	return nil
}

// fetchSigningKey downloads and dearmors the repository key into the
// apt keyrings directory.
func (p *PPA) fetchSigningKey(ctx context.Context, repoSpec, keyURL string) error {
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	keyPath := fmt.Sprintf("/etc/apt/keyrings/%s.gpg", repoFileStem(repoSpec))
	if err := p.runner.Sudo(ctx, "mkdir", "-p", "/etc/apt/keyrings"); err != nil {
		return errors.Wrap(err, errors.ErrRepoAdd, "failed to create apt keyrings directory")
	}

	script := fmt.Sprintf("curl -fsSL %q | gpg --dearmor --yes -o %q", keyURL, keyPath)
	if err := p.runner.Sudo(ctx, "sh", "-c", script); err != nil {
		return errors.Wrapf(err, errors.ErrRepoAdd, "failed to fetch signing key %s", keyURL)
	}
	return nil
}

// InstallBulk adds the repositories needed by packages not yet
// installed, refreshes the index once, then installs everything
// through the shared apt batch path.
func (p *PPA) InstallBulk(ctx context.Context, c *cache.Cache, reqs []Request, dryRun bool) Summary {
	logger := logging.GetLogger("ppa")
	summary := Summary{Backend: manifest.BackendPPA}

	// Only packages the cache does not already show installed drive
	// repository work; an all-installed batch touches neither
	// add-apt-repository nor the index.
	pendingIDs := make(map[string]bool)
	var pending []Request
	for _, req := range reqs {
		if !c.IsInstalled(ctx, p.apt.source, req.Identifier) {
			pendingIDs[req.Identifier] = true
			pending = append(pending, req)
		}
	}

	repos := uniqueRepos(pending)
	var failedRepos map[string]string

	for _, repo := range repos {
		if p.IsRepositoryAdded(repo.spec) {
			logger.Debug().Str("repo", repo.spec).Msg("Repository already present")
			continue
		}
		if err := p.AddRepository(ctx, repo.spec, repo.key, dryRun); err != nil {
			logger.Error().Err(err).Str("repo", repo.spec).Msg("Adding repository failed")
			if failedRepos == nil {
				failedRepos = make(map[string]string)
			}
			failedRepos[repo.spec] = err.Error()
		}
	}

	// Packages whose repository could not be added fail early instead
	// of producing a confusing "not found" from apt-get.
	var installable []Request
	needRefresh := false
	for _, req := range reqs {
		if reason, ok := failedRepos[req.Repo]; ok {
			summary.Results = append(summary.Results, Result{
				Package:    req.Package,
				Identifier: req.Identifier,
				Status:     StatusFailed,
				Reason:     reason,
			})
			continue
		}
		installable = append(installable, req)
		if pendingIDs[req.Identifier] {
			needRefresh = true
		}
	}

	if len(installable) == 0 {
		return summary
	}

	if needRefresh {
		if dryRun {
			fmt.Fprintln(p.out, style.DryRun("sudo apt-get update"))
		} else {
			refreshCtx, cancel := context.WithTimeout(ctx, RefreshTimeout)
			err := p.runner.Sudo(refreshCtx, "apt-get", "update")
			cancel()
			if err != nil {
				// A stale index can still install; warn and carry on.
				logger.Warn().Err(err).Msg("apt-get update failed, installing against the stale index")
			}
		}
	}

	op := bulkOp{
		backend: manifest.BackendPPA,
		out:     p.out,
		describe: func(ids []string) string {
			return "sudo apt-get install -y " + strings.Join(ids, " ")
		},
		batch: func(ctx context.Context, ids []string) error {
			return p.runner.Sudo(ctx, "apt-get", append([]string{"install", "-y"}, ids...)...)
		},
		single: func(ctx context.Context, id string) error {
			return p.runner.Sudo(ctx, "apt-get", "install", "-y", id)
		},
	}
	summary.Results = append(summary.Results, op.run(ctx, c, p.apt.source, installable, dryRun)...)
	return summary
}

type repoRef struct {
	spec string
	key  string
}

func uniqueRepos(reqs []Request) []repoRef {
	seen := make(map[string]bool)
	var out []repoRef
	for _, req := range reqs {
		if req.Repo == "" || seen[req.Repo] {
			continue
		}
		seen[req.Repo] = true
		out = append(out, repoRef{spec: req.Repo, key: req.Key})
	}
	return out
}

// normalizeRepoSpec reduces a repository spec to the substring that
// identifies it inside a sources file: "ppa:owner/name" becomes
// "owner/name", a raw deb line keeps its URL.
func normalizeRepoSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if after, ok := strings.CutPrefix(spec, "ppa:"); ok {
		return after
	}
	if strings.HasPrefix(spec, "deb ") || strings.HasPrefix(spec, "deb-src ") {
		for _, field := range strings.Fields(spec) {
			if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
				return field
			}
		}
	}
	return spec
}

// repoFileStem derives a filesystem-safe stem for keyring files.
func repoFileStem(spec string) string {
	stem := normalizeRepoSpec(spec)
	stem = strings.TrimPrefix(stem, "https://")
	stem = strings.TrimPrefix(stem, "http://")
	replacer := strings.NewReplacer("/", "-", ":", "-", ".", "-", " ", "-")
	return strings.Trim(replacer.Replace(stem), "-")
}
