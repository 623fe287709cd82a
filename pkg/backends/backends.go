// Package backends implements the four package-manager adapters: mise
// (version-manager), brew (general-purpose, with the formula/cask
// split), apt (system packages), and ppa (third-party apt
// repositories). Each adapter knows how to extract its identifier from
// a manifest entry, list its namespaces for the cache, search for
// near-misses, and install in bulk. Installation is batched: one
// subprocess per backend per run, not per package.
package backends

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/manifest"
)

// Subprocess budgets. Listings and searches are quick; an apt index
// refresh or a large install can legitimately take minutes.
const (
	ListTimeout    = 30 * time.Second
	SearchTimeout  = 30 * time.Second
	RefreshTimeout = 5 * time.Minute
	InstallTimeout = 15 * time.Minute
)

// Request is one package to install, with its identifier already
// resolved (including any user-chosen substitution).
type Request struct {
	Package    string // manifest package name
	Identifier string // backend identifier to install
	Cask       bool   // brew only: route through the cask namespace
	Repo       string // ppa only: repository spec
	Key        string // ppa only: signing key URL
}

// Status classifies the outcome for one request.
type Status string

const (
	StatusInstalled Status = "installed"
	StatusAlready   Status = "already-installed"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry-run"
)

// Result is the per-package outcome of a bulk install.
type Result struct {
	Package    string
	Identifier string
	Status     Status
	Reason     string // failure reason, empty otherwise
}

// Summary aggregates one backend's bulk install.
type Summary struct {
	Backend manifest.BackendID
	Results []Result
}

// Total is the number of requests considered.
func (s Summary) Total() int { return len(s.Results) }

// Count returns how many results carry the given status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failed is the number of outright failures.
func (s Summary) Failed() int { return s.Count(StatusFailed) }

// Backend is the common adapter contract.
type Backend interface {
	// ID returns the backend identifier this adapter serves.
	ID() manifest.BackendID

	// Available reports whether the underlying tooling exists on this
	// machine.
	Available() bool

	// ExtractIdentifier resolves the backend identifier for a manifest
	// package, or a NO_CONFIG error when the package declares no block
	// for this backend.
	ExtractIdentifier(name string, pkg manifest.Package) (string, error)

	// Source returns the cache namespace for lookups. Only brew
	// distinguishes the cask namespace; other adapters ignore the flag.
	Source(cask bool) cache.Source

	// Search invokes the backend's native search facility, trusting
	// its ranking. Backends without one return (nil, nil).
	Search(ctx context.Context, needle string) ([]string, error)

	// InstallBulk installs all requests, batching into as few
	// subprocess invocations as the backend allows. Already-installed
	// packages (per the cache) are reported, not re-installed. A
	// failed batch is retried per package so failures are attributed;
	// failures never abort the run.
	InstallBulk(ctx context.Context, c *cache.Cache, reqs []Request, dryRun bool) Summary
}

// Options configures the adapter set.
type Options struct {
	// Runner executes subprocesses; nil uses the real implementation.
	Runner Runner
	// Out receives progress and dry-run lines; nil uses stdout.
	Out io.Writer
	// AptSourcesDir overrides /etc/apt/sources.list.d, for tests.
	AptSourcesDir string
}

func (o Options) runner() Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return NewExecRunner()
}

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

// NewRegistry constructs all four adapters keyed by backend ID.
func NewRegistry(opts Options) map[manifest.BackendID]Backend {
	apt := NewApt(opts)
	return map[manifest.BackendID]Backend{
		manifest.BackendMise: NewMise(opts),
		manifest.BackendBrew: NewBrew(opts),
		manifest.BackendApt:  apt,
		manifest.BackendPPA:  NewPPA(opts, apt),
	}
}

// identifierFor applies the "empty name means package name" rule.
func identifierFor(name string, cfg *manifest.BackendConfig) string {
	if cfg != nil && cfg.Name != "" {
		return cfg.Name
	}
	return name
}
