// Package orchestrator drives a full installation run: resolve the
// profile's package set, pick a backend per package by walking its
// priority chain, verify the resolved identifiers, let the operator
// settle the misses, then dispatch one bulk install per backend.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dotpkg/dotpkg/pkg/backends"
	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/interact"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/manifest"
	"github.com/dotpkg/dotpkg/pkg/platform"
	"github.com/dotpkg/dotpkg/pkg/retrylog"
	"github.com/dotpkg/dotpkg/pkg/style"
	"github.com/dotpkg/dotpkg/pkg/verify"
)

// SkipReason explains why a package never reached an install batch.
type SkipReason string

const (
	// SkipNoBackend means no priority-chain entry satisfied the
	// availability, configuration, and platform checks.
	SkipNoBackend SkipReason = "no available backend"
	// SkipUser means the operator skipped the package during
	// issue resolution (or non-interactive mode auto-skipped it).
	SkipUser SkipReason = "skipped by operator"
)

// Skip records one package excluded before dispatch.
type Skip struct {
	Package string
	Reason  SkipReason
}

// plan is one package with its backend resolved.
type plan struct {
	name    string
	backend manifest.BackendID
	request backends.Request
}

// Options configures one orchestration run.
type Options struct {
	// Platform gates backend applicability; the zero value means
	// detect the real one.
	Platform platform.Platform

	// DryRun prints intended actions and issues no install commands.
	// Dry runs never write a retry log.
	DryRun bool

	// NonInteractive forces auto-skip resolution of verification
	// issues. Ignored when Resolver is set.
	NonInteractive bool

	// MaxAlternatives caps fuzzy suggestions per verification issue;
	// zero means the verify default.
	MaxAlternatives int

	// RetryDir overrides where the retry log lands; empty means the
	// default state directory.
	RetryDir string

	// Registry supplies the backend adapters; nil builds the real
	// ones with Backends.
	Registry map[manifest.BackendID]backends.Backend

	// Backends configures the real adapters when Registry is nil.
	Backends backends.Options

	// Resolver settles verification issues; nil picks interactive or
	// auto-skip per NonInteractive and the terminal.
	Resolver interact.Resolver

	// Out receives the run's progress and summary; nil uses stdout.
	Out io.Writer
}

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o Options) platform() platform.Platform {
	if o.Platform != "" {
		return o.Platform
	}
	return platform.Detect()
}

func (o Options) registry() map[manifest.BackendID]backends.Backend {
	if o.Registry != nil {
		return o.Registry
	}
	return backends.NewRegistry(o.Backends)
}

func (o Options) resolver() interact.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return interact.NewResolver(interact.Options{
		NonInteractive: o.NonInteractive,
		Out:            o.Out,
	})
}

// RunSummary aggregates one run.
type RunSummary struct {
	Profile    string
	Considered int
	Skips      []Skip
	Backends   []backends.Summary

	// RetryLogPath points at the persisted unresolved issues, empty
	// when all issues were settled or the run was dry.
	RetryLogPath string
}

// Installed counts fresh installs across all backends.
func (s *RunSummary) Installed() int { return s.count(backends.StatusInstalled) }

// Already counts packages the cache showed as present.
func (s *RunSummary) Already() int { return s.count(backends.StatusAlready) }

// Failed counts outright failures; skips are not failures.
func (s *RunSummary) Failed() int { return s.count(backends.StatusFailed) }

// Skipped counts no-backend and operator skips together.
func (s *RunSummary) Skipped() int { return len(s.Skips) }

func (s *RunSummary) count(status backends.Status) int {
	n := 0
	for _, b := range s.Backends {
		n += b.Count(status)
	}
	return n
}

// InstallProfile runs the whole pipeline for one profile. Install
// failures land in the summary, not the error: the error is reserved
// for conditions that stop the run (unknown profile, operator abort).
func InstallProfile(ctx context.Context, m *manifest.Manifest, profile string, opts Options) (*RunSummary, error) {
	names, err := m.PackagesForProfile(profile)
	if err != nil {
		return nil, err
	}
	return InstallPackages(ctx, m, profile, names, opts)
}

// InstallPackages runs the pipeline for an explicit package list, as
// `dotpkg retry` does with the names from a retry log. The label only
// tags the summary and the retry log.
func InstallPackages(ctx context.Context, m *manifest.Manifest, label string, names []string, opts Options) (*RunSummary, error) {
	logger := logging.GetLogger("orchestrator")
	out := opts.out()
	plat := opts.platform()
	registry := opts.registry()
	c := cache.New()

	summary := &RunSummary{Profile: label, Considered: len(names)}
	logger.Info().
		Str("profile", label).
		Str("platform", string(plat)).
		Int("packages", len(names)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting installation run")

	// Walk each package's priority chain; first backend that is
	// available, configured, and platform-applicable wins.
	groups := make(map[manifest.BackendID][]plan)
	for _, name := range names {
		p, ok := resolveBackend(m, name, plat, registry)
		if !ok {
			logger.Info().Str("package", name).Msg("No chain entry usable, skipping")
			fmt.Fprintln(out, style.Skipped(name, string(SkipNoBackend)))
			summary.Skips = append(summary.Skips, Skip{Package: name, Reason: SkipNoBackend})
			continue
		}
		groups[p.backend] = append(groups[p.backend], p)
	}

	// Verify everything in one pass, then settle the misses once.
	issues := verify.Batch(ctx, c, registry, verifyGroups(groups), verify.Options{
		MaxAlternatives: opts.MaxAlternatives,
	})
	choices, err := opts.resolver().Resolve(issues)
	if err != nil {
		return summary, err
	}
	groups, userSkips := applyChoices(groups, choices)
	summary.Skips = append(summary.Skips, userSkips...)

	if !opts.DryRun {
		if path := persistUnresolved(opts.RetryDir, label, issues, choices); path != "" {
			summary.RetryLogPath = path
		}
	}

	// One bulk dispatch per backend, in the fixed order.
	for _, id := range manifest.AllBackends() {
		group := groups[id]
		if len(group) == 0 {
			continue
		}
		reqs := make([]backends.Request, 0, len(group))
		for _, p := range group {
			reqs = append(reqs, p.request)
		}
		summary.Backends = append(summary.Backends, registry[id].InstallBulk(ctx, c, reqs, opts.DryRun))
	}

	printSummary(out, summary)
	return summary, nil
}

// VerifyReport is the outcome of a verification-only pass.
type VerifyReport struct {
	Profile    string
	Considered int
	Skips      []Skip
	Issues     []verify.Issue
}

// VerifyProfile resolves the profile and verifies every identifier
// without prompting or installing anything.
func VerifyProfile(ctx context.Context, m *manifest.Manifest, profile string, opts Options) (*VerifyReport, error) {
	plat := opts.platform()
	registry := opts.registry()
	c := cache.New()

	names, err := m.PackagesForProfile(profile)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Profile: profile, Considered: len(names)}
	groups := make(map[manifest.BackendID][]plan)
	for _, name := range names {
		p, ok := resolveBackend(m, name, plat, registry)
		if !ok {
			report.Skips = append(report.Skips, Skip{Package: name, Reason: SkipNoBackend})
			continue
		}
		groups[p.backend] = append(groups[p.backend], p)
	}

	report.Issues = verify.Batch(ctx, c, registry, verifyGroups(groups), verify.Options{
		MaxAlternatives: opts.MaxAlternatives,
	})
	return report, nil
}

// resolveBackend walks the package's priority chain and returns the
// first usable entry as a ready-to-dispatch plan.
func resolveBackend(m *manifest.Manifest, name string, plat platform.Platform, registry map[manifest.BackendID]backends.Backend) (plan, bool) {
	logger := logging.GetLogger("orchestrator")

	chain, err := m.PriorityChain(name)
	if err != nil {
		logger.Warn().Err(err).Str("package", name).Msg("Cannot determine priority chain")
		return plan{}, false
	}
	if !m.AppliesTo(name, plat) {
		return plan{}, false
	}
	pkg := m.Packages[name]

	for _, id := range chain {
		backend, ok := registry[id]
		if !ok || !backendOnPlatform(id, plat) || !backend.Available() {
			continue
		}
		identifier, err := backend.ExtractIdentifier(name, pkg)
		if err != nil {
			// No config block for this backend: advance the chain.
			continue
		}
		req := backends.Request{Package: name, Identifier: identifier}
		if cfg := pkg.Config(id); cfg != nil {
			req.Cask = cfg.Cask
			req.Repo = cfg.Repo
			req.Key = cfg.Key
		}
		return plan{name: name, backend: id, request: req}, true
	}
	return plan{}, false
}

// backendOnPlatform gates backends the platform cannot serve even when
// a binary happens to be on PATH.
func backendOnPlatform(id manifest.BackendID, p platform.Platform) bool {
	switch id {
	case manifest.BackendApt:
		return p.SupportsApt()
	case manifest.BackendPPA:
		return p.SupportsPPA()
	case manifest.BackendBrew:
		return p.SupportsBrew()
	}
	return true
}

func verifyGroups(groups map[manifest.BackendID][]plan) map[manifest.BackendID][]verify.Item {
	out := make(map[manifest.BackendID][]verify.Item, len(groups))
	for id, group := range groups {
		items := make([]verify.Item, 0, len(group))
		for _, p := range group {
			items = append(items, verify.Item{
				Package:    p.name,
				Identifier: p.request.Identifier,
				Cask:       p.request.Cask,
			})
		}
		out[id] = items
	}
	return out
}

// applyChoices filters operator skips out of the groups and swaps in
// chosen substitutes.
func applyChoices(groups map[manifest.BackendID][]plan, choices interact.Choices) (map[manifest.BackendID][]plan, []Skip) {
	if len(choices) == 0 {
		return groups, nil
	}
	var skips []Skip
	filtered := make(map[manifest.BackendID][]plan, len(groups))
	for id, group := range groups {
		kept := group[:0]
		for _, p := range group {
			decision, ok := choices[p.name]
			if !ok {
				kept = append(kept, p)
				continue
			}
			if decision.Skip {
				skips = append(skips, Skip{Package: p.name, Reason: SkipUser})
				continue
			}
			if decision.Substitute != "" {
				p.request.Identifier = decision.Substitute
			}
			kept = append(kept, p)
		}
		if len(kept) > 0 {
			filtered[id] = kept
		}
	}
	return filtered, skips
}

// persistUnresolved writes the retry log for issues the operator did
// not settle with a substitute.
func persistUnresolved(dir, profile string, issues []verify.Issue, choices interact.Choices) string {
	var unresolved []verify.Issue
	for _, issue := range issues {
		if d, ok := choices[issue.Package]; ok && !d.Skip && d.Substitute != "" {
			continue
		}
		unresolved = append(unresolved, issue)
	}
	if len(unresolved) == 0 {
		return ""
	}

	path := ""
	if dir != "" {
		path = retrylog.FileIn(dir)
	}
	written, err := retrylog.Write(path, profile, unresolved)
	if err != nil {
		logger := logging.GetLogger("orchestrator")
		logger.Warn().Err(err).Msg("Could not write retry log")
		return ""
	}
	return written
}

// printSummary renders the per-package table and the aggregate line.
func printSummary(out io.Writer, s *RunSummary) {
	rows := make([][]string, 0, s.Considered)
	for _, b := range s.Backends {
		for _, r := range b.Results {
			rows = append(rows, []string{r.Package, string(b.Backend), string(r.Status), r.Reason})
		}
	}
	for _, skip := range s.Skips {
		rows = append(rows, []string{skip.Package, "-", "skipped", string(skip.Reason)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, style.RenderTable([]string{"package", "backend", "status", "detail"}, rows))
	}

	line := fmt.Sprintf("%d considered: %d installed, %d already present, %d skipped, %d failed",
		s.Considered, s.Installed(), s.Already(), s.Skipped(), s.Failed())
	if s.Failed() > 0 {
		fmt.Fprintln(out, style.ErrorLine(line))
	} else {
		fmt.Fprintln(out, style.Success(line))
	}
	if s.RetryLogPath != "" {
		fmt.Fprintln(out, style.Info("unresolved packages recorded in "+s.RetryLogPath))
	}
}
