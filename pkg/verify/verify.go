// Package verify checks that every resolved package identifier
// actually exists under its backend before any install is attempted,
// and proposes alternatives for the ones that don't. Verification
// produces pure data; it never prompts.
package verify

import (
	"context"

	"github.com/dotpkg/dotpkg/pkg/backends"
	"github.com/dotpkg/dotpkg/pkg/cache"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/manifest"
)

// DefaultMaxAlternatives bounds how many candidates an issue carries.
const DefaultMaxAlternatives = 5

// IssueStatus classifies a verification miss.
type IssueStatus string

const (
	// StatusMissing means no alternative could be found at all.
	StatusMissing IssueStatus = "missing"
	// StatusFuzzy means the identifier was not found but alternatives are
	// available.
	StatusFuzzy IssueStatus = "fuzzy-match-available"
)

// Issue records one package whose configured identifier the backend
// does not know.
type Issue struct {
	Backend      manifest.BackendID `json:"backend"`
	Package      string             `json:"package"`
	Identifier   string             `json:"identifier"`
	Status       IssueStatus        `json:"status"`
	Alternatives []string           `json:"alternatives,omitempty"`
}

// Item is one resolved package to verify within a backend group.
type Item struct {
	Package    string
	Identifier string
	Cask       bool
}

// Options tunes verification.
type Options struct {
	// MaxAlternatives caps the candidate list per issue; zero means
	// DefaultMaxAlternatives.
	MaxAlternatives int
}

func (o Options) maxAlternatives() int {
	if o.MaxAlternatives > 0 {
		return o.MaxAlternatives
	}
	return DefaultMaxAlternatives
}

// Batch verifies every backend group against the cache and returns one
// issue per miss. Groups are visited in the fixed backend order so
// output and retry logs are deterministic.
func Batch(ctx context.Context, c *cache.Cache, registry map[manifest.BackendID]backends.Backend, groups map[manifest.BackendID][]Item, opts Options) []Issue {
	logger := logging.GetLogger("verify")
	var issues []Issue

	for _, id := range manifest.AllBackends() {
		items := groups[id]
		if len(items) == 0 {
			continue
		}
		backend, ok := registry[id]
		if !ok {
			continue
		}

		for _, item := range items {
			src := backend.Source(item.Cask)
			if c.Exists(ctx, src, item.Identifier) {
				continue
			}

			alternatives := findAlternatives(ctx, c, backend, src, item.Identifier, opts.maxAlternatives())
			status := StatusMissing
			if len(alternatives) > 0 {
				status = StatusFuzzy
			}

			logger.Warn().
				Str("backend", string(id)).
				Str("package", item.Package).
				Str("identifier", item.Identifier).
				Int("alternatives", len(alternatives)).
				Msg("Package not found under its configured identifier")

			issues = append(issues, Issue{
				Backend:      id,
				Package:      item.Package,
				Identifier:   item.Identifier,
				Status:       status,
				Alternatives: alternatives,
			})
		}
	}
	return issues
}

// findAlternatives runs the three-tier strategy in priority order,
// stopping at the first tier that yields candidates: the backend's own
// search, deterministic name transforms re-checked against the cache,
// and finally the cache substring scan. The winning tier's results are
// deduplicated, ranked, and truncated.
func findAlternatives(ctx context.Context, c *cache.Cache, backend backends.Backend, src cache.Source, needle string, max int) []string {
	logger := logging.GetLogger("verify")

	candidates, err := backend.Search(ctx, needle)
	if err != nil {
		logger.Debug().Err(err).Str("needle", needle).Msg("Native search failed, falling through")
		candidates = nil
	}

	if len(candidates) == 0 {
		for _, candidate := range Transforms(needle) {
			if c.Exists(ctx, src, candidate) {
				candidates = append(candidates, candidate)
			}
		}
	}

	if len(candidates) == 0 {
		candidates = c.FindSimilar(ctx, src, needle, max)
	}

	candidates = dedupe(candidates)
	cache.RankMatches(needle, candidates)
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
