// Package cache holds the per-backend package listings for one
// orchestration run. Each backend namespace is queried exactly once
// for its installed set and once for its available set; every
// membership check after that is an in-memory lookup. Without this,
// resolving N packages against M backends costs O(N×M) subprocess
// invocations at 0.1–2s each.
package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/dotpkg/dotpkg/pkg/logging"
)

// Source is one listable backend namespace. Backends implement it;
// brew implements it twice, once for formulae and once for casks.
type Source interface {
	// CacheKey uniquely names the namespace, e.g. "apt" or "brew-cask".
	CacheKey() string
	// ListInstalled enumerates identifiers currently installed.
	ListInstalled(ctx context.Context) ([]string, error)
	// ListAvailable enumerates identifiers the backend knows how to
	// install. Backends that cannot enumerate return (nil, nil).
	ListAvailable(ctx context.Context) ([]string, error)
}

type entry struct {
	installed map[string]bool
	available map[string]bool
	// availableList keeps insertion order for deterministic scans.
	availableList []string
}

// Cache is built lazily, written once per namespace, and read-only
// afterwards. One instance per run; never shared across runs.
type Cache struct {
	entries map[string]*entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// ensure performs the one-time bulk listing for the namespace. A
// listing failure (tool missing, command error) leaves the entry
// initialized but empty so later lookups answer "not found" instead of
// erroring; a user simply may not have that backend installed.
func (c *Cache) ensure(ctx context.Context, src Source) *entry {
	key := src.CacheKey()
	if e, ok := c.entries[key]; ok {
		return e
	}

	logger := logging.GetLogger("cache")
	e := &entry{
		installed: make(map[string]bool),
		available: make(map[string]bool),
	}
	c.entries[key] = e

	installed, err := src.ListInstalled(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("backend", key).Msg("Listing installed packages failed, treating as empty")
	}
	for _, id := range installed {
		e.installed[id] = true
	}

	available, err := src.ListAvailable(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("backend", key).Msg("Listing available packages failed, treating as empty")
	}
	for _, id := range available {
		if !e.available[id] {
			e.available[id] = true
			e.availableList = append(e.availableList, id)
		}
	}

	logger.Debug().
		Str("backend", key).
		Int("installed", len(e.installed)).
		Int("available", len(e.available)).
		Msg("Cache initialized")
	return e
}

// IsInstalled reports whether the identifier is in the namespace's
// installed set. Triggers the one-time init on first use.
func (c *Cache) IsInstalled(ctx context.Context, src Source, id string) bool {
	return c.ensure(ctx, src).installed[id]
}

// Exists reports whether the identifier is known to the namespace at
// all: available to install, or already installed (a locally-built or
// obsolete package may be installed without being listed as
// available).
func (c *Cache) Exists(ctx context.Context, src Source, id string) bool {
	e := c.ensure(ctx, src)
	return e.available[id] || e.installed[id]
}

// FindSimilar scans the namespace's available set for entries
// containing the needle, or the needle's suffix after its last
// separator (so "cli/cli" also matches plain "cli"). Results are
// ranked exact > prefix > substring, ties broken by fuzzy rank, and
// truncated to maxResults.
func (c *Cache) FindSimilar(ctx context.Context, src Source, needle string, maxResults int) []string {
	e := c.ensure(ctx, src)
	suffix := suffixAfterSeparator(needle)

	var matches []string
	for _, id := range e.availableList {
		if strings.Contains(id, needle) || (suffix != needle && strings.Contains(id, suffix)) {
			matches = append(matches, id)
		}
	}

	RankMatches(needle, matches)
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

// ClearAll drops every namespace so the next lookup re-lists. Test
// support only; production runs operate on one consistent snapshot.
func (c *Cache) ClearAll() {
	c.entries = make(map[string]*entry)
}

// RankMatches orders candidate identifiers for a needle in place:
// exact match first, then prefix matches, then substring matches, then
// the rest, with fuzzy rank (then name) breaking ties.
func RankMatches(needle string, candidates []string) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := matchClass(needle, candidates[i]), matchClass(needle, candidates[j])
		if ci != cj {
			return ci < cj
		}
		ri := fuzzy.RankMatchNormalizedFold(needle, candidates[i])
		rj := fuzzy.RankMatchNormalizedFold(needle, candidates[j])
		if ri != rj {
			// -1 means no fuzzy match at all; push those last.
			if ri == -1 {
				return false
			}
			if rj == -1 {
				return true
			}
			return ri < rj
		}
		return candidates[i] < candidates[j]
	})
}

func matchClass(needle, candidate string) int {
	switch {
	case candidate == needle:
		return 0
	case strings.HasPrefix(candidate, needle):
		return 1
	case strings.Contains(candidate, needle):
		return 2
	default:
		return 3
	}
}

func suffixAfterSeparator(needle string) string {
	if idx := strings.LastIndexAny(needle, "/:"); idx >= 0 && idx < len(needle)-1 {
		return needle[idx+1:]
	}
	return needle
}
