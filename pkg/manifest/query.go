package manifest

import (
	"sort"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/platform"
)

// The query engine: pure lookups over a loaded manifest. Nothing here
// touches the filesystem or spawns processes.

// PackagesByCategory returns the sorted names of all packages owned by
// the given category. Unknown categories yield an empty set.
func (m *Manifest) PackagesByCategory(category string) []string {
	var out []string
	for name, pkg := range m.Packages {
		if pkg.Category == category {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// PackagesForPlatform returns the sorted names of packages applicable
// to the platform: those with no platform list, or whose list contains
// it.
func (m *Manifest) PackagesForPlatform(p platform.Platform) []string {
	var out []string
	for name := range m.Packages {
		if m.AppliesTo(name, p) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AppliesTo reports whether the named package is applicable to the
// platform. Unknown packages are not applicable anywhere.
func (m *Manifest) AppliesTo(name string, p platform.Platform) bool {
	pkg, ok := m.Packages[name]
	if !ok {
		return false
	}
	if len(pkg.Platforms) == 0 {
		return true
	}
	for _, entry := range pkg.Platforms {
		if entry == string(p) {
			return true
		}
	}
	return false
}

// PriorityChain returns the ordered backends to attempt for the named
// package: its own override when present, else its category's default.
func (m *Manifest) PriorityChain(name string) ([]BackendID, error) {
	pkg, ok := m.Packages[name]
	if !ok {
		return nil, errors.Newf(errors.ErrPackageNotFound, "unknown package %q", name)
	}
	if len(pkg.Priority) > 0 {
		return pkg.Priority, nil
	}
	category, ok := m.Categories[pkg.Category]
	if !ok {
		return nil, errors.Newf(errors.ErrManifestSchema, "package %q references unknown category %q", name, pkg.Category)
	}
	return category.Priority, nil
}

// PackagesForProfile resolves a profile into its concrete package
// list. Explicit profiles return their list verbatim, preserving the
// authored order. Category profiles compute (union of includes,
// defaulting to all packages when includes is absent) minus (union of
// excludes), sorted.
func (m *Manifest) PackagesForProfile(name string) ([]string, error) {
	profile, ok := m.Profiles[name]
	if !ok {
		return nil, errors.Newf(errors.ErrProfileNotFound, "unknown profile %q", name)
	}

	if profile.Explicit() {
		out := make([]string, len(profile.Packages))
		copy(out, profile.Packages)
		return out, nil
	}

	included := map[string]bool{}
	if len(profile.Include) == 0 {
		for pkg := range m.Packages {
			included[pkg] = true
		}
	} else {
		for _, category := range profile.Include {
			for _, pkg := range m.PackagesByCategory(category) {
				included[pkg] = true
			}
		}
	}

	for _, category := range profile.Exclude {
		for _, pkg := range m.PackagesByCategory(category) {
			delete(included, pkg)
		}
	}

	out := make([]string, 0, len(included))
	for pkg := range included {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out, nil
}

// BackendConfigFor returns the named package's configuration block for
// the backend, or nil when the package declares none.
func (m *Manifest) BackendConfigFor(name string, backend BackendID) *BackendConfig {
	pkg, ok := m.Packages[name]
	if !ok {
		return nil
	}
	return pkg.Config(backend)
}

// ProfileNames returns the sorted profile names, for CLI listings and
// error suggestions.
func (m *Manifest) ProfileNames() []string {
	out := make([]string, 0, len(m.Profiles))
	for name := range m.Profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CategoryNames returns the sorted category names.
func (m *Manifest) CategoryNames() []string {
	out := make([]string, 0, len(m.Categories))
	for name := range m.Categories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PackageNames returns the sorted package names.
func (m *Manifest) PackageNames() []string {
	out := make([]string, 0, len(m.Packages))
	for name := range m.Packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
