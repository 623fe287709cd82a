package manifest

import (
	"fmt"

	"github.com/dotpkg/dotpkg/pkg/errors"
)

// validate checks the structural invariants of the merged manifest and
// returns a schema error naming the offending key on the first
// violation found.
func validate(m *Manifest) error {
	if m.Version < 1 {
		return errors.Newf(errors.ErrManifestSchema, "unsupported manifest version %d", m.Version)
	}

	for name, category := range m.Categories {
		if len(category.Priority) == 0 {
			return schemaErr("category %q has an empty priority list", name)
		}
		for _, id := range category.Priority {
			if !KnownBackend(id) {
				return schemaErr("category %q priority names unknown backend %q", name, id)
			}
		}
	}

	for name, pkg := range m.Packages {
		if pkg.Category == "" {
			return schemaErr("package %q declares no category", name)
		}
		if _, ok := m.Categories[pkg.Category]; !ok {
			return schemaErr("package %q references unknown category %q", name, pkg.Category)
		}
		for _, id := range pkg.Priority {
			if !KnownBackend(id) {
				return schemaErr("package %q priority names unknown backend %q", name, id)
			}
		}

		chain := effectiveChain(m, pkg)
		for _, id := range pkg.configuredBackends() {
			if !chainContains(chain, id) {
				return schemaErr("package %q configures backend %q which is not in its priority chain", name, id)
			}
		}
	}

	for name, profile := range m.Profiles {
		if profile.Explicit() && (len(profile.Include) > 0 || len(profile.Exclude) > 0) {
			return schemaErr("profile %q uses both an explicit package list and include/exclude", name)
		}
		for _, pkg := range profile.Packages {
			if _, ok := m.Packages[pkg]; !ok {
				return schemaErr("profile %q lists unknown package %q", name, pkg)
			}
		}
		for _, cat := range profile.Include {
			if _, ok := m.Categories[cat]; !ok {
				return schemaErr("profile %q includes unknown category %q", name, cat)
			}
		}
		for _, cat := range profile.Exclude {
			if _, ok := m.Categories[cat]; !ok {
				return schemaErr("profile %q excludes unknown category %q", name, cat)
			}
		}
	}

	return nil
}

func schemaErr(format string, args ...interface{}) error {
	return errors.New(errors.ErrManifestSchema, fmt.Sprintf(format, args...))
}

// effectiveChain is the package's own priority override when present,
// else its category default. Unknown categories yield nil; validate
// reports those separately.
func effectiveChain(m *Manifest, pkg Package) []BackendID {
	if len(pkg.Priority) > 0 {
		return pkg.Priority
	}
	if cat, ok := m.Categories[pkg.Category]; ok {
		return cat.Priority
	}
	return nil
}

func chainContains(chain []BackendID, id BackendID) bool {
	for _, c := range chain {
		if c == id {
			return true
		}
	}
	return false
}
