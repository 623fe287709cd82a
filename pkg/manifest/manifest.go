// Package manifest implements the declarative package-definition
// format: profiles, categories, packages with per-backend
// configuration, and the compact mise tool-list shorthand. It covers
// loading and merging the layered YAML documents and answering pure
// structural queries over the merged result.
package manifest

// BackendID names one of the four package-management mechanisms.
type BackendID string

const (
	BackendMise BackendID = "mise" // version-manager tool
	BackendBrew BackendID = "brew" // general-purpose package manager
	BackendApt  BackendID = "apt"  // Linux system package manager
	BackendPPA  BackendID = "ppa"  // Ubuntu third-party repository
)

// AllBackends returns the closed set of backend identifiers, in
// conventional preference order.
func AllBackends() []BackendID {
	return []BackendID{BackendMise, BackendBrew, BackendApt, BackendPPA}
}

// KnownBackend reports whether id names a recognized backend.
func KnownBackend(id BackendID) bool {
	switch id {
	case BackendMise, BackendBrew, BackendApt, BackendPPA:
		return true
	}
	return false
}

// MiseToolsCategory is the synthetic category owning packages expanded
// from the compact mise_tools list.
const MiseToolsCategory = "mise-tools"

// Manifest is the merged root document.
type Manifest struct {
	Version    int                 `yaml:"version"`
	Profiles   map[string]Profile  `yaml:"profiles"`
	Categories map[string]Category `yaml:"categories"`
	Packages   map[string]Package  `yaml:"packages"`
	MiseTools  []MiseTool          `yaml:"mise_tools"`
}

// Profile is a named selection of packages: either an explicit list or
// an include/exclude rule over categories, never both.
type Profile struct {
	Description string   `yaml:"description"`
	Packages    []string `yaml:"packages"`
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
}

// Explicit reports whether the profile enumerates its packages rather
// than selecting by category.
func (p Profile) Explicit() bool {
	return len(p.Packages) > 0
}

// Category groups packages sharing a default backend priority chain.
type Category struct {
	Description string      `yaml:"description"`
	Priority    []BackendID `yaml:"priority"`
}

// Package is one installable entry. The map key in Manifest.Packages
// is its unique name.
type Package struct {
	Category    string      `yaml:"category"`
	Description string      `yaml:"description"`
	Priority    []BackendID `yaml:"priority"`
	Platforms   []string    `yaml:"platforms"`

	Mise *BackendConfig `yaml:"mise"`
	Brew *BackendConfig `yaml:"brew"`
	Apt  *BackendConfig `yaml:"apt"`
	PPA  *BackendConfig `yaml:"ppa"`
}

// BackendConfig is a package's per-backend installation block.
type BackendConfig struct {
	// Name is the identifier the backend installs. Empty means "same
	// as the package name".
	Name string `yaml:"name"`
	// Cask routes a brew package through the cask namespace.
	Cask bool `yaml:"cask"`
	// Repo is the third-party repository spec (ppa:owner/name or a
	// deb line) for the ppa backend.
	Repo string `yaml:"repo"`
	// Key is the URL of the repository signing key, when Repo needs one.
	Key string `yaml:"key"`
}

// MiseTool is one compact tool-list entry, expanded at load time into
// a full Package delegated to the mise backend.
type MiseTool struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Config returns the package's configuration block for the given
// backend, or nil when the package declares none.
func (p Package) Config(backend BackendID) *BackendConfig {
	switch backend {
	case BackendMise:
		return p.Mise
	case BackendBrew:
		return p.Brew
	case BackendApt:
		return p.Apt
	case BackendPPA:
		return p.PPA
	}
	return nil
}

// configuredBackends lists the backends the package carries blocks for.
func (p Package) configuredBackends() []BackendID {
	var out []BackendID
	for _, id := range AllBackends() {
		if p.Config(id) != nil {
			out = append(out, id)
		}
	}
	return out
}
