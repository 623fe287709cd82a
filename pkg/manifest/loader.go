package manifest

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/platform"
)

// Well-known manifest file names inside a manifest directory.
const (
	BaseFileName = "packages.yaml"
)

// PlatformFileName returns the platform-specific overlay file name for
// the given platform, e.g. packages-macos.yaml.
func PlatformFileName(p platform.Platform) string {
	return "packages-" + string(p) + ".yaml"
}

// Load reads the base document and, when platformPath is non-empty and
// the file exists, merges the platform document over it. The merged
// manifest has its mise_tools shorthand expanded and its structural
// invariants validated.
//
// Merging is a shallow per-key override: a profile, category, or
// package defined in the platform document replaces the base entry of
// the same name entirely. Fields the platform entry omits are NOT
// inherited from the base entry: a platform override that redefines a
// package's category but drops its description loses the description.
// This is deliberate (it keeps merge results predictable and
// greppable) but is an easy foot-gun; overlay entries should repeat
// every field they care about.
func Load(basePath, platformPath string) (*Manifest, error) {
	logger := logging.GetLogger("manifest")

	base, err := parseFile(basePath)
	if err != nil {
		return nil, err
	}

	if platformPath != "" {
		if _, statErr := os.Stat(platformPath); statErr == nil {
			overlay, err := parseFile(platformPath)
			if err != nil {
				return nil, err
			}
			merge(base, overlay)
			logger.Debug().Str("overlay", platformPath).Msg("Merged platform manifest")
		} else {
			logger.Debug().Str("overlay", platformPath).Msg("No platform manifest, using base only")
		}
	}

	expandMiseTools(base)

	if err := validate(base); err != nil {
		return nil, err
	}

	logger.Info().
		Int("packages", len(base.Packages)).
		Int("categories", len(base.Categories)).
		Int("profiles", len(base.Profiles)).
		Msg("Manifest loaded")

	return base, nil
}

// LoadDir loads the conventional file layout from a manifest
// directory: packages.yaml plus packages-<platform>.yaml when present.
func LoadDir(dir string, p platform.Platform) (*Manifest, error) {
	return Load(
		filepath.Join(dir, BaseFileName),
		filepath.Join(dir, PlatformFileName(p)),
	)
}

func parseFile(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestAccess, "cannot read manifest %s", path)
	}
	defer func() { _ = file.Close() }()

	var m Manifest
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestParse, "cannot parse manifest %s", path).
			WithDetail("file", path)
	}

	if m.Profiles == nil {
		m.Profiles = map[string]Profile{}
	}
	if m.Categories == nil {
		m.Categories = map[string]Category{}
	}
	if m.Packages == nil {
		m.Packages = map[string]Package{}
	}
	return &m, nil
}

// merge overlays platform entries onto base, key by key. Top-level
// scalars and the mise_tools list follow the same rule: present in the
// overlay means the overlay wins wholesale.
func merge(base, overlay *Manifest) {
	if overlay.Version != 0 {
		base.Version = overlay.Version
	}
	for name, profile := range overlay.Profiles {
		base.Profiles[name] = profile
	}
	for name, category := range overlay.Categories {
		base.Categories[name] = category
	}
	for name, pkg := range overlay.Packages {
		base.Packages[name] = pkg
	}
	if len(overlay.MiseTools) > 0 {
		base.MiseTools = overlay.MiseTools
	}
}

// expandMiseTools turns each compact tool entry into a full Package
// under the synthetic mise-tools category, delegated to the mise
// backend alone. An explicitly defined package of the same name wins
// over its shorthand entry.
func expandMiseTools(m *Manifest) {
	if len(m.MiseTools) == 0 {
		return
	}

	if _, ok := m.Categories[MiseToolsCategory]; !ok {
		m.Categories[MiseToolsCategory] = Category{
			Description: "Tools managed by mise",
			Priority:    []BackendID{BackendMise},
		}
	}

	for _, tool := range m.MiseTools {
		if tool.Name == "" {
			continue
		}
		if _, exists := m.Packages[tool.Name]; exists {
			continue
		}
		m.Packages[tool.Name] = Package{
			Category:    MiseToolsCategory,
			Description: tool.Description,
			Priority:    []BackendID{BackendMise},
			Mise:        &BackendConfig{Name: tool.Name},
		}
	}
	m.MiseTools = nil
}
