// Package config loads dotpkg's application settings.
//
// Settings are layered, later sources winning: embedded defaults, an
// optional dotpkg.toml next to the manifests, then DOTPKG_* environment
// variables. Manifest files themselves are handled by pkg/manifest; this
// package only covers knobs about how dotpkg runs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dotpkg/dotpkg/pkg/paths"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates nesting levels, e.g. DOTPKG_DEFAULT_PROFILE=work or
// DOTPKG_VERIFY__MAX_ALTERNATIVES=10.
const EnvPrefix = "DOTPKG_"

// ConfigFileNames are tried in order inside the manifest directory.
var ConfigFileNames = []string{".dotpkg.toml", "dotpkg.toml"}

// Settings holds everything configurable about a dotpkg run.
type Settings struct {
	// ManifestDir is where packages.yaml and its platform overlays live.
	ManifestDir string `koanf:"manifest_dir"`

	// DefaultProfile is installed when no profile is named on the
	// command line.
	DefaultProfile string `koanf:"default_profile"`

	NonInteractive bool `koanf:"non_interactive"`
	Color          bool `koanf:"color"`

	Verify VerifySettings `koanf:"verify"`
}

// VerifySettings tunes the missing-package resolution step.
type VerifySettings struct {
	// MaxAlternatives caps how many fuzzy suggestions are offered per
	// missing package.
	MaxAlternatives int `koanf:"max_alternatives"`
}

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load builds Settings from all layers. manifestDir comes from the
// command line and, when non-empty, beats every other source for the
// manifest location.
func Load(manifestDir string) (*Settings, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. dotpkg.toml next to the manifests, if present
	dir := manifestDir
	if dir == "" {
		dir = DefaultManifestDir()
	}
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			break
		}
	}

	// 3. Environment overrides
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The command-line flag wins outright.
	if manifestDir != "" {
		cfg.ManifestDir = manifestDir
	}
	if cfg.ManifestDir == "" {
		cfg.ManifestDir = DefaultManifestDir()
	}
	cfg.ManifestDir = paths.ExpandHome(cfg.ManifestDir)
	if cfg.Verify.MaxAlternatives <= 0 {
		cfg.Verify.MaxAlternatives = 5
	}
	return &cfg, nil
}

// DefaultManifestDir locates the manifests when nothing is configured:
// $DOTFILES_ROOT/manifests when the env var is set, otherwise
// ~/.dotfiles/manifests.
func DefaultManifestDir() string {
	return paths.ManifestDir()
}
