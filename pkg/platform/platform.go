// Package platform identifies the host so manifest platform filters
// and backend applicability checks can be answered with one string.
package platform

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/dotpkg/dotpkg/pkg/logging"
)

// Platform is the identifier manifests use in their platform lists.
type Platform string

const (
	MacOS  Platform = "macos"
	Ubuntu Platform = "ubuntu"
	Debian Platform = "debian"
	Linux  Platform = "linux" // generic fallback for unrecognized distros
)

// EnvOverride forces the detected platform, used by tests and by
// operators provisioning a machine over SSH from a different host.
const EnvOverride = "DOTPKG_PLATFORM"

const osReleasePath = "/etc/os-release"

// Detect returns the platform identifier for the current host.
func Detect() Platform {
	if v := os.Getenv(EnvOverride); v != "" {
		return Platform(v)
	}

	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return detectLinux(osReleasePath)
	default:
		return Linux
	}
}

// detectLinux maps /etc/os-release onto a platform identifier. Ubuntu
// derivatives (ID_LIKE containing "ubuntu") count as ubuntu since they
// share the PPA mechanism.
func detectLinux(path string) Platform {
	logger := logging.GetLogger("platform")

	file, err := os.Open(path)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("os-release not readable, using generic linux")
		return Linux
	}
	defer func() { _ = file.Close() }()

	var id string
	var idLike []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

		switch key {
		case "ID":
			id = value
		case "ID_LIKE":
			idLike = strings.Fields(value)
		}
	}

	return classify(id, idLike)
}

func classify(id string, idLike []string) Platform {
	switch id {
	case "ubuntu":
		return Ubuntu
	case "debian":
		return Debian
	}
	for _, like := range idLike {
		switch like {
		case "ubuntu":
			return Ubuntu
		case "debian":
			return Debian
		}
	}
	return Linux
}

// SupportsApt reports whether the platform uses the apt machinery
// (and therefore can also use PPAs, on ubuntu).
func (p Platform) SupportsApt() bool {
	return p == Ubuntu || p == Debian || p == Linux
}

// SupportsPPA reports whether add-apt-repository is meaningful here.
func (p Platform) SupportsPPA() bool {
	return p == Ubuntu
}

// SupportsBrew reports whether homebrew is expected on this platform.
// Linuxbrew exists, so this is everywhere.
func (p Platform) SupportsBrew() bool {
	return true
}
