package verify

import (
	"strings"
	"unicode"
)

// Transforms generates alternative identifiers for a needle using
// deterministic rewrite rules for the naming-convention mismatches
// that show up between backends: the python2/python3 prefix split, the
// Debian lib-prefix and -dev-suffix conventions, and trailing version
// digits baked into a name. Every candidate must still be re-checked
// against the cache before being offered.
func Transforms(needle string) []string {
	var out []string
	add := func(candidate string) {
		if candidate != "" && candidate != needle {
			out = append(out, candidate)
		}
	}

	// python-foo <-> python3-foo, and bare names gain the prefix.
	switch {
	case strings.HasPrefix(needle, "python-"):
		add("python3-" + strings.TrimPrefix(needle, "python-"))
	case strings.HasPrefix(needle, "python3-"):
		add("python-" + strings.TrimPrefix(needle, "python3-"))
	default:
		add("python3-" + needle)
	}

	// Debian library conventions: foo <-> libfoo, libfoo-dev.
	if strings.HasPrefix(needle, "lib") {
		stripped := strings.TrimPrefix(needle, "lib")
		stripped = strings.TrimSuffix(stripped, "-dev")
		add(stripped)
	} else {
		add("lib" + needle)
		add("lib" + needle + "-dev")
	}

	// foo-dev <-> foo.
	if strings.HasSuffix(needle, "-dev") {
		add(strings.TrimSuffix(needle, "-dev"))
	} else {
		add(needle + "-dev")
	}

	// nodejs18, postgresql-16: drop a trailing version.
	if stripped := stripTrailingVersion(needle); stripped != "" {
		add(stripped)
	}

	// golang-go style: toggle a language prefix.
	for _, prefix := range []string{"golang-", "go-", "rust-"} {
		if strings.HasPrefix(needle, prefix) {
			add(strings.TrimPrefix(needle, prefix))
		}
	}

	return out
}

// stripTrailingVersion removes a trailing run of digits and dots plus
// an optional separating dash, returning "" when nothing changes.
func stripTrailingVersion(s string) string {
	end := len(s)
	for end > 0 {
		r := rune(s[end-1])
		if unicode.IsDigit(r) || r == '.' {
			end--
			continue
		}
		break
	}
	if end == len(s) || end == 0 {
		return ""
	}
	trimmed := strings.TrimSuffix(s[:end], "-")
	if trimmed == "" || trimmed == s {
		return ""
	}
	return trimmed
}
