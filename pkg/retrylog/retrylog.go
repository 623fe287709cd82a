// Package retrylog persists the verification issues a run could not
// resolve, so a later `dotpkg retry` can take another pass without
// re-resolving the whole profile. The log is a plain JSON document; no
// automatic retries ever happen.
package retrylog

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/paths"
	"github.com/dotpkg/dotpkg/pkg/verify"
)

// Run is the persisted document.
type Run struct {
	Timestamp time.Time      `json:"timestamp"`
	Operator  string         `json:"operator"`
	Host      string         `json:"host"`
	Profile   string         `json:"profile"`
	Issues    []verify.Issue `json:"issues"`
}

// DefaultDir is where retry logs land unless a path is given.
func DefaultDir() string {
	return paths.RetryDir()
}

// FileIn returns a fresh timestamped log path under dir.
func FileIn(dir string) string {
	return filepath.Join(dir, "retry-"+time.Now().Format("20060102-150405")+".json")
}

// Write persists the unresolved issues of a run. When path is empty, a
// timestamped file under DefaultDir is used. The written path is
// returned so the summary can point the operator at it.
func Write(path, profile string, issues []verify.Issue) (string, error) {
	if len(issues) == 0 {
		return "", nil
	}

	if path == "" {
		path = FileIn(DefaultDir())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrRetryLogWrite, "cannot create retry log directory")
	}

	run := Run{
		Timestamp: time.Now().UTC(),
		Operator:  operatorName(),
		Host:      hostName(),
		Profile:   profile,
		Issues:    issues,
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRetryLogWrite, "cannot encode retry log")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, errors.ErrRetryLogWrite, "cannot write retry log %s", path)
	}

	logger := logging.GetLogger("retrylog")
	logger.Info().
		Str("path", path).
		Int("issues", len(issues)).
		Msg("Retry log written")
	return path, nil
}

// Load reads a retry log back.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRetryLogRead, "cannot read retry log %s", path)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrapf(err, errors.ErrRetryLogRead, "cannot parse retry log %s", path)
	}
	return &run, nil
}

// Packages flattens a run into the package-name list a retry
// invocation installs.
func (r *Run) Packages() []string {
	seen := make(map[string]bool, len(r.Issues))
	var out []string
	for _, issue := range r.Issues {
		if seen[issue.Package] {
			continue
		}
		seen[issue.Package] = true
		out = append(out, issue.Package)
	}
	return out
}

// Latest returns the newest retry log under dir (DefaultDir when
// empty), or "" when none exist.
func Latest(dir string) string {
	if dir == "" {
		dir = DefaultDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	return newest
}

func operatorName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func hostName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
