package backends

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
)

// Runner executes backend subprocesses. Adapters never call os/exec
// directly so tests can script every invocation.
type Runner interface {
	// Run executes a command, streaming its output to the terminal.
	Run(ctx context.Context, name string, args ...string) error
	// Sudo is Run with privilege elevation when not already root.
	Sudo(ctx context.Context, name string, args ...string) error
	// Output executes a command and captures its stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// LookPath reports whether the binary exists on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner is the real implementation backed by os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner that spawns real subprocesses.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command, streaming output so long package-manager
// operations stay visible.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return r.wrapExit(ctx, cmd.Run(), name, args)
}

// Sudo executes a command with sudo unless already running as root.
func (r *ExecRunner) Sudo(ctx context.Context, name string, args ...string) error {
	if os.Geteuid() == 0 {
		return r.Run(ctx, name, args...)
	}
	return r.Run(ctx, "sudo", append([]string{name}, args...)...)
}

// Output executes a command and returns its stdout. Stderr is captured
// into the returned error on failure.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		err = r.wrapExit(ctx, err, name, args)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.Wrapf(err, errors.GetErrorCode(err), "%s", firstLine(msg))
		}
		return "", err
	}
	return stdout.String(), nil
}

// LookPath reports whether the binary exists on PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// wrapExit distinguishes a timeout from an ordinary non-zero exit so
// the adapter boundary can report Failed(timeout) per the design.
func (r *ExecRunner) wrapExit(ctx context.Context, err error, name string, args []string) error {
	if err == nil {
		return nil
	}
	cmdline := name + " " + strings.Join(args, " ")
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrapf(err, errors.ErrInstallTimeout, "command timed out: %s", cmdline)
	}
	return errors.Wrapf(err, errors.ErrInstallFailed, "command failed: %s", cmdline)
}

// ParseLines splits subprocess output into trimmed non-empty lines.
func ParseLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FirstFields returns the first whitespace-separated field of every
// line, dropping duplicates while keeping order. Most listing formats
// ("name version", "name - description") reduce to this.
func FirstFields(output string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range ParseLines(output) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !seen[fields[0]] {
			seen[fields[0]] = true
			out = append(out, fields[0])
		}
	}
	return out
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
