// Package testutil provides shared fakes for dotpkg tests: a scripted
// subprocess runner and manifest fixtures. All test data is defined
// inline; nothing here touches the network or real package managers.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner scripts subprocess behavior and records every invocation so
// batching properties can be checked by invocation count rather than
// output text. Commands are keyed by their space-joined command line;
// sudo invocations gain a "sudo " prefix.
type Runner struct {
	Outputs map[string]string
	Errs    map[string]error
	Missing map[string]bool // binaries absent from PATH
	Calls   []string
}

// NewRunner returns an empty scripted runner. Run and Sudo succeed for
// any command unless an error is scripted; Output fails for commands
// without a scripted result.
func NewRunner() *Runner {
	return &Runner{
		Outputs: make(map[string]string),
		Errs:    make(map[string]error),
		Missing: make(map[string]bool),
	}
}

func cmdline(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (r *Runner) Run(_ context.Context, name string, args ...string) error {
	key := cmdline(name, args)
	r.Calls = append(r.Calls, key)
	return r.Errs[key]
}

func (r *Runner) Sudo(ctx context.Context, name string, args ...string) error {
	return r.Run(ctx, "sudo "+name, args...)
}

func (r *Runner) Output(_ context.Context, name string, args ...string) (string, error) {
	key := cmdline(name, args)
	r.Calls = append(r.Calls, key)
	if err, ok := r.Errs[key]; ok {
		return "", err
	}
	if out, ok := r.Outputs[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unscripted command: %s", key)
}

func (r *Runner) LookPath(name string) (string, error) {
	if r.Missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// CountCalls returns how many recorded invocations start with prefix.
func (r *Runner) CountCalls(prefix string) int {
	n := 0
	for _, call := range r.Calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}
