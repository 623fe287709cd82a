package backends

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// fakeRunner scripts subprocess behavior and records every invocation
// so batching properties are checked by invocation count, not output.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	missing map[string]bool // binaries absent from PATH
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
		missing: make(map[string]bool),
	}
}

func cmdline(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	key := cmdline(name, args)
	f.calls = append(f.calls, key)
	return f.errs[key]
}

func (f *fakeRunner) Sudo(ctx context.Context, name string, args ...string) error {
	return f.Run(ctx, "sudo "+name, args...)
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	key := cmdline(name, args)
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return "", err
	}
	if out, ok := f.outputs[key]; ok {
		return out, nil
	}
	return "", fmt.Errorf("unscripted command: %s", key)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return "/usr/bin/" + name, nil
}

// countCalls returns how many recorded invocations start with prefix.
func (f *fakeRunner) countCalls(prefix string) int {
	n := 0
	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}
