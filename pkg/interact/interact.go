// Package interact resolves verification issues with the operator.
// It is the only component that talks to the terminal for decisions:
// verification hands it pure data, the orchestrator consumes the
// resulting choices and never prompts on its own.
package interact

import (
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/logging"
	"github.com/dotpkg/dotpkg/pkg/style"
	"github.com/dotpkg/dotpkg/pkg/verify"
)

// Decision is the operator's answer for one package.
type Decision struct {
	// Skip removes the package from its install batch.
	Skip bool
	// Substitute replaces the configured identifier when non-empty.
	Substitute string
}

// Choices maps package names to decisions.
type Choices map[string]Decision

// Resolver turns a batch of verification issues into choices.
type Resolver interface {
	Resolve(issues []verify.Issue) (Choices, error)
}

// Options selects the resolution mode for the whole run.
type Options struct {
	// NonInteractive forces auto-skip mode.
	NonInteractive bool
	// Out receives issue listings; nil uses stdout.
	Out io.Writer
}

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

// NewResolver picks the mode once per run: interactive when requested
// and stdin is a terminal, auto-skip otherwise.
func NewResolver(opts Options) Resolver {
	if opts.NonInteractive || !isatty.IsTerminal(os.Stdin.Fd()) {
		return &AutoSkip{out: opts.out()}
	}
	return &Interactive{out: opts.out(), selectFn: promptSelect}
}

// AutoSkip resolves every issue to "skip" without prompting, but still
// prints the full list so nothing disappears silently.
type AutoSkip struct {
	out io.Writer
}

// NewAutoSkip returns the non-interactive resolver.
func NewAutoSkip(out io.Writer) *AutoSkip {
	if out == nil {
		out = os.Stdout
	}
	return &AutoSkip{out: out}
}

// Resolve marks every issue as skipped.
func (r *AutoSkip) Resolve(issues []verify.Issue) (Choices, error) {
	choices := make(Choices, len(issues))
	for _, issue := range issues {
		printIssue(r.out, issue)
		fmt.Fprintln(r.out, style.Skipped(issue.Package, "auto-skipped in non-interactive mode"))
		choices[issue.Package] = Decision{Skip: true}
	}
	return choices, nil
}

// Interactive walks the whole issue batch in one session, one prompt
// per issue. Aborting terminates the entire run.
type Interactive struct {
	out io.Writer
	// selectFn is promptui in production; tests inject a script.
	selectFn func(label string, items []string) (int, error)
}

// NewInteractive returns the prompting resolver.
func NewInteractive(out io.Writer) *Interactive {
	if out == nil {
		out = os.Stdout
	}
	return &Interactive{out: out, selectFn: promptSelect}
}

const (
	choiceSkip  = "skip this package"
	choiceAbort = "abort the run"
)

// Resolve presents each issue and records the decision. The abort
// entry (or Ctrl-C) returns a USER_ABORT error immediately; decisions
// taken so far are discarded because nothing installs after an abort.
func (r *Interactive) Resolve(issues []verify.Issue) (Choices, error) {
	logger := logging.GetLogger("interact")
	choices := make(Choices, len(issues))

	if len(issues) > 0 {
		fmt.Fprintln(r.out, style.TitleStyle.Render(fmt.Sprintf("%d package(s) need attention", len(issues))))
	}

	for _, issue := range issues {
		printIssue(r.out, issue)

		items := append([]string{}, issue.Alternatives...)
		items = append(items, choiceSkip, choiceAbort)

		idx, err := r.selectFn(fmt.Sprintf("Resolve %s", issue.Package), items)
		if err != nil {
			if err == promptui.ErrInterrupt || err == promptui.ErrAbort {
				return nil, errors.New(errors.ErrUserAbort, "run aborted by operator")
			}
			return nil, errors.Wrap(err, errors.ErrInternal, "prompt failed")
		}

		switch items[idx] {
		case choiceAbort:
			return nil, errors.New(errors.ErrUserAbort, "run aborted by operator")
		case choiceSkip:
			choices[issue.Package] = Decision{Skip: true}
			logger.Info().Str("package", issue.Package).Msg("Operator skipped package")
		default:
			choices[issue.Package] = Decision{Substitute: items[idx]}
			logger.Info().
				Str("package", issue.Package).
				Str("substitute", items[idx]).
				Msg("Operator chose alternative identifier")
		}
	}
	return choices, nil
}

func promptSelect(label string, items []string) (int, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	idx, _, err := prompt.Run()
	return idx, err
}

func printIssue(out io.Writer, issue verify.Issue) {
	if issue.Status == verify.StatusMissing {
		fmt.Fprintln(out, style.Warning(fmt.Sprintf(
			"%s: %q not found via %s, no alternatives", issue.Package, issue.Identifier, issue.Backend)))
		return
	}
	fmt.Fprintln(out, style.Warning(fmt.Sprintf(
		"%s: %q not found via %s, %d alternative(s): %v",
		issue.Package, issue.Identifier, issue.Backend, len(issue.Alternatives), issue.Alternatives)))
}
