package style

import (
	"fmt"

	"github.com/pterm/pterm"
)

// DryRunPrefix marks every line of intended-but-not-executed output so
// dry runs are safe to pipe and diff against real runs.
const DryRunPrefix = "[dry-run]"

// DryRun formats an intended action for dry-run output.
func DryRun(msg string) string {
	return fmt.Sprintf("%s %s", WarningStyle.Render(DryRunPrefix), msg)
}

// Info formats an informational progress line.
func Info(msg string) string {
	return fmt.Sprintf("%s %s", pterm.Info.Prefix.Text, msg)
}

// Success formats a completed-action line.
func Success(msg string) string {
	return fmt.Sprintf("%s %s", SuccessStyle.Render("✓"), msg)
}

// Warning formats a warning line.
func Warning(msg string) string {
	return fmt.Sprintf("%s %s", WarningStyle.Render("!"), msg)
}

// ErrorLine formats a failure line.
func ErrorLine(msg string) string {
	return fmt.Sprintf("%s %s", ErrorStyle.Render("✗"), msg)
}

// Skipped formats a skipped-package line with its reason.
func Skipped(pkg, reason string) string {
	return fmt.Sprintf("%s %s %s", MutedStyle.Render("-"), pkg, Muted("("+reason+")"))
}
