package main

import (
	"fmt"
	"os"

	"github.com/dotpkg/dotpkg/pkg/errors"
	"github.com/dotpkg/dotpkg/pkg/style"
)

func main() {
	err := Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, style.ErrorLine(err.Error()))
	}
	code := exitCode(err)
	if code == 0 {
		code = exitStatus
	}
	os.Exit(code)
}

// exitCode maps run-stopping errors to the documented exit codes:
// 2 for manifest problems, 130 for an operator abort, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsErrorCode(err, errors.ErrUserAbort):
		return 130
	case errors.IsErrorCode(err, errors.ErrManifestParse),
		errors.IsErrorCode(err, errors.ErrManifestSchema):
		return 2
	default:
		return 1
	}
}
