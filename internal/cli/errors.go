package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/bwssh/bwssh/pkg/bwssh/output"
)

// ExitCode represents the exit code for an error.
type ExitCode = output.ExitCode

// Exit code constants - aliases to output package.
const (
	ExitSuccess      = output.ExitSuccess
	ExitGeneralError = output.ExitGeneralError
	ExitConfigError  = output.ExitConfigError
	ExitVaultError   = output.ExitVaultError
	ExitAuthError    = output.ExitAuthError
)

// PrintError prints an error to w and returns the exit code.
func PrintError(w io.Writer, err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var outErr *output.Error
	if errors.As(err, &outErr) {
		_, _ = fmt.Fprintf(w, "error: %s\n", outErr.Error())
		return outErr.ExitCode()
	}

	// Generic error
	_, _ = fmt.Fprintf(w, "error: %v\n", err)
	return ExitGeneralError
}
