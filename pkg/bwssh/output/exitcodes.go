package output

// ExitCode represents numeric process exit codes.
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitGeneralError ExitCode = 1
	ExitConfigError  ExitCode = 2
	ExitVaultError   ExitCode = 3
	ExitAuthError    ExitCode = 5
)

// codeToExitCode maps structured codes to numeric exit codes.
var codeToExitCode = map[Code]ExitCode{
	// General errors (exit code 1)
	CodeGeneralError: ExitGeneralError,
	CodeRunLocked:    ExitGeneralError,

	// Config errors (exit code 2)
	CodeConfigNotFound:   ExitConfigError,
	CodeConfigInvalid:    ExitConfigError,
	CodeConfigParseError: ExitConfigError,
	CodeMappingInvalid:   ExitConfigError,
	CodeMappingDecrypt:   ExitConfigError,

	// Vault errors (exit code 3)
	CodeVaultSyncFailed: ExitVaultError,
	CodeVaultListFailed: ExitVaultError,
	CodeVaultLockFailed: ExitVaultError,

	// Auth errors (exit code 5)
	CodeAuthError: ExitAuthError,
}

// GetExitCode returns the numeric exit code for a structured code.
func (c Code) GetExitCode() ExitCode {
	if exit, ok := codeToExitCode[c]; ok {
		return exit
	}
	return ExitGeneralError
}

// Int returns the integer value of the exit code.
func (e ExitCode) Int() int {
	return int(e)
}
