package output

// Code represents a structured error code.
// These are stable string identifiers for machine-readable error handling.
type Code string

// Error codes - grouped by category
const (
	// General errors (exit code 1)
	CodeGeneralError Code = "GENERAL_ERROR"
	CodeRunLocked    Code = "RUN_LOCKED"

	// Config errors (exit code 2)
	CodeConfigNotFound   Code = "CONFIG_NOT_FOUND"
	CodeConfigInvalid    Code = "CONFIG_INVALID"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeMappingInvalid   Code = "MAPPING_INVALID"
	CodeMappingDecrypt   Code = "MAPPING_DECRYPT_FAILED"

	// Vault errors (exit code 3)
	CodeVaultSyncFailed Code = "VAULT_SYNC_FAILED"
	CodeVaultListFailed Code = "VAULT_LIST_FAILED"
	CodeVaultLockFailed Code = "VAULT_LOCK_FAILED"

	// Auth errors (exit code 5)
	CodeAuthError Code = "AUTH_ERROR"
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}
