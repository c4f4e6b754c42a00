// Package perms provides centralized file and directory permission constants
// for consistent security practices across the statusd codebase.
package perms

import "os"

const (
	// SecureFile permissions for sensitive files (configuration, credentials).
	// Mode 0600: owner read/write only, no group or other access.
	SecureFile os.FileMode = 0o600

	// SecureDir permissions for sensitive directories (configuration, private data).
	// Mode 0700: owner read/write/execute only, no group or other access.
	SecureDir os.FileMode = 0o700
)
