package perms

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		perm     os.FileMode
		expected os.FileMode
		octal    string
	}{
		{
			name:     "SecureFile has correct permissions",
			perm:     SecureFile,
			expected: 0o600,
			octal:    "0600",
		},
		{
			name:     "SecureDir has correct permissions",
			perm:     SecureDir,
			expected: 0o700,
			octal:    "0700",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, tc.perm, "Permission constant should match expected octal value %s", tc.octal)
		})
	}
}

func TestPermissionTypeInference(t *testing.T) {
	t.Parallel()

	// Ensure constants are of os.FileMode type.
	require.IsType(t, os.FileMode(0), SecureFile, "SecureFile should be of type os.FileMode")
	require.IsType(t, os.FileMode(0), SecureDir, "SecureDir should be of type os.FileMode")
}

func TestPermissionBitMasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		perm        os.FileMode
		ownerRead   bool
		ownerWrite  bool
		ownerExec   bool
		groupRead   bool
		groupWrite  bool
		groupExec   bool
		othersRead  bool
		othersWrite bool
		othersExec  bool
	}{
		{
			name:        "SecureFile permissions breakdown",
			perm:        SecureFile,
			ownerRead:   true,
			ownerWrite:  true,
			ownerExec:   false,
			groupRead:   false,
			groupWrite:  false,
			groupExec:   false,
			othersRead:  false,
			othersWrite: false,
			othersExec:  false,
		},
		{
			name:        "SecureDir permissions breakdown",
			perm:        SecureDir,
			ownerRead:   true,
			ownerWrite:  true,
			ownerExec:   true,
			groupRead:   false,
			groupWrite:  false,
			groupExec:   false,
			othersRead:  false,
			othersWrite: false,
			othersExec:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Check owner permissions.
			require.Equal(t, tc.ownerRead, tc.perm&0o400 != 0, "Owner read permission mismatch")
			require.Equal(t, tc.ownerWrite, tc.perm&0o200 != 0, "Owner write permission mismatch")
			require.Equal(t, tc.ownerExec, tc.perm&0o100 != 0, "Owner execute permission mismatch")

			// Check group permissions.
			require.Equal(t, tc.groupRead, tc.perm&0o040 != 0, "Group read permission mismatch")
			require.Equal(t, tc.groupWrite, tc.perm&0o020 != 0, "Group write permission mismatch")
			require.Equal(t, tc.groupExec, tc.perm&0o010 != 0, "Group execute permission mismatch")

			// Check others permissions.
			require.Equal(t, tc.othersRead, tc.perm&0o004 != 0, "Others read permission mismatch")
			require.Equal(t, tc.othersWrite, tc.perm&0o002 != 0, "Others write permission mismatch")
			require.Equal(t, tc.othersExec, tc.perm&0o001 != 0, "Others execute permission mismatch")
		})
	}
}
