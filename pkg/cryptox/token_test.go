package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionSecret(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for range 100 {
		s, err := NewSessionSecret()
		require.NoError(t, err)
		require.Len(t, s, 43)
		require.NotContains(t, seen, s)
		seen[s] = struct{}{}
	}
}

func TestNewBackupCode(t *testing.T) {
	code, err := NewBackupCode()
	require.NoError(t, err)
	require.Len(t, code, BackupCodeLength+1)
	require.Equal(t, byte('-'), code[BackupCodeLength/2])

	for _, r := range strings.ReplaceAll(code, "-", "") {
		require.True(t, strings.ContainsRune(crockford, r), "unexpected symbol %q", r)
	}
	require.Equal(t, strings.ReplaceAll(code, "-", ""), NormalizeBackupCode(code))
}

func TestNormalizeBackupCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7q2kd-x9mfa", "7q2kdx9mfa"},
		{"7Q2KD X9MFA", "7q2kdx9mfa"},
		{"7q2kdx9mfa", "7q2kdx9mfa"},
		{"o0ilx-xxxxx", "0011xxxxxx"},
		{"7q2kd-x9mf", ""},
		{"7q2kd-x9mfa1", ""},
		{"7q2kd-x9mfu", ""},
		{"123456", ""},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeBackupCode(tt.in), tt.in)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("session-secret-1")
	require.Equal(t, a, Fingerprint("session-secret-1"))
	require.NotEqual(t, a, Fingerprint("session-secret-2"))
	require.Len(t, a, 43)
}
