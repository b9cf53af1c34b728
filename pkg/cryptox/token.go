package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	sessionSecretBytes = 32

	// BackupCodeLength is the number of symbols in a backup code, not
	// counting the separator. Each symbol carries 5 bits.
	BackupCodeLength = 10
)

// crockford is Crockford's base32 alphabet: no i, l, o or u, so a code read
// off paper survives being retyped.
const crockford = "0123456789abcdefghjkmnpqrstvwxyz"

// NewSessionSecret returns a 256-bit opaque session secret, base64url
// encoded without padding. It is handed to the client once as the refresh
// token; only its Fingerprint is kept.
func NewSessionSecret() (string, error) {
	buf := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random session secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewBackupCode returns a one-time MFA recovery code such as "7q2kd-x9mfa".
func NewBackupCode() (string, error) {
	buf := make([]byte, BackupCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random backup code: %w", err)
	}

	var b strings.Builder
	b.Grow(BackupCodeLength + 1)
	for i, v := range buf {
		if i == BackupCodeLength/2 {
			b.WriteByte('-')
		}
		b.WriteByte(crockford[v&31])
	}
	return b.String(), nil
}

// NormalizeBackupCode folds what a user typed into the canonical form that
// was fingerprinted at issue time. Separators and case are ignored and the
// usual misreadings (o for 0, i or l for 1) are corrected. Anything that is
// not a well-formed code normalizes to "".
func NormalizeBackupCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '-' || r == ' ':
			continue
		case r == 'o':
			r = '0'
		case r == 'i' || r == 'l':
			r = '1'
		}
		if !strings.ContainsRune(crockford, r) {
			return ""
		}
		b.WriteRune(r)
	}
	if b.Len() != BackupCodeLength {
		return ""
	}
	return b.String()
}

// Fingerprint is the SHA-256 digest of a secret, base64url encoded (43
// chars). Session secrets and backup codes are stored only in this form.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
