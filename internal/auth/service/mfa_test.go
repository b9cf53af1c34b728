package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func enableMFA(t *testing.T, f *fixture, userID string) (secret string, backup []string) {
	t.Helper()
	ctx := context.Background()

	enrollment, err := f.mfa.Enroll(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "Voltex", enrollment.Issuer)
	require.Contains(t, enrollment.URL, "otpauth://totp/")

	code, err := totp.GenerateCode(enrollment.Secret, f.clock.Now())
	require.NoError(t, err)

	backup, err = f.mfa.Verify(ctx, userID, code, ClientInfo{})
	require.NoError(t, err)
	require.Len(t, backup, backupCodeCount)
	return enrollment.Secret, backup
}

func TestMFAEnrollment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")

	_, err := f.mfa.Verify(ctx, u.ID, "123456", ClientInfo{})
	require.ErrorIs(t, err, ErrMFANotEnrolled)

	_, err = f.mfa.Enroll(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.mfa.Verify(ctx, u.ID, "000000", ClientInfo{})
	require.ErrorIs(t, err, ErrInvalidMFACode)
	require.Len(t, f.auditEntries(t, u.ID, domain.AuditMFAFailed), 1)

	enableMFA(t, f, u.ID)

	_, err = f.mfa.Enroll(ctx, u.ID)
	require.ErrorIs(t, err, ErrMFAAlreadyEnabled)

	remaining, err := f.mfa.RemainingBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount, remaining)
	require.Len(t, f.auditEntries(t, u.ID, domain.AuditMFAEnabled), 1)
}

func TestLoginWithMFA(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")
	secret, backup := enableMFA(t, f, u.ID)

	_, err := f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrMFARequired)

	// A missing code is not a failed attempt; a wrong one is.
	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: "999999"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	stored, err := f.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.FailedLoginAttempts)

	// The enrollment code spent the current step.
	f.clock.Advance(30 * time.Second)
	code, err := totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)
	res, err := f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: code})
	require.NoError(t, err)
	require.True(t, res.Principal.MFAEnabled)

	// Backup codes work exactly once.
	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: backup[0]})
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: backup[0]})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Retyped by hand: case and separators do not matter.
	retyped := strings.ToUpper(strings.ReplaceAll(backup[1], "-", " "))
	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: retyped})
	require.NoError(t, err)

	remaining, err := f.mfa.RemainingBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, backupCodeCount-2, remaining)
}

func TestMFARegenerateAndDisable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")
	secret, oldCodes := enableMFA(t, f, u.ID)

	f.clock.Advance(time.Minute)
	code, err := totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)

	newCodes, err := f.mfa.RegenerateBackupCodes(ctx, u.ID, code, ClientInfo{})
	require.NoError(t, err)
	require.Len(t, newCodes, backupCodeCount)

	_, err = f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: oldCodes[0]})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.ErrorIs(t, f.mfa.Disable(ctx, u.ID, "000000", ClientInfo{}), ErrInvalidMFACode)
	require.ErrorIs(t, f.mfa.Disable(ctx, u.ID, code, ClientInfo{}), ErrInvalidMFACode, "code already spent")

	f.clock.Advance(30 * time.Second)
	code, err = totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.mfa.Disable(ctx, u.ID, code, ClientInfo{}))
	require.ErrorIs(t, f.mfa.Disable(ctx, u.ID, code, ClientInfo{}), ErrMFANotEnabled)

	stored, err := f.store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAEnabled)
	require.Nil(t, stored.MFASecret)

	remaining, err := f.mfa.RemainingBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, remaining)

	// The earlier failed attempt is cleared by this successful login.
	res, err := f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword})
	require.NoError(t, err)
	require.False(t, res.Principal.MFAEnabled)
}

func TestTOTPCodeIsSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u := f.signup(t, "user@example.com", "")
	secret, _ := enableMFA(t, f, u.ID)
	login := func(code string) error {
		_, err := f.auth.Login(ctx, LoginRequest{Email: "user@example.com", Password: testPassword, MFACode: code})
		return err
	}

	f.clock.Advance(30 * time.Second)
	previous, err := totp.GenerateCode(secret, f.clock.Now().Add(-30*time.Second))
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)

	require.NoError(t, login(code))
	require.ErrorIs(t, login(code), ErrInvalidCredentials, "replay in the same step")

	// Still inside the skew window, but at or before the spent step.
	f.clock.Advance(30 * time.Second)
	require.ErrorIs(t, login(code), ErrInvalidCredentials)
	require.ErrorIs(t, login(previous), ErrInvalidCredentials)

	next, err := totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, login(next))

	failed := f.auditEntries(t, u.ID, domain.AuditAuthFailed)
	require.Len(t, failed, 3)
	for _, e := range failed {
		require.Equal(t, "mfa_code", e.NewValues["reason"])
	}
}

func TestMatchTOTPWindow(t *testing.T) {
	t.Parallel()

	const secret = "JBSWY3DPEHPK3PXP"
	now := time.Date(2026, 3, 2, 9, 0, 15, 0, time.UTC)
	current := now.Unix() / 30

	for offset, want := range map[time.Duration]int64{
		-30 * time.Second: current - 1,
		0:                 current,
		30 * time.Second:  current + 1,
	} {
		code, err := totp.GenerateCode(secret, now.Add(offset))
		require.NoError(t, err)
		step, ok := matchTOTP(" "+code+" ", secret, now)
		require.True(t, ok, offset)
		require.Equal(t, want, step)
	}

	far, err := totp.GenerateCode(secret, now.Add(-90*time.Second))
	require.NoError(t, err)
	_, ok := matchTOTP(far, secret, now)
	require.False(t, ok)

	_, ok = matchTOTP("12345", secret, now)
	require.False(t, ok)
}
