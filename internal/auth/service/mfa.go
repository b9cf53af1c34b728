package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const backupCodeCount = 10

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type MFAService struct {
	Store  store.Store
	Issuer string // shown by authenticator apps, e.g. "Voltex"
	Audit  *AuditService
	Now    func() time.Time
}

// Enroll generates a TOTP secret for the caller. MFA stays disabled until
// Verify confirms a code; enrolling again replaces a pending secret.
func (s *MFAService) Enroll(ctx context.Context, userID string) (domain.MFAEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.MFAEnabled {
		return domain.MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.MFAEnrollment{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return domain.MFAEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Email,
	}, nil
}

// Verify confirms the pending secret with a TOTP code, enables MFA and
// returns a fresh set of plaintext backup codes. The plaintext is never
// stored.
func (s *MFAService) Verify(ctx context.Context, userID, code string, info ClientInfo) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}
	if user.MFASecret == nil || *user.MFASecret == "" {
		return nil, ErrMFANotEnrolled
	}

	ok, err := claimTOTP(ctx, s.Store.Users(), user, code, nowFrom(s.Now))
	if err != nil {
		return nil, err
	}
	if !ok {
		s.Audit.Record(ctx, userEntry(user, domain.AuditMFAFailed, info))
		return nil, ErrInvalidMFACode
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := storeBackupCodes(ctx, tx, userID, codes); err != nil {
			return err
		}
		if err := tx.Users().EnableMFA(ctx, userID); err != nil {
			return fmt.Errorf("failed to enable MFA: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, userEntry(user, domain.AuditMFAEnabled, info))
	return codes, nil
}

// RegenerateBackupCodes replaces every backup code after a TOTP check.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID, code string, info ClientInfo) ([]string, error) {
	if _, err := s.requireTOTP(ctx, userID, code, info); err != nil {
		return nil, err
	}

	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", err)
		}
		return storeBackupCodes(ctx, tx, userID, codes)
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable turns MFA off after a TOTP check and drops all backup codes.
func (s *MFAService) Disable(ctx context.Context, userID, code string, info ClientInfo) error {
	user, err := s.requireTOTP(ctx, userID, code, info)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete backup codes: %w", err)
		}
		if err := tx.Users().DisableMFA(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable MFA: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, userEntry(user, domain.AuditMFADisabled, info))
	return nil
}

// RemainingBackupCodes reports how many backup codes are still unused.
func (s *MFAService) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	return s.Store.BackupCodes().CountUnusedBackupCodes(ctx, userID)
}

func (s *MFAService) requireTOTP(ctx context.Context, userID, code string, info ClientInfo) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.MFAEnabled || user.MFASecret == nil || *user.MFASecret == "" {
		return domain.User{}, ErrMFANotEnabled
	}
	ok, err := claimTOTP(ctx, s.Store.Users(), user, code, nowFrom(s.Now))
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		s.Audit.Record(ctx, userEntry(user, domain.AuditMFAFailed, info))
		return domain.User{}, ErrInvalidMFACode
	}
	return user, nil
}

// checkSecondFactor accepts either an unused TOTP code or an unused backup
// code. Either kind is burned by the same statement that accepts it.
func checkSecondFactor(ctx context.Context, st store.Store, u domain.User, code string, now time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" || u.MFASecret == nil {
		return false, nil
	}
	if _, ok := matchTOTP(code, *u.MFASecret, now); ok {
		return claimTOTP(ctx, st.Users(), u, code, now)
	}
	normalized := cryptox.NormalizeBackupCode(code)
	if normalized == "" {
		return false, nil
	}
	ok, err := st.BackupCodes().ConsumeBackupCode(ctx, u.ID, cryptox.Fingerprint(normalized), now)
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return ok, nil
}

// claimTOTP accepts code once: the matching time step must be newer than
// the last one the user spent.
func claimTOTP(ctx context.Context, users store.Users, u domain.User, code string, now time.Time) (bool, error) {
	if u.MFASecret == nil {
		return false, nil
	}
	step, ok := matchTOTP(code, *u.MFASecret, now)
	if !ok {
		return false, nil
	}
	claimed, err := users.ClaimTOTPStep(ctx, u.ID, step)
	if err != nil {
		return false, fmt.Errorf("failed to claim TOTP step: %w", err)
	}
	return claimed, nil
}

// matchTOTP returns the time step code belongs to, looking Skew steps
// either side of now.
func matchTOTP(code, secret string, now time.Time) (int64, bool) {
	code = strings.TrimSpace(code)
	if len(code) != totpOpts.Digits.Length() {
		return 0, false
	}

	period := int64(totpOpts.Period)
	current := now.Unix() / period
	skew := int64(totpOpts.Skew)
	for step := current - skew; step <= current+skew; step++ {
		want, err := totp.GenerateCodeCustom(secret, time.Unix(step*period, 0).UTC(), totpOpts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return step, true
		}
	}
	return 0, false
}

func generateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range backupCodeCount {
		code, err := cryptox.NewBackupCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = code
	}
	return codes, nil
}

func storeBackupCodes(ctx context.Context, tx store.Tx, userID string, codes []string) error {
	for _, code := range codes {
		if err := tx.BackupCodes().CreateBackupCode(ctx, userID, cryptox.Fingerprint(cryptox.NormalizeBackupCode(code))); err != nil {
			return fmt.Errorf("failed to store backup code: %w", err)
		}
	}
	return nil
}
