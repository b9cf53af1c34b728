package authsdk

import (
	"context"
	"net/http"
)

// EnrollMFA starts TOTP enrollment. MFA is not active until VerifyMFA.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/auth/mfa/enroll", nil)
	if err != nil {
		return nil, err
	}

	var out MFAEnrollResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA confirms enrollment with a TOTP code and returns the backup
// codes. They are only ever shown once.
func (s *Session) VerifyMFA(ctx context.Context, code string) ([]string, error) {
	return s.backupCodes(ctx, "/api/auth/mfa/verify", code)
}

// RegenerateBackupCodes replaces every backup code.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) ([]string, error) {
	return s.backupCodes(ctx, "/api/auth/mfa/recovery", code)
}

// DisableMFA turns MFA off. code must be a current TOTP code.
func (s *Session) DisableMFA(ctx context.Context, code string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/auth/mfa/disable", MFACodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) backupCodes(ctx context.Context, path, code string) ([]string, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, MFACodeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var out BackupCodesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}
