package http

import (
	"net/http"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /api/auth/mfa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a TOTP secret. MFA stays off until a code is confirmed through /api/auth/mfa/verify.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MFAEnrollResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Failure		409	{object}	httpx.ErrorResponse	"MFA already enabled"
//	@Router			/api/auth/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	enrollment, err := h.MFAService.Enroll(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.URL,
		Issuer:     enrollment.Issuer,
		Account:    enrollment.Account,
	})
}

// HandleVerify handles POST /api/auth/mfa/verify
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Enables MFA after a valid TOTP code and returns backup codes. They are shown only once.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFACodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid code or no enrollment"
//	@Failure		401		{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Failure		409		{object}	httpx.ErrorResponse	"MFA already enabled"
//	@Router			/api/auth/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, func(userID, code string) error {
		codes, err := h.MFAService.Verify(r.Context(), userID, code, clientInfo(r))
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
		return nil
	})
}

// HandleRegenerateBackupCodes handles POST /api/auth/mfa/recovery
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code after a valid TOTP code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.MFACodeRequest	true	"TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid code or MFA not enabled"
//	@Failure		401		{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/mfa/recovery [post].
func (h *MFAHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, func(userID, code string) error {
		codes, err := h.MFAService.RegenerateBackupCodes(r.Context(), userID, code, clientInfo(r))
		if err != nil {
			return err
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
		return nil
	})
}

// HandleDisable handles POST /api/auth/mfa/disable
//
//	@Summary		Disable MFA
//	@Description	Turns MFA off and discards the secret and backup codes. Requires a current TOTP code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.MFACodeRequest	true	"TOTP code"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorResponse	"Invalid code or MFA not enabled"
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, func(userID, code string) error {
		if err := h.MFAService.Disable(r.Context(), userID, code, clientInfo(r)); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

// withCode decodes {"code": ...} for the caller and maps fn's error.
func (h *MFAHandler) withCode(w http.ResponseWriter, r *http.Request, fn func(userID, code string) error) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	var req authsdk.MFACodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "code: is required")
		return
	}

	if err := fn(p.UserID, req.Code); err != nil {
		writeError(w, r, err)
	}
}
