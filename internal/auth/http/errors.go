package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgMFARequired        = "MFA code required"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgEmailTaken         = "An account with this email already exists"
)

// writeCredentialError answers the unauthenticated credential endpoints,
// which use {"detail": ...} bodies. Nothing here says why a login failed.
func writeCredentialError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		httpx.WriteDetail(w, http.StatusBadRequest, inputErr.Error())
	case errors.Is(err, service.ErrMFARequired):
		httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.LoginErrorResponse{
			Detail:      msgMFARequired,
			MFARequired: true,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteDetail(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteDetail(w, http.StatusUnauthorized, msgInvalidRefresh)
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteDetail(w, http.StatusConflict, msgEmailTaken)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		httpx.WriteDetail(w, http.StatusInternalServerError, httpx.MsgInternal)
	}
}

// writeError answers bearer-protected endpoints with {"error": ...} bodies.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *service.InputError
	switch {
	case errors.As(err, &inputErr):
		httpx.WriteError(w, http.StatusBadRequest, inputErr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid MFA code")
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict, "MFA is already enabled")
	case errors.Is(err, service.ErrMFANotEnabled):
		httpx.WriteError(w, http.StatusBadRequest, "MFA is not enabled")
	case errors.Is(err, service.ErrMFANotEnrolled):
		httpx.WriteError(w, http.StatusBadRequest, "MFA enrollment has not been started")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.MsgInternal)
	}
}
