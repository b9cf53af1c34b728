package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
)

// CredentialsHandler serves the endpoints that take credentials or a refresh
// token in the body instead of a bearer token.
type CredentialsHandler struct {
	Auth     *service.Authenticator
	Accounts *service.AccountService
	Now      func() time.Time
}

func (h *CredentialsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// HandleSignup handles POST /api/auth/signup
//
//	@Summary		Create an account
//	@Description	Creates an editor account. With organization_name the organization is created too and the new user becomes its owner.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"New account"
//	@Success		201		{object}	authsdk.UserView
//	@Failure		400		{object}	httpx.DetailResponse	"Invalid input"
//	@Failure		409		{object}	httpx.DetailResponse	"Email already registered"
//	@Router			/api/auth/signup [post].
func (h *CredentialsHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.Accounts.Signup(r.Context(), service.SignupRequest{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		OrganizationName: req.OrganizationName,
		ClientInfo:       clientInfo(r),
	})
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userView(user))
}

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Log in
//	@Description	Verifies email and password, and the MFA code when the account has MFA enabled.
//	@Description	Every failure returns the same 401; mfa_required is set only after a correct password.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	httpx.DetailResponse		"Invalid input"
//	@Failure		401		{object}	authsdk.LoginErrorResponse	"Invalid credentials or MFA required"
//	@Failure		429		{object}	httpx.ErrorResponse			"Rate limited"
//	@Router			/api/auth/login [post].
func (h *CredentialsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Auth.Login(r.Context(), service.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		MFACode:    req.MFACode,
		ClientInfo: clientInfo(r),
	})
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		TokenType:    res.Tokens.TokenType,
		ExpiresIn:    expiresIn(res.Tokens.ExpiresAt, h.now()),
		ExpiresAt:    res.Tokens.ExpiresAt,
		User:         userView(res.User),
	})
}

// HandleRefresh handles POST /api/auth/refresh
//
//	@Summary		Refresh the access token
//	@Description	Issues a new access token for the session identified by the refresh token. The refresh token is returned unchanged.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	httpx.DetailResponse	"Invalid input"
//	@Failure		401		{object}	httpx.DetailResponse	"Session ended or expired"
//	@Router			/api/auth/refresh [post].
func (h *CredentialsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    expiresIn(tokens.ExpiresAt, h.now()),
		ExpiresAt:    tokens.ExpiresAt,
	})
}

// HandleLogout handles POST /api/auth/logout
//
//	@Summary		Log out
//	@Description	Ends the session identified by the refresh token. Unknown or already ended sessions also return 204.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.LogoutRequest	true	"Refresh token"
//	@Success		204
//	@Failure		400	{object}	httpx.DetailResponse	"Invalid input"
//	@Router			/api/auth/logout [post].
func (h *CredentialsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Auth.Logout(r.Context(), req.RefreshToken, clientInfo(r)); err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
