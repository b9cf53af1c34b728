package http

import (
	"net/http"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
)

// AccountHandler serves the caller's own account. Every route sits behind
// RequireAuth.
type AccountHandler struct {
	Auth     *service.Authenticator
	Accounts *service.AccountService
	MFA      *service.MFAService
}

// HandleMe handles GET /api/auth/me
//
//	@Summary		Current user
//	@Description	Returns the caller with the permissions of their effective role.
//	@Description	While MFA is enabled the number of unused backup codes is included.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserView
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/me [get].
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	user, err := h.Accounts.Me(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view := userView(user)
	if user.MFAEnabled && h.MFA != nil {
		remaining, err := h.MFA.RemainingBackupCodes(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		view.RemainingBackupCodes = &remaining
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// HandleChangePassword handles POST /api/auth/password
//
//	@Summary		Change password
//	@Description	Replaces the password and ends every session, including the current one.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	httpx.ErrorResponse	"Invalid input or wrong current password"
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/password [post].
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Accounts.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSessions handles GET /api/auth/sessions
//
//	@Summary		List sessions
//	@Description	Lists the caller's active sessions, newest first.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SessionListResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/sessions [get].
func (h *AccountHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	sessions, err := h.Accounts.Sessions(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := authsdk.SessionListResponse{Sessions: make([]authsdk.SessionView, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, sessionView(s, p.SessionID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleLogoutAll handles POST /api/auth/logout-all
//
//	@Summary		Log out everywhere
//	@Description	Ends every session of the caller, including the current one.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	map[string]int64	"sessions_revoked"
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Router			/api/auth/logout-all [post].
func (h *AccountHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	n, err := h.Auth.LogoutAll(r.Context(), p, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"sessions_revoked": n})
}
