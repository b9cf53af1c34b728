package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Me fetches the current user and updates the cached permission set.
func (s *Session) Me(ctx context.Context) (*UserView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserView
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = &user
	s.permissions = permissionSet(user.Permissions)
	s.mu.Unlock()
	return &user, nil
}

// ChangePassword replaces the password. The server ends every session,
// this one included, so the Session is unusable afterwards.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/auth/password", ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Sessions lists the user's active sessions.
func (s *Session) Sessions(ctx context.Context) ([]SessionView, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/auth/sessions", nil)
	if err != nil {
		return nil, err
	}

	var out SessionListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// LogoutAll ends every session of the user and reports how many were active.
func (s *Session) LogoutAll(ctx context.Context) (int64, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/auth/logout-all", nil)
	if err != nil {
		return 0, err
	}

	var out struct {
		SessionsRevoked int64 `json:"sessions_revoked"`
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.SessionsRevoked, nil
}

// ListAudit returns audit entries visible to the caller. An empty action
// returns every action; limit <= 0 uses the server default.
func (s *Session) ListAudit(ctx context.Context, action string, limit int) ([]AuditEntryView, error) {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, "audit:read")
	if err != nil {
		return nil, err
	}

	var out AuditListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Entries, nil
}
