package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginMFARequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.MFACode == "" {
			writeJSON(w, http.StatusUnauthorized, LoginErrorResponse{Detail: "MFA code required", MFARequired: true})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			ExpiresIn:    900,
			User:         UserView{ID: "u1", Permissions: []string{"dashboard:read"}},
		})
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)

	_, err := client.AuthenticateWithPassword(context.Background(), "a@b.co", "pw", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMFARequired))
	assert.True(t, IsUnauthorized(err))

	session, err := client.AuthenticateWithPassword(context.Background(), "a@b.co", "pw", "123456")
	require.NoError(t, err)
	assert.Equal(t, "access", session.AccessToken())
	assert.Equal(t, "refresh", session.RefreshToken())
	assert.True(t, session.HasPermission("dashboard:read"))
	assert.Equal(t, "u1", session.User().ID)
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "stored-refresh", req.RefreshToken)
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: "fresh", RefreshToken: req.RefreshToken, ExpiresIn: 900})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, UserView{ID: "u1", Permissions: []string{"audit:read"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	session := NewSDKClient(srv.URL).NewSessionFromTokens("stale", "stored-refresh", nil)
	assert.False(t, session.HasPermission("audit:read"))

	me, err := session.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
	assert.True(t, session.HasPermission("audit:read"))

	_, err = session.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestSessionPermissionCheck(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	}))
	defer srv.Close()

	client := NewSDKClient(srv.URL)
	session := newSession(client, &LoginResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900})

	_, err := session.ListAudit(context.Background(), "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit:read")
	assert.Zero(t, hits.Load())

	client.CheckPermissions = false
	_, err = session.ListAudit(context.Background(), "auth_failed", 10)
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Equal(t, "forbidden", err.(*APIError).Message)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLogoutClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	session := newSession(NewSDKClient(srv.URL), &LoginResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900})
	require.NoError(t, session.Logout(context.Background()))
	assert.Empty(t, session.AccessToken())
	assert.Error(t, session.Logout(context.Background()))
}

func TestParseErrorResponseFallback(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway}
	err := parseErrorResponse(resp, []byte("<html>"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
	assert.False(t, errors.Is(err, ErrMFARequired))
}
