package authsdk

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry a Session refreshes its access token.
const refreshBuffer = 30 * time.Second

// Session is a logged-in user. Methods refresh the access token through the
// refresh endpoint when it is close to expiry. Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	permissions  map[string]bool
	user         *UserView
}

func newSession(client *SDKClient, login *LoginResponse) *Session {
	user := login.User
	return &Session{
		client:       client,
		accessToken:  login.AccessToken,
		refreshToken: login.RefreshToken,
		expiresAt:    refreshDeadline(login.ExpiresIn),
		permissions:  permissionSet(user.Permissions),
		user:         &user,
	}
}

func refreshDeadline(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn)*time.Second - refreshBuffer)
}

func permissionSet(perms []string) map[string]bool {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// getValidToken returns an access token, refreshing it first when expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		s.refreshToken = tokenResp.RefreshToken
	}
	s.expiresAt = refreshDeadline(tokenResp.ExpiresIn)
	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the opaque session token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the user returned at login, or the latest Me result.
// Nil for sessions resumed with NewSessionFromTokens until Me is called.
func (s *Session) User() *UserView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Permissions returns the known permissions, sorted.
func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		perms = append(perms, p)
	}
	slices.Sort(perms)
	return perms
}

func (s *Session) HasPermission(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions[perm]
}

// checkPermissions fails fast when the client checks permissions locally
// and the session is missing any of perms.
func (s *Session) checkPermissions(perms ...string) error {
	if !s.client.CheckPermissions || len(perms) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, p := range perms {
		if !s.permissions[p] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("insufficient permissions: missing %v", missing)
	}
	return nil
}

// Logout ends this session on the server and forgets its tokens.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}
	if err := s.client.Logout(ctx, refreshToken); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}
