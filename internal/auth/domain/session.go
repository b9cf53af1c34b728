package domain

import "time"

// Session is a server-side login. TokenHash is the fingerprint of the opaque
// session secret; the secret itself is only ever held by the client.
type Session struct {
	ID               string
	UserID           string
	TokenHash        string
	RefreshTokenHash *string
	ExpiresAt        time.Time
	IPAddress        string
	UserAgent        string
	IsActive         bool
	CreatedAt        time.Time
	LastUsedAt       time.Time
}

// UsableAt reports whether the session can still authenticate requests.
// Expired and invalidated sessions never become usable again.
func (s Session) UsableAt(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	SessionID    string
}
