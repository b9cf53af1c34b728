package domain

import "time"

// SSOState holds the anti-forgery state of an in-flight SSO redirect.
type SSOState struct {
	State       string
	Provider    string
	RedirectURI string
	Nonce       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
