package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL caps the lifetime of an access token. The token can
// never outlive the session it is bound to, so the effective expiry is the
// earlier of the two.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access-token claims minted at login. Permissions are carried
// for the convenience of the UI only; the server recomputes them from Role on
// every request.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID backing this token ("sid"). Revoking the session revokes
	// the token.
	SID string `json:"sid,omitempty"`

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// Permission strings such as "trading:read".
	Permissions []string `json:"permissions,omitempty"`

	// OrgID is the organization the role was resolved against, if any.
	OrgID string `json:"org,omitempty"`

	// MFA is true when a second factor was presented at login.
	MFA bool `json:"mfa,omitempty"`
}

// NewAccessClaims builds minimally-correct registered claims. Custom fields
// are filled in by the caller.
func NewAccessClaims(subject, sid, issuer string, now, expiresAt time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        NewJTI(),
		},
		SID: sid,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiryAt checks exp/nbf against now, allowing leeway for clock
// skew. A token is expired from the instant now reaches exp.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
