package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/voltex/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "voltex-auth",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("voltex-auth"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("billing"), jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: []string{"dashboard", "trading"},
		},
	}

	require.NoError(t, c.ValidateAudience([]string{"dashboard"}))
	require.NoError(t, c.ValidateAudience([]string{"foo", "trading"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestValidateExpiryAt(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		claims := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.NoError(t, claims.ValidateExpiryAt(now, 0))
	})

	t.Run("expired exactly at exp", func(t *testing.T) {
		exp := now.Truncate(time.Second)
		claims := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
		require.ErrorIs(t, claims.ValidateExpiryAt(exp, 0), jwtx.ErrExpired)
	})

	t.Run("leeway tolerates skew", func(t *testing.T) {
		claims := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
		}}
		require.NoError(t, claims.ValidateExpiryAt(now, 30*time.Second))
		require.ErrorIs(t, claims.ValidateExpiryAt(now, 5*time.Second), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.ErrorIs(t, claims.ValidateExpiryAt(now, 0), jwtx.ErrNotYetValid)
	})

	t.Run("no exp or nbf", func(t *testing.T) {
		require.NoError(t, (&jwtx.Claims{}).ValidateExpiryAt(now, 0))
	})
}

func TestHS256RoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now().UTC().Truncate(time.Second)

	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.NewAccessClaims("user-1", "session-1", "voltex-auth", now, now.Add(15*time.Minute))
	claims.Email = "trader@example.com"
	claims.Role = "analyst"
	claims.Permissions = []string{"dashboard:read", "trading:read"}
	claims.OrgID = "org-1"

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{
		Issuer: "voltex-auth",
		Now:    func() time.Time { return now.Add(time.Minute) },
	})
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "session-1", got.SID)
	require.Equal(t, "trader@example.com", got.Email)
	require.Equal(t, "analyst", got.Role)
	require.Equal(t, []string{"dashboard:read", "trading:read"}, got.Permissions)
	require.Equal(t, "org-1", got.OrgID)
	require.NotEmpty(t, got.ID)

	t.Run("wrong secret", func(t *testing.T) {
		other := jwtx.NewVerifierHS256([]byte("another-secret-another-secret-xx"), jwtx.VerifyOptions{})
		_, err := other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{Issuer: "someone-else"})
		_, err := other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		late := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{
			Now: func() time.Time { return now.Add(16 * time.Minute) },
		})
		_, err := late.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("tampered payload", func(t *testing.T) {
		_, err := verifier.Verify(token[:len(token)-2] + "xx")
		require.Error(t, err)
	})
}

func TestHS256RejectsOtherAlgorithms(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now().UTC()

	claims := jwtx.NewAccessClaims("user-1", "session-1", "", now, now.Add(time.Minute))
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{}).Verify(unsigned)
	require.Error(t, err)
}

func TestVerifyRequiresSubjectAndSession(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now().UTC()
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewAccessClaims("user-1", "", "", now, now.Add(time.Minute)))
	require.NoError(t, err)

	_, err = jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{}).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
}

func TestNewSignerHS256RejectsEmptySecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256(nil)
	require.Error(t, err)
}
