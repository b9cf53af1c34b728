package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

// BearerPrefix is matched case-sensitively with exactly one space.
const BearerPrefix = "Bearer "

const (
	MsgAuthRequired       = "Authentication required"
	MsgInvalidToken       = "Invalid authentication token"
	MsgInsufficientAccess = "Insufficient permissions"
	MsgInternal           = "Internal server error"
)

// ErrInvalidToken marks a verification failure caused by the token itself.
// RequireAuth answers 401 only for errors wrapping it; anything else is a
// server fault and gets 500.
var ErrInvalidToken = errors.New("httpx: invalid bearer token")

// FormatAuthHeader builds the Authorization header value for token.
func FormatAuthHeader(token string) string {
	return BearerPrefix + token
}

// ExtractBearerToken returns everything after the "Bearer " prefix verbatim.
// The token is not trimmed, so ExtractBearerToken(FormatAuthHeader(t))
// yields t for every string t, including the empty string.
func ExtractBearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	return header[len(BearerPrefix):], true
}

// ExtractTokenFromRequest applies ExtractBearerToken to the request's
// Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, bool) {
	return ExtractBearerToken(r.Header.Get("Authorization"))
}

// TokenVerifier resolves a bearer token to an authenticated caller. Errors
// about the token must wrap ErrInvalidToken.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (Subject, error)
}

// RequireAuth rejects requests without a valid bearer token. A missing header
// and a header with any other scheme get the same response.
func RequireAuth(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := ExtractTokenFromRequest(r)
			if !ok {
				writeBearerError(w, "", MsgAuthRequired)
				return
			}

			subject, err := v.VerifyToken(ctx, token)
			switch {
			case errors.Is(err, ErrInvalidToken):
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				writeBearerError(w, "invalid_token", MsgInvalidToken)
				return
			case err != nil:
				slogx.FromContext(ctx).Error("bearer token verification failed", "err", err)
				WriteError(w, http.StatusInternalServerError, MsgInternal)
				return
			}

			ctx = WithSubject(ctx, subject)
			ctx = slogx.With(ctx, "user_id", subject.SubjectID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission must run after RequireAuth. Callers lacking permission
// get 403, never a downgraded view.
func RequirePermission(permission string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, ok := SubjectFromContext(r.Context())
			if !ok {
				writeBearerError(w, "", MsgAuthRequired)
				return
			}
			if !subject.HasPermission(permission) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+permission+`"`)
				WriteError(w, http.StatusForbidden, MsgInsufficientAccess)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750 challenge plus the JSON body the dashboard expects.
func writeBearerError(w http.ResponseWriter, code, msg string) {
	challenge := "Bearer"
	if code != "" {
		challenge += ` error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	WriteError(w, http.StatusUnauthorized, msg)
}
