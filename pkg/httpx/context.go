package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID  ctxKey = "user_id"
	CtxKeySubject ctxKey = "subject"
)

// Subject is the authenticated caller resolved by a TokenVerifier.
type Subject interface {
	SubjectID() string
	HasPermission(permission string) bool
}

// WithSubject stores the verified caller. The user id is also stored on its
// own so rate limiting can key on it.
func WithSubject(ctx context.Context, s Subject) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, s.SubjectID())
	return context.WithValue(ctx, CtxKeySubject, s)
}

// SubjectFromContext returns the caller injected by RequireAuth.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(CtxKeySubject).(Subject)
	return s, ok
}
