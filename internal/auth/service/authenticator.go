package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/obs"
	"github.com/aussiebroadwan/voltex/pkg/cryptox"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/aussiebroadwan/voltex/pkg/jwtx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	TokenTypeBearer = "Bearer"
)

// errLockedDuringLogin means a concurrent failure locked the account after
// this attempt passed the early lock check.
var errLockedDuringLogin = errors.New("account locked during login")

// Authenticator verifies credentials, enforces the lockout policy and opens
// sessions. The bearer credential it issues is a short-lived JWT bound to a
// server-side session; the session's opaque secret doubles as the refresh
// token and is only ever stored as a fingerprint.
type Authenticator struct {
	Store     store.Store
	Signer    jwtx.Signer
	Issuer    string
	AccessTTL time.Duration

	SessionTTL time.Duration
	Lockout    Lockout

	Audit *AuditService
	Now   func() time.Time
}

type LoginRequest struct {
	Email    string
	Password string
	MFACode  string
	ClientInfo
}

type LoginResult struct {
	User      domain.User
	Principal domain.Principal
	Tokens    domain.TokenPair
}

// Login runs the full password (and, when enabled, second factor) check.
//
// Every rejection reaches the caller as ErrInvalidCredentials; the actual
// cause is only visible in the audit trail. ErrMFARequired is returned when
// the password was right but MFA is on and no code was supplied.
func (a *Authenticator) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	email, err := validateEmail(req.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if req.Password == "" {
		return LoginResult{}, invalidInput("password", "is required")
	}

	now := nowFrom(a.Now)

	user, err := a.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(req.Password)
			a.reject(ctx, nil, email, domain.RejectUnknownUser, req.ClientInfo, now)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Status != domain.StatusActive {
		cryptox.BurnPasswordCheck(req.Password)
		a.reject(ctx, &user, email, domain.RejectInactive, req.ClientInfo, now)
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.IsLockedAt(now) {
		cryptox.BurnPasswordCheck(req.Password)
		a.reject(ctx, &user, email, domain.RejectLocked, req.ClientInfo, now)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash is unusable", "user_id", user.ID, "error", err)
		}
		if err := a.Lockout.recordFailure(ctx, a.Store.Users(), a.Audit, user, "password", req.ClientInfo, now); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			obs.ObserveLogin(obs.LoginMFARequired)
			return LoginResult{}, ErrMFARequired
		}
		ok, err := checkSecondFactor(ctx, a.Store, user, req.MFACode, now)
		if err != nil {
			return LoginResult{}, err
		}
		if !ok {
			if err := a.Lockout.recordFailure(ctx, a.Store.Users(), a.Audit, user, "mfa_code", req.ClientInfo, now); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, ErrInvalidCredentials
		}
	}

	secret, err := cryptox.NewSessionSecret()
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to generate session token: %w", err)
	}
	session := domain.Session{
		ID:         idx.NewAt(now).String(),
		UserID:     user.ID,
		TokenHash:  cryptox.Fingerprint(secret),
		ExpiresAt:  now.Add(a.sessionTTL()),
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		IsActive:   true,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	// The lock is checked again inside the transaction: the early check read
	// a snapshot that concurrent failures may have overtaken.
	err = a.Store.WithTx(ctx, func(tx store.Tx) error {
		reset, err := tx.Users().ResetFailedAttempts(ctx, user.ID, now)
		if err != nil {
			return fmt.Errorf("failed to reset failed attempts: %w", err)
		}
		if !reset {
			return errLockedDuringLogin
		}
		if err := tx.Users().UpdateLastLogin(ctx, user.ID, req.IPAddress, now); err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if errors.Is(err, errLockedDuringLogin) {
		a.reject(ctx, &user, email, domain.RejectLocked, req.ClientInfo, now)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = optional(req.IPAddress)

	if cryptox.IsLegacyHash(user.PasswordHash) {
		a.upgradeHash(ctx, user.ID, req.Password)
	}

	tokens, err := a.issue(user, session, secret, now)
	if err != nil {
		return LoginResult{}, err
	}

	entry := userEntry(user, domain.AuditAuthSuccess, req.ClientInfo)
	entry.SessionID = &session.ID
	entry.CreatedAt = now
	if user.MFAEnabled {
		entry.NewValues = map[string]any{"mfa": true}
	}
	a.Audit.Record(ctx, entry)
	obs.ObserveLogin(obs.LoginSuccess)

	log.Info("login succeeded", slog.String("user_id", user.ID), slog.String("session_id", session.ID))

	return LoginResult{
		User:      user,
		Principal: domain.NewPrincipal(user, session.ID),
		Tokens:    tokens,
	}, nil
}

// Refresh mints a new access token for the session behind refreshToken.
// The session itself, and therefore the refresh token, is left unchanged.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, invalidInput("refresh_token", "is required")
	}
	now := nowFrom(a.Now)

	session, err := a.Store.Sessions().GetSessionByToken(ctx, cryptox.Fingerprint(refreshToken), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, fmt.Errorf("failed to load session: %w", err)
	}

	user, err := a.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Status != domain.StatusActive {
		return domain.TokenPair{}, ErrInvalidToken
	}

	if err := a.Store.Sessions().UpdateLastUsed(ctx, session.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, fmt.Errorf("failed to touch session: %w", err)
	}

	return a.issue(user, session, refreshToken, now)
}

// Logout ends the session behind refreshToken. Unknown, expired and already
// invalidated tokens are not an error.
func (a *Authenticator) Logout(ctx context.Context, refreshToken string, info ClientInfo) error {
	if refreshToken == "" {
		return invalidInput("refresh_token", "is required")
	}
	now := nowFrom(a.Now)

	session, err := a.Store.Sessions().GetSessionByToken(ctx, cryptox.Fingerprint(refreshToken), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := a.Store.Sessions().InvalidateSessionByID(ctx, session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	a.Audit.Record(ctx, domain.AuditEntry{
		UserID:       &session.UserID,
		Action:       domain.AuditLogout,
		ResourceType: "session",
		ResourceID:   session.ID,
		IPAddress:    info.IPAddress,
		UserAgent:    info.UserAgent,
		SessionID:    &session.ID,
		CreatedAt:    now,
	})
	return nil
}

// LogoutAll invalidates every session of the caller, including the one the
// request came in on, and returns how many were still active.
func (a *Authenticator) LogoutAll(ctx context.Context, p domain.Principal, info ClientInfo) (int64, error) {
	n, err := a.Store.Sessions().InvalidateUserSessions(ctx, p.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	a.Audit.Record(ctx, domain.AuditEntry{
		UserID:         &p.UserID,
		OrganizationID: optional(p.OrganizationID),
		Action:         domain.AuditLogoutAll,
		ResourceType:   "user",
		ResourceID:     p.UserID,
		NewValues:      map[string]any{"sessions_revoked": n},
		IPAddress:      info.IPAddress,
		UserAgent:      info.UserAgent,
		SessionID:      optional(p.SessionID),
		CreatedAt:      nowFrom(a.Now),
	})
	return n, nil
}

// reject writes auth_rejected for failures decided before the password
// check. u is nil for unknown emails.
func (a *Authenticator) reject(ctx context.Context, u *domain.User, email, reason string, info ClientInfo, now time.Time) {
	entry := domain.AuditEntry{
		Action:       domain.AuditAuthRejected,
		ResourceType: "user",
		IPAddress:    info.IPAddress,
		UserAgent:    info.UserAgent,
		NewValues:    map[string]any{"reason": reason, "email": email},
		CreatedAt:    now,
	}
	if u != nil {
		entry = userEntry(*u, domain.AuditAuthRejected, info)
		entry.NewValues = map[string]any{"reason": reason}
		entry.CreatedAt = now
	}
	a.Audit.Record(ctx, entry)
	obs.ObserveLogin(obs.LoginRejected)
}

func (a *Authenticator) upgradeHash(ctx context.Context, userID, password string) {
	log := slogx.FromContext(ctx)
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Warn("password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := a.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		log.Warn("password rehash not stored", "user_id", userID, "error", err)
		return
	}
	log.Info("upgraded legacy password hash", "user_id", userID)
}

// issue signs an access token that never outlives its session.
func (a *Authenticator) issue(u domain.User, s domain.Session, secret string, now time.Time) (domain.TokenPair, error) {
	expiresAt := now.Add(a.accessTTL())
	if s.ExpiresAt.Before(expiresAt) {
		expiresAt = s.ExpiresAt
	}
	// exp is encoded in whole seconds.
	expiresAt = expiresAt.Truncate(time.Second)

	p := domain.NewPrincipal(u, s.ID)
	claims := jwtx.NewAccessClaims(u.ID, s.ID, a.Issuer, now, expiresAt)
	claims.Email = u.Email
	claims.Role = string(p.Role)
	claims.Permissions = p.Permissions
	claims.OrgID = p.OrganizationID
	claims.MFA = u.MFAEnabled

	access, err := a.Signer.Sign(claims)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: secret,
		TokenType:    TokenTypeBearer,
		ExpiresAt:    expiresAt,
		SessionID:    s.ID,
	}, nil
}

func (a *Authenticator) accessTTL() time.Duration {
	if a.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return a.AccessTTL
}

func (a *Authenticator) sessionTTL() time.Duration {
	if a.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return a.SessionTTL
}
