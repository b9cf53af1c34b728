package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/obs"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/aussiebroadwan/voltex/pkg/jwtx"
)

// Verifier resolves an access token to a Principal. A valid signature is not
// enough: the backing session must still be usable and the user active.
// Permissions always come from the current role table, never from the token.
type Verifier struct {
	Store  store.Store
	Tokens jwtx.Verifier
	Now    func() time.Time
}

var _ httpx.TokenVerifier = (*Verifier)(nil)

func (v *Verifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := v.Tokens.Verify(token)
	if err != nil {
		obs.ObserveVerify(obs.VerifyInvalidToken)
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Session ids are ULIDs; anything else cannot name a session.
	if _, err := idx.Parse(claims.SID); err != nil {
		obs.ObserveVerify(obs.VerifyInvalidToken)
		return domain.Principal{}, ErrInvalidToken
	}

	now := nowFrom(v.Now)

	session, err := v.Store.Sessions().GetSessionByID(ctx, claims.SID, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			obs.ObserveVerify(obs.VerifySessionRevoked)
			return domain.Principal{}, ErrInvalidToken
		}
		return domain.Principal{}, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.Subject {
		obs.ObserveVerify(obs.VerifyInvalidToken)
		return domain.Principal{}, ErrInvalidToken
	}

	user, err := v.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			obs.ObserveVerify(obs.VerifyUserInactive)
			return domain.Principal{}, ErrInvalidToken
		}
		return domain.Principal{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Status != domain.StatusActive {
		obs.ObserveVerify(obs.VerifyUserInactive)
		return domain.Principal{}, ErrInvalidToken
	}

	if err := v.Store.Sessions().UpdateLastUsed(ctx, session.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			obs.ObserveVerify(obs.VerifySessionRevoked)
			return domain.Principal{}, ErrInvalidToken
		}
		return domain.Principal{}, fmt.Errorf("failed to touch session: %w", err)
	}

	obs.ObserveVerify(obs.VerifyOK)
	return domain.NewPrincipal(user, session.ID), nil
}

// VerifyToken adapts Verify to httpx.RequireAuth. Only token rejections are
// marked with httpx.ErrInvalidToken; storage failures pass through as they are.
func (v *Verifier) VerifyToken(ctx context.Context, token string) (httpx.Subject, error) {
	p, err := v.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, fmt.Errorf("%w: %w", httpx.ErrInvalidToken, err)
		}
		return nil, err
	}
	return p, nil
}
