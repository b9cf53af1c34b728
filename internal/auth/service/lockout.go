package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/obs"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// Lockout is the brute force policy applied to every password check, at
// login and on password change alike.
type Lockout struct {
	Threshold int           // failed attempts before the account locks
	Duration  time.Duration // how long the lock lasts
}

func (l Lockout) threshold() int {
	if l.Threshold <= 0 {
		return DefaultLockoutThreshold
	}
	return l.Threshold
}

func (l Lockout) duration() time.Duration {
	if l.Duration <= 0 {
		return DefaultLockoutDuration
	}
	return l.Duration
}

// recordFailure bumps the counter in one statement and writes auth_failed
// with the post-increment count.
func (l Lockout) recordFailure(
	ctx context.Context,
	users store.Users,
	audit *AuditService,
	u domain.User,
	reason string,
	info ClientInfo,
	now time.Time,
) error {
	count, err := users.IncrementFailedAttempts(ctx, u.ID, l.threshold(), now.Add(l.duration()))
	if err != nil {
		return fmt.Errorf("failed to record failed attempt: %w", err)
	}

	values := map[string]any{"reason": reason, "failed_attempts": count}
	if count >= l.threshold() {
		values["locked"] = true
		slogx.FromContext(ctx).Warn("account locked", "user_id", u.ID, "failed_attempts", count)
	}

	entry := userEntry(u, domain.AuditAuthFailed, info)
	entry.NewValues = values
	entry.CreatedAt = now
	audit.Record(ctx, entry)
	obs.ObserveLogin(obs.LoginFailed)
	return nil
}
