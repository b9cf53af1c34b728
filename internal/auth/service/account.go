package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/pkg/cryptox"
	"github.com/aussiebroadwan/voltex/pkg/idx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const maxOrganizationNameLen = 200

// AccountService covers self-service account operations: signup, profile
// lookup, password change and session listing.
type AccountService struct {
	Store   store.Store
	Audit   *AuditService
	Lockout Lockout
	Now     func() time.Time
}

type SignupRequest struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	OrganizationName string
	ClientInfo
}

// Signup creates an editor account. With an organization name it also
// creates the organization and makes the new user its owner.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return domain.User{}, err
	}
	if err := validatePassword("password", req.Password); err != nil {
		return domain.User{}, err
	}
	firstName, err := validateName("first_name", req.FirstName)
	if err != nil {
		return domain.User{}, err
	}
	lastName, err := validateName("last_name", req.LastName)
	if err != nil {
		return domain.User{}, err
	}
	orgName := strings.TrimSpace(req.OrganizationName)
	if len(orgName) > maxOrganizationNameLen {
		return domain.User{}, invalidInput("organization_name", "is too long")
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := nowFrom(s.Now)
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         domain.RoleEditor,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		if orgName == "" {
			return nil
		}

		org := domain.Organization{
			ID:        idx.NewAt(now).String(),
			Name:      orgName,
			Domain:    emailDomain(email),
			Plan:      domain.DefaultPlan,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			Role:           domain.RoleOwner,
			IsActive:       true,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return domain.User{}, err
	}

	created, err := s.Store.Users().GetUserByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to reload user: %w", err)
	}

	entry := userEntry(created, domain.AuditSignup, req.ClientInfo)
	entry.NewValues = map[string]any{"email": created.Email, "role": string(created.EffectiveRole())}
	entry.CreatedAt = now
	s.Audit.Record(ctx, entry)

	slogx.FromContext(ctx).Info("user signed up", "user_id", created.ID, "organization_id", created.OrganizationID())
	return created, nil
}

// Me returns the current record of the authenticated caller.
func (s *AccountService) Me(ctx context.Context, p domain.Principal) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, p.UserID)
}

// ChangePassword replaces the caller's password and signs every session
// out, the current one included. A wrong current password counts towards
// the lockout like a failed login, and a locked account cannot change it.
func (s *AccountService) ChangePassword(ctx context.Context, p domain.Principal, current, next string, info ClientInfo) error {
	if current == "" {
		return invalidInput("current_password", "is required")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	now := nowFrom(s.Now)
	if user.IsLockedAt(now) {
		cryptox.BurnPasswordCheck(current)
		return ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		if err := s.Lockout.recordFailure(ctx, s.Store.Users(), s.Audit, user, "change_password", info, now); err != nil {
			return err
		}
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var revoked int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("failed to store password: %w", err)
		}
		n, err := tx.Sessions().InvalidateUserSessions(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to invalidate sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		return err
	}

	entry := userEntry(user, domain.AuditPasswordChanged, info)
	entry.NewValues = map[string]any{"sessions_revoked": revoked}
	entry.SessionID = optional(p.SessionID)
	entry.CreatedAt = now
	s.Audit.Record(ctx, entry)
	return nil
}

// Sessions lists the caller's usable sessions, newest first.
func (s *AccountService) Sessions(ctx context.Context, p domain.Principal) ([]domain.Session, error) {
	return s.Store.Sessions().ListActiveSessions(ctx, p.UserID, nowFrom(s.Now))
}
