// Copyright 2026 The Guildboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/id"
)

// PermissionSource resolves the permission names granted to a user.
type PermissionSource interface {
	PermissionNames(ctx context.Context, identityID string) ([]string, error)
}

// Service provides identity-related business logic
type Service struct {
	repo               UserRepository
	hasher             *PasswordHasher
	permissions        PermissionSource
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
	now                func() time.Time
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher *PasswordHasher,
	permissions PermissionSource,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{
		repo:               repo,
		hasher:             hasher,
		permissions:        permissions,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
		now:                time.Now,
	}
}

// CreateUser creates an account with the member role and a password credential.
func (s *Service) CreateUser(ctx context.Context, username, displayName, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if !isValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName = username
	}
	now := s.now()
	user := &User{
		ID:          id.NewUUIDv7(),
		Username:    username,
		DisplayName: displayName,
		Role:        authz.RoleMember,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.repo.AddCredentials(ctx, &Credentials{UserID: user.ID, PasswordHash: passwordHash, UpdatedAt: now}); err != nil {
		return nil, fmt.Errorf("failed to add credentials: %w", err)
	}
	return user, nil
}

// Authenticate verifies a username and password. Repeated failures lock the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrUsername: username, audit.AttrReason: "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "disabled"},
		})
		return nil, ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(s.now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "locked_out"},
		})
		return nil, ErrAccountLocked
	}

	credentials, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, credentials.PasswordHash)
	if err != nil || !valid {
		attempts := user.FailedLoginAttempts + 1
		var lockedUntil *time.Time

		if s.lockoutMaxAttempts > 0 && attempts >= s.lockoutMaxAttempts {
			until := s.now().Add(s.lockoutDuration)
			lockedUntil = &until
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserLocked,
				ActorID:  user.ID,
				Resource: "login",
				Metadata: map[string]any{audit.AttrAttempts: attempts},
			})
		}

		_ = s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil)

		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{
				audit.AttrReason:   "invalid_password",
				audit.AttrAttempts: attempts,
			},
		})
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.repo.UpdateLockout(ctx, user.ID, 0, nil)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  user.ID,
		Resource: "login",
	})
	return user, nil
}

// LoadIdentity builds the identity record for a user from the current role and grants.
// It is used when issuing a claim, never while serving an authorized request.
func (s *Service) LoadIdentity(ctx context.Context, userID string) (*authz.Identity, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	names, err := s.permissions.PermissionNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return authz.NewIdentity(user.ID, user.Role, names), nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// accountRef lets ownership be decided from the requested ID before any lookup.
type accountRef string

func (a accountRef) OwnerID() string { return string(a) }

// UpdateAccount changes a display name. The caller must own the account or hold users.manage.
// Ownership is checked first so callers without rights cannot learn which IDs exist.
func (s *Service) UpdateAccount(ctx context.Context, actor *authz.Identity, userID, displayName string) (*User, error) {
	if err := authz.RequireOwnership(actor, accountRef(userID), authz.AccountOwnership); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > 64 {
		return nil, ErrInvalidDisplayName
	}
	if err := s.repo.UpdateDisplayName(ctx, user.ID, displayName); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	user.DisplayName = displayName

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountUpdated,
		ActorID:  actor.ID,
		Resource: user.ID,
	})
	return user, nil
}

// AssignRole replaces a user's role. The new role is read when the user's next token is issued.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleName string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, userID, roleName); err != nil {
		if errors.Is(err, authz.ErrRoleNotFound) {
			return err
		}
		return fmt.Errorf("failed to assign role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  actorID,
		Resource: userID,
		Metadata: map[string]any{audit.AttrRole: roleName},
	})
	return nil
}

// ChangePassword replaces the password after verifying the current one.
// Callers are expected to end the user's refresh sessions afterwards.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	credentials, err := s.repo.GetCredentials(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get credentials: %w", err)
	}

	valid, err := s.hasher.Verify(oldPassword, credentials.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordChanged,
		ActorID:  userID,
		Resource: userID,
	})
	return nil
}

func isValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	return n >= 3 && n <= 32 && !strings.ContainsAny(username, " \t\r\n")
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
