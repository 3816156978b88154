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
	"testing"
	"time"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a simple in-memory implementation of UserRepository
type MockUserRepository struct {
	users       map[string]*User
	credentials map[string]*Credentials
	roles       map[string]bool
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:       make(map[string]*User),
		credentials: make(map[string]*Credentials),
		roles:       map[string]bool{authz.RoleAdmin: true, authz.RoleModerator: true, authz.RoleMember: true},
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) AddCredentials(ctx context.Context, credentials *Credentials) error {
	m.credentials[credentials.UserID] = credentials
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.DisplayName = displayName
	return nil
}

func (m *MockUserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

func (m *MockUserRepository) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	c, ok := m.credentials[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return c, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	c, ok := m.credentials[userID]
	if !ok {
		return ErrUserNotFound
	}
	c.PasswordHash = passwordHash
	return nil
}

func (m *MockUserRepository) SetRole(ctx context.Context, userID, roleName string) error {
	if !m.roles[roleName] {
		return authz.ErrRoleNotFound
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = roleName
	return nil
}

func (m *MockUserRepository) CountByRole(ctx context.Context, roleName string) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.IsActive && u.Role == roleName {
			n++
		}
	}
	return n, nil
}

// staticPermissions maps user ids to granted permission names.
type staticPermissions map[string][]string

func (p staticPermissions) PermissionNames(ctx context.Context, identityID string) ([]string, error) {
	return p[identityID], nil
}

func testHasher() *PasswordHasher {
	return NewPasswordHasher(1024, 1, 1, 16, 32)
}

func newTestService(repo *MockUserRepository, perms staticPermissions) *Service {
	return NewService(repo, testHasher(), perms, audit.NewSlogLogger(), 3, 5*time.Minute)
}

// TestPurpose: Validates the user authentication flow, including success, failure, and account lockout after multiple failed attempts.
// Scope: Unit Test
// Security: Authentication mechanisms and Brute-force protection (lockout)
// Expected: Successful login for correct credentials, error for wrong credentials, and account lockout after the threshold.
// Test Case ID: IDN-01
func TestIdentity_Service_Authenticate(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo, nil)
	ctx := context.Background()
	password := "SecurePassword123"

	user, err := s.CreateUser(ctx, "kestrel", "Kestrel", password)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleMember, user.Role)

	got, err := s.Authenticate(ctx, "kestrel", password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Authenticate(ctx, "kestrel", "WrongPassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _ = s.Authenticate(ctx, "kestrel", "WrongPassword")
	_, err = s.Authenticate(ctx, "kestrel", "WrongPassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "kestrel", password)
	assert.ErrorIs(t, err, ErrAccountLocked)

	_, err = s.Authenticate(ctx, "nobody", password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestPurpose: Validates that creating an account fails if the username is already taken.
// Scope: Unit Test
// Security: Data Integrity and Unique Constraint Enforcement
// Expected: ErrUserAlreadyExists on the second create; weak passwords and short usernames are rejected.
// Test Case ID: IDN-02
func TestIdentity_Service_CreateUser_Conflict(t *testing.T) {
	s := newTestService(NewMockUserRepository(), nil)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "heron", "", "longenough")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "heron", "", "longenough")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = s.CreateUser(ctx, "ab", "", "longenough")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = s.CreateUser(ctx, "plover", "", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

// TestPurpose: Validates that the identity record comes from the user's role and explicit grants only.
// Scope: Unit Test
// Security: Claim construction
// Expected: Identity carries the stored role and granted names; disabled accounts yield ErrAccountDisabled.
// Test Case ID: IDN-03
func TestIdentity_Service_LoadIdentity(t *testing.T) {
	repo := NewMockUserRepository()
	ctx := context.Background()
	s := newTestService(repo, nil)

	u, err := s.CreateUser(ctx, "wren", "", "longenough")
	require.NoError(t, err)
	s.permissions = staticPermissions{u.ID: {authz.PermCommentsView, authz.PermCommentsCreate}}

	ident, err := s.LoadIdentity(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, ident.ID)
	assert.Equal(t, authz.RoleMember, ident.Role)
	assert.Equal(t, []string{authz.PermCommentsCreate, authz.PermCommentsView}, ident.Permissions())

	u.IsActive = false
	_, err = s.LoadIdentity(ctx, u.ID)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

// TestPurpose: Validates account ownership for account updates.
// Scope: Unit Test
// Security: Horizontal privilege escalation
// Expected: Owner and users.manage holders may update; other members get ErrNotOwner.
// Test Case ID: IDN-04
func TestIdentity_Service_UpdateAccount(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo, nil)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "finch", "", "longenough")
	require.NoError(t, err)

	self := authz.NewIdentity(u.ID, authz.RoleMember, nil)
	other := authz.NewIdentity("someone-else", authz.RoleModerator, []string{authz.PermCommentsModerate})
	manager := authz.NewIdentity("manager", authz.RoleMember, []string{authz.PermUsersManage})

	updated, err := s.UpdateAccount(ctx, self, u.ID, "Finch")
	require.NoError(t, err)
	assert.Equal(t, "Finch", updated.DisplayName)

	_, err = s.UpdateAccount(ctx, other, u.ID, "Hijacked")
	assert.ErrorIs(t, err, authz.ErrNotOwner)

	_, err = s.UpdateAccount(ctx, manager, u.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", repo.users[u.ID].DisplayName)

	_, err = s.UpdateAccount(ctx, self, u.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = s.UpdateAccount(ctx, manager, "missing", "x")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Without rights the answer is the same for existing and missing accounts.
	_, err = s.UpdateAccount(ctx, self, "missing", "x")
	assert.ErrorIs(t, err, authz.ErrNotOwner)
}

// TestPurpose: Validates role assignment.
// Scope: Unit Test
// Expected: Known roles replace the current one; unknown roles return authz.ErrRoleNotFound.
// Test Case ID: IDN-05
func TestIdentity_Service_AssignRole(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo, nil)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "sparrow", "", "longenough")
	require.NoError(t, err)

	require.NoError(t, s.AssignRole(ctx, "admin-1", u.ID, authz.RoleModerator))
	assert.Equal(t, authz.RoleModerator, repo.users[u.ID].Role)

	assert.ErrorIs(t, s.AssignRole(ctx, "admin-1", u.ID, "overlord"), authz.ErrRoleNotFound)
	assert.ErrorIs(t, s.AssignRole(ctx, "admin-1", "missing", authz.RoleMember), ErrUserNotFound)
}

func TestIdentity_Service_ChangePassword(t *testing.T) {
	s := newTestService(NewMockUserRepository(), nil)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "swift", "", "original-pass")
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangePassword(ctx, u.ID, "wrong-pass", "new-password"), ErrInvalidCredentials)
	assert.ErrorIs(t, s.ChangePassword(ctx, u.ID, "original-pass", "short"), ErrWeakPassword)
	require.NoError(t, s.ChangePassword(ctx, u.ID, "original-pass", "new-password"))

	_, err = s.Authenticate(ctx, "swift", "new-password")
	assert.NoError(t, err)
}

// unavailableUserRepository fails every lookup as an unreachable database would.
type unavailableUserRepository struct {
	*MockUserRepository
	err error
}

func (u unavailableUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return nil, u.err
}

func (u unavailableUserRepository) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	return nil, u.err
}

// TestPurpose: Validates that storage failures are not reported as missing users.
// Scope: Unit Test
// Expected: The storage error is wrapped and ErrUserNotFound is not matched.
// Test Case ID: IDN-07
func TestIdentity_Service_StorageErrorsAreNotNotFound(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := unavailableUserRepository{MockUserRepository: NewMockUserRepository(), err: dbErr}
	s := NewService(repo, testHasher(), nil, audit.NopLogger{}, 3, 5*time.Minute)
	ctx := context.Background()
	manager := authz.NewIdentity("manager", authz.RoleMember, []string{authz.PermUsersManage})

	_, err := s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrUserNotFound)

	_, err = s.UpdateAccount(ctx, manager, "u1", "Name")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrUserNotFound)

	err = s.AssignRole(ctx, "admin-1", "u1", authz.RoleMember)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrUserNotFound)

	err = s.ChangePassword(ctx, "u1", "old-password", "new-password")
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordHasher_Verify(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("correct-horse")
	require.NoError(t, err)

	ok, err := h.Verify("correct-horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-horse", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("x", "$bcrypt$nope")
	assert.Error(t, err)
}

// TestPurpose: Validates first-run admin bootstrap.
// Scope: Unit Test
// Security: Initial privilege assignment
// Expected: The named account becomes admin when no admin exists; later runs change nothing.
// Test Case ID: IDN-06
func TestBootstrapService_Bootstrap(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo, nil)
	ctx := context.Background()

	first, err := s.CreateUser(ctx, "osprey", "", "longenough")
	require.NoError(t, err)
	second, err := s.CreateUser(ctx, "merlin", "", "longenough")
	require.NoError(t, err)

	b := NewBootstrapService(repo, nil)
	require.NoError(t, b.Bootstrap(ctx, ""))
	assert.Equal(t, authz.RoleMember, first.Role)

	require.NoError(t, b.Bootstrap(ctx, "osprey"))
	assert.Equal(t, authz.RoleAdmin, first.Role)

	require.NoError(t, b.Bootstrap(ctx, "merlin"))
	assert.Equal(t, authz.RoleMember, second.Role)

	repo2 := NewMockUserRepository()
	assert.Error(t, NewBootstrapService(repo2, nil).Bootstrap(ctx, "ghost"))
}
