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

package authz_test

import (
	"testing"

	"github.com/guildboard/guildboard/internal/authz"
	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates the admin bypass for permission checks.
// Scope: Unit Test
// Security: Privilege evaluation
// Expected: An admin with an empty permission set passes every permission requirement.
// Test Case ID: AUT-01
func TestRequirePermission_AdminBypass(t *testing.T) {
	admin := authz.NewIdentity("u-admin", authz.RoleAdmin, nil)

	for _, m := range authz.Manifest {
		assert.NoError(t, authz.RequirePermission(admin, m.Name), m.Name)
	}
	assert.NoError(t, authz.RequirePermission(admin, "not.in.catalog"))
	assert.NoError(t, authz.RequirePermission(admin))
}

// TestPurpose: Validates that non-admin identities pass a single-permission check only when holding it.
// Scope: Unit Test
// Security: Vertical privilege escalation
// Expected: Pass iff the name is in the identity's permission set; the role alone confers nothing.
// Test Case ID: AUT-02
func TestRequirePermission_NonAdmin(t *testing.T) {
	mod := authz.NewIdentity("u-mod", authz.RoleModerator, []string{authz.PermCommentsModerate})

	for _, m := range authz.Manifest {
		err := authz.RequirePermission(mod, m.Name)
		if m.Name == authz.PermCommentsModerate {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, authz.ErrInsufficientPermission, m.Name)
		}
	}

	assert.ErrorIs(t, authz.RequirePermission(mod, "Comments.Moderate"), authz.ErrInsufficientPermission)
	assert.ErrorIs(t, authz.RequirePermission(mod), authz.ErrInsufficientPermission)
}

// TestPurpose: Validates OR semantics of multi-name permission requirements.
// Scope: Unit Test
// Expected: Holding any one of the listed names passes.
// Test Case ID: AUT-03
func TestRequirePermission_AnyOf(t *testing.T) {
	id := authz.NewIdentity("u-1", authz.RoleMember, []string{authz.PermTranscriptsView})

	assert.NoError(t, authz.RequirePermission(id, authz.PermTranscriptsDelete, authz.PermTranscriptsView))
	assert.Error(t, authz.RequirePermission(id, authz.PermTranscriptsDelete, authz.PermMembersManage))
}

// TestPurpose: Validates role requirements as plain allow-list membership.
// Scope: Unit Test
// Security: Role gating
// Expected: Listed roles pass; admin is denied when unlisted; others get ErrInsufficientRole regardless of permissions.
// Test Case ID: AUT-04
func TestRequireRole_Membership(t *testing.T) {
	admin := authz.NewIdentity("u-admin", authz.RoleAdmin, nil)
	mod := authz.NewIdentity("u-mod", authz.RoleModerator, nil)
	member := authz.NewIdentity("u-member", authz.RoleMember, []string{authz.PermRolesManage})

	assert.NoError(t, authz.RequireRole(admin, authz.RoleAdmin, authz.RoleModerator))
	assert.NoError(t, authz.RequireRole(mod, authz.RoleAdmin, authz.RoleModerator))
	assert.ErrorIs(t, authz.RequireRole(member, authz.RoleAdmin, authz.RoleModerator), authz.ErrInsufficientRole)

	assert.ErrorIs(t, authz.RequireRole(admin, authz.RoleModerator), authz.ErrInsufficientRole)
	assert.ErrorIs(t, authz.RequireRole(admin), authz.ErrInsufficientRole)
	assert.True(t, authz.IsDenied(authz.RequireRole(admin, authz.RoleModerator)))
	assert.ErrorIs(t, authz.RequireRole(mod, "Moderator"), authz.ErrInsufficientRole)
	assert.ErrorIs(t, authz.RequireRole(mod), authz.ErrInsufficientRole)

	// Role names are case-sensitive.
	assert.ErrorIs(t, authz.RequireRole(authz.NewIdentity("u-x", "Admin", nil), authz.RoleModerator), authz.ErrInsufficientRole)
}

// TestPurpose: Validates that a missing identity is reported as unauthenticated, never as forbidden.
// Scope: Unit Test
// Security: Authentication vs authorization separation
// Expected: ErrUnauthenticated from every requirement; IsDenied false for it.
// Test Case ID: AUT-05
func TestRequire_Unauthenticated(t *testing.T) {
	errs := []error{
		authz.RequireRole(nil, authz.RoleAdmin),
		authz.RequirePermission(nil, authz.PermMembersView),
		authz.RequireOwnership(nil, owned("u-1"), authz.CommentOwnership),
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
		assert.False(t, authz.IsDenied(err))
	}
}

func TestIsDenied(t *testing.T) {
	member := authz.NewIdentity("u-1", authz.RoleMember, nil)

	assert.True(t, authz.IsDenied(authz.RequireRole(member, authz.RoleAdmin)))
	assert.True(t, authz.IsDenied(authz.RequirePermission(member, authz.PermMembersView)))
	assert.True(t, authz.IsDenied(authz.RequireOwnership(member, owned("u-2"), authz.ProfileOwnership)))
	assert.False(t, authz.IsDenied(authz.ErrAlreadyGranted))
	assert.False(t, authz.IsDenied(nil))
}

func TestIdentity_Permissions(t *testing.T) {
	id := authz.NewIdentity("u-1", authz.RoleMember, []string{"b.x", "a.y", "b.x", ""})

	assert.Equal(t, []string{"a.y", "b.x"}, id.Permissions())
	assert.True(t, id.HasPermission("a.y"))
	assert.False(t, id.HasPermission(""))

	var none *authz.Identity
	assert.False(t, none.HasPermission("a.y"))
	assert.Nil(t, none.Permissions())
}
