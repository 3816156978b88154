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

package authz

import (
	"fmt"
	"slices"
)

// isPrivileged is the single admin predicate. Permission checks and the
// ProfileOwnership override consult it first. Role checks never do.
func isPrivileged(id *Identity) bool {
	return id != nil && id.Role == RoleAdmin
}

// IsPrivileged reports whether the identity bypasses permission requirements.
func IsPrivileged(id *Identity) bool {
	return isPrivileged(id)
}

// RequireRole passes only when the identity's role is a member of allowed.
// Admin is not implied: callers that admit admins list RoleAdmin.
// Role names compare case-sensitively.
func RequireRole(id *Identity, allowed ...string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if slices.Contains(allowed, id.Role) {
		return nil
	}
	return fmt.Errorf("%w: role %q not in %v", ErrInsufficientRole, id.Role, allowed)
}

// RequirePermission passes when the identity is privileged or holds at least
// one of anyOf. An empty anyOf only admits privileged identities.
func RequirePermission(id *Identity, anyOf ...string) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if HasAnyPermission(id, anyOf...) {
		return nil
	}
	return fmt.Errorf("%w: need one of %v", ErrInsufficientPermission, anyOf)
}

// HasAnyPermission is the non-failing form of RequirePermission.
func HasAnyPermission(id *Identity, anyOf ...string) bool {
	if id == nil {
		return false
	}
	if isPrivileged(id) {
		return true
	}
	for _, name := range anyOf {
		if id.HasPermission(name) {
			return true
		}
	}
	return false
}
