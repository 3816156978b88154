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

import "fmt"

// Ownable is anything with a single owning identity.
type Ownable interface {
	OwnerID() string
}

// OwnershipPolicy selects the override rule applied when the caller is not the owner.
type OwnershipPolicy int

const (
	// CommentOwnership lets holders of comments.moderate act on any comment.
	CommentOwnership OwnershipPolicy = iota + 1

	// ProfileOwnership lets the admin role act on any profile.
	ProfileOwnership

	// AccountOwnership lets holders of users.manage act on any account.
	AccountOwnership
)

func (p OwnershipPolicy) String() string {
	switch p {
	case CommentOwnership:
		return "comment"
	case ProfileOwnership:
		return "profile"
	case AccountOwnership:
		return "account"
	default:
		return fmt.Sprintf("OwnershipPolicy(%d)", int(p))
	}
}

// overrides reports whether the identity may bypass the owner check under p.
// Unknown policies never override.
func (p OwnershipPolicy) overrides(id *Identity) bool {
	switch p {
	case CommentOwnership:
		return HasAnyPermission(id, PermCommentsModerate)
	case ProfileOwnership:
		return isPrivileged(id)
	case AccountOwnership:
		return HasAnyPermission(id, PermUsersManage)
	default:
		return false
	}
}

// CanActOnOwnable reports whether the identity owns the item or is covered by
// the policy's override. An empty owner id never matches.
func CanActOnOwnable(id *Identity, item Ownable, policy OwnershipPolicy) bool {
	if id == nil || item == nil {
		return false
	}
	if owner := item.OwnerID(); owner != "" && owner == id.ID {
		return true
	}
	return policy.overrides(id)
}

// RequireOwnership is the failing form of CanActOnOwnable.
func RequireOwnership(id *Identity, item Ownable, policy OwnershipPolicy) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if CanActOnOwnable(id, item, policy) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotOwner, policy)
}

// CanSeePrivate reports whether private comments are visible to the identity.
// Queries use it to filter; a false result is never surfaced as an error.
func CanSeePrivate(id *Identity) bool {
	return HasAnyPermission(id, PermCommentsModerate)
}
