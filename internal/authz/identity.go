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

import "sort"

// Identity is the authenticated actor as stated by a verified claim.
// It is authoritative for the whole request and is never refreshed mid-request,
// so a revoked grant stays effective until the claim is reissued.
type Identity struct {
	ID          string
	Role        string
	permissions map[string]struct{}
}

// NewIdentity builds an identity from claim values. Duplicate and empty names are dropped.
func NewIdentity(id, role string, permissions []string) *Identity {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return &Identity{ID: id, Role: role, permissions: set}
}

// HasPermission reports whether the permission was explicitly granted.
// It does not apply the admin bypass.
func (i *Identity) HasPermission(name string) bool {
	if i == nil {
		return false
	}
	_, ok := i.permissions[name]
	return ok
}

// Permissions returns the granted permission names in sorted order.
func (i *Identity) Permissions() []string {
	if i == nil {
		return nil
	}
	out := make([]string, 0, len(i.permissions))
	for p := range i.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
