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
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SeedResult summarizes one EnsureSeeded run.
type SeedResult struct {
	Created  int
	Existing int
}

// EnsureSeeded inserts every manifest entry missing from the store.
// It is safe to run concurrently from several processes: a unique-constraint
// conflict means another writer won and is treated as success. Existing rows
// are left untouched.
func EnsureSeeded(ctx context.Context, store CatalogStore, manifest []ManifestEntry) (SeedResult, error) {
	var res SeedResult
	for _, entry := range manifest {
		_, err := store.GetPermissionByName(ctx, entry.Name)
		if err == nil {
			res.Existing++
			continue
		}
		if !errors.Is(err, ErrPermissionNotFound) {
			return res, fmt.Errorf("failed to look up permission %s: %w", entry.Name, err)
		}

		err = store.CreatePermission(ctx, &Permission{
			Name:        entry.Name,
			Description: entry.Description,
			Category:    entry.Category,
			IsActive:    true,
		})
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, ErrCatalogSeedConflict):
			slog.DebugContext(ctx, "permission seeded concurrently", slog.String("permission", entry.Name))
			res.Existing++
		default:
			return res, fmt.Errorf("failed to seed permission %s: %w", entry.Name, err)
		}
	}
	return res, nil
}

// EnsureRolesSeeded inserts the seed roles when the role table is empty.
// Roles created later by operators are never touched.
func EnsureRolesSeeded(ctx context.Context, repo RoleRepository, roles []Role) (int, error) {
	n, err := repo.CountRoles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for i := range roles {
		r := roles[i]
		if err := repo.CreateRole(ctx, &r); err != nil {
			if errors.Is(err, ErrRoleAlreadyExists) {
				continue
			}
			return created, fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
		created++
	}
	return created, nil
}
