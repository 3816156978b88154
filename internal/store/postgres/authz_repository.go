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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/id"
)

// PermissionRepository implements authz.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

const permissionColumns = `id, name, description, category, is_active, created_at`

func scanPermission(row pgx.Row) (*authz.Permission, error) {
	var p authz.Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPermissionByName retrieves a permission by its unique name
func (r *PermissionRepository) GetPermissionByName(ctx context.Context, name string) (*authz.Permission, error) {
	p, err := scanPermission(r.db.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

// GetPermissionByID retrieves a permission by ID
func (r *PermissionRepository) GetPermissionByID(ctx context.Context, permissionID string) (*authz.Permission, error) {
	p, err := scanPermission(r.db.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, permissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, authz.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

// CreatePermission inserts a catalog entry. A concurrent insert of the same
// name surfaces as authz.ErrCatalogSeedConflict.
func (r *PermissionRepository) CreatePermission(ctx context.Context, p *authz.Permission) error {
	if p.ID == "" {
		p.ID = id.NewUUIDv7()
	}
	now := time.Now()

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, name, description, category, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Description, p.Category, p.IsActive, now)
	if err != nil {
		if isUniqueViolation(err, "permissions_name_key") {
			return authz.ErrCatalogSeedConflict
		}
		return fmt.Errorf("failed to insert permission: %w", err)
	}

	p.CreatedAt = now
	return nil
}

// ListPermissions returns the catalog ordered by category then name
func (r *PermissionRepository) ListPermissions(ctx context.Context) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*authz.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RoleRepository implements authz.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleColumns = `id, name, display_name, priority, is_active, created_at, updated_at`

func scanRole(row pgx.Row) (*authz.Role, error) {
	var role authz.Role
	if err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Priority, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a new role
func (r *RoleRepository) CreateRole(ctx context.Context, role *authz.Role) error {
	if role.ID == "" {
		role.ID = id.NewUUIDv7()
	}
	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, name, display_name, priority, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, role.ID, role.Name, role.DisplayName, role.Priority, role.IsActive, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "roles_name_key") {
			return authz.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetRoleByName retrieves a role by name
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*authz.Role, error) {
	role, err := scanRole(r.db.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles returns all roles, highest priority first
func (r *RoleRepository) ListRoles(ctx context.Context) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY priority DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CountRoles returns the number of stored roles
func (r *RoleRepository) CountRoles(ctx context.Context) (int, error) {
	var n int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}
	return n, nil
}

// GrantRepository implements authz.GrantRepository
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// CreateGrant inserts a grant. The (user_id, permission_id) unique constraint
// serializes concurrent grants of the same pair.
func (r *GrantRepository) CreateGrant(ctx context.Context, g *authz.Grant) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_permissions (id, user_id, permission_id, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, g.ID, g.IdentityID, g.PermissionID, g.GrantedBy, g.GrantedAt)
	if err == nil {
		return nil
	}
	if isUniqueViolation(err, "user_permissions_user_permission_key") {
		return authz.ErrAlreadyGranted
	}
	if constraint, ok := foreignKeyViolation(err); ok {
		if constraint == "user_permissions_permission_id_fkey" {
			return authz.ErrPermissionNotFound
		}
		return authz.ErrUnknownIdentity
	}
	if isInvalidUUID(err) {
		return authz.ErrUnknownIdentity
	}
	return fmt.Errorf("failed to insert grant: %w", err)
}

// DeleteGrant removes the pair if present
func (r *GrantRepository) DeleteGrant(ctx context.Context, identityID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx,
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`,
		identityID, permissionID)
	if err != nil && !isInvalidUUID(err) {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

// ListGrants returns all grants held by an identity
func (r *GrantRepository) ListGrants(ctx context.Context, identityID string) ([]*authz.Grant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, user_id, permission_id, granted_by, granted_at
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY granted_at
	`, identityID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []*authz.Grant
	for rows.Next() {
		var g authz.Grant
		if err := rows.Scan(&g.ID, &g.IdentityID, &g.PermissionID, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}

// ListPermissionNames returns the names of active permissions granted to an identity
func (r *GrantRepository) ListPermissionNames(ctx context.Context, identityID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.name
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1 AND p.is_active
		ORDER BY p.name
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan permission names: %w", err)
	}
	return names, nil
}
