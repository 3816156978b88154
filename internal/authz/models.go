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
	"time"
)

// Domain errors
var (
	// ErrUnauthenticated means no verified identity is attached to the request.
	// Callers must send the client back through authentication, never render it as a failure page.
	ErrUnauthenticated = errors.New("not authenticated")

	ErrInsufficientRole       = errors.New("insufficient role")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrNotOwner               = errors.New("not the resource owner")

	// ErrAlreadyGranted is returned when the (identity, permission) pair already has a grant.
	ErrAlreadyGranted = errors.New("permission already granted")

	// ErrCatalogSeedConflict is returned by a CatalogStore when another process inserted
	// the same permission name first. Seeding treats it as success.
	ErrCatalogSeedConflict = errors.New("permission catalog seed conflict")

	ErrPermissionNotFound = errors.New("permission not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleAlreadyExists  = errors.New("role already exists")
	ErrUnknownIdentity    = errors.New("identity does not exist")
	ErrInvalidRole        = errors.New("invalid role")
)

// IsDenied reports whether err is one of the privilege denials.
// All of them are reported to clients as the same generic "forbidden" outcome.
func IsDenied(err error) bool {
	return errors.Is(err, ErrInsufficientRole) ||
		errors.Is(err, ErrInsufficientPermission) ||
		errors.Is(err, ErrNotOwner)
}

// Role is a coarse, priority-ordered label attached to an identity.
// Roles do not carry permissions; those are granted per identity.
type Role struct {
	ID          string
	Name        string // authorization key, case-sensitive
	DisplayName string
	Priority    int // higher sorts first
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is a named capability from the catalog.
type Permission struct {
	ID          string
	Name        string // dotted namespace, e.g. comments.moderate
	Description string
	Category    string
	IsActive    bool
	CreatedAt   time.Time
}

// Grant links one identity to one permission.
type Grant struct {
	ID           string
	IdentityID   string
	PermissionID string
	GrantedBy    string
	GrantedAt    time.Time
}

// CatalogStore is the persistence surface needed to seed the permission catalog.
type CatalogStore interface {
	// GetPermissionByName returns ErrPermissionNotFound when the name is unknown.
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)

	// CreatePermission inserts a permission. It must return ErrCatalogSeedConflict
	// when the storage-level unique constraint on name rejects the row.
	CreatePermission(ctx context.Context, permission *Permission) error
}

// PermissionRepository defines the interface for permission persistence
type PermissionRepository interface {
	CatalogStore

	// GetPermissionByID returns ErrPermissionNotFound when the id is unknown.
	GetPermissionByID(ctx context.Context, id string) (*Permission, error)

	// ListPermissions returns the catalog ordered by category then name.
	ListPermissions(ctx context.Context) ([]*Permission, error)
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// CreateRole returns ErrRoleAlreadyExists on a duplicate name.
	CreateRole(ctx context.Context, role *Role) error

	// GetRoleByName returns ErrRoleNotFound when the name is unknown.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// ListRoles returns all roles, highest priority first.
	ListRoles(ctx context.Context) ([]*Role, error)

	// CountRoles returns the number of stored roles.
	CountRoles(ctx context.Context) (int, error)
}

// GrantRepository defines the interface for identity-permission grants
type GrantRepository interface {
	// CreateGrant returns ErrAlreadyGranted when the pair exists and
	// ErrUnknownIdentity when the identity does not exist.
	CreateGrant(ctx context.Context, grant *Grant) error

	// DeleteGrant removes the pair. Removing a missing pair is not an error.
	DeleteGrant(ctx context.Context, identityID, permissionID string) error

	// ListGrants returns all grants held by an identity.
	ListGrants(ctx context.Context, identityID string) ([]*Grant, error)

	// ListPermissionNames returns the names of active permissions granted to an identity.
	ListPermissionNames(ctx context.Context, identityID string) ([]string, error)
}
