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
	"strings"
	"time"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/id"
	"github.com/guildboard/guildboard/internal/observability/metrics"
)

// Service provides grant and role management
type Service struct {
	permissionRepo PermissionRepository
	roleRepo       RoleRepository
	grantRepo      GrantRepository
	auditLogger    audit.Logger
	metrics        *metrics.AuthzMetrics
	now            func() time.Time
}

// NewService creates a new authorization service
func NewService(
	permissionRepo PermissionRepository,
	roleRepo RoleRepository,
	grantRepo GrantRepository,
	auditLogger audit.Logger,
) *Service {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{
		permissionRepo: permissionRepo,
		roleRepo:       roleRepo,
		grantRepo:      grantRepo,
		auditLogger:    auditLogger,
		now:            time.Now,
	}
}

// WithMetrics attaches grant counters to the service.
func (s *Service) WithMetrics(m *metrics.AuthzMetrics) *Service {
	s.metrics = m
	return s
}

// GrantPermission grants one permission to one identity.
// A second grant of the same pair returns ErrAlreadyGranted and leaves the first intact.
func (s *Service) GrantPermission(ctx context.Context, identityID, permissionID, grantedBy string) (*Grant, error) {
	perm, err := s.permissionRepo.GetPermissionByID(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	if !perm.IsActive {
		return nil, ErrPermissionNotFound
	}

	grant := &Grant{
		ID:           id.NewUUIDv7(),
		IdentityID:   identityID,
		PermissionID: permissionID,
		GrantedBy:    grantedBy,
		GrantedAt:    s.now(),
	}
	if err := s.grantRepo.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			s.metrics.RecordGrant(ctx, "grant", "duplicate")
			return nil, err
		}
		s.metrics.RecordGrant(ctx, "grant", "error")
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}
	s.metrics.RecordGrant(ctx, "grant", "ok")

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionGranted,
		ActorID:  grantedBy,
		Resource: identityID,
		Metadata: map[string]any{audit.AttrPermission: perm.Name},
	})
	return grant, nil
}

// RevokePermission removes the grant for the pair. Revoking a grant that does not exist succeeds.
func (s *Service) RevokePermission(ctx context.Context, identityID, permissionID, revokedBy string) error {
	if err := s.grantRepo.DeleteGrant(ctx, identityID, permissionID); err != nil {
		s.metrics.RecordGrant(ctx, "revoke", "error")
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	s.metrics.RecordGrant(ctx, "revoke", "ok")

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionRevoked,
		ActorID:  revokedBy,
		Resource: identityID,
		Metadata: map[string]any{"permission_id": permissionID},
	})
	return nil
}

// ListPermissions returns the whole catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	perms, err := s.permissionRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// ListGrants returns the grants held by an identity.
func (s *Service) ListGrants(ctx context.Context, identityID string) ([]*Grant, error) {
	grants, err := s.grantRepo.ListGrants(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

// PermissionNames returns the active permission names granted to an identity.
// Token issuance uses it to build the permissions claim.
func (s *Service) PermissionNames(ctx context.Context, identityID string) ([]string, error) {
	names, err := s.grantRepo.ListPermissionNames(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission names: %w", err)
	}
	return names, nil
}

// ListRoles returns all roles, highest priority first.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	roles, err := s.roleRepo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// CreateRole adds a new role. Names are authorization keys and are stored as given.
func (s *Service) CreateRole(ctx context.Context, name, displayName string, priority int, createdBy string) (*Role, error) {
	if strings.TrimSpace(name) == "" || name != strings.TrimSpace(name) {
		return nil, ErrInvalidRole
	}
	if displayName == "" {
		displayName = name
	}

	now := s.now()
	role := &Role{
		ID:          id.NewUUIDv7(),
		Name:        name,
		DisplayName: displayName,
		Priority:    priority,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roleRepo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, ErrRoleAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		ActorID:  createdBy,
		Resource: role.ID,
		Metadata: map[string]any{audit.AttrRole: name, "priority": priority},
	})
	return role, nil
}

// GetRole returns an active role by name.
func (s *Service) GetRole(ctx context.Context, name string) (*Role, error) {
	role, err := s.roleRepo.GetRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !role.IsActive {
		return nil, ErrRoleNotFound
	}
	return role, nil
}
