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
	"fmt"
	"log/slog"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
)

// BootstrapService promotes the configured account to admin on a fresh install.
type BootstrapService struct {
	repo        UserRepository
	auditLogger audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(repo UserRepository, auditLogger audit.Logger) *BootstrapService {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &BootstrapService{repo: repo, auditLogger: auditLogger}
}

// Bootstrap assigns the admin role to username when no admin exists yet.
// An empty username disables bootstrapping.
func (s *BootstrapService) Bootstrap(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}

	admins, err := s.repo.CountByRole(ctx, authz.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if admins > 0 {
		return nil
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("bootstrap user %q not found: %w", username, err)
	}

	if err := s.repo.SetRole(ctx, user.ID, authz.RoleAdmin); err != nil {
		return fmt.Errorf("failed to assign admin role during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAdminBootstrapped,
		ActorID:  audit.ActorSystemBootstrap,
		Resource: user.ID,
		Metadata: map[string]any{audit.AttrUsername: username, audit.AttrRole: authz.RoleAdmin},
	})
	slog.InfoContext(ctx, "bootstrapped initial admin", slog.String("username", username))
	return nil
}
