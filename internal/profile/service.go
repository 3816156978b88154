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

package profile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/guildboard/guildboard/internal/authz"
)

const maxBioLength = 500

// Service applies profile visibility and ownership rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new profile service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns a profile. Users can always read their own; others need profiles.view.
// An existing user without a stored profile reads as an empty one; an unknown
// user is ErrProfileNotFound.
func (s *Service) Get(ctx context.Context, actor *authz.Identity, userID string) (*Profile, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	if actor.ID != userID {
		if err := authz.RequirePermission(actor, authz.PermProfilesView); err != nil {
			return nil, err
		}
	}

	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		exists, err := s.repo.UserExists(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		if !exists {
			return nil, ErrProfileNotFound
		}
		return &Profile{UserID: userID}, nil
	}
	return p, nil
}

// Update replaces a profile. Only the owner or an admin may do so; moderation
// permissions do not apply to profiles.
func (s *Service) Update(ctx context.Context, actor *authz.Identity, userID string, u Update) (*Profile, error) {
	p := &Profile{UserID: userID}
	if err := authz.RequireOwnership(actor, p, authz.ProfileOwnership); err != nil {
		return nil, err
	}
	if err := validate(u); err != nil {
		return nil, err
	}

	p.Bio = strings.TrimSpace(u.Bio)
	p.Pronouns = strings.TrimSpace(u.Pronouns)
	p.AvatarURL = strings.TrimSpace(u.AvatarURL)
	p.Timezone = strings.TrimSpace(u.Timezone)
	p.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func validate(u Update) error {
	if utf8.RuneCountInString(u.Bio) > maxBioLength {
		return fmt.Errorf("%w: bio too long", ErrInvalidProfile)
	}
	if utf8.RuneCountInString(u.Pronouns) > 32 {
		return fmt.Errorf("%w: pronouns too long", ErrInvalidProfile)
	}
	if u.AvatarURL != "" {
		parsed, err := url.Parse(strings.TrimSpace(u.AvatarURL))
		if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
			return fmt.Errorf("%w: avatar must be an https url", ErrInvalidProfile)
		}
	}
	if u.Timezone != "" {
		if _, err := time.LoadLocation(strings.TrimSpace(u.Timezone)); err != nil {
			return fmt.Errorf("%w: unknown timezone", ErrInvalidProfile)
		}
	}
	return nil
}
