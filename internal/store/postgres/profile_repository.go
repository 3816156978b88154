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

	"github.com/jackc/pgx/v5"

	"github.com/guildboard/guildboard/internal/profile"
)

// ProfileRepository implements profile.Repository
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a profile by user ID
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, bio, pronouns, avatar_url, timezone, updated_at
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Bio, &p.Pronouns, &p.AvatarURL, &p.Timezone, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Upsert creates or replaces a profile
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, bio, pronouns, avatar_url, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			bio = EXCLUDED.bio,
			pronouns = EXCLUDED.pronouns,
			avatar_url = EXCLUDED.avatar_url,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at
	`, p.UserID, p.Bio, p.Pronouns, p.AvatarURL, p.Timezone, p.UpdatedAt)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok || isInvalidUUID(err) {
			return profile.ErrProfileNotFound
		}
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// UserExists reports whether a user row exists. Malformed IDs never exist.
func (r *ProfileRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		if isInvalidUUID(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}
