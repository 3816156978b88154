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

// Package profile manages the public profile of each dashboard user.
package profile

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

// Profile is owned by the user it describes.
type Profile struct {
	UserID    string
	Bio       string
	Pronouns  string
	AvatarURL string
	Timezone  string
	UpdatedAt time.Time
}

// OwnerID makes a profile subject to ProfileOwnership.
func (p *Profile) OwnerID() string {
	return p.UserID
}

// Update carries the editable profile fields.
type Update struct {
	Bio       string
	Pronouns  string
	AvatarURL string
	Timezone  string
}

// Repository defines the interface for profile persistence
type Repository interface {
	// Get returns ErrProfileNotFound when the user has no profile.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Upsert creates or replaces the profile. It returns ErrProfileNotFound
	// when the user does not exist.
	Upsert(ctx context.Context, p *Profile) error

	// UserExists reports whether an account with the ID exists.
	UserExists(ctx context.Context, userID string) (bool, error)
}
