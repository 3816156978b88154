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

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guildboard/guildboard/internal/profile"
)

// ProfileResponse is a user profile
type ProfileResponse struct {
	UserID    string    `json:"user_id"`
	Bio       string    `json:"bio"`
	Pronouns  string    `json:"pronouns"`
	AvatarURL string    `json:"avatar_url"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func toProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:    p.UserID,
		Bio:       p.Bio,
		Pronouns:  p.Pronouns,
		AvatarURL: p.AvatarURL,
		Timezone:  p.Timezone,
		UpdatedAt: p.UpdatedAt,
	}
}

// GetProfile returns a profile. Self reads are always allowed.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileService.Get(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(p))
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	Bio       string `json:"bio" validate:"max=500"`
	Pronouns  string `json:"pronouns" validate:"max=32"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
	Timezone  string `json:"timezone" validate:"max=64"`
}

// UpdateProfile replaces a profile. Only the owner or an admin may do so.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profileService.Update(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "userID"), profile.Update{
		Bio:       req.Bio,
		Pronouns:  req.Pronouns,
		AvatarURL: req.AvatarURL,
		Timezone:  req.Timezone,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(p))
}
