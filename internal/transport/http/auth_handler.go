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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/identity"
	"github.com/guildboard/guildboard/internal/observability/logger"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=256"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
}

// Login authenticates a user and starts a refresh session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusLocked, "account temporarily locked")
			return
		}
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrAccountDisabled) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	h.issueTokens(w, r, user.ID, "")
}

// Refresh rotates the refresh session and reissues the access token with current role and grants
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	sess, refreshToken, err := h.sessionService.Rotate(r.Context(), req.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.issueTokens(w, r, sess.UserID, refreshToken)
}

// issueTokens loads the identity fresh from storage and signs it. When
// refreshToken is empty a new session is started.
func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, userID, refreshToken string) {
	ctx := r.Context()

	id, err := h.identityService.LoadIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrAccountDisabled) || errors.Is(err, identity.ErrUserNotFound) {
			respondUnauthenticated(w)
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	refreshed := refreshToken != ""
	if !refreshed {
		_, refreshToken, err = h.sessionService.Create(ctx, userID, clientIP(r), r.UserAgent())
		if err != nil {
			slog.ErrorContext(ctx, "failed to create session", logger.UserID(userID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
	}

	accessToken, expiresAt, err := h.tokens.Issue(id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	// login success is audited by the identity service
	if refreshed {
		h.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeTokenRefreshed,
			ActorID:   id.ID,
			Resource:  "session",
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{audit.AttrRole: id.Role},
		})
	}

	perms := id.Permissions()
	if perms == nil {
		perms = []string{}
	}
	respondJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		UserID:       id.ID,
		Role:         id.Role,
		Permissions:  perms,
	})
}

// Logout revokes a refresh session. The access token stays valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.sessionService.Destroy(r.Context(), req.RefreshToken); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLogout,
		ActorID:   GetUserID(r.Context()),
		Resource:  "session",
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})

	w.WriteHeader(http.StatusNoContent)
}

// ChangePasswordRequest carries the current and the new password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=256"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=256,nefield=CurrentPassword"`
}

// ChangePassword replaces the caller's password and ends all of their refresh sessions.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	userID := GetUserID(ctx)
	if err := h.identityService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	if err := h.sessionService.DestroyAll(ctx, userID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeResponse describes the caller as stated by their access token
type MeResponse struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Privileged  bool     `json:"privileged"`
}

// GetCurrentUser returns the authenticated identity
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id := GetIdentity(r.Context())

	user, err := h.identityService.GetUser(r.Context(), id.ID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	perms := id.Permissions()
	if perms == nil {
		perms = []string{}
	}
	respondJSON(w, http.StatusOK, MeResponse{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        id.Role,
		Permissions: perms,
		Privileged:  authz.IsPrivileged(id),
	})
}
