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

	"github.com/guildboard/guildboard/internal/authz"
)

// PermissionResponse is one catalog entry
type PermissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsActive    bool   `json:"is_active"`
}

// GrantResponse is one identity-permission grant
type GrantResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PermissionID string    `json:"permission_id"`
	GrantedBy    string    `json:"granted_by"`
	GrantedAt    time.Time `json:"granted_at"`
}

// RoleResponse is one role
type RoleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Priority    int    `json:"priority"`
}

func toGrantResponse(g *authz.Grant) GrantResponse {
	return GrantResponse{
		ID:           g.ID,
		UserID:       g.IdentityID,
		PermissionID: g.PermissionID,
		GrantedBy:    g.GrantedBy,
		GrantedAt:    g.GrantedAt,
	}
}

func toRoleResponse(r *authz.Role) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name, DisplayName: r.DisplayName, Priority: r.Priority}
}

// ListPermissions returns the permission catalog
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.authzService.ListPermissions(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			IsActive:    p.IsActive,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

// ListUserGrants returns the grants held by a user
func (h *Handler) ListUserGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.authzService.ListGrants(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantResponse(g))
	}
	respondJSON(w, http.StatusOK, map[string]any{"grants": out})
}

// GrantPermissionRequest names the permission to grant
type GrantPermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required,uuid"`
}

// GrantPermission grants a permission to a user. A second grant of the same pair is a 409.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req GrantPermissionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	grant, err := h.authzService.GrantPermission(r.Context(), chi.URLParam(r, "userID"), req.PermissionID, GetUserID(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGrantResponse(grant))
}

// RevokePermission removes a grant. Revoking an absent grant succeeds.
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	err := h.authzService.RevokePermission(r.Context(),
		chi.URLParam(r, "userID"),
		chi.URLParam(r, "permissionID"),
		GetUserID(r.Context()),
	)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRoles returns roles ordered by priority, highest first
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.authzService.ListRoles(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": out})
}

// CreateRoleRequest describes a new role
type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=128"`
	Priority    int    `json:"priority" validate:"gte=0,lte=1000"`
}

// CreateRole adds a role
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	role, err := h.authzService.CreateRole(r.Context(), req.Name, req.DisplayName, req.Priority, GetUserID(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRoleResponse(role))
}

// AssignRoleRequest names the role to assign
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

// AssignRole replaces a user's role. It applies from the user's next token refresh.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	if err := h.identityService.AssignRole(ctx, GetUserID(ctx), userID, req.Role); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	// Refresh tokens would otherwise keep minting claims until rotation;
	// ending the sessions makes the new role apply from the next login.
	if err := h.sessionService.DestroyAll(ctx, userID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAccountRequest carries editable account fields
type UpdateAccountRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=64"`
}

// AccountResponse is a dashboard account
type AccountResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UpdateAccount edits an account. Owners may edit their own; others need users.manage.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.UpdateAccount(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "userID"), req.DisplayName)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AccountResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	})
}
