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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/comment"
	"github.com/guildboard/guildboard/internal/identity"
	"github.com/guildboard/guildboard/internal/observability/logger"
	"github.com/guildboard/guildboard/internal/profile"
	"github.com/guildboard/guildboard/internal/session"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondUnauthenticated tells the client to re-authenticate. It is never a failure page.
func respondUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="guildboard"`)
	respondError(w, http.StatusUnauthorized, "not authenticated")
}

// respondForbidden is the single generic denial body. The failing rule is never disclosed.
func respondForbidden(w http.ResponseWriter) {
	respondError(w, http.StatusForbidden, "forbidden")
}

// decodeJSON reads and validates a request body into dst.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "invalid field: " + strings.Join(fields, ", ")
}

// respondServiceError maps domain errors to HTTP responses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		respondUnauthenticated(w)

	case authz.IsDenied(err):
		h.recordDenied(r, denialRule(err), err)
		respondForbidden(w)

	case errors.Is(err, authz.ErrAlreadyGranted):
		respondError(w, http.StatusConflict, "permission already granted")
	case errors.Is(err, authz.ErrRoleAlreadyExists):
		respondError(w, http.StatusConflict, "role already exists")
	case errors.Is(err, identity.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, "user already exists")

	case errors.Is(err, authz.ErrPermissionNotFound):
		respondError(w, http.StatusNotFound, "permission not found")
	case errors.Is(err, authz.ErrRoleNotFound):
		respondError(w, http.StatusNotFound, "role not found")
	case errors.Is(err, authz.ErrUnknownIdentity), errors.Is(err, identity.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, comment.ErrCommentNotFound):
		respondError(w, http.StatusNotFound, "comment not found")
	case errors.Is(err, profile.ErrProfileNotFound):
		respondError(w, http.StatusNotFound, "profile not found")

	case errors.Is(err, authz.ErrInvalidRole),
		errors.Is(err, identity.ErrInvalidDisplayName),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, comment.ErrInvalidContent),
		errors.Is(err, profile.ErrInvalidProfile):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrAccountLocked),
		errors.Is(err, identity.ErrAccountDisabled),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrSessionInvalid):
		respondUnauthenticated(w)

	default:
		slog.ErrorContext(r.Context(), "request failed",
			logger.RequestID(requestID(r)),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func denialRule(err error) string {
	switch {
	case errors.Is(err, authz.ErrInsufficientRole):
		return "role"
	case errors.Is(err, authz.ErrNotOwner):
		return "ownership"
	default:
		return "permission"
	}
}

// recordDenied counts, logs and audits a denial. The reason stays server-side.
func (h *Handler) recordDenied(r *http.Request, rule string, err error) {
	actorID := GetUserID(r.Context())
	h.metrics.RecordDecision(r.Context(), rule, "deny")

	attrs := []any{
		logger.RequestID(requestID(r)),
		logger.UserID(actorID),
		logger.Rule(rule),
		logger.Outcome("deny"),
		logger.Path(r.URL.Path),
		logger.Error(err),
	}
	if id := GetIdentity(r.Context()); id != nil {
		attrs = append(attrs, logger.Role(id.Role))
	}
	if required, ok := requirement(r.Context()); ok {
		attrs = append(attrs, required)
	}
	slog.InfoContext(r.Context(), "access denied", attrs...)

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeAccessDenied,
		ActorID:   actorID,
		Resource:  r.Method + " " + r.URL.Path,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Metadata: map[string]any{
			audit.AttrRule:   rule,
			audit.AttrReason: err.Error(),
		},
	})
}
