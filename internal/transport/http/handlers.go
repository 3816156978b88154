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
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/comment"
	"github.com/guildboard/guildboard/internal/identity"
	"github.com/guildboard/guildboard/internal/observability/metrics"
	"github.com/guildboard/guildboard/internal/profile"
	"github.com/guildboard/guildboard/internal/session"
	"github.com/guildboard/guildboard/internal/token"
)

// IdentityService is the account surface used by handlers.
type IdentityService interface {
	Authenticate(ctx context.Context, username, password string) (*identity.User, error)
	LoadIdentity(ctx context.Context, userID string) (*authz.Identity, error)
	GetUser(ctx context.Context, userID string) (*identity.User, error)
	UpdateAccount(ctx context.Context, actor *authz.Identity, userID, displayName string) (*identity.User, error)
	AssignRole(ctx context.Context, actorID, userID, roleName string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// SessionService manages refresh sessions.
type SessionService interface {
	Create(ctx context.Context, userID, ipAddress, userAgent string) (*session.Session, string, error)
	Rotate(ctx context.Context, refreshToken, ipAddress, userAgent string) (*session.Session, string, error)
	Destroy(ctx context.Context, refreshToken string) error
	DestroyAll(ctx context.Context, userID string) error
}

// AuthzService manages the catalog, grants and roles.
type AuthzService interface {
	ListPermissions(ctx context.Context) ([]*authz.Permission, error)
	ListGrants(ctx context.Context, identityID string) ([]*authz.Grant, error)
	GrantPermission(ctx context.Context, identityID, permissionID, grantedBy string) (*authz.Grant, error)
	RevokePermission(ctx context.Context, identityID, permissionID, revokedBy string) error
	ListRoles(ctx context.Context) ([]*authz.Role, error)
	CreateRole(ctx context.Context, name, displayName string, priority int, createdBy string) (*authz.Role, error)
}

// CommentService manages member comments.
type CommentService interface {
	Create(ctx context.Context, actor *authz.Identity, memberID, content string, private bool) (*comment.Comment, error)
	Edit(ctx context.Context, actor *authz.Identity, commentID, content string) (*comment.Comment, error)
	Delete(ctx context.Context, actor *authz.Identity, commentID string) error
	List(ctx context.Context, actor *authz.Identity, filter comment.ListFilter) ([]*comment.Comment, error)
}

// ProfileService manages user profiles.
type ProfileService interface {
	Get(ctx context.Context, actor *authz.Identity, userID string) (*profile.Profile, error)
	Update(ctx context.Context, actor *authz.Identity, userID string, u profile.Update) (*profile.Profile, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService IdentityService
	sessionService  SessionService
	authzService    AuthzService
	commentService  CommentService
	profileService  ProfileService
	tokens          *token.Manager
	auditLogger     audit.Logger
	metrics         *metrics.AuthzMetrics
	health          map[string]HealthChecker
	validate        *validator.Validate
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService IdentityService,
	sessionService SessionService,
	authzService AuthzService,
	commentService CommentService,
	profileService ProfileService,
	tokens *token.Manager,
	auditLogger audit.Logger,
) *Handler {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Handler{
		identityService: identityService,
		sessionService:  sessionService,
		authzService:    authzService,
		commentService:  commentService,
		profileService:  profileService,
		tokens:          tokens,
		auditLogger:     auditLogger,
		health:          map[string]HealthChecker{},
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithMetrics attaches authorization decision counters.
func (h *Handler) WithMetrics(m *metrics.AuthzMetrics) *Handler {
	h.metrics = m
	return h
}

// WithHealthCheck registers a named dependency checked by /health.
func (h *Handler) WithHealthCheck(name string, c HealthChecker) *Handler {
	h.health[name] = c
	return h
}

// RouterConfig holds router-level settings
type RouterConfig struct {
	RateLimiter    *RateLimiter
	LoginPerMinute int
	RequestTimeout time.Duration
	AllowedHosts   []string
	Production     bool
	HTTPMetrics    *metrics.HTTPMetrics
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.RateLimiter != nil {
		r.Use(RateLimitMiddleware(cfg.RateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware(cfg.HTTPMetrics))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders(cfg.AllowedHosts, cfg.Production))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", h.HealthCheck)

	loginPerMinute := cfg.LoginPerMinute
	if loginPerMinute <= 0 {
		loginPerMinute = 10
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(CredentialThrottle(loginPerMinute))
			r.Post("/auth/login", h.Login)
			r.Post("/auth/refresh", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/password", h.ChangePassword)

			r.With(h.RequirePermission(authz.PermPermissionsView)).Get("/permissions", h.ListPermissions)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Patch("/", h.UpdateAccount)
				r.With(h.RequireRole(authz.RoleAdmin)).Put("/role", h.AssignRole)

				r.With(h.RequirePermission(authz.PermPermissionsView)).Get("/permissions", h.ListUserGrants)
				r.Group(func(r chi.Router) {
					r.Use(h.RequirePermission(authz.PermPermissionsManage))
					r.Post("/permissions", h.GrantPermission)
					r.Delete("/permissions/{permissionID}", h.RevokePermission)
				})
			})

			r.Route("/roles", func(r chi.Router) {
				r.With(h.RequireRole(authz.RoleAdmin, authz.RoleModerator)).Get("/", h.ListRoles)
				r.With(h.RequirePermission(authz.PermRolesManage)).Post("/", h.CreateRole)
			})

			r.Route("/members/{memberID}/comments", func(r chi.Router) {
				r.With(h.RequirePermission(authz.PermCommentsView)).Get("/", h.ListComments)
				r.With(h.RequirePermission(authz.PermCommentsCreate)).Post("/", h.CreateComment)
			})
			r.Patch("/comments/{commentID}", h.EditComment)
			r.Delete("/comments/{commentID}", h.DeleteComment)

			r.Get("/profiles/{userID}", h.GetProfile)
			r.Put("/profiles/{userID}", h.UpdateProfile)
		})
	})

	return r
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Service: "guildboard"}
	status := http.StatusOK

	if len(h.health) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(h.health))
		for name, c := range h.health {
			if err := c.Ping(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	respondJSON(w, status, resp)
}
