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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/observability/logger"
	"github.com/guildboard/guildboard/internal/observability/metrics"
)

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// LoggingMiddleware logs HTTP requests and records request metrics
func LoggingMiddleware(m *metrics.HTTPMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			done := m.Begin(r.Context())

			slog.DebugContext(r.Context(), "http_request_start",
				logger.RequestID(requestID(r)),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				done(route, ww.Status(), float64(elapsed.Microseconds())/1000)

				attrs := []any{
					logger.RequestID(requestID(r)),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(elapsed.Milliseconds()),
				}
				if uid := GetUserID(r.Context()); uid != "" {
					attrs = append(attrs, logger.UserID(uid))
				}
				slog.InfoContext(r.Context(), "http_request_end", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SecurityHeaders applies the standard response hardening headers.
func SecurityHeaders(allowedHosts []string, production bool) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		AllowedHosts:          allowedHosts,
		HostsProxyHeaders:     []string{"X-Forwarded-Host"},
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		IsDevelopment:         !production,
	})
	return s.Handler
}

// AuthMiddleware verifies the bearer access token and attaches its identity.
// The identity is taken from the claim as-is and is not re-read from storage.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			respondUnauthenticated(w)
			return
		}

		claims, err := h.tokens.Verify(raw)
		if err != nil {
			slog.DebugContext(r.Context(), "rejected access token",
				logger.RequestID(requestID(r)),
				logger.Error(err),
			)
			respondUnauthenticated(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireRole admits identities whose role is in allowed. Routes open to admins must list RoleAdmin.
func (h *Handler) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	required := logger.String("allowed_roles", strings.Join(allowed, ","))
	return h.guard("role", required, func(id *authz.Identity) error {
		return authz.RequireRole(id, allowed...)
	})
}

// RequirePermission admits identities holding at least one of the permissions.
func (h *Handler) RequirePermission(anyOf ...string) func(http.Handler) http.Handler {
	required := logger.Permission(strings.Join(anyOf, ","))
	return h.guard("permission", required, func(id *authz.Identity) error {
		return authz.RequirePermission(id, anyOf...)
	})
}

func (h *Handler) guard(rule string, required slog.Attr, check func(*authz.Identity) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(GetIdentity(r.Context())); err != nil {
				h.respondServiceError(w, r.WithContext(withRequirement(r.Context(), required)), err)
				return
			}
			h.metrics.RecordDecision(r.Context(), rule, "allow")
			next.ServeHTTP(w, r)
		})
	}
}
