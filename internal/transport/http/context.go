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
	"log/slog"

	"github.com/guildboard/guildboard/internal/authz"
)

type contextKey string

const (
	identityKey    contextKey = "identity"
	requirementKey contextKey = "requirement"
)

// WithIdentity attaches the verified identity to ctx.
func WithIdentity(ctx context.Context, identity *authz.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated identity from context, or nil.
func GetIdentity(ctx context.Context) *authz.Identity {
	if val, ok := ctx.Value(identityKey).(*authz.Identity); ok {
		return val
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.ID
	}
	return ""
}

// withRequirement records the guard requirement that a request failed, for denial logs.
func withRequirement(ctx context.Context, attr slog.Attr) context.Context {
	return context.WithValue(ctx, requirementKey, attr)
}

func requirement(ctx context.Context) (slog.Attr, bool) {
	attr, ok := ctx.Value(requirementKey).(slog.Attr)
	return attr, ok
}
