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

package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Service manages refresh sessions. Refresh tokens are single use: every
// refresh replaces the session and its token.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewService creates a new session service
func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Create starts a session for userID and returns it with its refresh token.
func (s *Service) Create(ctx context.Context, userID, ipAddress, userAgent string) (*Session, string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	sess := &Session{
		ID:         hashToken(token),
		UserID:     userID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}
	return sess, token, nil
}

// Rotate consumes a refresh token and issues a new session for the same user.
func (s *Service) Rotate(ctx context.Context, refreshToken, ipAddress, userAgent string) (*Session, string, error) {
	if refreshToken == "" {
		return nil, "", ErrSessionInvalid
	}

	old, err := s.repo.Consume(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to consume session: %w", err)
	}
	if old.IsExpired(s.now()) {
		return nil, "", ErrSessionExpired
	}

	return s.Create(ctx, old.UserID, ipAddress, userAgent)
}

// Destroy ends the session belonging to a refresh token. Unknown tokens are ignored.
func (s *Service) Destroy(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DestroyAll ends every session of a user.
func (s *Service) DestroyAll(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
