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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	sessions map[string]*Session
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{sessions: map[string]*Session{}}
}

func (m *memoryRepository) Create(ctx context.Context, s *Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *memoryRepository) Consume(ctx context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memoryRepository) DeleteByUserID(ctx context.Context, userID string) error {
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// TestPurpose: Validates refresh token rotation.
// Scope: Unit Test
// Security: Refresh token replay (single use)
// Expected: Rotation yields a new token for the same user; the old token is no longer accepted.
// Test Case ID: SES-01
func TestService_Rotate(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	sess, tok, err := svc.Create(ctx, "user-1", "10.0.0.1", "test")
	require.NoError(t, err)
	assert.NotContains(t, repo.sessions, tok)
	assert.Contains(t, repo.sessions, sess.ID)

	next, nextTok, err := svc.Rotate(ctx, tok, "10.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "user-1", next.UserID)
	assert.NotEqual(t, tok, nextTok)

	_, _, err = svc.Rotate(ctx, tok, "10.0.0.1", "test")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = svc.Rotate(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestService_RotateExpired(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, time.Minute)
	ctx := context.Background()

	_, tok, err := svc.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err = svc.Rotate(ctx, tok, "", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, repo.sessions)
}

func TestService_Destroy(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	_, a, err := svc.Create(ctx, "user-1", "", "")
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, "user-1", "", "")
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, "user-2", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, a))
	require.NoError(t, svc.Destroy(ctx, a))
	assert.Len(t, repo.sessions, 2)

	require.NoError(t, svc.DestroyAll(ctx, "user-1"))
	assert.Len(t, repo.sessions, 1)
}
