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

package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildboard/guildboard/internal/session"
)

func newTestRepository(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(client), mr
}

// TestPurpose: Validates Redis-backed refresh session storage and expiry.
// Scope: Unit Test
// Security: Session lifetime enforcement
// Expected: Stored sessions round-trip; keys expire with the session; deletes are idempotent.
// Test Case ID: RDS-01
func TestSessionRepository_Lifecycle(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := &session.Session{
		ID:         "abc",
		UserID:     "user-1",
		IPAddress:  "10.0.0.1",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	require.NoError(t, repo.Create(ctx, sess))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, mr.TTL(sessionKey("abc")) > 59*time.Minute)

	members, err := mr.SMembers(userSessionsKey("user-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, members)

	require.NoError(t, repo.Delete(ctx, "abc"))
	require.NoError(t, repo.Delete(ctx, "abc"))
	_, err = repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionRepository_Expiry(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &session.Session{ID: "short", UserID: "u", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	err = repo.Create(ctx, &session.Session{ID: "past", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)})
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}

func TestSessionRepository_DeleteByUserID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.Create(ctx, &session.Session{ID: "a", UserID: "u1", ExpiresAt: exp}))
	require.NoError(t, repo.Create(ctx, &session.Session{ID: "b", UserID: "u1", ExpiresAt: exp}))
	require.NoError(t, repo.Create(ctx, &session.Session{ID: "c", UserID: "u2", ExpiresAt: exp}))

	require.NoError(t, repo.DeleteByUserID(ctx, "u1"))

	_, err := repo.Get(ctx, "a")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = repo.Get(ctx, "b")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = repo.Get(ctx, "c")
	assert.NoError(t, err)
}

// TestPurpose: Validates the session service end to end against Redis.
// Scope: Unit Test
// Expected: Rotated tokens cannot be replayed.
// Test Case ID: RDS-02
func TestSessionService_WithRedis(t *testing.T) {
	repo, _ := newTestRepository(t)
	svc := session.NewService(repo, time.Hour)
	ctx := context.Background()

	_, tok, err := svc.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	_, next, err := svc.Rotate(ctx, tok, "", "")
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, tok, "", "")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	require.NoError(t, svc.Destroy(ctx, next))
	_, _, err = svc.Rotate(ctx, next, "", "")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSessionRepository_Consume(t *testing.T) {
	repo, mr := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &session.Session{ID: "once", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	got, err := repo.Consume(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, mr.Exists(sessionKey("once")))

	_, err = repo.Consume(ctx, "once")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

// TestPurpose: Validates that concurrent refreshes with one refresh token cannot fork the session.
// Scope: Unit Test
// Security: Refresh token replay (single use under concurrency)
// Expected: Exactly one rotation succeeds; every other caller gets ErrSessionNotFound.
// Test Case ID: RDS-03
func TestSessionService_ConcurrentRotate(t *testing.T) {
	repo, _ := newTestRepository(t)
	svc := session.NewService(repo, time.Hour)
	ctx := context.Background()

	_, tok, err := svc.Create(ctx, "user-1", "", "")
	require.NoError(t, err)

	const callers = 8
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		succeeded atomic.Int32
		errs      = make(chan error, callers)
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, _, err := svc.Rotate(ctx, tok, "", ""); err != nil {
				errs <- err
				return
			}
			succeeded.Add(1)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), succeeded.Load())
	for err := range errs {
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	}
}
