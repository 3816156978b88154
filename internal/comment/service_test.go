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

package comment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/guildboard/guildboard/internal/authz"
)

// MockRepository is an in-memory Repository.
type MockRepository struct {
	comments map[string]*Comment
}

func NewMockRepository(seed ...*Comment) *MockRepository {
	m := &MockRepository{comments: map[string]*Comment{}}
	for _, c := range seed {
		m.comments[c.ID] = c
	}
	return m
}

func (m *MockRepository) Create(ctx context.Context, c *Comment) error {
	m.comments[c.ID] = c
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockRepository) UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	c, ok := m.comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	c.Content = content
	c.IsEdited = true
	c.UpdatedAt = updatedAt
	return nil
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.comments[id]; !ok {
		return ErrCommentNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]*Comment, error) {
	var out []*Comment
	for _, c := range m.comments {
		if c.MemberID != f.MemberID {
			continue
		}
		if c.IsPrivate && !f.IncludePrivate {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func member7(perms ...string) *authz.Identity {
	return authz.NewIdentity("7", authz.RoleMember, perms)
}

// TestPurpose: Validates owner-only editing for a plain member.
// Scope: Unit Test
// Security: Horizontal privilege escalation (IDOR)
// Expected: Identity 7 may edit comment 42 it owns and is denied comment 43 owned by 9, though 43 is public.
// Test Case ID: CMT-01
func TestService_Edit_OwnerScenario(t *testing.T) {
	repo := NewMockRepository(
		&Comment{ID: "42", MemberID: "m-1", AuthorID: "7", Content: "first"},
		&Comment{ID: "43", MemberID: "m-1", AuthorID: "9", Content: "second"},
	)
	svc := NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.Edit(ctx, member7(), "42", "first, revised")
	require.NoError(t, err)
	assert.True(t, c.IsEdited)
	assert.Equal(t, "first, revised", repo.comments["42"].Content)
	assert.True(t, repo.comments["42"].IsEdited)

	_, err = svc.Edit(ctx, member7(), "43", "vandalism")
	assert.ErrorIs(t, err, authz.ErrNotOwner)
	assert.Equal(t, "second", repo.comments["43"].Content)
	assert.False(t, repo.comments["43"].IsEdited)
}

// TestPurpose: Validates the moderation override on comments.
// Scope: Unit Test
// Security: Override capability
// Expected: Identity 7 holding comments.moderate may edit and delete comment owned by 9.
// Test Case ID: CMT-02
func TestService_Edit_ModeratorOverride(t *testing.T) {
	repo := NewMockRepository(&Comment{ID: "43", MemberID: "m-1", AuthorID: "9", Content: "second"})
	svc := NewService(repo, nil)
	ctx := context.Background()
	mod := member7(authz.PermCommentsModerate)

	c, err := svc.Edit(ctx, mod, "43", "moderated")
	require.NoError(t, err)
	assert.Equal(t, "9", c.AuthorID)
	assert.True(t, c.IsEdited)

	require.NoError(t, svc.Delete(ctx, mod, "43"))
	assert.Empty(t, repo.comments)
}

func TestService_Delete_NotOwner(t *testing.T) {
	repo := NewMockRepository(&Comment{ID: "43", MemberID: "m-1", AuthorID: "9", Content: "x"})
	svc := NewService(repo, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, member7(authz.PermCommentsCreate), "43"), authz.ErrNotOwner)
	assert.ErrorIs(t, svc.Delete(ctx, nil, "43"), authz.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, member7(), "missing"), ErrCommentNotFound)
	assert.Len(t, repo.comments, 1)

	admin := authz.NewIdentity("1", authz.RoleAdmin, nil)
	assert.NoError(t, svc.Delete(ctx, admin, "43"))
}

// TestPurpose: Validates silent filtering of private comments.
// Scope: Unit Test
// Security: Information disclosure
// Expected: includePrivate from a non-moderator returns only public rows with no error; a moderator sees all rows.
// Test Case ID: CMT-03
func TestService_List_PrivateFiltered(t *testing.T) {
	repo := NewMockRepository(
		&Comment{ID: "1", MemberID: "m-1", AuthorID: "9", Content: "public"},
		&Comment{ID: "2", MemberID: "m-1", AuthorID: "9", Content: "private", IsPrivate: true},
		&Comment{ID: "3", MemberID: "m-1", AuthorID: "9", Content: "public too"},
		&Comment{ID: "4", MemberID: "m-2", AuthorID: "9", Content: "other member"},
	)
	svc := NewService(repo, nil)
	ctx := context.Background()

	viewer := member7(authz.PermCommentsView)
	got, err := svc.List(ctx, viewer, ListFilter{MemberID: "m-1", IncludePrivate: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, c := range got {
		assert.False(t, c.IsPrivate)
	}

	mod := member7(authz.PermCommentsView, authz.PermCommentsModerate)
	got, err = svc.List(ctx, mod, ListFilter{MemberID: "m-1", IncludePrivate: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = svc.List(ctx, mod, ListFilter{MemberID: "m-1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = svc.List(ctx, member7(), ListFilter{MemberID: "m-1"})
	assert.ErrorIs(t, err, authz.ErrInsufficientPermission)
}

// mockListRepository records the filter the service hands to storage.
type mockListRepository struct {
	mock.Mock
	MockRepository
}

func (m *mockListRepository) List(ctx context.Context, f ListFilter) ([]*Comment, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*Comment), args.Error(1)
}

func TestService_List_FilterAppliedAtQuery(t *testing.T) {
	repo := &mockListRepository{}
	repo.On("List", mock.Anything, ListFilter{MemberID: "m-1", IncludePrivate: false, Limit: defaultListLimit}).
		Return([]*Comment{}, nil).Once()
	repo.On("List", mock.Anything, ListFilter{MemberID: "m-1", IncludePrivate: true, Limit: maxListLimit}).
		Return([]*Comment{}, nil).Once()

	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, member7(authz.PermCommentsView), ListFilter{MemberID: "m-1", IncludePrivate: true})
	require.NoError(t, err)

	admin := authz.NewIdentity("1", authz.RoleAdmin, nil)
	_, err = svc.List(ctx, admin, ListFilter{MemberID: "m-1", IncludePrivate: true, Limit: 10_000, Offset: -3})
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestService_Create(t *testing.T) {
	repo := NewMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	writer := member7(authz.PermCommentsCreate)
	c, err := svc.Create(ctx, writer, "m-1", "  hello  ", false)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Content)
	assert.Equal(t, "7", c.AuthorID)
	assert.False(t, c.IsEdited)

	_, err = svc.Create(ctx, writer, "m-1", "secret", true)
	assert.ErrorIs(t, err, authz.ErrInsufficientPermission)

	_, err = svc.Create(ctx, member7(), "m-1", "hi", false)
	assert.ErrorIs(t, err, authz.ErrInsufficientPermission)

	_, err = svc.Create(ctx, writer, "m-1", "   ", false)
	assert.ErrorIs(t, err, ErrInvalidContent)

	mod := member7(authz.PermCommentsCreate, authz.PermCommentsModerate)
	c, err = svc.Create(ctx, mod, "m-1", "staff only", true)
	require.NoError(t, err)
	assert.True(t, c.IsPrivate)
	assert.Len(t, repo.comments, 2)
}

func TestService_PrivateCommentHiddenFromNonModerators(t *testing.T) {
	repo := NewMockRepository(&Comment{ID: "p", MemberID: "m-1", AuthorID: "9", Content: "x", IsPrivate: true})
	svc := NewService(repo, nil)

	_, err := svc.Edit(context.Background(), member7(authz.PermCommentsCreate), "p", "y")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}
