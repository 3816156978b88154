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
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/id"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service applies comment permissions and ownership rules.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new comment service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Service{repo: repo, auditLogger: auditLogger, now: time.Now}
}

// Create writes a comment about memberID. Private comments need comments.moderate.
func (s *Service) Create(ctx context.Context, actor *authz.Identity, memberID, content string, private bool) (*Comment, error) {
	if err := authz.RequirePermission(actor, authz.PermCommentsCreate); err != nil {
		return nil, err
	}
	if private {
		if err := authz.RequirePermission(actor, authz.PermCommentsModerate); err != nil {
			return nil, err
		}
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("%w: member id required", ErrInvalidContent)
	}

	now := s.now()
	c := &Comment{
		ID:        id.NewUUIDv7(),
		MemberID:  memberID,
		AuthorID:  actor.ID,
		Content:   content,
		IsPrivate: private,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

// Edit replaces the content of a comment the actor owns or moderates.
func (s *Service) Edit(ctx context.Context, actor *authz.Identity, commentID, content string) (*Comment, error) {
	c, err := s.load(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwnership(actor, c, authz.CommentOwnership); err != nil {
		return nil, err
	}
	content, err = normalizeContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.UpdateContent(ctx, c.ID, content, now); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	c.Content = content
	c.IsEdited = true
	c.UpdatedAt = now
	return c, nil
}

// Delete removes a comment the actor owns or moderates.
func (s *Service) Delete(ctx context.Context, actor *authz.Identity, commentID string) error {
	c, err := s.load(ctx, actor, commentID)
	if err != nil {
		return err
	}
	if err := authz.RequireOwnership(actor, c, authz.CommentOwnership); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCommentDeleted,
		ActorID:  actor.ID,
		Resource: c.ID,
		Metadata: map[string]any{"member_id": c.MemberID, "author_id": c.AuthorID},
	})
	return nil
}

// List returns comments about a member. A request for private comments from an
// actor without comments.moderate is narrowed to public comments, not rejected.
func (s *Service) List(ctx context.Context, actor *authz.Identity, filter ListFilter) ([]*Comment, error) {
	if err := authz.RequirePermission(actor, authz.PermCommentsView); err != nil {
		return nil, err
	}

	filter.IncludePrivate = filter.IncludePrivate && authz.CanSeePrivate(actor)
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	comments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// load fetches a comment. Private comments are reported as missing to actors
// who cannot see them.
func (s *Service) load(ctx context.Context, actor *authz.Identity, commentID string) (*Comment, error) {
	if actor == nil {
		return nil, authz.ErrUnauthenticated
	}
	c, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.IsPrivate && c.AuthorID != actor.ID && !authz.CanSeePrivate(actor) {
		return nil, ErrCommentNotFound
	}
	return c, nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return "", ErrInvalidContent
	}
	return content, nil
}
