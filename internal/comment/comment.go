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

// Package comment manages staff comments attached to Discord guild members.
package comment

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrInvalidContent  = errors.New("invalid comment content")
)

// MaxContentLength is the longest accepted comment, in runes.
const MaxContentLength = 2000

// Comment is a note written by a dashboard user about a guild member.
type Comment struct {
	ID        string
	MemberID  string // Discord member the comment is about
	AuthorID  string
	Content   string
	IsPrivate bool
	IsEdited  bool // set on any content change, never cleared
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID makes a comment subject to CommentOwnership.
func (c *Comment) OwnerID() string {
	return c.AuthorID
}

// ListFilter selects comments about one member.
type ListFilter struct {
	MemberID       string
	IncludePrivate bool
	Limit          int
	Offset         int
}

// Repository defines the interface for comment persistence
type Repository interface {
	Create(ctx context.Context, c *Comment) error

	// GetByID returns ErrCommentNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*Comment, error)

	// UpdateContent stores new content and marks the comment edited.
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error

	// Delete removes the comment. Returns ErrCommentNotFound when the id is unknown.
	Delete(ctx context.Context, id string) error

	// List returns comments newest first. Private rows are excluded unless
	// filter.IncludePrivate is set.
	List(ctx context.Context, filter ListFilter) ([]*Comment, error)
}
