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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guildboard/guildboard/internal/comment"
)

// CommentRepository implements comment.Repository
type CommentRepository struct {
	db *DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `id, member_id, author_id, content, is_private, is_edited, created_at, updated_at`

func scanComment(row pgx.Row) (*comment.Comment, error) {
	var c comment.Comment
	err := row.Scan(&c.ID, &c.MemberID, &c.AuthorID, &c.Content, &c.IsPrivate, &c.IsEdited, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, c *comment.Comment) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.MemberID, c.AuthorID, c.Content, c.IsPrivate, c.IsEdited, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, commentID string) (*comment.Comment, error) {
	c, err := scanComment(r.db.pool.QueryRow(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, comment.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// UpdateContent replaces content and marks the comment edited
func (r *CommentRepository) UpdateContent(ctx context.Context, commentID, content string, updatedAt time.Time) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE comments SET content = $2, is_edited = TRUE, updated_at = $3 WHERE id = $1
	`, commentID, content, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return comment.ErrCommentNotFound
	}
	return nil
}

// Delete removes a comment
func (r *CommentRepository) Delete(ctx context.Context, commentID string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return comment.ErrCommentNotFound
	}
	return nil
}

// List returns comments about a member, newest first. Private rows are
// excluded in the query itself unless the filter allows them.
func (r *CommentRepository) List(ctx context.Context, f comment.ListFilter) ([]*comment.Comment, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE member_id = $1 AND ($2 OR NOT is_private)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, f.MemberID, f.IncludePrivate, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*comment.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
