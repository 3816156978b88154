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
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guildboard/guildboard/internal/comment"
)

// CommentResponse is one comment
type CommentResponse struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	IsPrivate bool      `json:"is_private"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(c *comment.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		MemberID:  c.MemberID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		IsPrivate: c.IsPrivate,
		IsEdited:  c.IsEdited,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ListComments lists comments about a member. Private comments are only
// included when requested and the caller may see them.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := comment.ListFilter{
		MemberID: chi.URLParam(r, "memberID"),
	}
	if v := q.Get("include_private"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid include_private")
			return
		}
		filter.IncludePrivate = b
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}

	comments, err := h.commentService.List(r.Context(), GetIdentity(r.Context()), filter)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": out})
}

// CreateCommentRequest is a new comment
type CreateCommentRequest struct {
	Content   string `json:"content" validate:"required"`
	IsPrivate bool   `json:"is_private"`
}

// CreateComment writes a comment about a member
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c, err := h.commentService.Create(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "memberID"), req.Content, req.IsPrivate)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCommentResponse(c))
}

// EditCommentRequest replaces comment content
type EditCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// EditComment changes a comment. Authors may edit their own; moderators may edit any.
func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	var req EditCommentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c, err := h.commentService.Edit(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "commentID"), req.Content)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCommentResponse(c))
}

// DeleteComment removes a comment under the same rule as editing
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.commentService.Delete(r.Context(), GetIdentity(r.Context()), chi.URLParam(r, "commentID")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
