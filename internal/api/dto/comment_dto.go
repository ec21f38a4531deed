package dto

import (
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/service"
)

// CommentCreateRequest is the body of comment create and edit.
type CommentCreateRequest struct {
	Content  string  `json:"content" validate:"notblank,max=5000"`
	ParentID *string `json:"parentId,omitempty"`
}

// CommentResponse is a comment with its nested replies.
type CommentResponse struct {
	ID        string            `json:"id"`
	ParentID  *string           `json:"parentId,omitempty"`
	Content   string            `json:"content"`
	Username  string            `json:"username"`
	CreatedAt time.Time         `json:"createdAt"`
	IsEdited  bool              `json:"isEdited"`
	Replies   []CommentResponse `json:"replies"`
}

// NewCommentResponse maps a single comment without replies.
func NewCommentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		Username:  c.AuthorUsername,
		CreatedAt: c.CreatedAt,
		IsEdited:  c.Edited(),
		Replies:   []CommentResponse{},
	}
}

// NewCommentThread maps a comment tree.
func NewCommentThread(nodes []*service.CommentNode) []CommentResponse {
	out := make([]CommentResponse, 0, len(nodes))
	for _, n := range nodes {
		resp := NewCommentResponse(n.Comment)
		resp.Replies = NewCommentThread(n.Replies)
		out = append(out, resp)
	}
	return out
}
