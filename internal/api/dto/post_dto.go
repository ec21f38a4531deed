package dto

import (
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
	"github.com/spec-kit/blog-service/internal/service"
)

// TagDTO is a tag reference.
type TagDTO struct {
	Name string `json:"name" validate:"notblank,max=50"`
}

// PostCreateRequest is the body of POST and PUT /api/blog.
type PostCreateRequest struct {
	Name    string   `json:"name" validate:"notblank,max=200"`
	Content string   `json:"content" validate:"notblank"`
	Tags    []TagDTO `json:"tags" validate:"omitempty,max=20,dive"`
}

// Input converts the request for the service layer.
func (r PostCreateRequest) Input() service.PostInput {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, t.Name)
	}
	return service.PostInput{Title: r.Name, Content: r.Content, Tags: tags}
}

// AddTagRequest is the body of POST /api/blog/:id/tags.
type AddTagRequest struct {
	Name string `json:"name" validate:"notblank,max=50"`
}

// PostResponse mirrors a post on the wire.
type PostResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Tags      []TagDTO          `json:"tags"`
	User      string            `json:"user"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
	Comments  []CommentResponse `json:"comments,omitempty"`
}

// TotalResponse carries the post count.
type TotalResponse struct {
	Total int `json:"total"`
}

// NewPostResponse maps a post.
func NewPostResponse(p domain.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		Name:      p.Title,
		Content:   p.Content,
		Tags:      NewTagList(p.Tags),
		User:      p.AuthorUsername,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// NewPostList maps posts, never returning nil.
func NewPostList(posts []domain.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, NewPostResponse(p))
	}
	return out
}

// NewPostDetail maps a post with its comment thread.
func NewPostDetail(d *service.PostDetail) PostResponse {
	resp := NewPostResponse(d.Post)
	resp.Comments = NewCommentThread(d.Comments)
	return resp
}

// NewTagList wraps tag names.
func NewTagList(names []string) []TagDTO {
	out := make([]TagDTO, 0, len(names))
	for _, n := range names {
		out = append(out, TagDTO{Name: n})
	}
	return out
}
