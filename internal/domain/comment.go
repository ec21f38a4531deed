package domain

import "time"

// Comment is a reply on a post, optionally nested under another comment.
type Comment struct {
	ID             string     `json:"id"`
	PostID         string     `json:"post_id"`
	ParentID       *string    `json:"parent_id,omitempty"`
	AuthorID       string     `json:"author_id"`
	AuthorUsername string     `json:"author_username"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Edited reports whether the comment changed after creation.
func (c Comment) Edited() bool {
	return c.UpdatedAt != nil
}
