package domain

import "time"

// Post is a blog entry written by exactly one author.
type Post struct {
	ID             string     `json:"id"`
	AuthorID       string     `json:"author_id"`
	AuthorUsername string     `json:"author_username"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Tag is a case-insensitive label shared by posts.
type Tag struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
