package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blog-service/internal/domain"
)

// CommentRepository stores comments on posts.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	Update(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	// ListByPost returns a post's comments newest first.
	ListByPost(ctx context.Context, postID string) ([]domain.Comment, error)
	DeleteByPost(ctx context.Context, postID string) error
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentSelect = `
        SELECT c.id, c.post_id, c.parent_id, c.author_id, u.username, c.content, c.created_at, c.updated_at
        FROM comments c JOIN users u ON u.id = c.author_id`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (post_id, parent_id, author_id, content)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		comment.PostID,
		comment.ParentID,
		comment.AuthorID,
		comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	return mapStoreError(err, domain.ErrPostNotFound)
}

func (r *commentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	const query = `
        UPDATE comments SET content=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, comment.Content, comment.ID).Scan(&comment.UpdatedAt)
	return mapStoreError(err, domain.ErrCommentNotFound)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := scanComment(r.pool.QueryRow(ctx, commentSelect+` WHERE c.id=$1`, id))
	if err != nil {
		return nil, mapStoreError(err, domain.ErrCommentNotFound)
	}
	return comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, commentSelect+` WHERE c.post_id=$1 ORDER BY c.created_at DESC`, postID)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, mapStoreError(err, domain.ErrPostNotFound)
		}
		result = append(result, *comment)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return result, nil
}

func (r *commentRepository) DeleteByPost(ctx context.Context, postID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE post_id=$1`, postID)
	return mapStoreError(err, domain.ErrPostNotFound)
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	if err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.ParentID,
		&comment.AuthorID,
		&comment.AuthorUsername,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}
