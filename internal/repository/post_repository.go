package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/blog-service/internal/domain"
)

// PostRepository is the post ledger.
type PostRepository interface {
	// CreateWithAuthor inserts post and persists author's entitlement fields atomically.
	CreateWithAuthor(ctx context.Context, post *domain.Post, author *domain.User) error
	Update(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// ListPage returns 1-indexed pages ordered by creation time, newest first.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Post, error)
	Count(ctx context.Context) (int, error)
	SearchByTitle(ctx context.Context, term string) ([]domain.Post, error)
	ListByTag(ctx context.Context, tag string) ([]domain.Post, error)
	AddTag(ctx context.Context, postID, tag string) error
	TagsForPost(ctx context.Context, postID string) ([]string, error)
	// Delete removes the post, its tag links and its comments, then drops unused tags.
	Delete(ctx context.Context, id string) error
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository instantiates repository.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

const postSelect = `
        SELECT p.id, p.author_id, u.username, p.title, p.content,
               ARRAY(SELECT t.name FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
                     WHERE pt.post_id = p.id ORDER BY t.name) AS tags,
               p.created_at, p.updated_at
        FROM posts p JOIN users u ON u.id = p.author_id`

func (r *postRepository) CreateWithAuthor(ctx context.Context, post *domain.Post, author *domain.User) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertPost = `
            INSERT INTO posts (author_id, title, content)
            VALUES ($1, $2, $3)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertPost, post.AuthorID, post.Title, post.Content).
			Scan(&post.ID, &post.CreatedAt); err != nil {
			return err
		}

		for _, tag := range post.Tags {
			if err := linkTag(ctx, tx, post.ID, tag); err != nil {
				return err
			}
		}

		const updateAuthor = `
            UPDATE users SET subscription_active=$1, last_post_date=$2, post_count=$3, updated_at=NOW()
            WHERE id=$4`
		cmd, err := tx.Exec(ctx, updateAuthor,
			author.SubscriptionActive,
			author.LastPostDate,
			author.PostCount,
			author.ID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
	return mapStoreError(err, domain.ErrUserNotFound)
}

func linkTag(ctx context.Context, tx pgx.Tx, postID, tag string) error {
	const upsertTag = `
        INSERT INTO tags (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id`
	var tagID string
	if err := tx.QueryRow(ctx, upsertTag, tag).Scan(&tagID); err != nil {
		return err
	}
	const link = `
        INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`
	_, err := tx.Exec(ctx, link, postID, tagID)
	return err
}

func (r *postRepository) Update(ctx context.Context, post *domain.Post) error {
	const query = `
        UPDATE posts SET title=$1, content=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query, post.Title, post.Content, post.ID).Scan(&post.UpdatedAt)
	return mapStoreError(err, domain.ErrPostNotFound)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	rows, err := r.pool.Query(ctx, postSelect+` WHERE p.id=$1`, id)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	if len(posts) == 0 {
		return nil, domain.ErrPostNotFound
	}
	return &posts[0], nil
}

func (r *postRepository) ListPage(ctx context.Context, page, pageSize int) ([]domain.Post, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	query := fmt.Sprintf(`%s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`,
		postSelect, pageSize, (page-1)*pageSize)
	return r.list(ctx, query)
}

func (r *postRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return 0, mapStoreError(err, domain.ErrPostNotFound)
	}
	return total, nil
}

func (r *postRepository) SearchByTitle(ctx context.Context, term string) ([]domain.Post, error) {
	search := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	return r.list(ctx, postSelect+` WHERE LOWER(p.title) LIKE $1 ORDER BY p.created_at DESC`, search)
}

func (r *postRepository) ListByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	query := postSelect + `
        WHERE EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
                      WHERE pt.post_id = p.id AND t.name = $1)
        ORDER BY p.created_at DESC`
	return r.list(ctx, query, strings.ToLower(strings.TrimSpace(tag)))
}

func (r *postRepository) AddTag(ctx context.Context, postID, tag string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return linkTag(ctx, tx, postID, tag)
	})
	return mapStoreError(err, domain.ErrPostNotFound)
}

func (r *postRepository) TagsForPost(ctx context.Context, postID string) ([]string, error) {
	const query = `
        SELECT t.name FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
        WHERE pt.post_id=$1 ORDER BY t.name`
	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	defer rows.Close()
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return tags, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrPostNotFound
		}
		// post_tags and comments cascade with the post.
		_, err = tx.Exec(ctx, `
            DELETE FROM tags t
            WHERE NOT EXISTS (SELECT 1 FROM post_tags pt WHERE pt.tag_id = t.id)`)
		return err
	})
	return mapStoreError(err, domain.ErrPostNotFound)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return posts, nil
}

func scanPosts(rows pgx.Rows) ([]domain.Post, error) {
	result := []domain.Post{}
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(
			&post.ID,
			&post.AuthorID,
			&post.AuthorUsername,
			&post.Title,
			&post.Content,
			&post.Tags,
			&post.CreatedAt,
			&post.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, post)
	}
	return result, rows.Err()
}
