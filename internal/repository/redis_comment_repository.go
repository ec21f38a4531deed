package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/blog-service/internal/domain"
)

type redisCommentRepository struct {
	client redis.UniversalClient
}

// NewRedisCommentRepository stores comments as JSON blobs indexed per post by creation time.
func NewRedisCommentRepository(client redis.UniversalClient) CommentRepository {
	return &redisCommentRepository{client: client}
}

func (r *redisCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	now := time.Now().UTC()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now

	payload, err := json.Marshal(comment)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, postKey(comment.PostID)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrPostNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, commentKey(comment.ID), payload, 0)
			pipe.ZAdd(ctx, postCommentsKey(comment.PostID), redis.Z{Score: float64(now.UnixMicro()), Member: comment.ID})
			return nil
		})
		return err
	}
	return mapStoreError(r.client.Watch(ctx, txf, postKey(comment.PostID)), domain.ErrPostNotFound)
}

func (r *redisCommentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	now := time.Now().UTC()
	comment.UpdatedAt = &now
	payload, err := json.Marshal(comment)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, commentKey(comment.ID), payload, 0).Result()
	if err != nil {
		return mapStoreError(err, domain.ErrCommentNotFound)
	}
	if !ok {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (r *redisCommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := getJSON(ctx, r.client, commentKey(id), &comment); err != nil {
		return nil, mapStoreError(err, domain.ErrCommentNotFound)
	}
	return &comment, nil
}

func (r *redisCommentRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	ids, err := r.client.ZRevRange(ctx, postCommentsKey(postID), 0, -1).Result()
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = commentKey(id)
	}
	comments, err := loadAll[domain.Comment](ctx, r.client, keys)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return comments, nil
}

func (r *redisCommentRepository) DeleteByPost(ctx context.Context, postID string) error {
	ids, err := r.client.ZRange(ctx, postCommentsKey(postID), 0, -1).Result()
	if err != nil {
		return mapStoreError(err, domain.ErrPostNotFound)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, commentKey(id))
	}
	keys = append(keys, postCommentsKey(postID))
	return mapStoreError(r.client.Del(ctx, keys...).Err(), domain.ErrPostNotFound)
}
