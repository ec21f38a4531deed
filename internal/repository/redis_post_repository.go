package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/blog-service/internal/domain"
)

// maxTxRetries bounds optimistic WATCH retries before giving up.
const maxTxRetries = 5

type redisPostRepository struct {
	client redis.UniversalClient
}

// NewRedisPostRepository keeps posts as JSON blobs, a creation-time sorted
// set for the timeline and one set of post ids per tag.
func NewRedisPostRepository(client redis.UniversalClient) PostRepository {
	return &redisPostRepository{client: client}
}

func (r *redisPostRepository) CreateWithAuthor(ctx context.Context, post *domain.Post, author *domain.User) error {
	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.CreatedAt = now
	author.UpdatedAt = now

	postPayload, err := json.Marshal(post)
	if err != nil {
		return err
	}
	authorPayload, err := json.Marshal(author)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, userKey(author.ID)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrUserNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, postKey(post.ID), postPayload, 0)
			pipe.ZAdd(ctx, postsTimelineKey, redis.Z{Score: float64(now.UnixMicro()), Member: post.ID})
			for _, tag := range post.Tags {
				pipe.SAdd(ctx, tagPostsKey(tag), post.ID)
			}
			pipe.Set(ctx, userKey(author.ID), authorPayload, 0)
			return nil
		})
		return err
	}
	return mapStoreError(r.watch(ctx, txf, userKey(author.ID)), domain.ErrUserNotFound)
}

func (r *redisPostRepository) Update(ctx context.Context, post *domain.Post) error {
	stored, err := r.GetByID(ctx, post.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	stored.Title = post.Title
	stored.Content = post.Content
	stored.UpdatedAt = &now

	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, postKey(post.ID), payload, 0).Result()
	if err != nil {
		return mapStoreError(err, domain.ErrPostNotFound)
	}
	if !ok {
		return domain.ErrPostNotFound
	}
	post.UpdatedAt = &now
	return nil
}

func (r *redisPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := getJSON(ctx, r.client, postKey(id), &post); err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return &post, nil
}

func (r *redisPostRepository) ListPage(ctx context.Context, page, pageSize int) ([]domain.Post, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	start := int64((page - 1) * pageSize)
	ids, err := r.client.ZRevRange(ctx, postsTimelineKey, start, start+int64(pageSize)-1).Result()
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return r.load(ctx, ids)
}

func (r *redisPostRepository) Count(ctx context.Context) (int, error) {
	total, err := r.client.ZCard(ctx, postsTimelineKey).Result()
	if err != nil {
		return 0, mapStoreError(err, domain.ErrPostNotFound)
	}
	return int(total), nil
}

func (r *redisPostRepository) SearchByTitle(ctx context.Context, term string) ([]domain.Post, error) {
	ids, err := r.client.ZRevRange(ctx, postsTimelineKey, 0, -1).Result()
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	posts, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	matches := []domain.Post{}
	for _, post := range posts {
		if strings.Contains(strings.ToLower(post.Title), needle) {
			matches = append(matches, post)
		}
	}
	return matches, nil
}

func (r *redisPostRepository) ListByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	ids, err := r.client.SMembers(ctx, tagPostsKey(strings.ToLower(strings.TrimSpace(tag)))).Result()
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	posts, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *redisPostRepository) AddTag(ctx context.Context, postID, tag string) error {
	txf := func(tx *redis.Tx) error {
		var post domain.Post
		if err := getJSON(ctx, tx, postKey(postID), &post); err != nil {
			return err
		}
		for _, existing := range post.Tags {
			if existing == tag {
				return nil
			}
		}
		post.Tags = append(post.Tags, tag)
		sort.Strings(post.Tags)
		payload, err := json.Marshal(post)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, postKey(postID), payload, 0)
			pipe.SAdd(ctx, tagPostsKey(tag), postID)
			return nil
		})
		return err
	}
	return mapStoreError(r.watch(ctx, txf, postKey(postID)), domain.ErrPostNotFound)
}

func (r *redisPostRepository) TagsForPost(ctx context.Context, postID string) ([]string, error) {
	post, err := r.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return post.Tags, nil
}

// Delete drops the post, its timeline entry, tag memberships and comments.
// A tag whose set becomes empty disappears with it.
func (r *redisPostRepository) Delete(ctx context.Context, id string) error {
	txf := func(tx *redis.Tx) error {
		var post domain.Post
		if err := getJSON(ctx, tx, postKey(id), &post); err != nil {
			return err
		}
		commentIDs, err := tx.ZRange(ctx, postCommentsKey(id), 0, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, postKey(id))
			pipe.ZRem(ctx, postsTimelineKey, id)
			for _, tag := range post.Tags {
				pipe.SRem(ctx, tagPostsKey(tag), id)
			}
			for _, commentID := range commentIDs {
				pipe.Del(ctx, commentKey(commentID))
			}
			pipe.Del(ctx, postCommentsKey(id))
			return nil
		})
		return err
	}
	return mapStoreError(r.watch(ctx, txf, postKey(id), postCommentsKey(id)), domain.ErrPostNotFound)
}

func (r *redisPostRepository) load(ctx context.Context, ids []string) ([]domain.Post, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = postKey(id)
	}
	posts, err := loadAll[domain.Post](ctx, r.client, keys)
	if err != nil {
		return nil, mapStoreError(err, domain.ErrPostNotFound)
	}
	return posts, nil
}

func (r *redisPostRepository) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
