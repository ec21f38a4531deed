package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/blog-service/internal/domain"
)

type redisUserRepository struct {
	client redis.UniversalClient
}

// NewRedisUserRepository stores accounts as JSON blobs keyed by id, with a
// lowercase username index.
func NewRedisUserRepository(client redis.UniversalClient) UserRepository {
	return &redisUserRepository{client: client}
}

func (r *redisUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	claimed, err := r.client.SetNX(ctx, usernameKey(user.Username), user.ID, 0).Result()
	if err != nil {
		return mapStoreError(err, domain.ErrUserNotFound)
	}
	if !claimed {
		return domain.ErrUsernameTaken
	}

	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, userKey(user.ID), payload, 0).Err(); err != nil {
		_ = r.client.Del(ctx, usernameKey(user.Username)).Err()
		return mapStoreError(err, domain.ErrUserNotFound)
	}
	return nil
}

func (r *redisUserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, userKey(user.ID), payload, 0).Result()
	if err != nil {
		return mapStoreError(err, domain.ErrUserNotFound)
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *redisUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := getJSON(ctx, r.client, userKey(id), &user); err != nil {
		return nil, mapStoreError(err, domain.ErrUserNotFound)
	}
	return &user, nil
}

func (r *redisUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.client.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		return nil, mapStoreError(err, domain.ErrUserNotFound)
	}
	return r.GetByID(ctx, id)
}
