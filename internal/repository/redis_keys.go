package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
)

const postsTimelineKey = "posts:timeline"

func userKey(id string) string { return "user:" + id }
func usernameKey(name string) string { return "username:" + strings.ToLower(strings.TrimSpace(name)) }
func postKey(id string) string { return "post:" + id }
func tagPostsKey(tag string) string { return "tag:" + tag + ":posts" }
func commentKey(id string) string { return "comment:" + id }
func postCommentsKey(postID string) string { return "post:" + postID + ":comments" }

// getJSON loads key into dst. A missing key yields redis.Nil.
func getJSON(ctx context.Context, client redis.Cmdable, key string, dst any) error {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// loadAll fetches keys with MGET and decodes every present value, preserving key order.
func loadAll[T any](ctx context.Context, client redis.Cmdable, keys []string) ([]T, error) {
	result := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}
