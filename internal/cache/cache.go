package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quill/internal/middleware"
	"quill/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix      = "quill:post:%d"
	PostsListKeyPrefix = "quill:posts:list:v%d:%s"
	postsListVersion   = "quill:posts:list:version"
)

const (
	PostTTL = 30 * time.Minute
	ListTTL = 2 * time.Minute
)

// Cache is a JSON cache-aside layer over Redis. A nil client disables it;
// every method is then a pass-through.
type Cache struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PostsListKey returns the key for a list query under the current list
// version. params is hashed so arbitrarily long filters produce short keys.
func (c *Cache) PostsListKey(ctx context.Context, params any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf(PostsListKeyPrefix, c.listVersion(ctx), hex.EncodeToString(sum[:12])), nil
}

func (c *Cache) listVersion(ctx context.Context) int64 {
	if !c.Enabled() {
		return 0
	}
	v, err := c.client.Get(ctx, postsListVersion).Int64()
	if err != nil {
		return 0
	}
	return v
}

// InvalidatePostsList makes every cached list result unreachable by bumping
// the list version; stale entries expire on their own TTL.
func (c *Cache) InvalidatePostsList(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, postsListVersion).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to bump posts list version", slog.String("error", err.Error()))
	}
}

// Invalidate deletes keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.String("error", err.Error()))
	}
}

// InvalidatePost drops the cached post and every cached list.
func (c *Cache) InvalidatePost(ctx context.Context, postID uint) {
	c.Invalidate(ctx, PostKey(postID))
	c.InvalidatePostsList(ctx)
}

// GetJSON loads key into dest. It reports false when the key is missing.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first and falls back to fetch, which must populate dest.
// The fetched value is stored best-effort. Redis failures never fail the read.
func (c *Cache) Aside(ctx context.Context, keyspace, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		observability.CacheLookups.WithLabelValues(keyspace, "hit").Inc()
		return nil
	}
	if c.Enabled() {
		observability.CacheLookups.WithLabelValues(keyspace, "miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = c.SetJSON(ctx, key, dest, ttl)
	return nil
}
