package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/pkg/helpers"
)

const keyPrefix = "user:profile:"

// ProfileCache stores user projections as JSON in Redis.
type ProfileCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewProfileCache(rdb redis.Cmdable, ttl time.Duration) *ProfileCache {
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

func key(userID string) string { return keyPrefix + userID }

func (c *ProfileCache) Get(ctx context.Context, userID string) (*entity.UserProfile, bool, error) {
	var p entity.UserProfile
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, key(userID), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *ProfileCache) Set(ctx context.Context, p entity.UserProfile) error {
	return helpers.RedisSetJSON(ctx, c.rdb, key(p.ID), p, c.ttl)
}

func (c *ProfileCache) Delete(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, c.rdb, key(userID))
}
