// cache — кэш refresh-сессий поверх Redis.
//
// Ключ — prefix + хэш refresh-токена, значение — Redis Hash с полями
// id, uid, ua, crt, exp (unix). TTL ключа равен остатку жизни сессии,
// поэтому просроченные записи исчезают сами.
package cache

//go:generate mockgen -source=cache.go -destination=../../mocks/cache.go -package=mocks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/news-portal/internal/models"
)

const defaultPrefix = "news:rs:"

// SessionCache — минимальный контракт кэша сессий.
type SessionCache interface {
	// Get возвращает сессию и признак её наличия в кэше.
	Get(ctx context.Context, hash string) (*models.RefreshSession, bool, error)
	// Set сохраняет сессию с TTL (обычно ExpiresAt-now).
	Set(ctx context.Context, s *models.RefreshSession, ttl time.Duration) error
	// Delete убирает запись; отсутствие ключа ошибкой не считается.
	Delete(ctx context.Context, hash string) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "news:rs:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (SessionCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = defaultPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(hash string) string { return c.prefix + hash }

func (c *redisCache) Get(ctx context.Context, hash string) (*models.RefreshSession, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	id, err := strconv.ParseInt(m["id"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	uid, err := strconv.ParseInt(m["uid"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	crt, err := strconv.ParseInt(m["crt"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	exp, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &models.RefreshSession{
		ID:        id,
		UserID:    uid,
		TokenHash: hash,
		UserAgent: m["ua"],
		CreatedAt: time.Unix(crt, 0).UTC(),
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, s *models.RefreshSession, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	kv := map[string]string{
		"id":  strconv.FormatInt(s.ID, 10),
		"uid": strconv.FormatInt(s.UserID, 10),
		"ua":  s.UserAgent,
		"crt": strconv.FormatInt(s.CreatedAt.Unix(), 10),
		"exp": strconv.FormatInt(s.ExpiresAt.Unix(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(s.TokenHash), kv)
	pipe.Expire(ctx, c.key(s.TokenHash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Delete(ctx context.Context, hash string) error {
	return c.rdb.Del(ctx, c.key(hash)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
