package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safin-krmavi/Bulltrek/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by backends that need expired entries removed
// on a schedule. Redis expires keys itself.
type Sweeper interface {
	Sweep() int
}

// New picks the backend named by cfg.Driver. Anything other than "redis"
// gets the in-process store.
func New(cfg config.CacheConfig) Store {
	if strings.EqualFold(strings.TrimSpace(cfg.Driver), "redis") {
		return NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return NewMemoryStore()
}

// GetJSON decodes the cached value at key into out. A decode failure is
// reported as a miss so a stale shape is simply refetched.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	if s == nil {
		return false, nil
	}
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}
