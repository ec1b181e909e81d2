package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Dedup is the Redis-backed event dedup store. A lookup error counts as
// not-seen so Redis trouble degrades to reprocessing, never to dropped events.
type Dedup struct{ C *redis.Client }

func (d Dedup) Seen(ctx context.Context, key string) bool {
	seen, err := Exists(ctx, d.C, key)
	return err == nil && seen
}

func (d Dedup) Mark(ctx context.Context, key string) {
	_ = d.C.Set(ctx, key, "1", TTLDedup).Err()
}
