package historycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dotsetlabs/bellwether/internal/pruner"
)

// RedisStore persists prior fingerprints in Redis, grounded on the
// teacher's own rdb.Get/Set/redis.Nil idiom for small keyed lookups,
// repurposed here for cross-run history instead of stream-mapping
// lookups.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a store backed by rdb. ttl bounds how long a prior
// fingerprint is retained; zero means no expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, toolName string) (pruner.PriorFingerprint, bool, error) {
	raw, err := s.rdb.Get(ctx, key(toolName)).Result()
	if errors.Is(err, redis.Nil) {
		return pruner.PriorFingerprint{}, false, nil
	}
	if err != nil {
		return pruner.PriorFingerprint{}, false, fmt.Errorf("historycache: get %q: %w", toolName, err)
	}

	var fp pruner.PriorFingerprint
	if err := json.Unmarshal([]byte(raw), &fp); err != nil {
		return pruner.PriorFingerprint{}, false, fmt.Errorf("historycache: decode %q: %w", toolName, err)
	}
	return fp, true, nil
}

func (s *RedisStore) Put(ctx context.Context, toolName string, fp pruner.PriorFingerprint) error {
	encoded, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("historycache: encode %q: %w", toolName, err)
	}
	if err := s.rdb.Set(ctx, key(toolName), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("historycache: put %q: %w", toolName, err)
	}
	return nil
}
