package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/creatorpulse/creatorpulse/domain"
)

// SnapshotStore implements the cache.SnapshotStore interface using Redis,
// for deployments where several processes should share one stats cache.
type SnapshotStore struct {
	client *redis.Client
	prefix string
}

// NewSnapshotStore creates a new [SnapshotStore] instance.
func NewSnapshotStore(client *redis.Client, prefix string) *SnapshotStore {
	return &SnapshotStore{client: client, prefix: prefix}
}

func (r *SnapshotStore) redisKey(key string) string {
	return fmt.Sprintf("%s:snapshot:%s", r.prefix, key)
}

// Set stores a snapshot as JSON with the given TTL.
func (r *SnapshotStore) Set(ctx context.Context, key string, snap *domain.PlatformSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}

// Get retrieves a snapshot. Redis expiry makes stale entries plain misses.
func (r *SnapshotStore) Get(ctx context.Context, key string) (*domain.PlatformSnapshot, bool) {
	payload, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Redis snapshot read failed")
		}
		return nil, false
	}

	var snap domain.PlatformSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cached snapshot is unreadable, dropping")
		_ = r.client.Del(ctx, r.redisKey(key)).Err()
		return nil, false
	}
	return &snap, true
}

// Clear deletes every snapshot under this store's prefix.
func (r *SnapshotStore) Clear(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:snapshot:*", r.prefix)

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan snapshot keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete snapshot keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
