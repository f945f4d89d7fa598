package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/creatorpulse/creatorpulse/domain"
)

// MemorySnapshotStore implements SnapshotStore using ttlcache.
type MemorySnapshotStore struct {
	cache *ttlcache.Cache[string, *domain.PlatformSnapshot]
}

// NewMemorySnapshotStore creates a new in-memory snapshot store with
// automatic expiry cleanup.
func NewMemorySnapshotStore(defaultTTL time.Duration) *MemorySnapshotStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.PlatformSnapshot](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.PlatformSnapshot](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemorySnapshotStore{cache: cache}
}

// Set implements SnapshotStore.Set.
func (s *MemorySnapshotStore) Set(_ context.Context, key string, snap *domain.PlatformSnapshot, ttl time.Duration) error {
	s.cache.Set(key, snap, ttl)
	return nil
}

// Get implements SnapshotStore.Get. Expired entries are misses.
func (s *MemorySnapshotStore) Get(_ context.Context, key string) (*domain.PlatformSnapshot, bool) {
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false
	}
	return item.Value(), true
}

// Clear implements SnapshotStore.Clear.
func (s *MemorySnapshotStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Len counts the cached snapshots.
func (s *MemorySnapshotStore) Len() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemorySnapshotStore) Close() error {
	s.cache.Stop()
	return nil
}
