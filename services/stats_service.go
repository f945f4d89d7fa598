package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/creatorpulse/creatorpulse/cache"
	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
	"github.com/creatorpulse/creatorpulse/internal/metrics"
)

// StatsService is the read-through stats cache over the provider clients.
// Hits are served from the snapshot store; misses collapse per key into one
// upstream fetch, whose result is cached for the configured TTL. Successful
// authenticated fetches also feed the metric history that growth and trend
// analytics are computed from.
type StatsService struct {
	providers *domain.ProviderRegistry
	creds     *CredentialService
	store     cache.SnapshotStore
	history   domain.MetricHistoryRepository
	analytics *AnalyticsService

	ttl       time.Duration
	fillGroup singleflight.Group
	now       func() time.Time
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(
	providers *domain.ProviderRegistry,
	creds *CredentialService,
	store cache.SnapshotStore,
	history domain.MetricHistoryRepository,
	analytics *AnalyticsService,
	ttl time.Duration,
) *StatsService {
	return &StatsService{
		providers: providers,
		creds:     creds,
		store:     store,
		history:   history,
		analytics: analytics,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GetStats returns the snapshot for one platform account, cached per
// (platform, identifier, scope). userID may be empty for public lookups on
// platforms that support them.
func (s *StatsService) GetStats(ctx context.Context, platform, identifier, userID string) (*domain.PlatformSnapshot, error) {
	key := cache.Key(platform, identifier, cache.UserScope(userID))

	if snap, ok := s.store.Get(ctx, key); ok {
		metrics.StatsCacheHitsTotal.Inc()
		return snap, nil
	}
	metrics.StatsCacheMissesTotal.Inc()

	v, err, _ := s.fillGroup.Do(key, func() (interface{}, error) {
		// A concurrent filler may have landed while we queued.
		if snap, ok := s.store.Get(ctx, key); ok {
			return snap, nil
		}
		return s.fetch(ctx, key, platform, identifier, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PlatformSnapshot), nil
}

func (s *StatsService) fetch(ctx context.Context, key, platform, identifier, userID string) (*domain.PlatformSnapshot, error) {
	provider, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	var cred *domain.Credential
	if userID != "" {
		cred, err = s.creds.GetValidToken(ctx, userID, platform)
		if err != nil && !cperrors.IsReauthRequired(err) {
			return nil, err
		}
		// With reauth pending the fetch proceeds uncredentialed; platforms
		// without public stats will fail it and the caller gets a fallback.
	}

	snap, err := provider.FetchStats(ctx, identifier, cred)
	if err != nil {
		if cperrors.IsTransient(err) || cperrors.IsAuthError(err) {
			return nil, err
		}
		return nil, cperrors.NewTransientProvider(platform, "stats fetch failed", err)
	}
	snap.FetchedAt = s.now().UTC()

	if userID != "" && cred != nil {
		snap.Growth = s.growthFor(ctx, userID, snap)
		s.recordHistory(ctx, userID, snap)
	}

	if err := s.store.Set(ctx, key, snap, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache snapshot")
	}
	return snap, nil
}

// growthFor computes the snapshot's growth percentage on its primary
// audience metric: followers when the platform tracks them, subscribers
// otherwise.
func (s *StatsService) growthFor(ctx context.Context, userID string, snap *domain.PlatformSnapshot) float64 {
	metric, current := domain.MetricFollowers, snap.Followers
	if snap.Followers == 0 && snap.Subscribers > 0 {
		metric, current = domain.MetricSubscribers, snap.Subscribers
	}
	key := domain.MetricKey{
		UserID:     userID,
		Platform:   snap.Platform,
		Identifier: snap.Identifier,
		Metric:     metric,
	}
	return s.analytics.GrowthRate(ctx, key, current)
}

// recordHistory appends the snapshot's metrics to the history store.
// Best-effort: a failed write logs and never fails the fetch.
func (s *StatsService) recordHistory(ctx context.Context, userID string, snap *domain.PlatformSnapshot) {
	points := []struct {
		metric string
		value  int64
	}{
		{domain.MetricFollowers, snap.Followers},
		{domain.MetricSubscribers, snap.Subscribers},
		{domain.MetricViews, snap.Views},
		{domain.MetricRevenue, int64(math.Round(snap.Revenue))},
	}
	for _, p := range points {
		sample := &domain.MetricSample{
			UserID:     userID,
			Platform:   snap.Platform,
			Identifier: snap.Identifier,
			Metric:     p.metric,
			Value:      p.value,
		}
		if err := s.history.Append(ctx, sample); err != nil {
			log.Warn().Err(err).
				Str("platform", snap.Platform).
				Str("metric", p.metric).
				Msg("Failed to record metric sample")
		}
	}
}

// GetAllStats fetches every requested platform concurrently with
// all-settled semantics: a failed platform is replaced by a zeroed fallback
// snapshot carrying the failure reason, so the result always holds exactly
// one snapshot per request, in request order.
func (s *StatsService) GetAllStats(ctx context.Context, reqs []domain.StatsRequest, userID string) []*domain.PlatformSnapshot {
	results := make([]*domain.PlatformSnapshot, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req domain.StatsRequest) {
			defer wg.Done()

			snap, err := s.GetStats(ctx, req.Platform, req.Identifier, userID)
			if err != nil {
				metrics.ProviderFetchFailuresTotal.Inc()
				log.Warn().Err(err).
					Str("platform", req.Platform).
					Str("identifier", req.Identifier).
					Msg("Stats fetch failed, returning fallback snapshot")
				snap = &domain.PlatformSnapshot{
					Platform:   req.Platform,
					Identifier: req.Identifier,
					Error:      err.Error(),
					FetchedAt:  s.now().UTC(),
				}
			}
			results[i] = snap
		}(i, req)
	}
	wg.Wait()

	return results
}

// InvalidateCache drops every cached snapshot, forcing fresh fetches.
func (s *StatsService) InvalidateCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}
