package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
)

func TestCleanupExpiredCredentials(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{
		name: domain.PlatformYouTube,
		refreshFn: func(refreshToken string) (*domain.TokenGrant, error) {
			if refreshToken == "revoked" {
				return nil, errors.New("invalid_grant")
			}
			return &domain.TokenGrant{AccessToken: "fresh", ExpiresIn: 3600}, nil
		},
	}

	repo := newMemCredRepo()
	registry := domain.NewProviderRegistry()
	registry.Register(provider)
	creds := NewCredentialService(repo, registry)
	history := &fakeHistory{}
	svc := NewCleanupService(creds, repo, history, "@every 1h", 90*24*time.Hour)

	// Still valid: left alone.
	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "u1", Platform: domain.PlatformYouTube,
		AccessToken: "ok", ExpiresAt: time.Now().Add(time.Hour),
	}))
	// Expired with a working refresh token: refreshed.
	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "u2", Platform: domain.PlatformYouTube,
		AccessToken: "stale", RefreshToken: "good", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	// Expired with a revoked refresh token: evicted.
	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "u3", Platform: domain.PlatformYouTube,
		AccessToken: "stale", RefreshToken: "revoked", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	// Expired without any refresh token: evicted.
	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "u4", Platform: domain.PlatformYouTube,
		AccessToken: "stale", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	report, err := svc.CleanupExpiredCredentials(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 1, report.Refreshed)
	assert.Equal(t, 2, report.Removed)

	assert.NotNil(t, repo.stored("u1", domain.PlatformYouTube))
	refreshed := repo.stored("u2", domain.PlatformYouTube)
	require.NotNil(t, refreshed)
	assert.Equal(t, "fresh", refreshed.AccessToken)
	assert.Nil(t, repo.stored("u3", domain.PlatformYouTube))
	assert.Nil(t, repo.stored("u4", domain.PlatformYouTube))
}

func TestCleanup_CorruptRecordDoesNotAbortSweep(t *testing.T) {
	ctx := context.Background()

	provider := &fakeProvider{
		name: domain.PlatformTwitch,
		refreshFn: func(refreshToken string) (*domain.TokenGrant, error) {
			return &domain.TokenGrant{AccessToken: "fresh", ExpiresIn: 3600}, nil
		},
	}

	repo := newMemCredRepo()
	registry := domain.NewProviderRegistry()
	registry.Register(provider)
	creds := NewCredentialService(repo, registry)
	svc := NewCleanupService(creds, repo, &fakeHistory{}, "@every 1h", 90*24*time.Hour)

	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "corrupt", Platform: domain.PlatformTwitch,
		AccessToken: "???", ExpiresAt: time.Now().Add(-time.Hour),
	}))
	repo.forcedGetErr[credKey("corrupt", domain.PlatformTwitch)] =
		cperrors.NewValidationError("stored access token is unreadable", nil)

	require.NoError(t, repo.Upsert(ctx, &domain.Credential{
		UserID: "healthy", Platform: domain.PlatformTwitch,
		AccessToken: "stale", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	report, err := svc.CleanupExpiredCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Refreshed, "a bad record must not abort the sweep")
	assert.Equal(t, 1, report.Removed)
}

func TestPruneMetricHistory(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{}

	old := &domain.MetricSample{
		UserID: "u1", Platform: domain.PlatformYouTube, Identifier: "c", Metric: domain.MetricViews,
		Value: 1, RecordedAt: time.Now().Add(-120 * 24 * time.Hour),
	}
	recent := &domain.MetricSample{
		UserID: "u1", Platform: domain.PlatformYouTube, Identifier: "c", Metric: domain.MetricViews,
		Value: 2, RecordedAt: time.Now().Add(-2 * 24 * time.Hour),
	}
	require.NoError(t, history.Append(ctx, old))
	require.NoError(t, history.Append(ctx, recent))

	svc := NewCleanupService(nil, nil, history, "@every 1h", 90*24*time.Hour)
	deleted, err := svc.PruneMetricHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := history.Window(ctx, domain.MetricKey{
		UserID: "u1", Platform: domain.PlatformYouTube, Identifier: "c", Metric: domain.MetricViews,
	}, time.Time{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].Value)
}

func TestCleanupService_StartStop(t *testing.T) {
	repo := newMemCredRepo()
	registry := domain.NewProviderRegistry()
	creds := NewCredentialService(repo, registry)
	svc := NewCleanupService(creds, repo, &fakeHistory{}, "@every 1h", 90*24*time.Hour)

	require.NoError(t, svc.Start())
	svc.Stop()
}
