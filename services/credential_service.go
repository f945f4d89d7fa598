package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
	"github.com/creatorpulse/creatorpulse/internal/metrics"
)

// CredentialService owns the credential lifecycle: lazy expiry detection on
// read, provider refresh, and eviction when a refresh can no longer
// succeed. Concurrent refreshes for the same (user, platform) collapse into
// one provider call via singleflight; across processes the last successful
// write wins.
type CredentialService struct {
	repo      domain.CredentialRepository
	providers *domain.ProviderRegistry

	refreshGroup singleflight.Group
	now          func() time.Time
}

// NewCredentialService creates a new CredentialService instance.
func NewCredentialService(repo domain.CredentialRepository, providers *domain.ProviderRegistry) *CredentialService {
	return &CredentialService{
		repo:      repo,
		providers: providers,
		now:       time.Now,
	}
}

// GetValidToken returns a usable credential for (userID, platform), or
// (nil, nil) when none is stored. An expired credential is refreshed in
// place; a refresh that cannot succeed (no refresh token, revoked token,
// corrupt stored payload) evicts the record and returns a reauth_required
// error, so a subsequent call reports no credential rather than failing
// again.
func (s *CredentialService) GetValidToken(ctx context.Context, userID, platform string) (*domain.Credential, error) {
	cred, err := s.repo.Get(ctx, userID, platform)
	if err != nil {
		if cperrors.IsValidation(err) {
			s.evict(ctx, userID, platform, "stored payload unreadable")
			return nil, cperrors.NewReauthRequired(platform, err)
		}
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	if !cred.Expired(s.now()) {
		return cred, nil
	}

	return s.refresh(ctx, userID, platform)
}

// refresh runs the provider refresh protocol behind a per-key singleflight,
// so a request-triggered refresh and a sweep-triggered refresh for the same
// pair share one provider call within this process.
func (s *CredentialService) refresh(ctx context.Context, userID, platform string) (*domain.Credential, error) {
	key := userID + "|" + platform
	v, err, _ := s.refreshGroup.Do(key, func() (interface{}, error) {
		return s.doRefresh(ctx, userID, platform)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*domain.Credential), nil
}

func (s *CredentialService) doRefresh(ctx context.Context, userID, platform string) (*domain.Credential, error) {
	// Re-read inside the flight: a racing caller may have refreshed (or
	// evicted) the record while we waited on the group.
	cred, err := s.repo.Get(ctx, userID, platform)
	if err != nil {
		if cperrors.IsValidation(err) {
			s.evict(ctx, userID, platform, "stored payload unreadable")
			return nil, cperrors.NewReauthRequired(platform, err)
		}
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	now := s.now()
	if !cred.Expired(now) {
		return cred, nil
	}

	if !cred.Refreshable() {
		s.evict(ctx, userID, platform, "expired without refresh token")
		return nil, cperrors.NewReauthRequired(platform, nil)
	}

	provider, err := s.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	grant, err := provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		// Single failed attempt is terminal: evict and require reauth.
		metrics.CredentialRefreshFailureTotal.Inc()
		s.evict(ctx, userID, platform, "refresh failed")
		return nil, cperrors.NewReauthRequired(platform, err)
	}
	if grant.AccessToken == "" {
		metrics.CredentialRefreshFailureTotal.Inc()
		s.evict(ctx, userID, platform, "refresh response missing access token")
		return nil, cperrors.NewReauthRequired(platform,
			cperrors.NewAuthError(platform, "malformed refresh response", nil))
	}

	cred.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		cred.RefreshToken = grant.RefreshToken
	}
	if grant.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	} else {
		cred.ExpiresAt = time.Time{}
	}
	if grant.Scope != "" {
		cred.Scope = grant.Scope
	}
	if grant.TokenType != "" {
		cred.TokenType = grant.TokenType
	}

	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	metrics.CredentialRefreshSuccessTotal.Inc()
	log.Debug().
		Str("user_id", userID).
		Str("platform", platform).
		Time("expires_at", cred.ExpiresAt).
		Msg("Credential refreshed")
	return cred, nil
}

// SaveGrant persists the result of a completed authorization flow,
// replacing any previous credential for the pair. The OAuth redirect
// handlers (outside this core) call this on callback.
func (s *CredentialService) SaveGrant(ctx context.Context, userID, platform string, grant *domain.TokenGrant) (*domain.Credential, error) {
	cred := &domain.Credential{
		UserID:       userID,
		Platform:     platform,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		Scope:        grant.Scope,
		TokenType:    grant.TokenType,
	}
	if grant.ExpiresIn > 0 {
		cred.ExpiresAt = s.now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	}

	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// RemoveCredential deletes the stored credential. Idempotent.
func (s *CredentialService) RemoveCredential(ctx context.Context, userID, platform string) error {
	return s.repo.Delete(ctx, userID, platform)
}

func (s *CredentialService) evict(ctx context.Context, userID, platform, reason string) {
	if err := s.repo.Delete(ctx, userID, platform); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID).
			Str("platform", platform).
			Msg("Failed to delete credential during eviction")
		return
	}
	metrics.CredentialsEvictedTotal.Inc()
	log.Info().
		Str("user_id", userID).
		Str("platform", platform).
		Str("reason", reason).
		Msg("Credential evicted")
}
