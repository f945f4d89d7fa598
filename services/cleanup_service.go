package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/creatorpulse/creatorpulse/domain"
	"github.com/creatorpulse/creatorpulse/internal/metrics"
)

// CleanupReport summarizes one credential sweep.
type CleanupReport struct {
	Scanned   int `json:"scanned"`
	Refreshed int `json:"refreshed"`
	Removed   int `json:"removed"`
}

// CleanupService runs the periodic maintenance sweeps: refresh-or-evict
// over every stored credential, and the metric history retention cut.
type CleanupService struct {
	creds     *CredentialService
	credRepo  domain.CredentialRepository
	history   domain.MetricHistoryRepository
	retention time.Duration

	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// NewCleanupService creates a new CleanupService. schedule is a cron spec
// (e.g. "@every 1h"); retention is how long metric samples are kept.
func NewCleanupService(
	creds *CredentialService,
	credRepo domain.CredentialRepository,
	history domain.MetricHistoryRepository,
	schedule string,
	retention time.Duration,
) *CleanupService {
	return &CleanupService{
		creds:     creds,
		credRepo:  credRepo,
		history:   history,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
	}
}

// CleanupExpiredCredentials walks every stored credential and, for each one
// past expiry, runs the same refresh path a request would. A record that
// cannot be refreshed (or whose payload is unreadable) ends up evicted. One
// bad record never aborts the sweep.
func (s *CleanupService) CleanupExpiredCredentials(ctx context.Context) (CleanupReport, error) {
	refs, err := s.credRepo.ListRefs(ctx)
	if err != nil {
		return CleanupReport{}, err
	}

	report := CleanupReport{Scanned: len(refs)}
	now := s.now()
	for _, ref := range refs {
		if !ref.Expired(now) {
			continue
		}

		cred, err := s.creds.GetValidToken(ctx, ref.UserID, ref.Platform)
		switch {
		case err != nil:
			// Refresh failed or payload was corrupt; the record is gone.
			report.Removed++
			log.Warn().Err(err).
				Str("user_id", ref.UserID).
				Str("platform", ref.Platform).
				Msg("Cleanup evicted credential")
		case cred == nil:
			// Raced with a delete; nothing left to count as refreshed.
			report.Removed++
		default:
			report.Refreshed++
		}
	}

	metrics.CleanupSweepsTotal.Inc()
	log.Info().
		Int("scanned", report.Scanned).
		Int("refreshed", report.Refreshed).
		Int("removed", report.Removed).
		Msg("Credential cleanup sweep finished")
	return report, nil
}

// PruneMetricHistory deletes samples older than the retention window.
func (s *CleanupService) PruneMetricHistory(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned metric history")
	}
	return deleted, nil
}

// Start schedules both sweeps on the configured cron spec.
func (s *CleanupService) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx := context.Background()
		if _, err := s.CleanupExpiredCredentials(ctx); err != nil {
			log.Error().Err(err).Msg("Credential cleanup sweep failed")
		}
		if _, err := s.PruneMetricHistory(ctx); err != nil {
			log.Error().Err(err).Msg("Metric history prune failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("Cleanup job scheduled")
	return nil
}

// Stop halts the cron scheduler and waits for a running sweep to finish.
func (s *CleanupService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
