package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Counters are constructed eagerly so service code (and its tests) can
// increment them without registration; Register attaches them to the
// process registry at startup.
var (
	CredentialRefreshSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_credential_refresh_success_total",
		Help: "Total number of successful credential refreshes.",
	})
	CredentialRefreshFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_credential_refresh_failure_total",
		Help: "Total number of failed credential refreshes.",
	})
	CredentialsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_credentials_evicted_total",
		Help: "Total number of credentials evicted (refresh failure or corrupt payload).",
	})
	StatsCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_stats_cache_hits_total",
		Help: "Total number of stats cache hits.",
	})
	StatsCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_stats_cache_misses_total",
		Help: "Total number of stats cache misses.",
	})
	ProviderFetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_provider_fetch_failures_total",
		Help: "Total number of provider stats fetches replaced by a fallback snapshot.",
	})
	ReportsBuiltTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_reports_built_total",
		Help: "Total number of analytics reports built.",
	})
	CleanupSweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "creatorpulse_cleanup_sweeps_total",
		Help: "Total number of credential cleanup sweeps completed.",
	})
)

// Register attaches the custom metrics to reg. It should be called once at
// application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		return
	}

	collectors := map[string]prometheus.Collector{
		"CredentialRefreshSuccessTotal": CredentialRefreshSuccessTotal,
		"CredentialRefreshFailureTotal": CredentialRefreshFailureTotal,
		"CredentialsEvictedTotal":       CredentialsEvictedTotal,
		"StatsCacheHitsTotal":           StatsCacheHitsTotal,
		"StatsCacheMissesTotal":         StatsCacheMissesTotal,
		"ProviderFetchFailuresTotal":    ProviderFetchFailuresTotal,
		"ReportsBuiltTotal":             ReportsBuiltTotal,
		"CleanupSweepsTotal":            CleanupSweepsTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
}
