package services

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/creatorpulse/creatorpulse/domain"
	"github.com/creatorpulse/creatorpulse/internal/metrics"
)

// AnalyticsService derives growth percentages and the monthly revenue trend
// from the metric history, and assembles the cross-platform report.
//
// The random source only feeds trend synthesis for accounts with no
// history; it is injectable so tests can seed it.
type AnalyticsService struct {
	history domain.MetricHistoryRepository
	rng     *rand.Rand

	growthWindow time.Duration
	trendMonths  int
	now          func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService. A nil rng falls back
// to a time-seeded source.
func NewAnalyticsService(history domain.MetricHistoryRepository, growthWindowDays, trendMonths int, rng *rand.Rand) *AnalyticsService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AnalyticsService{
		history:      history,
		rng:          rng,
		growthWindow: time.Duration(growthWindowDays) * 24 * time.Hour,
		trendMonths:  trendMonths,
		now:          time.Now,
	}
}

// GrowthRate returns the percentage change between the oldest sample of the
// series inside the lookback window and current. It returns 0 when there is
// no history, when the oldest value is 0, or when nothing changed; a
// history read failure also falls back to 0 rather than failing the caller.
func (s *AnalyticsService) GrowthRate(ctx context.Context, key domain.MetricKey, current int64) float64 {
	since := s.now().Add(-s.growthWindow)
	samples, err := s.history.Window(ctx, key, since)
	if err != nil {
		log.Warn().Err(err).
			Str("platform", key.Platform).
			Str("metric", key.Metric).
			Msg("Growth lookup failed, reporting 0")
		return 0
	}
	if len(samples) == 0 {
		return 0
	}

	oldest := samples[0].Value
	if oldest == 0 || oldest == current {
		return 0
	}
	return round2(float64(current-oldest) / float64(oldest) * 100)
}

// RevenueTrend returns exactly trendMonths values, oldest first, covering
// the trailing calendar months of the account-wide revenue series. Months
// with samples contribute their average; gaps are interpolated between the
// nearest known months by elapsed time, or carried from the single known
// neighbour at the edges. With no history at all the trend is synthesized.
func (s *AnalyticsService) RevenueTrend(ctx context.Context, userID string, currentRevenue float64) []float64 {
	now := s.now().UTC()
	start := monthStart(now).AddDate(0, -(s.trendMonths - 1), 0)

	var samples []domain.MetricSample
	if userID != "" {
		var err error
		samples, err = s.history.Window(ctx, domain.TotalRevenueKey(userID), start)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Trend lookup failed, synthesizing")
			samples = nil
		}
	}
	if len(samples) == 0 {
		return s.synthesizeTrend(currentRevenue)
	}

	type bucket struct {
		sum float64
		n   int
	}
	byMonth := make(map[time.Time]*bucket)
	for _, sample := range samples {
		m := monthStart(sample.RecordedAt.UTC())
		if m.Before(start) {
			continue
		}
		b := byMonth[m]
		if b == nil {
			b = &bucket{}
			byMonth[m] = b
		}
		b.sum += float64(sample.Value)
		b.n++
	}

	values := make([]float64, s.trendMonths)
	known := make([]bool, s.trendMonths)
	for i := range values {
		if b := byMonth[start.AddDate(0, i, 0)]; b != nil {
			values[i] = b.sum / float64(b.n)
			known[i] = true
		}
	}

	fillTrendGaps(values, known, start)

	for i := range values {
		values[i] = round2(values[i])
	}
	return values
}

// fillTrendGaps interpolates missing months in place. Interior gaps are
// weighted by elapsed time between the neighbouring month midpoints; edge
// gaps carry the nearest known value.
func fillTrendGaps(values []float64, known []bool, start time.Time) {
	midpoint := func(i int) time.Time {
		m := start.AddDate(0, i, 0)
		next := m.AddDate(0, 1, 0)
		return m.Add(next.Sub(m) / 2)
	}

	for i := range values {
		if known[i] {
			continue
		}

		prev, next := -1, -1
		for j := i - 1; j >= 0; j-- {
			if known[j] {
				prev = j
				break
			}
		}
		for j := i + 1; j < len(values); j++ {
			if known[j] {
				next = j
				break
			}
		}

		switch {
		case prev >= 0 && next >= 0:
			span := midpoint(next).Sub(midpoint(prev))
			elapsed := midpoint(i).Sub(midpoint(prev))
			w := float64(elapsed) / float64(span)
			values[i] = values[prev] + (values[next]-values[prev])*w
		case prev >= 0:
			values[i] = values[prev]
		case next >= 0:
			values[i] = values[next]
		}
	}
}

// synthesizeTrend fabricates a plausible chart for accounts without
// history: start at 85% of current, jitter each step by 95%-105%, clamp to
// the 60%-120% band, and land exactly on the current value.
func (s *AnalyticsService) synthesizeTrend(current float64) []float64 {
	out := make([]float64, s.trendMonths)
	if current == 0 {
		return out
	}

	lo, hi := 0.60*current, 1.20*current
	v := clamp(0.85*current, lo, hi)
	out[0] = round2(v)
	for i := 1; i < s.trendMonths-1; i++ {
		v = clamp(v*(0.95+s.rng.Float64()*0.10), lo, hi)
		out[i] = round2(v)
	}
	out[s.trendMonths-1] = current
	return out
}

// BuildReport combines per-platform snapshots into one account report.
// When total revenue is positive it also appends a total-revenue sample so
// future trend calls have history; that write is best-effort and never
// fails the report.
func (s *AnalyticsService) BuildReport(ctx context.Context, snapshots []*domain.PlatformSnapshot, userID string) *domain.AnalyticsReport {
	var totalRevenue, growthSum float64
	var growthCount int
	for _, snap := range snapshots {
		totalRevenue += snap.Revenue
		if snap.Growth > 0 {
			growthSum += snap.Growth
			growthCount++
		}
	}

	var totalGrowth float64
	if growthCount > 0 {
		totalGrowth = round2(growthSum / float64(growthCount))
	}

	if totalRevenue > 0 && userID != "" {
		sample := &domain.MetricSample{
			UserID:     userID,
			Platform:   domain.PlatformAll,
			Identifier: domain.IdentifierTotal,
			Metric:     domain.MetricRevenue,
			Value:      int64(math.Round(totalRevenue)),
		}
		if err := s.history.Append(ctx, sample); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to record total revenue sample")
		}
	}

	// Revenue share is the breakdown basis; accounts without revenue fall
	// back to audience share.
	basis := func(snap *domain.PlatformSnapshot) float64 {
		if totalRevenue > 0 {
			return snap.Revenue
		}
		return float64(snap.Audience())
	}

	var totalBasis float64
	for _, snap := range snapshots {
		totalBasis += basis(snap)
	}

	breakdown := make([]domain.PlatformShare, 0, len(snapshots))
	var topPlatform string
	var topBasis float64
	for _, snap := range snapshots {
		b := basis(snap)
		var pct float64
		if totalBasis > 0 {
			pct = round2(b / totalBasis * 100)
		}
		breakdown = append(breakdown, domain.PlatformShare{Platform: snap.Platform, Percentage: pct})

		if topPlatform == "" || b > topBasis {
			topPlatform = snap.Platform
			topBasis = b
		}
	}

	metrics.ReportsBuiltTotal.Inc()
	return &domain.AnalyticsReport{
		TotalRevenue:      round2(totalRevenue),
		TotalGrowth:       totalGrowth,
		TopPlatform:       topPlatform,
		MonthlyTrend:      s.RevenueTrend(ctx, userID, totalRevenue),
		PlatformBreakdown: breakdown,
		Platforms:         snapshots,
		GeneratedAt:       s.now().UTC(),
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
