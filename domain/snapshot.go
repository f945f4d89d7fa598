package domain

import "time"

// PlatformSnapshot is the set of metrics fetched (or cached) for one
// platform account at one point in time. A failed fetch is represented by a
// snapshot with every numeric field at zero and Error populated, so batch
// callers always receive one snapshot per requested platform.
type PlatformSnapshot struct {
	Platform    string    `json:"platform"`
	Identifier  string    `json:"identifier"`
	DisplayName string    `json:"display_name,omitempty"`
	Followers   int64     `json:"followers"`
	Subscribers int64     `json:"subscribers"`
	Views       int64     `json:"views"`
	Revenue     float64   `json:"revenue"`
	Growth      float64   `json:"growth"`
	Error       string    `json:"error,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Failed reports whether this snapshot is a fallback for a failed fetch.
func (s *PlatformSnapshot) Failed() bool {
	return s.Error != ""
}

// Audience is the follower+subscriber count, the breakdown basis when the
// account has no revenue yet.
func (s *PlatformSnapshot) Audience() int64 {
	return s.Followers + s.Subscribers
}

// StatsRequest names one platform account to fetch in a batch.
type StatsRequest struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
}

// PlatformShare is one slice of the revenue (or audience) breakdown.
type PlatformShare struct {
	Platform   string  `json:"platform"`
	Percentage float64 `json:"percentage"`
}

// AnalyticsReport is the derived cross-platform report. It is recomputed on
// demand and never persisted beyond the metric samples that back it.
type AnalyticsReport struct {
	TotalRevenue      float64             `json:"total_revenue"`
	TotalGrowth       float64             `json:"total_growth"`
	TopPlatform       string              `json:"top_platform"`
	MonthlyTrend      []float64           `json:"monthly_trend"`
	PlatformBreakdown []PlatformShare     `json:"platform_breakdown"`
	Platforms         []*PlatformSnapshot `json:"platforms"`
	GeneratedAt       time.Time           `json:"generated_at"`
}
