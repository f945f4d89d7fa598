package domain

import "time"

// Metric names recorded per platform snapshot.
const (
	MetricSubscribers = "subscribers"
	MetricFollowers   = "followers"
	MetricViews       = "views"
	MetricRevenue     = "revenue"
)

// Pseudo-key used for account-wide aggregates, e.g. the total revenue series
// that feeds the monthly trend.
const (
	PlatformAll     = "all"
	IdentifierTotal = "total"
)

// MetricSample is one append-only time-series point for a named metric.
type MetricSample struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	Platform   string    `bson:"platform" json:"platform"`
	Identifier string    `bson:"identifier" json:"identifier"`
	Metric     string    `bson:"metric" json:"metric"`
	Value      int64     `bson:"value" json:"value"`
	RecordedAt time.Time `bson:"recorded_at" json:"recorded_at"`
}

// MetricKey addresses one time series in the history store.
type MetricKey struct {
	UserID     string
	Platform   string
	Identifier string
	Metric     string
}

// TotalRevenueKey is the series BuildReport appends to and RevenueTrend reads.
func TotalRevenueKey(userID string) MetricKey {
	return MetricKey{
		UserID:     userID,
		Platform:   PlatformAll,
		Identifier: IdentifierTotal,
		Metric:     MetricRevenue,
	}
}
