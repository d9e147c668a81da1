package domain

import "fmt"

// AppVersionMetrics holds cumulative counters for one (app, version) pair.
// Owned exclusively by the metrics store; mutated only through additive
// deltas (reversal of a date's recorded deltas is the one sanctioned
// subtraction, during an explicit overwrite).
//
// Rating counters for events without a known version live on the row with
// Version == "".
type AppVersionMetrics struct {
	App     string
	Version string

	Installs         int64 // all installs (paid + free + promo)
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64

	RatingSum   int64
	RatingCount int64
}

// Key returns the composite store key for the row.
func (m *AppVersionMetrics) Key() string {
	return MetricsKey(m.App, m.Version)
}

// MetricsKey builds the composite key for an (app, version) pair.
func MetricsKey(app, version string) string {
	return fmt.Sprintf("%s|%s", app, version)
}

// AverageRating returns the mean rating and whether it is defined.
// A zero count yields (0, false): "no ratings" is not a zero rating.
func (m *AppVersionMetrics) AverageRating() (float64, bool) {
	if m.RatingCount == 0 {
		return 0, false
	}
	return float64(m.RatingSum) / float64(m.RatingCount), true
}

// RetentionEdge is the derived version-to-version retention for an app:
// the share of FromVersion's user base that upgraded into ToVersion.
// Recomputed on demand from cumulative counters, never persisted.
type RetentionEdge struct {
	App         string
	FromVersion string
	ToVersion   string
	Percent     float64 // in [0, 100], meaningful only when Defined
	Defined     bool    // false when FromVersion never had users
}
