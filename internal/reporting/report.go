package reporting

import (
	"time"

	"harvest-reports/internal/domain"
)

// Report is the rendered view of cumulative state, consumed by the email
// and charting collaborators.
type Report struct {
	GeneratedAt time.Time
	VendorID    string

	Apps []AppReport

	// NewData is present when the report follows a harvest run.
	NewData *NewDataSummary
}

// Totals holds cumulative counters folded over all versions of an app.
type Totals struct {
	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64
}

// AppReport is the per-app section of the report.
type AppReport struct {
	App    string
	Totals Totals

	LatestVersion     string
	UsersOnLatest     int64
	LegacyUserPercent float64
	LegacyDefined     bool

	AverageRating float64
	RatingDefined bool
	RatingCount   int64

	Versions  []VersionRow
	Retention []RetentionRow

	// Window holds the trailing-window trend series the charting
	// collaborator consumes.
	Window []*domain.TimeSeriesPoint

	// GeoAll covers the full history; GeoLatest only the most recently
	// ingested batch of dates. Both map country -> installs.
	GeoAll    map[string]int64
	GeoLatest map[string]int64
}

// VersionRow is one version's cumulative counters, in release order.
type VersionRow struct {
	Version          string
	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64

	AverageRating float64
	RatingDefined bool
	RatingCount   int64
}

// RetentionRow is one consecutive-version retention edge. Undefined rows
// mean the prior version never had users, distinct from zero retention.
type RetentionRow struct {
	FromVersion string
	ToVersion   string
	Percent     float64
	Defined     bool
}

// NewDataSummary carries what the last run changed; the email collaborator
// fires only when HasNewData is true.
type NewDataSummary struct {
	HasNewData bool
	Start      domain.Date
	End        domain.Date

	IngestedDates []domain.Date
	FilledDates   []domain.Date

	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64
	Ratings          int
}
