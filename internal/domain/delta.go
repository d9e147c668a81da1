package domain

// DailyDelta is the contribution of one report day to the cumulative
// counters, at the finest grain the engine tracks: (date, app, version,
// country). Deltas are append-only history; the same rows that feed the
// time-series views also serve as the reversal record when a date is
// re-ingested with overwrite.
type DailyDelta struct {
	Date    Date
	App     string
	Version string
	Country string

	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64
}

// Add accumulates another delta with the same key into d.
func (d *DailyDelta) Add(o *DailyDelta) {
	d.Installs += o.Installs
	d.PaidInstalls += o.PaidInstalls
	d.FreeInstalls += o.FreeInstalls
	d.Upgrades += o.Upgrades
	d.PromoRedemptions += o.PromoRedemptions
	d.Proceeds += o.Proceeds
}

// TimeSeriesPoint is one day of an app's activity, folded over all versions
// and countries, with the geographic breakdown kept per country.
// Points form an append-only sequence ordered by date; filler days appear
// with all deltas zero.
type TimeSeriesPoint struct {
	App  string
	Date Date

	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64

	Countries map[string]int64 // country code -> installs that day
}

// LedgerEntry records that a report day has been ingested (or explicitly
// filled as a zero-activity gap day). The content hash identifies the exact
// batch that was applied, so overwrites are auditable.
type LedgerEntry struct {
	Date        Date
	ContentHash string // base58 sha256 of the day's record batch, "" for filler
	RecordCount int
	Filler      bool  // true for synthesized zero-activity days
	IngestedAt  int64 // Unix timestamp in milliseconds
}
