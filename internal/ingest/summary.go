package ingest

import (
	"harvest-reports/internal/domain"
)

// AppActivity totals newly ingested activity for one app across a run.
type AppActivity struct {
	Installs         int64
	PaidInstalls     int64
	FreeInstalls     int64
	Upgrades         int64
	PromoRedemptions int64
	Proceeds         float64
}

// DayFailure records a report day that failed ingestion. Prior dates'
// committed state is untouched by the failure.
type DayFailure struct {
	Date domain.Date
	Err  error
}

// RunSummary describes what one harvest run changed. The email collaborator
// fires on HasNewData.
type RunSummary struct {
	VendorID string
	Start    domain.Date // first date the run considered
	End      domain.Date // last date the run considered

	Ingested    []domain.Date
	Overwritten []domain.Date
	Filled      []domain.Date
	Skipped     []domain.Date
	Failed      []DayFailure

	NewInstalls         int64
	NewPaidInstalls     int64
	NewFreeInstalls     int64
	NewUpgrades         int64
	NewPromoRedemptions int64
	NewProceeds         float64
	NewRatings          int

	ByApp map[string]*AppActivity
}

func newRunSummary(vendorID string, start, end domain.Date) *RunSummary {
	return &RunSummary{
		VendorID: vendorID,
		Start:    start,
		End:      end,
		ByApp:    make(map[string]*AppActivity),
	}
}

// HasNewData reports whether the run ingested any new report dates.
func (s *RunSummary) HasNewData() bool {
	return len(s.Ingested) > 0 || len(s.Overwritten) > 0
}

// accumulate folds one day's applied deltas into the run totals.
func (s *RunSummary) accumulate(deltas []*domain.DailyDelta) {
	for _, d := range deltas {
		s.NewInstalls += d.Installs
		s.NewPaidInstalls += d.PaidInstalls
		s.NewFreeInstalls += d.FreeInstalls
		s.NewUpgrades += d.Upgrades
		s.NewPromoRedemptions += d.PromoRedemptions
		s.NewProceeds += d.Proceeds

		app, ok := s.ByApp[d.App]
		if !ok {
			app = &AppActivity{}
			s.ByApp[d.App] = app
		}
		app.Installs += d.Installs
		app.PaidInstalls += d.PaidInstalls
		app.FreeInstalls += d.FreeInstalls
		app.Upgrades += d.Upgrades
		app.PromoRedemptions += d.PromoRedemptions
		app.Proceeds += d.Proceeds
	}
}
