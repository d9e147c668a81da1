package metrics

import (
	"fmt"
	"sort"

	"harvest-reports/internal/domain"
)

// DataIntegrityError reports a record whose values contradict cumulative
// semantics. The whole report-day batch carrying the record is rejected;
// nothing is partially applied.
type DataIntegrityError struct {
	Date   domain.Date
	App    string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation for %s on %s: %s", e.App, e.Date, e.Reason)
}

// BuildDayDeltas folds one report day's records into per (app, version,
// country) deltas. Pure: no store access. Records carrying negative units
// or proceeds, or a date other than the batch date, fail the whole batch
// with a *DataIntegrityError.
func BuildDayDeltas(date domain.Date, records []*domain.SaleRecord) ([]*domain.DailyDelta, error) {
	byKey := make(map[string]*domain.DailyDelta)

	for _, r := range records {
		if err := checkRecord(date, r); err != nil {
			return nil, err
		}

		key := fmt.Sprintf("%s|%s|%s", r.App, r.Version, r.Country)
		delta, ok := byKey[key]
		if !ok {
			delta = &domain.DailyDelta{
				Date:    date,
				App:     r.App,
				Version: r.Version,
				Country: r.Country,
			}
			byKey[key] = delta
		}

		delta.Add(recordDelta(r))
	}

	deltas := make([]*domain.DailyDelta, 0, len(byKey))
	for _, d := range byKey {
		deltas = append(deltas, d)
	}
	sortDeltas(deltas)
	return deltas, nil
}

func checkRecord(date domain.Date, r *domain.SaleRecord) error {
	if r.Units < 0 {
		return &DataIntegrityError{Date: date, App: r.App, Reason: fmt.Sprintf("negative units %d", r.Units)}
	}
	if r.UnitProceeds < 0 {
		return &DataIntegrityError{Date: date, App: r.App, Reason: fmt.Sprintf("negative proceeds %f", r.UnitProceeds)}
	}
	if r.Date != date {
		return &DataIntegrityError{Date: date, App: r.App, Reason: fmt.Sprintf("record dated %s in batch for %s", r.Date, date)}
	}
	return nil
}

// recordDelta maps one record to its delta contribution. Promo redemptions
// count as installs with the promo counter incremented alongside.
func recordDelta(r *domain.SaleRecord) *domain.DailyDelta {
	d := &domain.DailyDelta{Proceeds: r.Proceeds()}

	switch r.Type {
	case domain.TxUpgrade:
		d.Upgrades = r.Units
	case domain.TxPromoCode:
		d.Installs = r.Units
		d.PromoRedemptions = r.Units
	default:
		d.Installs = r.Units
	}

	if d.Installs > 0 {
		if r.Paid() {
			d.PaidInstalls = d.Installs
		} else {
			d.FreeInstalls = d.Installs
		}
	}
	return d
}

// sortDeltas orders deltas by (app, version, country) for deterministic
// store writes and hashes.
func sortDeltas(deltas []*domain.DailyDelta) {
	sort.Slice(deltas, func(i, j int) bool {
		a, b := deltas[i], deltas[j]
		if a.App != b.App {
			return a.App < b.App
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Country < b.Country
	})
}
