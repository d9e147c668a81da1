package metrics

import (
	"context"
	"fmt"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// Aggregator applies report-day batches to cumulative state and reverses
// them during overwrites. Callers must apply dates in ascending order;
// retention and latest-version projections depend on temporal ordering of
// cumulative state.
type Aggregator struct {
	metricsStore storage.MetricsStore
	deltaStore   storage.DeltaStore
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(metricsStore storage.MetricsStore, deltaStore storage.DeltaStore) *Aggregator {
	return &Aggregator{
		metricsStore: metricsStore,
		deltaStore:   deltaStore,
	}
}

// ApplyDay folds one day's records into deltas and applies them. Returns
// the applied deltas for summary reporting.
func (a *Aggregator) ApplyDay(ctx context.Context, date domain.Date, records []*domain.SaleRecord) ([]*domain.DailyDelta, error) {
	deltas, err := BuildDayDeltas(date, records)
	if err != nil {
		return nil, err
	}
	if err := a.ApplyDeltas(ctx, date, deltas); err != nil {
		return nil, err
	}
	return deltas, nil
}

// ApplyDeltas applies pre-built deltas for a date: delta history first,
// then cumulative counters, then the last-applied marker.
func (a *Aggregator) ApplyDeltas(ctx context.Context, date domain.Date, deltas []*domain.DailyDelta) error {
	if err := a.deltaStore.InsertBulk(ctx, deltas); err != nil {
		return fmt.Errorf("insert deltas for %s: %w", date, err)
	}
	if err := a.metricsStore.Apply(ctx, deltas); err != nil {
		return fmt.Errorf("apply deltas for %s: %w", date, err)
	}
	if err := a.metricsStore.SetLastApplied(ctx, date); err != nil {
		return fmt.Errorf("set last applied %s: %w", date, err)
	}
	return nil
}

// ReverseDay subtracts a previously applied date's recorded deltas and
// drops them from history, making the date re-admittable for overwrite.
func (a *Aggregator) ReverseDay(ctx context.Context, date domain.Date) error {
	deltas, err := a.deltaStore.GetByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load deltas for %s: %w", date, err)
	}

	if err := a.metricsStore.Reverse(ctx, deltas); err != nil {
		return fmt.Errorf("reverse deltas for %s: %w", date, err)
	}
	if err := a.deltaStore.DeleteByDate(ctx, date); err != nil {
		return fmt.Errorf("delete deltas for %s: %w", date, err)
	}
	return nil
}

// LatestVersion returns the highest version of an app with nonzero
// cumulative installs+upgrades. Returns storage.ErrNotFound when the app
// has no version with users.
func (a *Aggregator) LatestVersion(ctx context.Context, app string) (string, error) {
	rows, err := a.metricsStore.ListByApp(ctx, app)
	if err != nil {
		return "", err
	}

	latest := ""
	found := false
	for _, row := range rows {
		if row.Version == "" || row.Installs+row.Upgrades == 0 {
			continue
		}
		if !found || domain.CompareVersions(row.Version, latest) > 0 {
			latest = row.Version
			found = true
		}
	}
	if !found {
		return "", storage.ErrNotFound
	}
	return latest, nil
}

// UsersOnLatest returns the latest version and its user count
// (installs+upgrades of that version only).
func (a *Aggregator) UsersOnLatest(ctx context.Context, app string) (string, int64, error) {
	latest, err := a.LatestVersion(ctx, app)
	if err != nil {
		return "", 0, err
	}

	row, err := a.metricsStore.Get(ctx, app, latest)
	if err != nil {
		return "", 0, err
	}
	return latest, row.Installs + row.Upgrades, nil
}

// LegacyUserPercent returns the share of an app's install base not on the
// latest version, in [0, 100]. The second return is false when the app has
// no installs at all.
func (a *Aggregator) LegacyUserPercent(ctx context.Context, app string) (float64, bool, error) {
	rows, err := a.metricsStore.ListByApp(ctx, app)
	if err != nil {
		return 0, false, err
	}

	var totalInstalls int64
	for _, row := range rows {
		totalInstalls += row.Installs
	}
	if totalInstalls == 0 {
		return 0, false, nil
	}

	_, onLatest, err := a.UsersOnLatest(ctx, app)
	if err != nil {
		return 0, false, err
	}

	legacy := totalInstalls - onLatest
	if legacy < 0 {
		legacy = 0
	}
	return float64(legacy) / float64(totalInstalls) * 100, true, nil
}
