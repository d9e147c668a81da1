// Package timeseries builds date-indexed views over the append-only delta
// history: trailing day windows for trend charts and geographic snapshots.
package timeseries

import (
	"context"
	"fmt"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// DefaultWindowDays is the trailing window used by trend charts.
const DefaultWindowDays = 30

// Builder folds delta history into consumer views. History is append-only
// and never mutated, so every view is a pure fold.
type Builder struct {
	deltaStore storage.DeltaStore
}

// NewBuilder creates a builder over the delta store.
func NewBuilder(deltaStore storage.DeltaStore) *Builder {
	return &Builder{deltaStore: deltaStore}
}

// Window returns one point per calendar day for the trailing window ending
// at end, inclusive. Days without activity (filler or never ingested)
// appear with all deltas zero, so the sequence has no holes. A non-positive
// days falls back to DefaultWindowDays.
func (b *Builder) Window(ctx context.Context, app string, end domain.Date, days int) ([]*domain.TimeSeriesPoint, error) {
	if end.IsZero() {
		return nil, fmt.Errorf("window end date: %w", storage.ErrInvalidInput)
	}
	if days <= 0 {
		days = DefaultWindowDays
	}
	start := end.AddDays(-(days - 1))

	deltas, err := b.deltaStore.GetByApp(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("load delta history for %s: %w", app, err)
	}

	byDate := make(map[domain.Date]*domain.TimeSeriesPoint)
	for _, d := range deltas {
		if d.Date.Before(start) || d.Date.After(end) {
			continue
		}
		point, ok := byDate[d.Date]
		if !ok {
			point = newPoint(app, d.Date)
			byDate[d.Date] = point
		}
		foldDelta(point, d)
	}

	points := make([]*domain.TimeSeriesPoint, 0, days)
	for date := start; !date.After(end); date = date.AddDays(1) {
		point, ok := byDate[date]
		if !ok {
			point = newPoint(app, date)
		}
		points = append(points, point)
	}
	return points, nil
}

// GeoHistory returns country -> cumulative installs over the app's full
// delta history.
func (b *Builder) GeoHistory(ctx context.Context, app string) (map[string]int64, error) {
	deltas, err := b.deltaStore.GetByApp(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("load delta history for %s: %w", app, err)
	}
	return geoFold(deltas, nil), nil
}

// GeoForDates returns country -> installs restricted to an explicit date
// set, typically the most recently ingested batch of dates.
func (b *Builder) GeoForDates(ctx context.Context, app string, dates []domain.Date) (map[string]int64, error) {
	deltas, err := b.deltaStore.GetByApp(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("load delta history for %s: %w", app, err)
	}

	include := make(map[domain.Date]struct{}, len(dates))
	for _, d := range dates {
		include[d] = struct{}{}
	}
	return geoFold(deltas, include), nil
}

func newPoint(app string, date domain.Date) *domain.TimeSeriesPoint {
	return &domain.TimeSeriesPoint{
		App:       app,
		Date:      date,
		Countries: make(map[string]int64),
	}
}

func foldDelta(point *domain.TimeSeriesPoint, d *domain.DailyDelta) {
	point.Installs += d.Installs
	point.PaidInstalls += d.PaidInstalls
	point.FreeInstalls += d.FreeInstalls
	point.Upgrades += d.Upgrades
	point.PromoRedemptions += d.PromoRedemptions
	point.Proceeds += d.Proceeds
	if d.Installs > 0 {
		point.Countries[d.Country] += d.Installs
	}
}

// geoFold sums installs per country; include == nil means all dates.
func geoFold(deltas []*domain.DailyDelta, include map[domain.Date]struct{}) map[string]int64 {
	geo := make(map[string]int64)
	for _, d := range deltas {
		if include != nil {
			if _, ok := include[d.Date]; !ok {
				continue
			}
		}
		if d.Installs > 0 {
			geo[d.Country] += d.Installs
		}
	}
	return geo
}
