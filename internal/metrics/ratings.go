package metrics

import (
	"context"
	"errors"
	"fmt"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// RatingsAggregator folds rating feed events into per-app and per
// (app, version) rating sums and counts. Ratings only ingest in lock-step
// with a newly ingested sales day or an explicit filler day, so snapshots
// stay aligned with a known report date; the ingest manager enforces that
// ordering.
type RatingsAggregator struct {
	metricsStore storage.MetricsStore
}

// NewRatingsAggregator creates a ratings aggregator over the store.
func NewRatingsAggregator(metricsStore storage.MetricsStore) *RatingsAggregator {
	return &RatingsAggregator{metricsStore: metricsStore}
}

// Ingest applies the events passing the filter, returning how many were
// applied. Events with an out-of-range rating fail the whole batch.
func (r *RatingsAggregator) Ingest(ctx context.Context, events []*domain.RatingEvent, filter *domain.Filter) (int, error) {
	accepted := make([]*domain.RatingEvent, 0, len(events))
	for _, e := range events {
		if !e.Valid() {
			return 0, fmt.Errorf("rating event for %s: %w", e.App, storage.ErrInvalidInput)
		}
		if !filter.MatchApp(e.App) || !filter.MatchCountry(e.Country) {
			continue
		}
		accepted = append(accepted, e)
	}

	if len(accepted) == 0 {
		return 0, nil
	}
	if err := r.metricsStore.AddRatings(ctx, accepted); err != nil {
		return 0, fmt.Errorf("add ratings: %w", err)
	}
	return len(accepted), nil
}

// Average returns the mean rating for (app, version) and whether it is
// defined. Version "" addresses the app-wide unattributed bucket.
func (r *RatingsAggregator) Average(ctx context.Context, app, version string) (float64, bool, error) {
	row, err := r.metricsStore.Get(ctx, app, version)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	avg, defined := row.AverageRating()
	return avg, defined, nil
}

// AppAverage returns the mean rating across all of an app's rows, defined
// only when at least one rating has been recorded.
func (r *RatingsAggregator) AppAverage(ctx context.Context, app string) (float64, bool, error) {
	rows, err := r.metricsStore.ListByApp(ctx, app)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	var sum, count int64
	for _, row := range rows {
		sum += row.RatingSum
		count += row.RatingCount
	}
	if count == 0 {
		return 0, false, nil
	}
	return float64(sum) / float64(count), true, nil
}
