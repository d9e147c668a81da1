package memory

import (
	"context"
	"sort"
	"sync"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// MetricsStore is an in-memory implementation of storage.MetricsStore.
type MetricsStore struct {
	mu          sync.RWMutex
	rows        map[string]*domain.AppVersionMetrics // keyed by app|version
	lastApplied domain.Date
}

// NewMetricsStore creates a new in-memory metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		rows: make(map[string]*domain.AppVersionMetrics),
	}
}

// Compile-time interface check.
var _ storage.MetricsStore = (*MetricsStore)(nil)

// Get retrieves the row for (app, version). Returns ErrNotFound if absent.
func (s *MetricsStore) Get(_ context.Context, app, version string) (*domain.AppVersionMetrics, error) {
	if app == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[domain.MetricsKey(app, version)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *row
	return &copy, nil
}

// Apply adds the deltas to the cumulative counters, creating rows as needed.
func (s *MetricsStore) Apply(_ context.Context, deltas []*domain.DailyDelta) error {
	if err := validateDeltas(deltas); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deltas {
		row := s.row(d.App, d.Version)
		row.Installs += d.Installs
		row.PaidInstalls += d.PaidInstalls
		row.FreeInstalls += d.FreeInstalls
		row.Upgrades += d.Upgrades
		row.PromoRedemptions += d.PromoRedemptions
		row.Proceeds += d.Proceeds
	}
	return nil
}

// Reverse subtracts previously applied deltas (overwrite reversal).
func (s *MetricsStore) Reverse(_ context.Context, deltas []*domain.DailyDelta) error {
	if err := validateDeltas(deltas); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deltas {
		row := s.row(d.App, d.Version)
		row.Installs -= d.Installs
		row.PaidInstalls -= d.PaidInstalls
		row.FreeInstalls -= d.FreeInstalls
		row.Upgrades -= d.Upgrades
		row.PromoRedemptions -= d.PromoRedemptions
		row.Proceeds -= d.Proceeds
	}
	return nil
}

// AddRatings folds rating events into the rating sum/count of their rows.
func (s *MetricsStore) AddRatings(_ context.Context, events []*domain.RatingEvent) error {
	for _, e := range events {
		if e == nil || e.App == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		row := s.row(e.App, e.Version)
		row.RatingSum += int64(e.Rating)
		row.RatingCount++
	}
	return nil
}

// ListByApp returns all version rows for an app.
func (s *MetricsStore) ListByApp(_ context.Context, app string) ([]*domain.AppVersionMetrics, error) {
	if app == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AppVersionMetrics
	for _, row := range s.rows {
		if row.App == app {
			copy := *row
			result = append(result, &copy)
		}
	}
	return result, nil
}

// Apps returns all app identifiers with at least one row, sorted ASC.
func (s *MetricsStore) Apps(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, row := range s.rows {
		seen[row.App] = struct{}{}
	}

	apps := make([]string, 0, len(seen))
	for app := range seen {
		apps = append(apps, app)
	}
	sort.Strings(apps)
	return apps, nil
}

// LastApplied returns the most recent fully applied report date.
func (s *MetricsStore) LastApplied(_ context.Context) (domain.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastApplied.IsZero() {
		return domain.Date{}, storage.ErrNotFound
	}
	return s.lastApplied, nil
}

// SetLastApplied records the last fully applied report date. The marker
// only advances.
func (s *MetricsStore) SetLastApplied(_ context.Context, date domain.Date) error {
	if date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if date.After(s.lastApplied) {
		s.lastApplied = date
	}
	return nil
}

// row returns the row for (app, version), creating it when missing.
// Caller must hold the write lock.
func (s *MetricsStore) row(app, version string) *domain.AppVersionMetrics {
	key := domain.MetricsKey(app, version)
	row, ok := s.rows[key]
	if !ok {
		row = &domain.AppVersionMetrics{App: app, Version: version}
		s.rows[key] = row
	}
	return row
}

func validateDeltas(deltas []*domain.DailyDelta) error {
	for _, d := range deltas {
		if d == nil || d.App == "" || d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}
	return nil
}
