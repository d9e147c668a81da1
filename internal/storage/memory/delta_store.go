package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// DeltaStore is an in-memory implementation of storage.DeltaStore.
type DeltaStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyDelta // keyed by composite key
}

// NewDeltaStore creates a new in-memory delta store.
func NewDeltaStore() *DeltaStore {
	return &DeltaStore{
		data: make(map[string]*domain.DailyDelta),
	}
}

// Compile-time interface check.
var _ storage.DeltaStore = (*DeltaStore)(nil)

// deltaKey generates a unique key for a delta row.
func deltaKey(d *domain.DailyDelta) string {
	return fmt.Sprintf("%s|%s|%s|%s", d.Date, d.App, d.Version, d.Country)
}

// InsertBulk adds a day's delta rows. Fails entire batch on any duplicate.
func (s *DeltaStore) InsertBulk(_ context.Context, deltas []*domain.DailyDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(deltas))

	// First pass: check for duplicates (existing + intra-batch)
	for _, d := range deltas {
		if d == nil || d.App == "" || d.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := deltaKey(d)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, d := range deltas {
		copy := *d
		s.data[deltaKey(d)] = &copy
	}

	return nil
}

// GetByDate returns all rows for a date.
func (s *DeltaStore) GetByDate(_ context.Context, date domain.Date) ([]*domain.DailyDelta, error) {
	if date.IsZero() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyDelta
	for _, d := range s.data {
		if d.Date == date {
			copy := *d
			result = append(result, &copy)
		}
	}

	sortDeltas(result)
	return result, nil
}

// GetByApp returns all rows for an app ordered by date ASC.
func (s *DeltaStore) GetByApp(_ context.Context, app string) ([]*domain.DailyDelta, error) {
	if app == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyDelta
	for _, d := range s.data {
		if d.App == app {
			copy := *d
			result = append(result, &copy)
		}
	}

	sortDeltas(result)
	return result, nil
}

// DeleteByDate removes all rows for a date.
func (s *DeltaStore) DeleteByDate(_ context.Context, date domain.Date) error {
	if date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, d := range s.data {
		if d.Date == date {
			delete(s.data, key)
		}
	}
	return nil
}

// Dates returns every date with at least one row, sorted ASC.
func (s *DeltaStore) Dates(_ context.Context) ([]domain.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.Date]struct{})
	for _, d := range s.data {
		seen[d.Date] = struct{}{}
	}

	dates := make([]domain.Date, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates, nil
}

// sortDeltas orders rows by (date, app, version, country) for deterministic
// reads.
func sortDeltas(deltas []*domain.DailyDelta) {
	sort.Slice(deltas, func(i, j int) bool {
		a, b := deltas[i], deltas[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.App != b.App {
			return a.App < b.App
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Country < b.Country
	})
}
