package memory

import (
	"context"
	"sort"
	"sync"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[domain.Date]*domain.LedgerEntry
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		entries: make(map[domain.Date]*domain.LedgerEntry),
	}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// Get retrieves the entry for a date. Returns ErrNotFound if absent.
func (s *LedgerStore) Get(_ context.Context, date domain.Date) (*domain.LedgerEntry, error) {
	if date.IsZero() {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[date]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *entry
	return &copy, nil
}

// Put adds an entry. Returns ErrDuplicateKey if the date already exists.
func (s *LedgerStore) Put(_ context.Context, entry *domain.LedgerEntry) error {
	if entry == nil || entry.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Date]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *entry
	s.entries[entry.Date] = &copy
	return nil
}

// Replace swaps the entry for an already-ingested date.
func (s *LedgerStore) Replace(_ context.Context, entry *domain.LedgerEntry) error {
	if entry == nil || entry.Date.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Date]; !exists {
		return storage.ErrNotFound
	}

	copy := *entry
	s.entries[entry.Date] = &copy
	return nil
}

// List returns all entries ordered by date ASC.
func (s *LedgerStore) List(_ context.Context) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.LedgerEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		copy := *entry
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// Last returns the most recent entry. Returns ErrNotFound when empty.
func (s *LedgerStore) Last(_ context.Context) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *domain.LedgerEntry
	for _, entry := range s.entries {
		if last == nil || entry.Date.After(last.Date) {
			last = entry
		}
	}

	if last == nil {
		return nil, storage.ErrNotFound
	}

	copy := *last
	return &copy, nil
}
