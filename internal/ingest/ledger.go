package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// ErrAlreadyIngested rejects admission of a report date that is already in
// the ledger without overwrite intent. Non-fatal: callers skip the date.
var ErrAlreadyIngested = errors.New("report date already ingested")

// Ledger is the admission gate over the ledger store. It decides whether a
// report day's records may reach the aggregator and records placeholder
// entries for days without a report.
type Ledger struct {
	store storage.LedgerStore
	now   func() time.Time
}

// NewLedger creates a ledger over the given store.
func NewLedger(store storage.LedgerStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// IsIngested reports whether a date already has a ledger entry (real or
// filler).
func (l *Ledger) IsIngested(ctx context.Context, date domain.Date) (bool, error) {
	_, err := l.store.Get(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Admit records that a date's batch is entering the aggregator. A date
// already in the ledger is rejected with ErrAlreadyIngested unless intent
// is IntentOverwrite, in which case the entry is replaced. The prior
// entry, if any, is returned so overwrite callers can audit what was
// displaced.
func (l *Ledger) Admit(ctx context.Context, entry *domain.LedgerEntry, intent Intent) (*domain.LedgerEntry, error) {
	prior, err := l.store.Get(ctx, entry.Date)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check ledger for %s: %w", entry.Date, err)
	}

	entry.IngestedAt = l.now().UnixMilli()

	if prior == nil {
		if err := l.store.Put(ctx, entry); err != nil {
			return nil, fmt.Errorf("admit %s: %w", entry.Date, err)
		}
		return nil, nil
	}

	if intent != IntentOverwrite {
		return prior, fmt.Errorf("admit %s: %w", entry.Date, ErrAlreadyIngested)
	}
	if err := l.store.Replace(ctx, entry); err != nil {
		return prior, fmt.Errorf("overwrite %s: %w", entry.Date, err)
	}
	return prior, nil
}

// FillGap records a zero-activity placeholder for a date with no report,
// keeping day sequences hole-free. Filling an already present date is a
// no-op.
func (l *Ledger) FillGap(ctx context.Context, date domain.Date) (*domain.LedgerEntry, error) {
	ingested, err := l.IsIngested(ctx, date)
	if err != nil {
		return nil, err
	}
	if ingested {
		return nil, nil
	}

	entry := &domain.LedgerEntry{
		Date:       date,
		Filler:     true,
		IngestedAt: l.now().UnixMilli(),
	}
	if err := l.store.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("fill gap %s: %w", date, err)
	}
	return entry, nil
}

// Dates returns all ledger dates in ascending order.
func (l *Ledger) Dates(ctx context.Context) ([]domain.Date, error) {
	entries, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}

	dates := make([]domain.Date, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	return dates, nil
}

// Last returns the most recent ledger entry, or nil when the ledger is
// empty.
func (l *Ledger) Last(ctx context.Context) (*domain.LedgerEntry, error) {
	entry, err := l.store.Last(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
