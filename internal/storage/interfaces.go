package storage

import (
	"context"

	"harvest-reports/internal/domain"
)

// LedgerStore persists which report dates have been applied to cumulative
// state. It is the idempotency gate: a date's records may only reach the
// aggregator again after its ledger entry has been explicitly replaced.
type LedgerStore interface {
	// Get retrieves the entry for a date. Returns ErrNotFound if the date
	// has never been ingested or filled.
	Get(ctx context.Context, date domain.Date) (*domain.LedgerEntry, error)

	// Put adds an entry. Returns ErrDuplicateKey if the date already exists.
	Put(ctx context.Context, entry *domain.LedgerEntry) error

	// Replace swaps the entry for an already-ingested date (overwrite flow).
	// Returns ErrNotFound if the date has no prior entry.
	Replace(ctx context.Context, entry *domain.LedgerEntry) error

	// List returns all entries ordered by date ASC.
	List(ctx context.Context) ([]*domain.LedgerEntry, error)

	// Last returns the most recent entry. Returns ErrNotFound when the
	// ledger is empty.
	Last(ctx context.Context) (*domain.LedgerEntry, error)
}

// MetricsStore persists cumulative per-(app, version) counters plus the
// last-applied-date marker used for crash consistency checks. Counters move
// only through Apply (additive) and Reverse (subtracting a date's recorded
// deltas during overwrite).
type MetricsStore interface {
	// Get retrieves the row for (app, version). Returns ErrNotFound if no
	// counter has ever been recorded for the pair.
	Get(ctx context.Context, app, version string) (*domain.AppVersionMetrics, error)

	// Apply adds the deltas to the cumulative counters, creating rows as
	// needed. All rows of one call are applied atomically.
	Apply(ctx context.Context, deltas []*domain.DailyDelta) error

	// Reverse subtracts previously applied deltas (overwrite reversal).
	// All rows of one call are reversed atomically.
	Reverse(ctx context.Context, deltas []*domain.DailyDelta) error

	// AddRatings folds rating events into the rating sum/count of their
	// (app, version) rows; events without a version land on version "".
	AddRatings(ctx context.Context, events []*domain.RatingEvent) error

	// ListByApp returns all version rows for an app, unordered.
	ListByApp(ctx context.Context, app string) ([]*domain.AppVersionMetrics, error)

	// Apps returns all app identifiers with at least one row, sorted ASC.
	Apps(ctx context.Context) ([]string, error)

	// LastApplied returns the most recent report date whose deltas have
	// been fully applied. Returns ErrNotFound before the first apply.
	LastApplied(ctx context.Context) (domain.Date, error)

	// SetLastApplied records the last fully applied report date. The marker
	// only advances: dates earlier than the current marker leave it
	// unchanged, so overwriting an old date never regresses it.
	SetLastApplied(ctx context.Context, date domain.Date) error
}

// DeltaStore persists per-day delta history: the append-only source for
// time-series windows, geographic snapshots, and overwrite reversal.
type DeltaStore interface {
	// InsertBulk adds a day's delta rows. Fails the whole batch with
	// ErrDuplicateKey on any duplicate (date, app, version, country).
	InsertBulk(ctx context.Context, deltas []*domain.DailyDelta) error

	// GetByDate returns all rows for a date.
	GetByDate(ctx context.Context, date domain.Date) ([]*domain.DailyDelta, error)

	// GetByApp returns all rows for an app ordered by date ASC.
	GetByApp(ctx context.Context, app string) ([]*domain.DailyDelta, error)

	// DeleteByDate removes all rows for a date (overwrite reversal).
	DeleteByDate(ctx context.Context, date domain.Date) error

	// Dates returns every date with at least one row, sorted ASC.
	Dates(ctx context.Context) ([]domain.Date, error)
}
