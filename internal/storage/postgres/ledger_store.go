package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// Get retrieves the entry for a date. Returns ErrNotFound if the date has
// never been ingested or filled.
func (s *LedgerStore) Get(ctx context.Context, date domain.Date) (*domain.LedgerEntry, error) {
	query := `
		SELECT report_date, content_hash, record_count, filler, ingested_at
		FROM ingest_ledger
		WHERE report_date = $1
	`

	row := s.pool.QueryRow(ctx, query, date.Time())
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

// Put adds an entry. Returns ErrDuplicateKey if the date already exists.
func (s *LedgerStore) Put(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ingest_ledger (report_date, content_hash, record_count, filler, ingested_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		entry.Date.Time(),
		entry.ContentHash,
		entry.RecordCount,
		entry.Filler,
		entry.IngestedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Replace swaps the entry for an already-ingested date. Returns ErrNotFound
// if the date has no prior entry.
func (s *LedgerStore) Replace(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		UPDATE ingest_ledger
		SET content_hash = $2, record_count = $3, filler = $4, ingested_at = $5
		WHERE report_date = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		entry.Date.Time(),
		entry.ContentHash,
		entry.RecordCount,
		entry.Filler,
		entry.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("replace ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns all entries ordered by date ASC.
func (s *LedgerStore) List(ctx context.Context) ([]*domain.LedgerEntry, error) {
	query := `
		SELECT report_date, content_hash, record_count, filler, ingested_at
		FROM ingest_ledger
		ORDER BY report_date ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

// Last returns the most recent entry. Returns ErrNotFound when the ledger
// is empty.
func (s *LedgerStore) Last(ctx context.Context) (*domain.LedgerEntry, error) {
	query := `
		SELECT report_date, content_hash, record_count, filler, ingested_at
		FROM ingest_ledger
		ORDER BY report_date DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query)
	entry, err := scanLedgerEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last ledger entry: %w", err)
	}
	return entry, nil
}

// scanLedgerEntry scans a single row into a LedgerEntry.
func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var date time.Time

	err := row.Scan(
		&date,
		&e.ContentHash,
		&e.RecordCount,
		&e.Filler,
		&e.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Date = domain.DateOf(date)
	return &e, nil
}
