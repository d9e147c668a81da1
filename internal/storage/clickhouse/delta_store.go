package clickhouse

import (
	"context"
	"fmt"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/observability"
	"harvest-reports/internal/storage"
)

// DeltaStore implements storage.DeltaStore using ClickHouse. MergeTree does
// not enforce uniqueness, so duplicate dates are rejected by explicit checks
// before insert: deltas always arrive as whole-day batches.
type DeltaStore struct {
	conn *Conn
}

// NewDeltaStore creates a new DeltaStore.
func NewDeltaStore(conn *Conn) *DeltaStore {
	return &DeltaStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DeltaStore = (*DeltaStore)(nil)

// InsertBulk adds a day's delta rows. Fails the whole batch with
// ErrDuplicateKey on any duplicate (date, app, version, country).
func (s *DeltaStore) InsertBulk(ctx context.Context, deltas []*domain.DailyDelta) (err error) {
	if len(deltas) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "delta_insert", time.Since(start).Seconds(), err)
	}()

	// Check for intra-batch duplicates
	type key struct {
		date    domain.Date
		app     string
		version string
		country string
	}
	seen := make(map[key]struct{}, len(deltas))
	dates := make(map[domain.Date]struct{})
	for _, d := range deltas {
		k := key{d.Date, d.App, d.Version, d.Country}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		dates[d.Date] = struct{}{}
	}

	// Check against existing DB rows, once per distinct date
	for date := range dates {
		exists, err := s.dateExists(ctx, date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_deltas (
			report_date, app, version, country,
			installs, paid_installs, free_installs,
			upgrades, promo_redemptions, proceeds
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, d := range deltas {
		err = batch.Append(
			d.Date.Time(), d.App, d.Version, d.Country,
			d.Installs, d.PaidInstalls, d.FreeInstalls,
			d.Upgrades, d.PromoRedemptions, d.Proceeds,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDate returns all rows for a date.
func (s *DeltaStore) GetByDate(ctx context.Context, date domain.Date) ([]*domain.DailyDelta, error) {
	query := `
		SELECT report_date, app, version, country,
		       installs, paid_installs, free_installs,
		       upgrades, promo_redemptions, proceeds
		FROM daily_deltas
		WHERE report_date = ?
		ORDER BY app ASC, version ASC, country ASC
	`

	rows, err := s.conn.Query(ctx, query, date.Time())
	if err != nil {
		return nil, fmt.Errorf("query by date: %w", err)
	}
	defer rows.Close()

	return scanDeltas(rows)
}

// GetByApp returns all rows for an app ordered by date ASC.
func (s *DeltaStore) GetByApp(ctx context.Context, app string) ([]*domain.DailyDelta, error) {
	query := `
		SELECT report_date, app, version, country,
		       installs, paid_installs, free_installs,
		       upgrades, promo_redemptions, proceeds
		FROM daily_deltas
		WHERE app = ?
		ORDER BY report_date ASC, version ASC, country ASC
	`

	rows, err := s.conn.Query(ctx, query, app)
	if err != nil {
		return nil, fmt.Errorf("query by app: %w", err)
	}
	defer rows.Close()

	return scanDeltas(rows)
}

// DeleteByDate removes all rows for a date (overwrite reversal). Uses a
// lightweight DELETE, synchronous enough for the daily ingest cadence.
func (s *DeltaStore) DeleteByDate(ctx context.Context, date domain.Date) error {
	query := `DELETE FROM daily_deltas WHERE report_date = ?`

	if err := s.conn.Exec(ctx, query, date.Time()); err != nil {
		return fmt.Errorf("delete by date: %w", err)
	}
	return nil
}

// Dates returns every date with at least one row, sorted ASC.
func (s *DeltaStore) Dates(ctx context.Context) ([]domain.Date, error) {
	query := `SELECT DISTINCT report_date FROM daily_deltas ORDER BY report_date ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()

	var dates []domain.Date
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan date row: %w", err)
		}
		dates = append(dates, domain.DateOf(date))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate date rows: %w", err)
	}
	return dates, nil
}

// dateExists checks if any row exists for the date.
func (s *DeltaStore) dateExists(ctx context.Context, date domain.Date) (bool, error) {
	query := `SELECT count(*) FROM daily_deltas WHERE report_date = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, date.Time()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanDeltas scans multiple rows into a slice of DailyDelta.
func scanDeltas(rows chRows) ([]*domain.DailyDelta, error) {
	var deltas []*domain.DailyDelta

	for rows.Next() {
		var d domain.DailyDelta
		var date time.Time

		err := rows.Scan(
			&date, &d.App, &d.Version, &d.Country,
			&d.Installs, &d.PaidInstalls, &d.FreeInstalls,
			&d.Upgrades, &d.PromoRedemptions, &d.Proceeds,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delta row: %w", err)
		}

		d.Date = domain.DateOf(date)
		deltas = append(deltas, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delta rows: %w", err)
	}

	return deltas, nil
}
