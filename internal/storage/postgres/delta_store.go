package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/observability"
	"harvest-reports/internal/storage"
)

// DeltaStore implements storage.DeltaStore using PostgreSQL.
type DeltaStore struct {
	pool *Pool
}

// NewDeltaStore creates a new DeltaStore.
func NewDeltaStore(pool *Pool) *DeltaStore {
	return &DeltaStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeltaStore = (*DeltaStore)(nil)

// InsertBulk adds a day's delta rows inside one transaction. Fails the
// whole batch with ErrDuplicateKey on any duplicate
// (date, app, version, country).
func (s *DeltaStore) InsertBulk(ctx context.Context, deltas []*domain.DailyDelta) (err error) {
	if len(deltas) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "delta_insert", time.Since(start).Seconds(), err)
	}()

	query := `
		INSERT INTO daily_deltas (
			report_date, app, version, country,
			installs, paid_installs, free_installs,
			upgrades, promo_redemptions, proceeds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delta tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deltas {
		_, err := tx.Exec(ctx, query,
			d.Date.Time(), d.App, d.Version, d.Country,
			d.Installs, d.PaidInstalls, d.FreeInstalls,
			d.Upgrades, d.PromoRedemptions, d.Proceeds,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert delta: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delta tx: %w", err)
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
		WHERE report_date = $1
		ORDER BY app ASC, version ASC, country ASC
	`

	rows, err := s.pool.Query(ctx, query, date.Time())
	if err != nil {
		return nil, fmt.Errorf("get deltas by date: %w", err)
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
		WHERE app = $1
		ORDER BY report_date ASC, version ASC, country ASC
	`

	rows, err := s.pool.Query(ctx, query, app)
	if err != nil {
		return nil, fmt.Errorf("get deltas by app: %w", err)
	}
	defer rows.Close()

	return scanDeltas(rows)
}

// DeleteByDate removes all rows for a date (overwrite reversal).
func (s *DeltaStore) DeleteByDate(ctx context.Context, date domain.Date) error {
	query := `DELETE FROM daily_deltas WHERE report_date = $1`

	if _, err := s.pool.Exec(ctx, query, date.Time()); err != nil {
		return fmt.Errorf("delete deltas by date: %w", err)
	}
	return nil
}

// Dates returns every date with at least one row, sorted ASC.
func (s *DeltaStore) Dates(ctx context.Context) ([]domain.Date, error) {
	query := `SELECT DISTINCT report_date FROM daily_deltas ORDER BY report_date ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list delta dates: %w", err)
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

// scanDeltas scans multiple rows into a slice of DailyDelta.
func scanDeltas(rows pgx.Rows) ([]*domain.DailyDelta, error) {
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
