package postgres

import (
	"context"
	"fmt"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/observability"
	"harvest-reports/internal/storage"
)

// MetricsStore implements storage.MetricsStore using PostgreSQL. Apply and
// Reverse run all rows of a call inside one transaction.
type MetricsStore struct {
	pool *Pool
}

// NewMetricsStore creates a new MetricsStore.
func NewMetricsStore(pool *Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricsStore = (*MetricsStore)(nil)

const upsertCountersQuery = `
	INSERT INTO app_version_metrics (
		app, version, installs, paid_installs, free_installs,
		upgrades, promo_redemptions, proceeds
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (app, version) DO UPDATE SET
		installs          = app_version_metrics.installs + EXCLUDED.installs,
		paid_installs     = app_version_metrics.paid_installs + EXCLUDED.paid_installs,
		free_installs     = app_version_metrics.free_installs + EXCLUDED.free_installs,
		upgrades          = app_version_metrics.upgrades + EXCLUDED.upgrades,
		promo_redemptions = app_version_metrics.promo_redemptions + EXCLUDED.promo_redemptions,
		proceeds          = app_version_metrics.proceeds + EXCLUDED.proceeds
`

// Get retrieves the row for (app, version). Returns ErrNotFound if no
// counter has ever been recorded for the pair.
func (s *MetricsStore) Get(ctx context.Context, app, version string) (*domain.AppVersionMetrics, error) {
	query := `
		SELECT app, version, installs, paid_installs, free_installs,
		       upgrades, promo_redemptions, proceeds, rating_sum, rating_count
		FROM app_version_metrics
		WHERE app = $1 AND version = $2
	`

	var m domain.AppVersionMetrics
	err := s.pool.QueryRow(ctx, query, app, version).Scan(
		&m.App, &m.Version, &m.Installs, &m.PaidInstalls, &m.FreeInstalls,
		&m.Upgrades, &m.PromoRedemptions, &m.Proceeds, &m.RatingSum, &m.RatingCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get metrics row: %w", err)
	}
	return &m, nil
}

// Apply adds the deltas to the cumulative counters, creating rows as
// needed. All rows of one call are applied atomically.
func (s *MetricsStore) Apply(ctx context.Context, deltas []*domain.DailyDelta) error {
	return s.fold(ctx, deltas, 1)
}

// Reverse subtracts previously applied deltas (overwrite reversal).
// All rows of one call are reversed atomically.
func (s *MetricsStore) Reverse(ctx context.Context, deltas []*domain.DailyDelta) error {
	return s.fold(ctx, deltas, -1)
}

// fold applies deltas with the given sign inside one transaction.
func (s *MetricsStore) fold(ctx context.Context, deltas []*domain.DailyDelta, sign int64) (err error) {
	if len(deltas) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "metrics_fold", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin metrics tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deltas {
		_, err := tx.Exec(ctx, upsertCountersQuery,
			d.App, d.Version,
			sign*d.Installs, sign*d.PaidInstalls, sign*d.FreeInstalls,
			sign*d.Upgrades, sign*d.PromoRedemptions, float64(sign)*d.Proceeds,
		)
		if err != nil {
			return fmt.Errorf("fold delta for %s %s: %w", d.App, d.Version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit metrics tx: %w", err)
	}
	return nil
}

// AddRatings folds rating events into the rating sum/count of their
// (app, version) rows; events without a version land on version "".
func (s *MetricsStore) AddRatings(ctx context.Context, events []*domain.RatingEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO app_version_metrics (app, version, rating_sum, rating_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (app, version) DO UPDATE SET
			rating_sum   = app_version_metrics.rating_sum + EXCLUDED.rating_sum,
			rating_count = app_version_metrics.rating_count + EXCLUDED.rating_count
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ratings tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, query, e.App, e.Version, int64(e.Rating)); err != nil {
			return fmt.Errorf("add rating for %s: %w", e.App, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ratings tx: %w", err)
	}
	return nil
}

// ListByApp returns all version rows for an app, unordered.
func (s *MetricsStore) ListByApp(ctx context.Context, app string) ([]*domain.AppVersionMetrics, error) {
	query := `
		SELECT app, version, installs, paid_installs, free_installs,
		       upgrades, promo_redemptions, proceeds, rating_sum, rating_count
		FROM app_version_metrics
		WHERE app = $1
	`

	rows, err := s.pool.Query(ctx, query, app)
	if err != nil {
		return nil, fmt.Errorf("list metrics by app: %w", err)
	}
	defer rows.Close()

	var result []*domain.AppVersionMetrics
	for rows.Next() {
		var m domain.AppVersionMetrics
		err := rows.Scan(
			&m.App, &m.Version, &m.Installs, &m.PaidInstalls, &m.FreeInstalls,
			&m.Upgrades, &m.PromoRedemptions, &m.Proceeds, &m.RatingSum, &m.RatingCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics rows: %w", err)
	}
	return result, nil
}

// Apps returns all app identifiers with at least one row, sorted ASC.
func (s *MetricsStore) Apps(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT app FROM app_version_metrics ORDER BY app ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var apps []string
	for rows.Next() {
		var app string
		if err := rows.Scan(&app); err != nil {
			return nil, fmt.Errorf("scan app row: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate app rows: %w", err)
	}
	return apps, nil
}

// LastApplied returns the most recent report date whose deltas have been
// fully applied. Returns ErrNotFound before the first apply.
func (s *MetricsStore) LastApplied(ctx context.Context) (domain.Date, error) {
	query := `SELECT last_applied FROM ingest_state WHERE id`

	var date time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&date); err != nil {
		if isNotFoundError(err) {
			return domain.Date{}, storage.ErrNotFound
		}
		return domain.Date{}, fmt.Errorf("get last applied: %w", err)
	}
	return domain.DateOf(date), nil
}

// SetLastApplied records the last fully applied report date. GREATEST keeps
// the marker advance-only so overwriting an old date never regresses it.
func (s *MetricsStore) SetLastApplied(ctx context.Context, date domain.Date) error {
	query := `
		INSERT INTO ingest_state (id, last_applied)
		VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET
			last_applied = GREATEST(ingest_state.last_applied, EXCLUDED.last_applied)
	`

	if _, err := s.pool.Exec(ctx, query, date.Time()); err != nil {
		return fmt.Errorf("set last applied: %w", err)
	}
	return nil
}
