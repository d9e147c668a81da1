package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/idhash"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/storage"
)

// Manager treats ledger admission and aggregator application for one date
// as a single transactional unit, and detects crashes between the two on
// restart.
type Manager struct {
	ledger       *Ledger
	aggregator   *metrics.Aggregator
	ratings      *metrics.RatingsAggregator
	metricsStore storage.MetricsStore
	logger       *zap.Logger
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Ledger       *Ledger
	Aggregator   *metrics.Aggregator
	Ratings      *metrics.RatingsAggregator
	MetricsStore storage.MetricsStore
	Logger       *zap.Logger
}

// NewManager creates an ingest manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		ledger:       opts.Ledger,
		aggregator:   opts.Aggregator,
		ratings:      opts.Ratings,
		metricsStore: opts.MetricsStore,
		logger:       logger,
	}
}

// Ledger exposes the admission gate for consumers that only read.
func (m *Manager) Ledger() *Ledger {
	return m.ledger
}

// IngestDay admits and applies one report day. Validation happens before
// admission so an integrity failure leaves both ledger and counters
// untouched. With IntentOverwrite, the date's prior deltas are reversed
// before the new batch applies.
func (m *Manager) IngestDay(ctx context.Context, date domain.Date, records []*domain.SaleRecord, intent Intent) (*domain.LedgerEntry, []*domain.DailyDelta, error) {
	deltas, err := metrics.BuildDayDeltas(date, records)
	if err != nil {
		return nil, nil, err
	}

	entry := &domain.LedgerEntry{
		Date:        date,
		ContentHash: idhash.ComputeBatchHash(records),
		RecordCount: len(records),
	}

	prior, err := m.ledger.Admit(ctx, entry, intent)
	if err != nil {
		return nil, nil, err
	}

	if prior != nil && !prior.Filler {
		m.logger.Info("reversing prior contributions",
			zap.Stringer("date", date),
			zap.String("prior_hash", prior.ContentHash),
			zap.Int("prior_records", prior.RecordCount))
		if err := m.aggregator.ReverseDay(ctx, date); err != nil {
			return nil, nil, err
		}
	}

	if err := m.aggregator.ApplyDeltas(ctx, date, deltas); err != nil {
		return nil, nil, err
	}

	m.logger.Info("ingested report day",
		zap.Stringer("date", date),
		zap.String("intent", intent.String()),
		zap.Int("records", len(records)),
		zap.Int("delta_rows", len(deltas)))
	return entry, deltas, nil
}

// FillGap records a zero-activity day and advances the last-applied marker
// so the consistency check treats the filler as applied.
func (m *Manager) FillGap(ctx context.Context, date domain.Date) (*domain.LedgerEntry, error) {
	entry, err := m.ledger.FillGap(ctx, date)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	if err := m.metricsStore.SetLastApplied(ctx, date); err != nil {
		return nil, fmt.Errorf("set last applied %s: %w", date, err)
	}

	m.logger.Info("filled gap day", zap.Stringer("date", date))
	return entry, nil
}

// IngestRatings applies rating events through the filter. Callers must
// invoke it only in lock-step with a newly ingested or filled day so
// rating snapshots stay aligned with a known report date.
func (m *Manager) IngestRatings(ctx context.Context, events []*domain.RatingEvent, filter *domain.Filter) (int, error) {
	n, err := m.ratings.Ingest(ctx, events, filter)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("ingested ratings", zap.Int("events", n))
	}
	return n, nil
}

// VerifyConsistency checks that the ledger and the cumulative state agree:
// the newest ledger date must not be ahead of the last-applied marker. A
// mismatch means a crash hit between admission and application, and the
// named date needs re-ingestion with overwrite.
func (m *Manager) VerifyConsistency(ctx context.Context) error {
	last, err := m.ledger.Last(ctx)
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}

	applied, err := m.metricsStore.LastApplied(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("ledger has %s but no date was ever applied: incomplete ingestion", last.Date)
		}
		return err
	}

	if last.Date.After(applied) {
		return fmt.Errorf("ledger has %s but last applied date is %s: incomplete ingestion", last.Date, applied)
	}
	return nil
}
