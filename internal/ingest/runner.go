package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/observability"
)

// Runner drives one harvest run: it walks the days-back window in
// ascending date order, ingests each day's report or fills the gap, and
// ingests ratings in lock-step when the run brought new data.
type Runner struct {
	manager      *Manager
	recordSource RecordSource
	ratingSource RatingSource
	logger       *zap.Logger
	now          func() time.Time
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Manager      *Manager
	RecordSource RecordSource
	RatingSource RatingSource // optional
	Logger       *zap.Logger
	Now          func() time.Time // defaults to time.Now
}

// NewRunner creates a harvest runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		manager:      opts.Manager,
		recordSource: opts.RecordSource,
		ratingSource: opts.RatingSource,
		logger:       logger,
		now:          now,
	}
}

// Run ingests the trailing window of completed report days. Parse and
// integrity failures abort only the offending date; storage failures abort
// the run. The returned summary is valid in both cases.
func (r *Runner) Run(ctx context.Context, opts domain.RunOptions) (*RunSummary, error) {
	started := r.now()

	if err := r.manager.VerifyConsistency(ctx); err != nil {
		observability.RecordRun("inconsistent", r.now().Sub(started).Seconds())
		return nil, fmt.Errorf("consistency check: %w", err)
	}

	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 1
	}

	// Reports cover completed days; yesterday is the newest candidate.
	today := domain.DateOf(r.now())
	start := today.AddDays(-daysBack)
	end := today.AddDays(-1)
	summary := newRunSummary(opts.VendorID, start, end)

	intent := IntentFresh
	if opts.Overwrite {
		intent = IntentOverwrite
	}

	for date := start; !date.After(end); date = date.AddDays(1) {
		if err := ctx.Err(); err != nil {
			observability.RecordRun("cancelled", r.now().Sub(started).Seconds())
			return summary, err
		}
		if err := r.runDay(ctx, summary, date, opts.VendorID, intent); err != nil {
			observability.RecordRun("error", r.now().Sub(started).Seconds())
			return summary, err
		}
	}

	if err := r.ingestRatings(ctx, summary, end, opts.Filter()); err != nil {
		observability.RecordRun("error", r.now().Sub(started).Seconds())
		return summary, err
	}

	observability.RecordRun("ok", r.now().Sub(started).Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(r.now().Unix()))
	r.logger.Info("harvest run finished",
		zap.Stringer("start", start),
		zap.Stringer("end", end),
		zap.Int("ingested", len(summary.Ingested)),
		zap.Int("overwritten", len(summary.Overwritten)),
		zap.Int("filled", len(summary.Filled)),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)),
		zap.Bool("new_data", summary.HasNewData()))
	return summary, nil
}

// runDay processes a single date. Per-date errors land in the summary;
// only storage errors propagate.
func (r *Runner) runDay(ctx context.Context, summary *RunSummary, date domain.Date, vendorID string, intent Intent) error {
	ingested, err := r.manager.Ledger().IsIngested(ctx, date)
	if err != nil {
		return err
	}
	if ingested && intent != IntentOverwrite {
		summary.Skipped = append(summary.Skipped, date)
		observability.RecordDaySkipped()
		return nil
	}

	records, err := r.recordSource.Fetch(ctx, vendorID, date)
	if errors.Is(err, ErrNoReport) {
		entry, err := r.manager.FillGap(ctx, date)
		if err != nil {
			return err
		}
		if entry != nil {
			summary.Filled = append(summary.Filled, date)
			observability.RecordDayFilled()
		} else {
			summary.Skipped = append(summary.Skipped, date)
			observability.RecordDaySkipped()
		}
		return nil
	}
	if err != nil {
		r.logger.Warn("report fetch failed", zap.Stringer("date", date), zap.Error(err))
		summary.Failed = append(summary.Failed, DayFailure{Date: date, Err: err})
		observability.RecordDayError("parse")
		return nil
	}

	_, deltas, err := r.manager.IngestDay(ctx, date, records, intent)
	switch {
	case errors.Is(err, ErrAlreadyIngested):
		summary.Skipped = append(summary.Skipped, date)
		observability.RecordDaySkipped()
		return nil
	case isIntegrityError(err):
		r.logger.Warn("report batch rejected", zap.Stringer("date", date), zap.Error(err))
		summary.Failed = append(summary.Failed, DayFailure{Date: date, Err: err})
		observability.RecordDayError("integrity")
		return nil
	case err != nil:
		return err
	}

	if ingested {
		summary.Overwritten = append(summary.Overwritten, date)
	} else {
		summary.Ingested = append(summary.Ingested, date)
	}
	summary.accumulate(deltas)
	observability.RecordDayIngested(ingested)
	observability.RecordRecordsApplied(len(records))
	return nil
}

// ingestRatings pulls the rating feed only when the run ingested new days,
// keeping ratings in lock-step with report dates.
func (r *Runner) ingestRatings(ctx context.Context, summary *RunSummary, end domain.Date, filter *domain.Filter) error {
	if r.ratingSource == nil || !summary.HasNewData() {
		return nil
	}

	events, err := r.ratingSource.Fetch(ctx, end)
	if err != nil {
		return fmt.Errorf("fetch ratings: %w", err)
	}

	n, err := r.manager.IngestRatings(ctx, events, filter)
	if err != nil {
		return err
	}
	summary.NewRatings = n
	observability.RecordRatingsApplied(n)
	return nil
}

func isIntegrityError(err error) bool {
	var integrityErr *metrics.DataIntegrityError
	return errors.As(err, &integrityErr)
}
