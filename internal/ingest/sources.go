package ingest

import (
	"context"
	"errors"

	"harvest-reports/internal/domain"
)

// ErrNoReport signals that no report exists for a date. Not a failure: the
// runner fills the day as a zero-activity gap.
var ErrNoReport = errors.New("no report for date")

// RecordSource provides parsed sales records for one report day. The
// external fetch tool that downloads report files sits behind this
// interface.
type RecordSource interface {
	// Fetch returns the records of the report covering date for a vendor.
	// Returns ErrNoReport when the vendor produced no report for the date.
	Fetch(ctx context.Context, vendorID string, date domain.Date) ([]*domain.SaleRecord, error)
}

// RatingSource provides rating feed events. Feed retrieval is external;
// only the records cross this boundary.
type RatingSource interface {
	// Fetch returns the rating events available as of date.
	Fetch(ctx context.Context, date domain.Date) ([]*domain.RatingEvent, error)
}
