package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/reportfile"
)

// FSRecordSource reads daily report files from a directory, named the way
// the vendor's download tool writes them: S_D_<vendor>_<yyyymmdd>.txt.
type FSRecordSource struct {
	dir    string
	tables *reportfile.RemapTables
}

// NewFSRecordSource creates a source over dir. Tables may be nil for
// pass-through field codes.
func NewFSRecordSource(dir string, tables *reportfile.RemapTables) *FSRecordSource {
	return &FSRecordSource{dir: dir, tables: tables}
}

// Compile-time interface check.
var _ RecordSource = (*FSRecordSource)(nil)

// Fetch parses the report file for (vendorID, date). A missing file means
// the vendor produced no report for that day.
func (s *FSRecordSource) Fetch(_ context.Context, vendorID string, date domain.Date) ([]*domain.SaleRecord, error) {
	path := filepath.Join(s.dir, reportfile.ReportFileName(vendorID, date))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoReport)
		}
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	records, err := reportfile.ReadReportFile(f, s.tables)
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return records, nil
}

// FSRatingSource reads rating feed files named ratings_<yyyymmdd>.txt from
// a directory.
type FSRatingSource struct {
	dir string
}

// NewFSRatingSource creates a rating source over dir.
func NewFSRatingSource(dir string) *FSRatingSource {
	return &FSRatingSource{dir: dir}
}

// Compile-time interface check.
var _ RatingSource = (*FSRatingSource)(nil)

// Fetch parses the rating feed for date. A missing file yields no events.
func (s *FSRatingSource) Fetch(_ context.Context, date domain.Date) ([]*domain.RatingEvent, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("ratings_%s.txt", date.Compact()))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open rating feed %s: %w", path, err)
	}
	defer f.Close()

	events, err := reportfile.ReadRatingFeed(f)
	if err != nil {
		return nil, fmt.Errorf("parse rating feed %s: %w", path, err)
	}
	return events, nil
}
