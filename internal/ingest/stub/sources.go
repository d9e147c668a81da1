// Package stub provides fixed in-memory sources for testing ingestion
// flows without report files.
package stub

import (
	"context"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/ingest"
)

// RecordSource serves pre-loaded record batches keyed by date.
// Implements ingest.RecordSource.
type RecordSource struct {
	batches map[domain.Date][]*domain.SaleRecord
}

// NewRecordSource creates a stub source with the given batches.
func NewRecordSource(batches map[domain.Date][]*domain.SaleRecord) *RecordSource {
	if batches == nil {
		batches = make(map[domain.Date][]*domain.SaleRecord)
	}
	return &RecordSource{batches: batches}
}

// SetBatch replaces the batch for a date.
func (s *RecordSource) SetBatch(date domain.Date, records []*domain.SaleRecord) {
	s.batches[date] = records
}

// Fetch returns copies of the records for a date, or ErrNoReport when the
// date has no batch.
func (s *RecordSource) Fetch(_ context.Context, _ string, date domain.Date) ([]*domain.SaleRecord, error) {
	batch, ok := s.batches[date]
	if !ok {
		return nil, ingest.ErrNoReport
	}

	result := make([]*domain.SaleRecord, len(batch))
	for i, r := range batch {
		copy := *r
		result[i] = &copy
	}
	return result, nil
}

// RatingSource serves pre-loaded rating events keyed by date.
// Implements ingest.RatingSource.
type RatingSource struct {
	events map[domain.Date][]*domain.RatingEvent
}

// NewRatingSource creates a stub rating source with the given events.
func NewRatingSource(events map[domain.Date][]*domain.RatingEvent) *RatingSource {
	if events == nil {
		events = make(map[domain.Date][]*domain.RatingEvent)
	}
	return &RatingSource{events: events}
}

// Fetch returns copies of the events for a date.
func (s *RatingSource) Fetch(_ context.Context, date domain.Date) ([]*domain.RatingEvent, error) {
	var result []*domain.RatingEvent
	for _, e := range s.events[date] {
		copy := *e
		result = append(result, &copy)
	}
	return result, nil
}
