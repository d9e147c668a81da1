package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest-reports/internal/ingest"
	"harvest-reports/internal/reportfile"
)

func TestFSRecordSource(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	line := strings.Join([]string{
		"APPLE", "US", "com.example.app", "Example Pty Ltd", "Example App",
		"1.0", "1", "3", "0.7", "03/15/2024", "03/15/2024", "USD", "US",
		"USD", "123456789", "0.99", "", "", "", "", "",
	}, "\t")
	name := reportfile.ReportFileName("800", day(15))
	if err := os.WriteFile(filepath.Join(dir, name), []byte(line+"\n"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	source := ingest.NewFSRecordSource(dir, nil)
	records, err := source.Fetch(ctx, "800", day(15))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 1 || records[0].Units != 3 {
		t.Errorf("records = %+v", records)
	}

	// Missing file means no report, not a failure.
	_, err = source.Fetch(ctx, "800", day(16))
	if !errors.Is(err, ingest.ErrNoReport) {
		t.Errorf("expected ingest.ErrNoReport, got %v", err)
	}
}

func TestFSRatingSource(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	content := "com.example.app\tUS\t5\t1.0\t\n"
	if err := os.WriteFile(filepath.Join(dir, "ratings_20240315.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	source := ingest.NewFSRatingSource(dir)
	events, err := source.Fetch(ctx, day(15))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 || events[0].Rating != 5 {
		t.Errorf("events = %+v", events)
	}

	// No feed file yields no events.
	events, err = source.Fetch(ctx, day(16))
	if err != nil || events != nil {
		t.Errorf("missing feed: events=%v err=%v", events, err)
	}
}
