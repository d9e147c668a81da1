package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage"
)

func day(d int) domain.Date {
	return domain.NewDate(2024, time.March, d)
}

func TestMetricsStore_ApplyAndGet(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	deltas := []*domain.DailyDelta{
		{Date: day(1), App: "app1", Version: "1.0", Country: "US", Installs: 5, PaidInstalls: 5, Proceeds: 4.95},
		{Date: day(1), App: "app1", Version: "1.0", Country: "AU", Installs: 3, FreeInstalls: 3},
	}

	if err := store.Apply(ctx, deltas); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	row, err := store.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 8 {
		t.Errorf("Installs = %d, want 8", row.Installs)
	}
	if row.PaidInstalls != 5 || row.FreeInstalls != 3 {
		t.Errorf("paid/free = %d/%d, want 5/3", row.PaidInstalls, row.FreeInstalls)
	}
	if row.Proceeds != 4.95 {
		t.Errorf("Proceeds = %f, want 4.95", row.Proceeds)
	}
}

func TestMetricsStore_ApplyAccumulates(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		delta := []*domain.DailyDelta{
			{Date: day(i), App: "app1", Version: "1.0", Country: "US", Installs: 2},
		}
		if err := store.Apply(ctx, delta); err != nil {
			t.Fatalf("Apply day %d failed: %v", i, err)
		}
	}

	row, err := store.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 6 {
		t.Errorf("Installs = %d, want 6", row.Installs)
	}
}

func TestMetricsStore_Reverse(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	deltas := []*domain.DailyDelta{
		{Date: day(1), App: "app1", Version: "1.0", Country: "US", Installs: 10, Proceeds: 9.9},
	}
	if err := store.Apply(ctx, deltas); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := store.Reverse(ctx, deltas); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}

	row, err := store.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 0 || row.Proceeds != 0 {
		t.Errorf("after reversal installs=%d proceeds=%f, want zeros", row.Installs, row.Proceeds)
	}
}

func TestMetricsStore_AddRatings(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	events := []*domain.RatingEvent{
		{App: "app1", Country: "US", Rating: 5, Version: "1.0"},
		{App: "app1", Country: "DE", Rating: 3, Version: "1.0"},
		{App: "app1", Country: "US", Rating: 4}, // version unknown
	}
	if err := store.AddRatings(ctx, events); err != nil {
		t.Fatalf("AddRatings failed: %v", err)
	}

	versioned, err := store.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get versioned failed: %v", err)
	}
	if versioned.RatingSum != 8 || versioned.RatingCount != 2 {
		t.Errorf("versioned sum/count = %d/%d, want 8/2", versioned.RatingSum, versioned.RatingCount)
	}

	unversioned, err := store.Get(ctx, "app1", "")
	if err != nil {
		t.Fatalf("Get unversioned failed: %v", err)
	}
	if unversioned.RatingSum != 4 || unversioned.RatingCount != 1 {
		t.Errorf("unversioned sum/count = %d/%d, want 4/1", unversioned.RatingSum, unversioned.RatingCount)
	}
}

func TestMetricsStore_GetMissing(t *testing.T) {
	store := NewMetricsStore()

	_, err := store.Get(context.Background(), "nope", "1.0")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMetricsStore_ListByAppAndApps(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	deltas := []*domain.DailyDelta{
		{Date: day(1), App: "beta", Version: "1.0", Country: "US", Installs: 1},
		{Date: day(1), App: "beta", Version: "1.1", Country: "US", Installs: 1},
		{Date: day(1), App: "alpha", Version: "2.0", Country: "US", Installs: 1},
	}
	if err := store.Apply(ctx, deltas); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	rows, err := store.ListByApp(ctx, "beta")
	if err != nil {
		t.Fatalf("ListByApp failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows for beta, got %d", len(rows))
	}

	apps, err := store.Apps(ctx)
	if err != nil {
		t.Fatalf("Apps failed: %v", err)
	}
	if len(apps) != 2 || apps[0] != "alpha" || apps[1] != "beta" {
		t.Errorf("Apps = %v, want [alpha beta]", apps)
	}
}

func TestMetricsStore_LastApplied(t *testing.T) {
	store := NewMetricsStore()
	ctx := context.Background()

	_, err := store.LastApplied(ctx)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first apply, got %v", err)
	}

	if err := store.SetLastApplied(ctx, day(5)); err != nil {
		t.Fatalf("SetLastApplied failed: %v", err)
	}

	got, err := store.LastApplied(ctx)
	if err != nil {
		t.Fatalf("LastApplied failed: %v", err)
	}
	if got != day(5) {
		t.Errorf("LastApplied = %v, want %v", got, day(5))
	}

	// The marker only advances: re-applying an earlier date (overwrite
	// flow) must not regress it.
	if err := store.SetLastApplied(ctx, day(3)); err != nil {
		t.Fatalf("SetLastApplied failed: %v", err)
	}
	got, err = store.LastApplied(ctx)
	if err != nil {
		t.Fatalf("LastApplied failed: %v", err)
	}
	if got != day(5) {
		t.Errorf("LastApplied = %v after earlier set, want %v", got, day(5))
	}
}
