package metrics

import (
	"context"
	"testing"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/storage/memory"
)

func newAggregator() *Aggregator {
	return NewAggregator(memory.NewMetricsStore(), memory.NewDeltaStore())
}

func installs(app, version string, date domain.Date, units int64, proceeds float64) *domain.SaleRecord {
	return &domain.SaleRecord{
		App: app, Version: version, Type: domain.TxInstall,
		Date: date, Country: "US", Units: units, UnitProceeds: proceeds,
	}
}

func upgrades(app, version string, date domain.Date, units int64) *domain.SaleRecord {
	return &domain.SaleRecord{
		App: app, Version: version, Type: domain.TxUpgrade,
		Date: date, Country: "US", Units: units,
	}
}

func TestAggregator_ApplyDay(t *testing.T) {
	agg := newAggregator()
	ctx := context.Background()

	deltas, err := agg.ApplyDay(ctx, testDay(1), []*domain.SaleRecord{
		installs("app1", "1.0", testDay(1), 5, 0.99),
	})
	if err != nil {
		t.Fatalf("ApplyDay failed: %v", err)
	}
	if len(deltas) != 1 || deltas[0].Installs != 5 {
		t.Fatalf("deltas = %+v", deltas)
	}

	row, err := agg.metricsStore.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 5 || row.Proceeds != 5*0.99 {
		t.Errorf("installs/proceeds = %d/%f", row.Installs, row.Proceeds)
	}

	last, err := agg.metricsStore.LastApplied(ctx)
	if err != nil {
		t.Fatalf("LastApplied failed: %v", err)
	}
	if last != testDay(1) {
		t.Errorf("LastApplied = %v, want %v", last, testDay(1))
	}
}

func TestAggregator_ReverseDay(t *testing.T) {
	agg := newAggregator()
	ctx := context.Background()

	if _, err := agg.ApplyDay(ctx, testDay(1), []*domain.SaleRecord{
		installs("app1", "1.0", testDay(1), 5, 0.99),
	}); err != nil {
		t.Fatalf("ApplyDay failed: %v", err)
	}
	if err := agg.ReverseDay(ctx, testDay(1)); err != nil {
		t.Fatalf("ReverseDay failed: %v", err)
	}

	row, err := agg.metricsStore.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 0 || row.Proceeds != 0 {
		t.Errorf("after reversal installs/proceeds = %d/%f, want zeros", row.Installs, row.Proceeds)
	}

	deltas, err := agg.deltaStore.GetByDate(ctx, testDay(1))
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(deltas) != 0 {
		t.Errorf("delta history not cleared: %d rows", len(deltas))
	}

	// The date is re-admittable after reversal.
	if _, err := agg.ApplyDay(ctx, testDay(1), []*domain.SaleRecord{
		installs("app1", "1.0", testDay(1), 2, 0.99),
	}); err != nil {
		t.Fatalf("re-apply after reversal failed: %v", err)
	}
}

func TestAggregator_LatestVersion(t *testing.T) {
	agg := newAggregator()
	ctx := context.Background()

	if _, err := agg.ApplyDay(ctx, testDay(1), []*domain.SaleRecord{
		installs("app1", "1.9", testDay(1), 10, 0),
		installs("app1", "1.10", testDay(1), 2, 0),
	}); err != nil {
		t.Fatalf("ApplyDay failed: %v", err)
	}

	latest, err := agg.LatestVersion(ctx, "app1")
	if err != nil {
		t.Fatalf("LatestVersion failed: %v", err)
	}
	if latest != "1.10" {
		t.Errorf("LatestVersion = %q, want 1.10 (numeric segment order)", latest)
	}
}

func TestAggregator_UsersOnLatestAndLegacyPercent(t *testing.T) {
	agg := newAggregator()
	ctx := context.Background()

	if _, err := agg.ApplyDay(ctx, testDay(1), []*domain.SaleRecord{
		installs("app1", "1.0", testDay(1), 10, 0.99),
	}); err != nil {
		t.Fatalf("ApplyDay failed: %v", err)
	}
	if _, err := agg.ApplyDay(ctx, testDay(2), []*domain.SaleRecord{
		upgrades("app1", "1.1", testDay(2), 4),
	}); err != nil {
		t.Fatalf("ApplyDay failed: %v", err)
	}

	latest, users, err := agg.UsersOnLatest(ctx, "app1")
	if err != nil {
		t.Fatalf("UsersOnLatest failed: %v", err)
	}
	if latest != "1.1" || users != 4 {
		t.Errorf("latest/users = %q/%d, want 1.1/4", latest, users)
	}

	legacy, defined, err := agg.LegacyUserPercent(ctx, "app1")
	if err != nil {
		t.Fatalf("LegacyUserPercent failed: %v", err)
	}
	if !defined || legacy != 60 {
		t.Errorf("legacy = %f defined=%v, want 60 true", legacy, defined)
	}
}

func TestAggregator_Monotonicity(t *testing.T) {
	agg := newAggregator()
	ctx := context.Background()

	var prev int64
	for d := 1; d <= 5; d++ {
		if _, err := agg.ApplyDay(ctx, testDay(d), []*domain.SaleRecord{
			installs("app1", "1.0", testDay(d), int64(d), 0),
		}); err != nil {
			t.Fatalf("ApplyDay %d failed: %v", d, err)
		}

		row, err := agg.metricsStore.Get(ctx, "app1", "1.0")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if row.Installs < prev {
			t.Fatalf("cumulative installs decreased: %d -> %d", prev, row.Installs)
		}
		prev = row.Installs
	}
}
