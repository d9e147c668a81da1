package ingest_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"harvest-reports/internal/domain"
	"harvest-reports/internal/ingest"
	"harvest-reports/internal/metrics"
	"harvest-reports/internal/storage"
	"harvest-reports/internal/storage/memory"
)

type testEnv struct {
	manager      *ingest.Manager
	metricsStore *memory.MetricsStore
	deltaStore   *memory.DeltaStore
	ledgerStore  *memory.LedgerStore
}

func newTestEnv() *testEnv {
	metricsStore := memory.NewMetricsStore()
	deltaStore := memory.NewDeltaStore()
	ledgerStore := memory.NewLedgerStore()

	manager := ingest.NewManager(ingest.ManagerOptions{
		Ledger:       ingest.NewLedger(ledgerStore),
		Aggregator:   metrics.NewAggregator(metricsStore, deltaStore),
		Ratings:      metrics.NewRatingsAggregator(metricsStore),
		MetricsStore: metricsStore,
	})
	return &testEnv{
		manager:      manager,
		metricsStore: metricsStore,
		deltaStore:   deltaStore,
		ledgerStore:  ledgerStore,
	}
}

func install(app, version string, date domain.Date, units int64, proceeds float64) *domain.SaleRecord {
	return &domain.SaleRecord{
		App: app, Version: version, Type: domain.TxInstall,
		Date: date, Country: "US", Units: units, UnitProceeds: proceeds,
	}
}

func TestManager_IngestDay(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	entry, deltas, err := env.manager.IngestDay(ctx, day(1), []*domain.SaleRecord{
		install("app1", "1.0", day(1), 5, 0.99),
	}, ingest.IntentFresh)
	if err != nil {
		t.Fatalf("IngestDay failed: %v", err)
	}
	if entry.RecordCount != 1 || entry.ContentHash == "" || entry.Filler {
		t.Errorf("ledger entry = %+v", entry)
	}
	if len(deltas) != 1 || deltas[0].Installs != 5 {
		t.Errorf("deltas = %+v", deltas)
	}

	row, err := env.metricsStore.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 5 {
		t.Errorf("Installs = %d, want 5", row.Installs)
	}
}

func TestManager_Idempotence(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	batch := []*domain.SaleRecord{install("app1", "1.0", day(1), 5, 0.99)}

	if _, _, err := env.manager.IngestDay(ctx, day(1), batch, ingest.IntentFresh); err != nil {
		t.Fatalf("first IngestDay failed: %v", err)
	}

	_, _, err := env.manager.IngestDay(ctx, day(1), batch, ingest.IntentFresh)
	if !errors.Is(err, ingest.ErrAlreadyIngested) {
		t.Fatalf("expected ingest.ErrAlreadyIngested, got %v", err)
	}

	row, err := env.metricsStore.Get(ctx, "app1", "1.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Installs != 5 {
		t.Errorf("second ingest changed state: Installs = %d, want 5", row.Installs)
	}
}

func TestManager_OverwriteCorrectness(t *testing.T) {
	ctx := context.Background()

	// Ingest B then overwrite with B': state must equal ingesting only B'.
	env := newTestEnv()
	batchB := []*domain.SaleRecord{install("app1", "1.0", day(1), 5, 0.99)}
	batchB2 := []*domain.SaleRecord{
		install("app1", "1.0", day(1), 3, 0.99),
		install("app1", "1.1", day(1), 2, 0),
	}

	if _, _, err := env.manager.IngestDay(ctx, day(1), batchB, ingest.IntentFresh); err != nil {
		t.Fatalf("IngestDay B failed: %v", err)
	}
	if _, _, err := env.manager.IngestDay(ctx, day(1), batchB2, ingest.IntentOverwrite); err != nil {
		t.Fatalf("overwrite IngestDay failed: %v", err)
	}

	clean := newTestEnv()
	if _, _, err := clean.manager.IngestDay(ctx, day(1), batchB2, ingest.IntentFresh); err != nil {
		t.Fatalf("clean IngestDay failed: %v", err)
	}

	for _, version := range []string{"1.0", "1.1"} {
		got, err := env.metricsStore.Get(ctx, "app1", version)
		if err != nil {
			t.Fatalf("Get %s failed: %v", version, err)
		}
		want, err := clean.metricsStore.Get(ctx, "app1", version)
		if err != nil {
			t.Fatalf("clean Get %s failed: %v", version, err)
		}
		if *got != *want {
			t.Errorf("version %s: overwrite state %+v != clean state %+v", version, got, want)
		}
	}

	// Delta history must also match the clean run.
	gotDeltas, _ := env.deltaStore.GetByApp(ctx, "app1")
	wantDeltas, _ := clean.deltaStore.GetByApp(ctx, "app1")
	if len(gotDeltas) != len(wantDeltas) {
		t.Fatalf("delta history differs: %d vs %d rows", len(gotDeltas), len(wantDeltas))
	}
	for i := range gotDeltas {
		if *gotDeltas[i] != *wantDeltas[i] {
			t.Errorf("delta %d: %+v != %+v", i, gotDeltas[i], wantDeltas[i])
		}
	}
}

func TestManager_AllOrNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	batch := []*domain.SaleRecord{
		install("app1", "1.0", day(1), 5, 0.99),
		install("app1", "1.0", day(1), 1, -0.10), // negative proceeds
	}
	_, _, err := env.manager.IngestDay(ctx, day(1), batch, ingest.IntentFresh)
	var integrityErr *metrics.DataIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected *DataIntegrityError, got %v", err)
	}

	// Nothing may be partially applied: no counters, no ledger entry.
	if _, err := env.metricsStore.Get(ctx, "app1", "1.0"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("counters partially applied: %v", err)
	}
	ingested, err := env.manager.Ledger().IsIngested(ctx, day(1))
	if err != nil {
		t.Fatalf("IsIngested failed: %v", err)
	}
	if ingested {
		t.Error("rejected batch must not be admitted to the ledger")
	}

	// The date remains ingestible after the bad batch is fixed.
	if _, _, err := env.manager.IngestDay(ctx, day(1), batch[:1], ingest.IntentFresh); err != nil {
		t.Fatalf("retry after integrity failure failed: %v", err)
	}
}

func TestManager_FillGapAdvancesMarker(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, _, err := env.manager.IngestDay(ctx, day(1), []*domain.SaleRecord{
		install("app1", "1.0", day(1), 1, 0),
	}, ingest.IntentFresh); err != nil {
		t.Fatalf("IngestDay failed: %v", err)
	}
	if _, err := env.manager.FillGap(ctx, day(2)); err != nil {
		t.Fatalf("FillGap failed: %v", err)
	}

	applied, err := env.metricsStore.LastApplied(ctx)
	if err != nil {
		t.Fatalf("LastApplied failed: %v", err)
	}
	if applied != day(2) {
		t.Errorf("LastApplied = %v, want %v", applied, day(2))
	}
	if err := env.manager.VerifyConsistency(ctx); err != nil {
		t.Errorf("VerifyConsistency failed: %v", err)
	}
}

func TestManager_VerifyConsistency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Empty state is consistent.
	if err := env.manager.VerifyConsistency(ctx); err != nil {
		t.Fatalf("empty state: %v", err)
	}

	// A ledger entry without an applied date simulates a crash between
	// admission and application.
	if err := env.ledgerStore.Put(ctx, &domain.LedgerEntry{Date: day(3), ContentHash: "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	err := env.manager.VerifyConsistency(ctx)
	if err == nil {
		t.Fatal("expected inconsistency error")
	}
	if !strings.Contains(err.Error(), day(3).String()) {
		t.Errorf("error must name the date: %v", err)
	}
}

func TestManager_IngestRatings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	n, err := env.manager.IngestRatings(ctx, []*domain.RatingEvent{
		{App: "app1", Country: "US", Rating: 5, Version: "1.0"},
		{App: "app2", Country: "DE", Rating: 3},
	}, domain.NewFilter([]string{"app1"}, nil))
	if err != nil {
		t.Fatalf("IngestRatings failed: %v", err)
	}
	if n != 1 {
		t.Errorf("applied %d events, want 1", n)
	}
}
