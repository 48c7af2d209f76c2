package store

import (
	"context"
	"testing"

	"trading-core/internal/engine"
	"trading-core/internal/model"
)

func TestSaveAndGetReportRoundTrips(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	report := engine.Report{
		FinalEquity:    105000,
		TotalReturnPct: 5.0,
		TotalTrades:    2,
		WinningTrades:  1,
		WinRate:        0.5,
		GrossProfit:    600,
		GrossLoss:      100,
		ProfitFactor:   6.0,
		DurationMs:     42,
		BarsPerSec:     1000,
	}
	trades := []model.Trade{
		{EntryTime: 0, ExitTime: 60, EntryPrice: 100, ExitPrice: 106, Side: model.Long, Quantity: 100, PnL: 600},
		{EntryTime: 120, ExitTime: 180, EntryPrice: 106, ExitPrice: 105, Side: model.Long, Quantity: 100, PnL: -100},
	}
	equity := []EquityPoint{{BarIndex: 0, Equity: 100000}, {BarIndex: 1, Equity: 105000}}

	if err := s.SaveRun(ctx, "run-1", "machine-abc", report, trades, equity); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.FinalEquity != report.FinalEquity || got.TotalTrades != report.TotalTrades {
		t.Fatalf("GetReport = %+v, want %+v", got, report)
	}

	gotTrades, err := s.GetTrades(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetTrades failed: %v", err)
	}
	if len(gotTrades) != 2 {
		t.Fatalf("len(gotTrades) = %d, want 2", len(gotTrades))
	}
	if gotTrades[0].Side != model.Long {
		t.Fatalf("trade side = %v, want Long", gotTrades[0].Side)
	}
}

func TestGetReportMissingRunErrors(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := s.GetReport(context.Background(), "does-not-exist"); err == nil {
		t.Fatal("expected an error for a missing run ID")
	}
}
