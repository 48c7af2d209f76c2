package execution

import (
	"math"
	"testing"

	"trading-core/internal/model"
)

const tol = 1e-9

func bar(ts int64, open, high, low, close, volume float64) model.Bar {
	return model.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func TestSubmitDoesNotSettleWithinSameBar(t *testing.T) {
	sim := NewSimulator(100000, 0)
	sim.Submit(model.Long, 1)
	if sim.IsInvested() {
		t.Fatal("order must not settle before the next bar's SettleFills")
	}
}

func TestNoLookAheadFillsAtNextBarOpen(t *testing.T) {
	sim := NewSimulator(100000, 0)

	sim.SettleFills(bar(0, 100, 100, 100, 100, 1000)) // nothing pending
	sim.Submit(model.Long, 2)

	sim.SettleFills(bar(1, 105, 110, 95, 108, 1000)) // fill should use open=105, not close=108
	pos := sim.Position()
	if pos.Side != model.Long || math.Abs(pos.EntryPrice-105) > tol {
		t.Fatalf("position = %+v, want long entry at open 105", pos)
	}
}

func TestClosePositionEmitsTradeAtNextOpen(t *testing.T) {
	sim := NewSimulator(100000, 0)
	sim.Submit(model.Long, 1)
	sim.SettleFills(bar(0, 100, 101, 99, 100, 1000))

	sim.ClosePosition()
	sim.SettleFills(bar(1, 110, 111, 109, 110, 1000))

	if sim.IsInvested() {
		t.Fatal("expected flat after close fill")
	}
	trades := sim.Trades()
	if len(trades) != 1 {
		t.Fatalf("len(trades) = %d, want 1", len(trades))
	}
	want := 10.0 // (110 - 100) * 1 * side(+1) - zero fees
	if math.Abs(trades[0].PnL-want) > tol {
		t.Fatalf("trade PnL = %v, want %v", trades[0].PnL, want)
	}
}

func TestShortTradePnLSignConvention(t *testing.T) {
	sim := NewSimulator(100000, 0)
	sim.Submit(model.Short, 1)
	sim.SettleFills(bar(0, 100, 100, 100, 100, 1000))

	sim.ClosePosition()
	sim.SettleFills(bar(1, 90, 90, 90, 90, 1000))

	trades := sim.Trades()
	if len(trades) != 1 {
		t.Fatalf("len(trades) = %d, want 1", len(trades))
	}
	want := 10.0 // short profits when price falls: side(-1) * (90-100) * 1 = 10
	if math.Abs(trades[0].PnL-want) > tol {
		t.Fatalf("short trade PnL = %v, want %v", trades[0].PnL, want)
	}
}

func TestEquityConservationWithZeroFees(t *testing.T) {
	initial := 100000.0
	sim := NewSimulator(initial, 0)

	sim.Submit(model.Long, 10)
	sim.SettleFills(bar(0, 50, 51, 49, 50, 1000))
	sim.ClosePosition()
	sim.SettleFills(bar(1, 55, 56, 54, 55, 1000))

	var realized float64
	for _, tr := range sim.Trades() {
		realized += tr.PnL
	}
	gotEquity := sim.Equity(55)
	wantEquity := initial + realized
	if math.Abs(gotEquity-wantEquity) > 1e-6*wantEquity {
		t.Fatalf("equity = %v, want %v (initial %v + realized %v)", gotEquity, wantEquity, initial, realized)
	}
}

func TestFeeAppliedOnBothEntryAndExit(t *testing.T) {
	sim := NewSimulator(100000, 0.001)
	sim.Submit(model.Long, 1)
	sim.SettleFills(bar(0, 100, 100, 100, 100, 1000))
	sim.ClosePosition()
	sim.SettleFills(bar(1, 110, 110, 110, 110, 1000))

	trades := sim.Trades()
	entryFee := 100 * 1 * 0.001
	exitFee := 110 * 1 * 0.001
	want := (110 - 100) - entryFee - exitFee
	if math.Abs(trades[0].PnL-want) > tol {
		t.Fatalf("trade PnL = %v, want %v", trades[0].PnL, want)
	}
}

func TestPositionConsistencyQuantityZeroIffFlat(t *testing.T) {
	sim := NewSimulator(100000, 0)
	if pos := sim.Position(); pos.Quantity != 0 || pos.Side != model.Flat {
		t.Fatal("initial position must be flat with zero quantity")
	}
	sim.Submit(model.Short, 3)
	sim.SettleFills(bar(0, 100, 100, 100, 100, 1000))
	pos := sim.Position()
	if pos.Side == model.Flat && pos.Quantity != 0 {
		t.Fatal("flat side must carry zero quantity")
	}
	if pos.Side != model.Flat && pos.Quantity == 0 {
		t.Fatal("nonzero side must carry nonzero quantity")
	}
}
