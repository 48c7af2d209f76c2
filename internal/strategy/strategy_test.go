package strategy

import (
	"testing"

	"trading-core/internal/model"
)

func flatBars(n int, price, volume float64, startTS int64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = model.Bar{
			Timestamp: startTS + int64(i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
		}
	}
	return bars
}

func TestRegimeDetectorUndefinedUntilReady(t *testing.T) {
	d := NewRegimeDetector(5, 10, 15, 0.005)
	for i, bar := range flatBars(14, 100, 1000, 0) {
		d.OnBar(bar)
		if d.Regime() != model.RegimeUndefined {
			t.Fatalf("bar %d: regime = %v, want UNDEFINED before all windows ready", i, d.Regime())
		}
	}
}

func TestRegimeDetectorConstantPriceIsLowVolRange(t *testing.T) {
	d := NewRegimeDetector(5, 10, 15, 0.005)
	for _, bar := range flatBars(40, 100, 1000, 0) {
		d.OnBar(bar)
	}
	if got := d.Regime(); got != model.RegimeLVRange {
		t.Fatalf("constant-price regime = %v, want LV_RANGE", got)
	}
}

func TestRegimeDetectorNeverEmitsASignal(t *testing.T) {
	d := NewRegimeDetector(5, 10, 15, 0.005)
	for _, bar := range flatBars(40, 100, 1000, 0) {
		d.OnBar(bar)
		if d.Signal() != model.Flat {
			t.Fatalf("regime detector emitted a non-flat signal")
		}
	}
}

func TestMomentumStaysFlatBeforeReady(t *testing.T) {
	cfg := DefaultMomentumConfig()
	m := NewMomentumStrategy(cfg)
	for _, bar := range flatBars(cfg.ROCPeriod, 100, 1000, 0) {
		m.OnBar(bar)
		if m.Signal() != model.Flat {
			t.Fatal("momentum emitted a signal before warming up")
		}
	}
}

func TestMomentumLongOnSustainedRally(t *testing.T) {
	cfg := DefaultMomentumConfig()
	m := NewMomentumStrategy(cfg)

	price := 100.0
	ts := int64(0)
	// Warm up on flat bars at modest volume.
	for i := 0; i < 300; i++ {
		m.OnBar(model.Bar{Timestamp: ts, Open: price, High: price, Low: price, Close: price, Volume: 1000})
		ts++
	}
	// Sustained rally on elevated volume should eventually flip long.
	wentLong := false
	for i := 0; i < 150; i++ {
		price += 0.2
		bar := model.Bar{Timestamp: ts, Open: price - 0.2, High: price + 0.1, Low: price - 0.3, Close: price, Volume: 2500}
		m.OnBar(bar)
		ts++
		if m.Signal() == model.Long {
			wentLong = true
			break
		}
	}
	if !wentLong {
		t.Fatal("expected momentum to go long on a sustained rally with elevated volume")
	}
}

func TestMeanReversionStaysFlatBeforeReady(t *testing.T) {
	cfg := DefaultMeanReversionConfig()
	r := NewMeanReversionStrategy(cfg)
	for _, bar := range flatBars(cfg.BBPeriod, 100, 1000, 0) {
		r.OnBar(bar)
		if r.Signal() != model.Flat {
			t.Fatal("mean-reversion emitted a signal before warming up")
		}
	}
}

func TestMeanReversionConstantPriceNeverTrades(t *testing.T) {
	cfg := DefaultMeanReversionConfig()
	r := NewMeanReversionStrategy(cfg)
	for _, bar := range flatBars(400, 100, 1000, 0) {
		r.OnBar(bar)
		if r.Signal() != model.Flat {
			t.Fatal("mean-reversion traded on a perfectly flat price series")
		}
	}
}

// Regression: entry conditions take precedence over exit conditions when
// both fire on the same bar, since the entry and exit thresholds overlap.
// A Long position whose bb_pos swings past the short-entry threshold must
// flip to Short, not flatten, because short_entry is checked before exit_long.
func TestMeanReversionEntryPrecedesExitOnOverlappingThresholds(t *testing.T) {
	cfg := DefaultMeanReversionConfig()
	r := NewMeanReversionStrategy(cfg)
	r.signal = model.Long // simulate an already-open long position

	// bbPos = 0.9 clears both ExitThresh (0.1, would flatten a Long) and
	// EntryThresh (0.8, satisfies shortEntry) on the upper side.
	r.decide(0.9, cfg.RSIHigh+1, true)

	if r.Signal() != model.Short {
		t.Fatalf("signal = %v, want Short: short_entry must win over exit_long on overlapping thresholds", r.Signal())
	}
}

// Without a live short_entry, the same overlap must still flatten a Long.
func TestMeanReversionExitFiresWhenNoOpposingEntry(t *testing.T) {
	cfg := DefaultMeanReversionConfig()
	r := NewMeanReversionStrategy(cfg)
	r.signal = model.Long

	// bbPos past ExitThresh but rsi doesn't clear RSIHigh, so shortEntry
	// is false and the exit branch is reached.
	r.decide(0.9, cfg.RSIHigh-10, true)

	if r.Signal() != model.Flat {
		t.Fatalf("signal = %v, want Flat: exit_long should fire when short_entry doesn't", r.Signal())
	}
}
