package strategy

import (
	"log"
	"math"

	"trading-core/internal/indicators"
	"trading-core/internal/model"
)

// MeanReversionConfig carries the tunable knobs for MeanReversionStrategy.
type MeanReversionConfig struct {
	BBPeriod    int // default 100
	BBStdDev    float64
	RSIPeriod   int // default 20
	RSILow      float64
	RSIHigh     float64
	EntryThresh float64 // default 0.8
	ExitThresh  float64 // default 0.1
	VolShort    int // default 20, log-return window
	VolLong     int // default 60, log-return window
}

// DefaultMeanReversionConfig returns the spec's default mean-reversion parameters.
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		BBPeriod:    100,
		BBStdDev:    2.0,
		RSIPeriod:   20,
		RSILow:      30,
		RSIHigh:     70,
		EntryThresh: 0.8,
		ExitThresh:  0.1,
		VolShort:    20,
		VolLong:     60,
	}
}

// MeanReversionStrategy fades extended moves back toward the middle band
// when recent volatility is contracting relative to its longer baseline.
type MeanReversionStrategy struct {
	cfg MeanReversionConfig

	bb       *indicators.Bollinger
	rsi      *indicators.RSI
	volShort *indicators.RollingStats
	volLong  *indicators.RollingStats

	haveClose bool
	prevClose float64

	signal model.Side
}

// NewMeanReversionStrategy builds a mean-reversion producer from the given config.
func NewMeanReversionStrategy(cfg MeanReversionConfig) *MeanReversionStrategy {
	return &MeanReversionStrategy{
		cfg:      cfg,
		bb:       indicators.NewBollinger(cfg.BBPeriod, cfg.BBStdDev),
		rsi:      indicators.NewRSI(cfg.RSIPeriod),
		volShort: indicators.NewRollingStats(cfg.VolShort),
		volLong:  indicators.NewRollingStats(cfg.VolLong),
	}
}

// OnBar advances every owned indicator and re-evaluates the signal.
func (r *MeanReversionStrategy) OnBar(bar model.Bar) {
	bbValue := r.bb.Update(bar.Close)
	r.rsi.Update(bar.Close)

	logReturn := 0.0
	if r.haveClose {
		if r.prevClose <= 0 {
			log.Printf("meanreversion: non-positive prev_close %v, treating log-return as 0", r.prevClose)
		} else {
			logReturn = math.Log(bar.Close / r.prevClose)
		}
	}
	r.volShort.Update(logReturn)
	r.volLong.Update(logReturn)
	r.prevClose = bar.Close
	r.haveClose = true

	if !r.bb.Ready() || !r.rsi.Ready() || !r.volShort.Ready() || !r.volLong.Ready() {
		r.signal = model.Flat
		return
	}

	std := (bbValue.Upper - bbValue.Middle) / r.cfg.BBStdDev
	bbPos := 0.0
	if std > 0 {
		bbPos = (bar.Close - bbValue.Middle) / (2 * std)
	}
	rsi := r.rsi.Value()
	contracting := r.volShort.StdDev() < r.volLong.StdDev()

	r.decide(bbPos, rsi, contracting)
}

// decide applies the entry/exit precedence rule against the already-computed
// indicator readings for one bar. Entry checks are evaluated before exit
// checks: entry and exit thresholds overlap (0.8 vs 0.1), so a Long position
// whose bb_pos jumps past 0.8 hits both exit_long and short_entry on the same
// bar, and short_entry wins: the signal flips to Short rather than going Flat.
func (r *MeanReversionStrategy) decide(bbPos, rsi float64, contracting bool) {
	longEntry := bbPos < -r.cfg.EntryThresh && rsi < r.cfg.RSILow && contracting
	shortEntry := bbPos > r.cfg.EntryThresh && rsi > r.cfg.RSIHigh && contracting

	switch {
	case longEntry:
		r.signal = model.Long
	case shortEntry:
		r.signal = model.Short
	case r.signal == model.Long && bbPos > r.cfg.ExitThresh:
		r.signal = model.Flat
	case r.signal == model.Short && bbPos < -r.cfg.ExitThresh:
		r.signal = model.Flat
	}
	// otherwise hold the prior signal unchanged
}

// Signal returns the current desired position side.
func (r *MeanReversionStrategy) Signal() model.Side {
	return r.signal
}

// Name identifies this producer for logging and reporting.
func (r *MeanReversionStrategy) Name() string {
	return "mean_reversion"
}
