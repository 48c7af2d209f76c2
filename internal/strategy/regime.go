package strategy

import (
	"log"
	"math"

	"trading-core/internal/indicators"
	"trading-core/internal/model"
)

// RegimeDetector classifies recent market behavior into one of the four
// volatility/trend quadrants. It never emits a trade signal itself; the
// engine dispatches to the momentum or mean-reversion producer based on
// Regime().
type RegimeDetector struct {
	volShort *indicators.RollingStats
	volLong  *indicators.RollingStats
	trendSMA *indicators.SMA

	trendThreshold float64
	haveClose      bool
	prevClose      float64

	regime model.Regime
}

// NewRegimeDetector builds a regime detector with the given window sizes.
func NewRegimeDetector(volShort, volLong, trendSMA int, trendThreshold float64) *RegimeDetector {
	return &RegimeDetector{
		volShort:       indicators.NewRollingStats(volShort),
		volLong:        indicators.NewRollingStats(volLong),
		trendSMA:       indicators.NewSMA(trendSMA),
		trendThreshold: trendThreshold,
	}
}

// OnBar feeds the bar's close into the volatility and trend windows.
func (d *RegimeDetector) OnBar(bar model.Bar) {
	logReturn := 0.0
	if d.haveClose {
		if d.prevClose <= 0 {
			log.Printf("regime: non-positive prev_close %v, treating log-return as 0", d.prevClose)
		} else {
			logReturn = math.Log(bar.Close / d.prevClose)
		}
	}
	d.volShort.Update(logReturn)
	d.volLong.Update(logReturn)
	d.trendSMA.Update(bar.Close)
	d.prevClose = bar.Close
	d.haveClose = true

	if !d.volShort.Ready() || !d.volLong.Ready() || !d.trendSMA.Ready() {
		d.regime = model.RegimeUndefined
		return
	}

	lowVol := d.volShort.StdDev() <= d.volLong.StdDev()
	trendSMA := d.trendSMA.Value()
	trendStrength := 0.0
	if trendSMA != 0 {
		trendStrength = math.Abs(bar.Close-trendSMA) / trendSMA
	}
	trending := trendStrength > d.trendThreshold

	switch {
	case lowVol && trending:
		d.regime = model.RegimeLVTrend
	case !lowVol && trending:
		d.regime = model.RegimeHVTrend
	case lowVol && !trending:
		d.regime = model.RegimeLVRange
	default:
		d.regime = model.RegimeHVRange
	}
}

// Regime returns the most recently computed regime classification.
func (d *RegimeDetector) Regime() model.Regime {
	return d.regime
}

// Signal always returns flat; the regime detector never trades on its own.
func (d *RegimeDetector) Signal() model.Side {
	return model.Flat
}

// Name identifies this producer for logging and reporting.
func (d *RegimeDetector) Name() string {
	return "regime"
}
