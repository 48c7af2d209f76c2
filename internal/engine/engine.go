package engine

import (
	"log"
	"time"

	"trading-core/internal/events"
	"trading-core/internal/execution"
	"trading-core/internal/indicators"
	"trading-core/internal/model"
	"trading-core/internal/risk"
	"trading-core/internal/strategy"
)

// atrFallbackFraction is the documented fallback ATR estimate used only
// before the ATR(14) indicator owned by the engine has warmed up: a flat
// 1% of the entry price, per the core design's open question on ATR at
// entry. Once the ATR indicator is ready its live value is used instead.
const atrFallbackFraction = 0.01

// Config bundles everything the engine needs to construct its owned
// indicators, strategies, execution simulator, and risk governor.
type Config struct {
	InitialCapital     float64
	AllocationFraction float64
	FeeRate            float64
	ATRPeriod          int

	Risk          risk.Config
	Momentum      strategy.MomentumConfig
	MeanReversion strategy.MeanReversionConfig
	Regime        RegimeParams
}

// RegimeParams mirrors strategy.NewRegimeDetector's plain-argument
// constructor.
type RegimeParams struct {
	VolShort       int
	VolLong        int
	TrendSMA       int
	TrendThreshold float64
}

// Engine owns one simulation's full state for the lifetime of a run:
// indicators, the three signal producers, the execution simulator, and the
// risk governor. No state is shared across Engine instances.
type Engine struct {
	cfg Config

	regime        *strategy.RegimeDetector
	momentum      *strategy.MomentumStrategy
	meanReversion *strategy.MeanReversionStrategy
	atr           *indicators.ATR

	exec *execution.Simulator
	risk *risk.Governor

	bus *events.Bus // optional; nil disables progress/alert publishing

	equitySink func(barIndex int, equity float64)
}

// SetEquitySink registers a callback invoked once per bar with the running
// equity mark. Callers use this to stream the equity curve to storage
// without holding the whole run in memory; nil (the default) is a no-op.
func (e *Engine) SetEquitySink(sink func(barIndex int, equity float64)) {
	e.equitySink = sink
}

// New constructs an Engine ready to run a bar sequence.
func New(cfg Config, bus *events.Bus) *Engine {
	return &Engine{
		cfg:           cfg,
		regime:        strategy.NewRegimeDetector(cfg.Regime.VolShort, cfg.Regime.VolLong, cfg.Regime.TrendSMA, cfg.Regime.TrendThreshold),
		momentum:      strategy.NewMomentumStrategy(cfg.Momentum),
		meanReversion: strategy.NewMeanReversionStrategy(cfg.MeanReversion),
		atr:           indicators.NewATR(cfg.ATRPeriod),
		exec:          execution.NewSimulator(cfg.InitialCapital, cfg.FeeRate),
		risk:          risk.NewGovernor(cfg.Risk),
		bus:           bus,
	}
}

// Report is the end-of-run summary record.
type Report struct {
	FinalEquity    float64
	TotalReturnPct float64
	TotalTrades    int
	WinningTrades  int
	WinRate        float64
	GrossProfit    float64
	GrossLoss      float64
	ProfitFactor   float64
	DurationMs     int64
	BarsPerSec     float64
}

// profitFactorSentinel stands in for gross_profit / 0, per the core
// design's documented sentinel for profit factor when there were no losses.
const profitFactorSentinel = 99.9

// Run executes the full bar sequence and returns the closing report. The
// per-bar step order is the core correctness invariant and must not be
// reordered: settle fills, check the trailing stop, advance indicators and
// strategies, dispatch by regime, decide, submit, then tick risk.
func (e *Engine) Run(bars []model.Bar) Report {
	start := time.Now()

	for i, bar := range bars {
		closedBefore := len(e.exec.Trades())
		e.exec.SettleFills(bar)
		for _, tr := range e.exec.Trades()[closedBefore:] {
			e.publishTrade(tr)
		}

		// A triggered stop is booked as a loss unconditionally, at the
		// moment the close is submitted — not deferred to the realized
		// PnL of the fill a bar later. A stop firing worse than entry is
		// the expected case; treating it as anything else would let a
		// favorable print on the fill bar mask that the stop tripped.
		if e.exec.IsInvested() && e.risk.CheckExit(bar) {
			e.exec.ClosePosition()
			e.risk.OnExit(false)
		}

		e.regime.OnBar(bar)
		e.momentum.OnBar(bar)
		e.meanReversion.OnBar(bar)
		e.atr.Update(bar.High, bar.Low, bar.Close)

		signal := e.dispatch()

		equity := e.exec.Equity(bar.Close)
		e.risk.UpdateEquity(equity)

		switch {
		case signal != model.Flat && e.exec.Position().IsFlat() && e.risk.CanEnter(bar):
			qty := e.cfg.AllocationFraction * e.cfg.InitialCapital / bar.Close
			e.exec.Submit(signal, qty)
			atrEstimate := e.atr.Value()
			if !e.atr.Ready() {
				atrEstimate = atrFallbackFraction * bar.Close
			}
			e.risk.OnEntry(bar, bar.Close, atrEstimate, signal)

		case signal == model.Flat && e.exec.IsInvested():
			// A signal-driven flat is always booked as a win for cooldown
			// purposes — also hardcoded at decision time, not from PnL.
			e.exec.ClosePosition()
			e.risk.OnExit(true)
		}

		if e.risk.ShouldForceFlat() {
			e.publishRiskAlert(bar, equity)
			if e.exec.IsInvested() {
				e.exec.ClosePosition()
				e.risk.ForceExit()
			}
		}
		e.risk.Tick()

		if e.equitySink != nil {
			e.equitySink(i, equity)
		}
		e.publishProgress(i, len(bars), bar)
	}

	return e.buildReport(bars, start)
}

// dispatch selects which producer's signal the engine acts on, based on the
// regime detector's current classification. The regime detector's own
// Signal() is always flat; it is never consulted for trading decisions.
func (e *Engine) dispatch() model.Side {
	switch e.regime.Regime() {
	case model.RegimeLVTrend, model.RegimeHVTrend:
		return e.momentum.Signal()
	case model.RegimeLVRange:
		return e.meanReversion.Signal()
	case model.RegimeHVRange:
		return model.Flat
	default: // UNDEFINED: indicators not yet ready
		return model.Flat
	}
}

func (e *Engine) publishProgress(index, total int, bar model.Bar) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventBarProcessed, events.BarProgress{
		Index:  index,
		Total:  total,
		Equity: e.exec.Equity(bar.Close),
		Regime: e.regime.Regime().String(),
	})
}

func (e *Engine) publishRiskAlert(bar model.Bar, equity float64) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventRiskAlert, events.RiskAlert{
		Timestamp: bar.Timestamp,
		Equity:    equity,
		Reason:    "max_drawdown_limit breached: forcing flat and suspending entries",
	})
}

func (e *Engine) publishTrade(tr model.Trade) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.EventTradeClosed, tr)
}

func (e *Engine) buildReport(bars []model.Bar, start time.Time) Report {
	duration := time.Since(start)

	finalPrice := e.cfg.InitialCapital
	if len(bars) > 0 {
		finalPrice = bars[len(bars)-1].Close
	}
	finalEquity := e.exec.Equity(finalPrice)

	trades := e.exec.Trades()
	var grossProfit, grossLoss float64
	var winning int
	for _, tr := range trades {
		if tr.PnL >= 0 {
			grossProfit += tr.PnL
			winning++
		} else {
			grossLoss += -tr.PnL
		}
	}

	profitFactor := profitFactorSentinel
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(winning) / float64(len(trades))
	}

	barsPerSec := 0.0
	if duration > 0 {
		barsPerSec = float64(len(bars)) / duration.Seconds()
	}

	report := Report{
		FinalEquity:    finalEquity,
		TotalReturnPct: (finalEquity - e.cfg.InitialCapital) / e.cfg.InitialCapital * 100,
		TotalTrades:    len(trades),
		WinningTrades:  winning,
		WinRate:        winRate,
		GrossProfit:    grossProfit,
		GrossLoss:      grossLoss,
		ProfitFactor:   profitFactor,
		DurationMs:     duration.Milliseconds(),
		BarsPerSec:     barsPerSec,
	}

	if e.bus != nil {
		e.bus.Publish(events.EventRunCompleted, report)
	}
	log.Printf("engine: run complete, %d bars, %d trades, final equity %.2f", len(bars), len(trades), finalEquity)
	return report
}

// Trades exposes the closed-trade ledger for callers that need it alongside
// the summary Report (e.g. persistence).
func (e *Engine) Trades() []model.Trade {
	return e.exec.Trades()
}
