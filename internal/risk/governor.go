package risk

import (
	"time"

	"trading-core/internal/model"
)

// Config carries the tunable knobs for the Governor.
type Config struct {
	ATRStopMultiplier float64 // m in stop_price = price -/+ m*atr; default 2.0
	MaxTradesPerDay   int     // hard cap on entries per calendar day; default 10-20
	CooldownBars      int     // post-loss quiet period in bars; default 5

	// MaxDrawdownLimit is the fraction of peak equity (0 disables) beyond
	// which the governor forces flat and suspends new entries for
	// DrawdownCooldownBars. Resolves the open question in the core design:
	// breach triggers forced-flat-and-cooldown rather than a size cut or an
	// advisory-only knob.
	MaxDrawdownLimit     float64
	DrawdownCooldownBars int
}

// DefaultConfig returns the spec's default risk parameters.
func DefaultConfig() Config {
	return Config{
		ATRStopMultiplier:    2.0,
		MaxTradesPerDay:      20,
		CooldownBars:         5,
		MaxDrawdownLimit:     0, // advisory-off unless the caller sets one
		DrawdownCooldownBars: 20,
	}
}

// Governor coordinates entry gating, trailing ATR stops, per-day trade caps,
// post-loss cooldowns, and a max-drawdown forced-flat suspension. It holds
// in-memory state for exactly one instrument's position lifecycle; there is
// no persistence and no cross-engine sharing.
type Governor struct {
	cfg Config

	tradesToday    int
	lastTradeDay   int64
	cooldownRemain int

	side             model.Side
	entryPrice       float64
	stopPrice        float64
	peakFavorable    float64
	atrAtEntry       float64

	peakEquity       float64
	drawdownBreached bool

	// forceFlat is set when UpdateEquity observes a drawdown breach; the
	// engine must close the position on the bar it's set.
	forceFlat bool
}

// NewGovernor builds a Governor from the given config.
func NewGovernor(cfg Config) *Governor {
	return &Governor{cfg: cfg, lastTradeDay: -1}
}

func dayKey(ts int64) int64 {
	return time.Unix(ts, 0).UTC().Truncate(24 * time.Hour).Unix()
}

// CanEnter reports whether a new entry is permitted on this bar: the
// per-day trade cap has not been reached and no cooldown is in effect.
// trades_today resets when the bar's calendar day differs from the last
// recorded trade day.
func (g *Governor) CanEnter(bar model.Bar) bool {
	if day := dayKey(bar.Timestamp); day != g.lastTradeDay {
		g.tradesToday = 0
	}
	if g.drawdownBreached {
		return false
	}
	return g.tradesToday < g.cfg.MaxTradesPerDay && g.cooldownRemain == 0
}

// OnEntry records a new position's risk state, sets the initial ATR
// trailing stop, and performs the entry-time day bookkeeping: trades_today
// is incremented and last_trade_day is set from the entry bar's timestamp.
func (g *Governor) OnEntry(bar model.Bar, price, atr float64, side model.Side) {
	g.side = side
	g.entryPrice = price
	g.atrAtEntry = atr
	g.peakFavorable = price
	if side == model.Long {
		g.stopPrice = price - g.cfg.ATRStopMultiplier*atr
	} else {
		g.stopPrice = price + g.cfg.ATRStopMultiplier*atr
	}

	if day := dayKey(bar.Timestamp); day != g.lastTradeDay {
		g.tradesToday = 0
		g.lastTradeDay = day
	}
	g.tradesToday++
}

// CheckExit evaluates the current bar against the trailing stop and ratchets
// the stop in the favorable direction only. Returns true if the stop was
// breached intrabar; the caller (engine) is responsible for submitting the
// closing order, which fills at the following bar's open.
func (g *Governor) CheckExit(bar model.Bar) bool {
	if g.side == model.Flat {
		return false
	}

	if g.side == model.Long {
		if bar.Low < g.stopPrice {
			return true
		}
		if bar.High > g.peakFavorable {
			g.peakFavorable = bar.High
			trail := g.peakFavorable - g.cfg.ATRStopMultiplier*g.atrAtEntry
			if trail > g.stopPrice {
				g.stopPrice = trail
			}
		}
		return false
	}

	// Short.
	if bar.High > g.stopPrice {
		return true
	}
	if bar.Low < g.peakFavorable {
		g.peakFavorable = bar.Low
		trail := g.peakFavorable + g.cfg.ATRStopMultiplier*g.atrAtEntry
		if trail < g.stopPrice {
			g.stopPrice = trail
		}
	}
	return false
}

// OnExit clears position-scoped risk state and, on a loss, starts the
// post-loss cooldown. wasWin is the caller's classification of the exit,
// not the trade's eventual realized PnL — the engine calls this at the
// same decision point that submits the close, hardcoding false for a
// triggered stop and true for a signal-driven flat, exactly as the exit
// is classified before the closing order has even filled.
func (g *Governor) OnExit(wasWin bool) {
	g.clearPosition()
	if !wasWin {
		g.cooldownRemain = g.cfg.CooldownBars
	}
}

// ForceExit clears position-scoped risk state without starting the
// per-trade cooldown. Used when a drawdown breach forces the position
// flat: that breach already owns its own cooldown
// (DrawdownCooldownBars, started in UpdateEquity), and running it through
// OnExit would let CooldownBars silently override it.
func (g *Governor) ForceExit() {
	g.clearPosition()
}

func (g *Governor) clearPosition() {
	g.side = model.Flat
	g.entryPrice = 0
	g.stopPrice = 0
	g.peakFavorable = 0
	g.atrAtEntry = 0
}

// Tick decrements the cooldown counter toward 0 once per bar. Call exactly
// once per bar regardless of whether an entry or exit occurred.
func (g *Governor) Tick() {
	if g.cooldownRemain > 0 {
		g.cooldownRemain--
	}
}

// UpdateEquity tracks peak equity and, when MaxDrawdownLimit is set and
// breached, forces the position flat and suspends new entries for
// DrawdownCooldownBars. Call once per bar with the current mark-to-market
// equity, after settle_fills and before the entry decision.
func (g *Governor) UpdateEquity(equity float64) {
	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	if g.cfg.MaxDrawdownLimit <= 0 || g.peakEquity <= 0 {
		return
	}
	drawdown := (g.peakEquity - equity) / g.peakEquity
	if drawdown >= g.cfg.MaxDrawdownLimit {
		if !g.drawdownBreached {
			g.cooldownRemain = g.cfg.DrawdownCooldownBars
		}
		g.drawdownBreached = true
		g.forceFlat = true
		return
	}
	g.drawdownBreached = false
}

// ShouldForceFlat reports (and clears) a pending forced-flat request raised
// by a drawdown breach.
func (g *Governor) ShouldForceFlat() bool {
	v := g.forceFlat
	g.forceFlat = false
	return v
}

// StopPrice returns the current trailing stop, for diagnostics.
func (g *Governor) StopPrice() float64 {
	return g.stopPrice
}
