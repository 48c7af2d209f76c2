package execution

import (
	"log"

	"trading-core/internal/model"
)

// quantityEpsilon guards |quantity| > 0 checks against float residue.
const quantityEpsilon = 1e-9

// Simulator owns cash, the current position, at most one pending order, and
// the closed-trade ledger. It enforces next-bar-open fills: an order
// submitted while processing bar t cannot affect state observed during bar
// t, only from bar t+1 onward, once SettleFills runs against that bar.
type Simulator struct {
	feeRate float64

	account  model.Account
	pending  *model.PendingOrder
	trades   []model.Trade
	entryFee float64 // fee paid opening the current position, folded into Trade.PnL on close
}

// NewSimulator creates a Simulator with the given starting cash and fee
// rate. A zero fee rate is the documented default.
func NewSimulator(initialCash, feeRate float64) *Simulator {
	return &Simulator{
		feeRate: feeRate,
		account: model.Account{Cash: initialCash},
	}
}

// Submit stores the pending order, overwriting any existing one. Callers
// (the engine) must only call this once per bar; a second call in the same
// bar silently replaces the first, matching the teacher's "programmer error
// becomes a no-op in release" policy for state-precondition violations.
func (s *Simulator) Submit(side model.Side, quantity float64) {
	if side == model.Flat || quantity <= 0 {
		log.Printf("execution: ignoring invalid order side=%v qty=%v", side, quantity)
		return
	}
	s.pending = &model.PendingOrder{Side: side, Quantity: quantity}
}

// ClosePosition submits an order that flattens the current position. It is
// a no-op when already flat.
func (s *Simulator) ClosePosition() {
	if s.account.Position.IsFlat() {
		return
	}
	s.Submit(-s.account.Position.Side, s.account.Position.Quantity)
}

// SettleFills fills any pending order at this bar's open, updates cash and
// position, and emits a Trade when the fill flattens the position.
func (s *Simulator) SettleFills(bar model.Bar) {
	if s.pending == nil {
		return
	}
	order := s.pending
	s.pending = nil

	price := bar.Open
	fee := price * order.Quantity * s.feeRate

	// Cash moves by -side*qty*price on every fill, uniformly; this is what
	// keeps equity(price) = cash + side*qty*price continuous across a fill
	// net of fees, regardless of whether it opens, adds to, or closes a
	// position.
	s.account.Cash -= float64(order.Side)*order.Quantity*price + fee

	pos := s.account.Position
	switch {
	case pos.IsFlat():
		s.account.Position = model.Position{
			Side:       order.Side,
			Quantity:   order.Quantity,
			EntryPrice: price,
			EntryTime:  bar.Timestamp,
		}
		s.entryFee = fee

	case order.Side == -pos.Side:
		// Closing fill: direction reversal is not supported in one fill, so
		// the order quantity must not exceed the open position.
		qty := order.Quantity
		if qty > pos.Quantity {
			qty = pos.Quantity
		}
		pnl := float64(pos.Side)*(price-pos.EntryPrice)*qty - s.entryFee - fee

		s.trades = append(s.trades, model.Trade{
			EntryTime:  pos.EntryTime,
			ExitTime:   bar.Timestamp,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  price,
			Side:       pos.Side,
			Quantity:   qty,
			PnL:        pnl,
		})

		remaining := pos.Quantity - qty
		if remaining <= quantityEpsilon {
			s.account.Position = model.Position{}
			s.entryFee = 0
		} else {
			pos.Quantity = remaining
			s.account.Position = pos
		}

	default:
		// Same-side add: weighted-average the entry price.
		totalCost := pos.Quantity*pos.EntryPrice + order.Quantity*price
		pos.Quantity += order.Quantity
		pos.EntryPrice = totalCost / pos.Quantity
		s.account.Position = pos
		s.entryFee += fee
	}
}

// IsInvested reports whether the account currently holds a nonzero position.
func (s *Simulator) IsInvested() bool {
	return s.account.Position.Quantity > quantityEpsilon
}

// Equity returns cash plus the mark-to-market value of the open position at
// the given price.
func (s *Simulator) Equity(price float64) float64 {
	return s.account.Equity(price)
}

// Position returns the current position.
func (s *Simulator) Position() model.Position {
	return s.account.Position
}

// Cash returns the current cash balance.
func (s *Simulator) Cash() float64 {
	return s.account.Cash
}

// Trades returns the append-only closed-trade ledger. Callers must not
// mutate the returned slice.
func (s *Simulator) Trades() []model.Trade {
	return s.trades
}
