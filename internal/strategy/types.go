package strategy

import "trading-core/internal/model"

// Producer is the shared capability set of the three signal producers: the
// regime detector, the momentum strategy, and the mean-reversion strategy.
// A producer whose indicators are not yet ready must report Signal() == 0.
type Producer interface {
	// OnBar advances all owned indicators by exactly one bar.
	OnBar(bar model.Bar)
	// Signal returns the desired position side for the current bar.
	Signal() model.Side
	// Name returns the human-readable producer name.
	Name() string
}
