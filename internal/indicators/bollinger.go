package indicators

import (
	"math"

	"trading-core/internal/ringbuffer"
)

// BollingerValue is the small named tuple Bollinger bands expose.
type BollingerValue struct {
	Middle float64
	Upper  float64
	Lower  float64
	PctB   float64 // (x - lower) / (upper - lower), or 0.5 when bands coincide
}

// Bollinger is a streaming Bollinger Bands indicator: middle = SMA(P) of
// closes, std computed from the same window (population basis), upper/lower
// = middle +/- k*std.
type Bollinger struct {
	period int
	k      float64
	window *ringbuffer.RingBuffer[float64]
	sum    float64
	sumSq  float64
	value  BollingerValue
}

// NewBollinger creates a Bollinger indicator with the given period and
// number of standard deviations.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{
		period: period,
		k:      k,
		window: ringbuffer.New[float64](period),
	}
}

// Update pushes a new close price and returns the current band values.
func (b *Bollinger) Update(close float64) BollingerValue {
	if b.window.IsFull() {
		evicted := b.window.Get(b.window.Size() - 1)
		b.sum -= evicted
		b.sumSq -= evicted * evicted
	}
	b.window.Push(close)
	b.sum += close
	b.sumSq += close * close

	n := float64(b.window.Size())
	middle := b.sum / n
	variance := b.sumSq/n - middle*middle
	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance)

	upper := middle + b.k*std
	lower := middle - b.k*std

	pctB := 0.5
	if width := upper - lower; width > zeroEpsilon {
		pctB = (close - lower) / width
	}

	b.value = BollingerValue{Middle: middle, Upper: upper, Lower: lower, PctB: pctB}
	return b.value
}

// Value returns the current band values. Undefined while !Ready().
func (b *Bollinger) Value() BollingerValue {
	return b.value
}

// Ready is true once the window holds a full period of samples.
func (b *Bollinger) Ready() bool {
	return b.window.Size() >= b.period
}
