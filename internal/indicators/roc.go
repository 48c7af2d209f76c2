package indicators

import "trading-core/internal/ringbuffer"

// ROC is a streaming Rate of Change over a window of P+1 samples:
// (current - oldest) / oldest. Returns 0 if oldest is 0.
type ROC struct {
	period int
	window *ringbuffer.RingBuffer[float64]
	value  float64
}

// NewROC creates an ROC indicator with the given period.
func NewROC(period int) *ROC {
	return &ROC{
		period: period,
		window: ringbuffer.New[float64](period + 1),
	}
}

// Update pushes a new sample and returns the current ROC value.
func (r *ROC) Update(x float64) float64 {
	r.window.Push(x)
	if !r.Ready() {
		return r.value
	}
	oldest := r.window.Get(r.window.Size() - 1)
	if oldest == 0 {
		r.value = 0
		return r.value
	}
	r.value = (x - oldest) / oldest
	return r.value
}

// Value returns the current ROC value. Undefined while !Ready().
func (r *ROC) Value() float64 {
	return r.value
}

// Ready is true once P+1 samples have been observed.
func (r *ROC) Ready() bool {
	return r.window.Size() >= r.period+1
}
