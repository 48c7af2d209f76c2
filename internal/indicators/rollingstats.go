package indicators

import (
	"math"

	"trading-core/internal/ringbuffer"
)

// zeroEpsilon guards stddev-based divisions against float noise near zero.
const zeroEpsilon = 1e-9

// RollingStats maintains sum and sum-of-squares over a fixed-size window,
// exposing mean, population stddev, and the z-score of the most recent
// sample. Negative variance from floating round-off is clamped to 0 before
// the square root.
type RollingStats struct {
	period int
	window *ringbuffer.RingBuffer[float64]
	sum    float64
	sumSq  float64
	last   float64
}

// NewRollingStats creates a RollingStats indicator with the given period.
func NewRollingStats(period int) *RollingStats {
	return &RollingStats{
		period: period,
		window: ringbuffer.New[float64](period),
	}
}

// Update pushes a new sample and returns the z-score of that sample.
func (s *RollingStats) Update(x float64) float64 {
	if s.window.IsFull() {
		evicted := s.window.Get(s.window.Size() - 1)
		s.sum -= evicted
		s.sumSq -= evicted * evicted
	}
	s.window.Push(x)
	s.sum += x
	s.sumSq += x * x
	s.last = x
	return s.ZScore()
}

// Mean returns the current window mean.
func (s *RollingStats) Mean() float64 {
	n := s.window.Size()
	if n == 0 {
		return 0
	}
	return s.sum / float64(n)
}

// StdDev returns the current population standard deviation.
func (s *RollingStats) StdDev() float64 {
	n := s.window.Size()
	if n == 0 {
		return 0
	}
	nf := float64(n)
	mean := s.sum / nf
	variance := s.sumSq/nf - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// ZScore returns (x - mean) / stddev for the most recently pushed sample,
// or 0 if stddev is below zeroEpsilon.
func (s *RollingStats) ZScore() float64 {
	std := s.StdDev()
	if std < zeroEpsilon {
		return 0
	}
	return (s.last - s.Mean()) / std
}

// Value returns the most recently pushed sample's z-score (alias of ZScore,
// kept to satisfy the shared indicator contract).
func (s *RollingStats) Value() float64 {
	return s.ZScore()
}

// Ready is true once the window holds a full period of samples.
func (s *RollingStats) Ready() bool {
	return s.window.Size() >= s.period
}
