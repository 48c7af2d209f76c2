package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks API and backtest run performance for the /metrics
// and /metrics/prom endpoints.
type SystemMetrics struct {
	APILatency *LatencyHistogram
	RunLatency *LatencyHistogram

	apiRequests    uint64
	apiErrors      uint64
	runsCompleted  uint64
	barsProcessed  uint64
	tradesExecuted uint64
	errorsCount    uint64

	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with a sliding window and lazily
// recomputes percentile stats only when new samples have arrived.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		APILatency: NewLatencyHistogram(1000),
		RunLatency: NewLatencyHistogram(1000),
		lastUpdate: time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99, recomputing only if dirty.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementAPI increments the API request counter.
func (m *SystemMetrics) IncrementAPI() {
	atomic.AddUint64(&m.apiRequests, 1)
}

// IncrementAPIErrors increments the API error counter.
func (m *SystemMetrics) IncrementAPIErrors() {
	atomic.AddUint64(&m.apiErrors, 1)
}

// IncrementRunsCompleted increments the completed-backtest counter.
func (m *SystemMetrics) IncrementRunsCompleted() {
	atomic.AddUint64(&m.runsCompleted, 1)
}

// AddBarsProcessed adds n to the cumulative bars-processed counter.
func (m *SystemMetrics) AddBarsProcessed(n int) {
	atomic.AddUint64(&m.barsProcessed, uint64(n))
}

// AddTradesExecuted adds n to the cumulative trades-executed counter.
func (m *SystemMetrics) AddTradesExecuted(n int) {
	atomic.AddUint64(&m.tradesExecuted, uint64(n))
}

// IncrementErrors increments the general error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// MetricsSnapshot is a point-in-time view returned by GetSnapshot.
type MetricsSnapshot struct {
	APIRequests    uint64       `json:"api_requests"`
	APIErrors      uint64       `json:"api_errors"`
	APILatency     LatencyStats `json:"api_latency"`
	RunsCompleted  uint64       `json:"runs_completed"`
	BarsProcessed  uint64       `json:"bars_processed"`
	TradesExecuted uint64       `json:"trades_executed"`
	RunLatency     LatencyStats `json:"run_latency"`
	ErrorsCount    uint64       `json:"errors_count"`
	GoroutineCount int          `json:"goroutine_count"`
	HeapAlloc      uint64       `json:"heap_alloc_bytes"`
	HeapSys        uint64       `json:"heap_sys_bytes"`
	Timestamp      time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		APIRequests:    atomic.LoadUint64(&m.apiRequests),
		APIErrors:      atomic.LoadUint64(&m.apiErrors),
		APILatency:     m.APILatency.Stats(),
		RunsCompleted:  atomic.LoadUint64(&m.runsCompleted),
		BarsProcessed:  atomic.LoadUint64(&m.barsProcessed),
		TradesExecuted: atomic.LoadUint64(&m.tradesExecuted),
		RunLatency:     m.RunLatency.Stats(),
		ErrorsCount:    atomic.LoadUint64(&m.errorsCount),
		GoroutineCount: runtime.NumGoroutine(),
		HeapAlloc:      memStats.HeapAlloc,
		HeapSys:        memStats.HeapSys,
		Timestamp:      time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), histogram: h}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
