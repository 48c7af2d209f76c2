package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"trading-core/internal/engine"
	"trading-core/internal/events"
	"trading-core/internal/model"
	"trading-core/internal/monitor"
	"trading-core/internal/store"
	"trading-core/pkg/cache"

	"github.com/gin-gonic/gin"
)

// runCacheTTL bounds how long a completed run's report stays in the
// in-memory cache before a GET falls back to the store.
const runCacheTTL = 30 * time.Minute

// runResult bundles everything a completed run produces, for caching and
// for the run-retrieval endpoints.
type runResult struct {
	Report engine.Report
	Trades []model.Trade
}

// Server wires HTTP endpoints around the backtest engine, its event bus,
// and its persisted run history.
type Server struct {
	Router *gin.Engine

	Bus     *events.Bus
	Store   *store.Store
	Metrics *monitor.SystemMetrics
	Cache   *cache.ShardedRunCache[runResult]

	BaseConfig engine.Config
	JWTSecret  string
	MachineID  string
	Meta       SystemMeta
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	Version string
}

// NewServer constructs a Server with its middleware stack and routes wired.
func NewServer(bus *events.Bus, st *store.Store, metrics *monitor.SystemMetrics, baseConfig engine.Config, meta SystemMeta, jwtSecret, machineID string) *Server {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:     r,
		Bus:        bus,
		Store:      st,
		Metrics:    metrics,
		Cache:      cache.NewShardedRunCache[runResult](runCacheTTL),
		BaseConfig: baseConfig,
		JWTSecret:  jwtSecret,
		MachineID:  machineID,
		Meta:       meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/metrics/prom", s.getPromMetrics)
		api.POST("/token", s.issueToken)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/runs", s.submitRun)
			protected.GET("/runs/:id", s.getRun)
			protected.GET("/runs/:id/trades", s.getRunTrades)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     s.Meta.Version,
		"machine_id":  s.MachineID,
		"server_time": time.Now().UTC(),
	})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// getPromMetrics returns a minimal Prometheus text exposition of the
// metrics snapshot.
func (s *Server) getPromMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.String(http.StatusServiceUnavailable, "# metrics not available\n")
		return
	}
	snapshot := s.Metrics.GetSnapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "backtest_api_requests_total %d\n", snapshot.APIRequests)
	fmt.Fprintf(&b, "backtest_api_errors_total %d\n", snapshot.APIErrors)
	fmt.Fprintf(&b, "backtest_runs_completed_total %d\n", snapshot.RunsCompleted)
	fmt.Fprintf(&b, "backtest_bars_processed_total %d\n", snapshot.BarsProcessed)
	fmt.Fprintf(&b, "backtest_trades_executed_total %d\n", snapshot.TradesExecuted)
	fmt.Fprintf(&b, "backtest_errors_total %d\n", snapshot.ErrorsCount)

	writeLatency := func(prefix string, ls monitor.LatencyStats) {
		if ls.Count == 0 {
			return
		}
		fmt.Fprintf(&b, "backtest_%s_latency_ms_avg %f\n", prefix, ls.Avg)
		fmt.Fprintf(&b, "backtest_%s_latency_ms_p50 %f\n", prefix, ls.P50)
		fmt.Fprintf(&b, "backtest_%s_latency_ms_p95 %f\n", prefix, ls.P95)
		fmt.Fprintf(&b, "backtest_%s_latency_ms_p99 %f\n", prefix, ls.P99)
	}
	writeLatency("api", snapshot.APILatency)
	writeLatency("run", snapshot.RunLatency)

	fmt.Fprintf(&b, "backtest_goroutines %d\n", snapshot.GoroutineCount)
	fmt.Fprintf(&b, "backtest_heap_alloc_bytes %d\n", snapshot.HeapAlloc)
	fmt.Fprintf(&b, "backtest_heap_sys_bytes %d\n", snapshot.HeapSys)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
