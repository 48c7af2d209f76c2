package api

import (
	"net/http"
	"strings"
	"time"

	"trading-core/internal/engine"
	"trading-core/internal/loader"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// submitRunRequest is the payload for POST /api/runs. CSV carries the bar
// data inline (the reference format documented on loader.LoadCSV); the
// override fields, when set, replace the server's BaseConfig for this run
// only. Strategy and regime tuning is configuration-file territory, not an
// API concern here.
type submitRunRequest struct {
	CSV                string   `json:"csv" binding:"required"`
	InitialCapital     *float64 `json:"initial_capital"`
	AllocationFraction *float64 `json:"allocation_fraction"`
	FeeRate            *float64 `json:"fee_rate"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// submitRun loads the submitted bar series, runs a full backtest
// synchronously, persists the result, and returns the summary report.
func (s *Server) submitRun(c *gin.Context) {
	var req submitRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	bars, err := loader.LoadCSV(strings.NewReader(req.CSV))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CSV", err.Error())
		return
	}
	if len(bars) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_BAR_SERIES", "no usable bars in submitted CSV")
		return
	}

	cfg := s.BaseConfig
	if req.InitialCapital != nil {
		cfg.InitialCapital = *req.InitialCapital
	}
	if req.AllocationFraction != nil {
		cfg.AllocationFraction = *req.AllocationFraction
	}
	if req.FeeRate != nil {
		cfg.FeeRate = *req.FeeRate
	}

	runID := uuid.NewString()
	e := engine.New(cfg, s.Bus)

	var equityWriter interface{ Close() error }
	if s.Store != nil {
		w := s.Store.EquityStream(runID)
		e.SetEquitySink(w.Write)
		equityWriter = w
	}

	report := e.Run(bars)
	trades := e.Trades()

	if equityWriter != nil {
		_ = equityWriter.Close()
	}

	if s.Metrics != nil {
		s.Metrics.IncrementRunsCompleted()
		s.Metrics.AddBarsProcessed(len(bars))
		s.Metrics.AddTradesExecuted(len(trades))
		s.Metrics.RunLatency.RecordDuration(time.Duration(report.DurationMs) * time.Millisecond)
	}

	if s.Store != nil {
		if err := s.Store.SaveRun(c.Request.Context(), runID, s.MachineID, report, trades, nil); err != nil {
			respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
			return
		}
	}

	if s.Cache != nil {
		s.Cache.Set(runID, runResult{Report: report, Trades: trades})
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id": runID,
		"report": report,
	})
}

// getRun returns a previously completed run's summary report, preferring
// the in-memory cache over a store round-trip.
func (s *Server) getRun(c *gin.Context) {
	runID := c.Param("id")

	if s.Cache != nil {
		if res, ok := s.Cache.Get(runID); ok {
			c.JSON(http.StatusOK, gin.H{"run_id": runID, "report": res.Report})
			return
		}
	}

	if s.Store == nil {
		respondError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
		return
	}
	report, err := s.Store.GetReport(c.Request.Context(), runID)
	if err != nil {
		respondError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "report": report})
}

// getRunTrades returns a previously completed run's closed-trade ledger.
func (s *Server) getRunTrades(c *gin.Context) {
	runID := c.Param("id")

	if s.Cache != nil {
		if res, ok := s.Cache.Get(runID); ok {
			c.JSON(http.StatusOK, gin.H{"run_id": runID, "trades": res.Trades})
			return
		}
	}

	if s.Store == nil {
		respondError(c, http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
		return
	}
	trades, err := s.Store.GetTrades(c.Request.Context(), runID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "trades": trades})
}
