package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trading-core/internal/api"
	"trading-core/internal/engine"
	"trading-core/internal/events"
	"trading-core/internal/monitor"
	"trading-core/internal/risk"
	"trading-core/internal/store"
	"trading-core/pkg/config"
	"trading-core/pkg/provenance"

	"github.com/gin-gonic/gin"
)

// buildVersion is set via -ldflags "-X main.buildVersion=..." in release
// builds; it stays "dev" otherwise.
var buildVersion = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	simPath := flag.String("config", "./config/sim.yaml", "path to the simulation YAML config")
	flag.Parse()

	cfg, err := config.Load(*simPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bus := events.NewBus()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	metrics := monitor.NewSystemMetrics()

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	monitor.NewMonitor(bus, monitor.LogSink{}).Start(monitorCtx)

	machineID, err := provenance.MachineID()
	if err != nil {
		log.Printf("machine id unavailable, continuing without provenance: %v", err)
		machineID = "unknown"
	}

	engineConfig := engine.Config{
		InitialCapital:     cfg.Sim.InitialCapital,
		AllocationFraction: cfg.Sim.AllocationFraction,
		FeeRate:            cfg.Sim.FeeRate,
		ATRPeriod:          cfg.Sim.ATRPeriod,
		Risk: risk.Config{
			ATRStopMultiplier:    cfg.Sim.ATRStopMultiplier,
			MaxTradesPerDay:      cfg.Sim.MaxTradesPerDay,
			CooldownBars:         cfg.Sim.CooldownBars,
			MaxDrawdownLimit:     cfg.Sim.MaxDrawdownLimit,
			DrawdownCooldownBars: cfg.Sim.DrawdownCooldownBars,
		},
		Momentum:      cfg.Sim.Momentum,
		MeanReversion: cfg.Sim.MeanReversion,
		Regime: engine.RegimeParams{
			VolShort:       cfg.Sim.Regime.VolShort,
			VolLong:        cfg.Sim.Regime.VolLong,
			TrendSMA:       cfg.Sim.Regime.TrendSMA,
			TrendThreshold: cfg.Sim.Regime.TrendThreshold,
		},
	}

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(bus, st, metrics, engineConfig, api.SystemMeta{Version: buildVersion}, cfg.JWTSecret, machineID)

	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()
	log.Printf("backtest API listening on :%s", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}
