package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithMissingSimPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sim.InitialCapital != 100000 {
		t.Fatalf("InitialCapital = %v, want default 100000", cfg.Sim.InitialCapital)
	}
	if cfg.Sim.AllocationFraction != 0.20 {
		t.Fatalf("AllocationFraction = %v, want default 0.20", cfg.Sim.AllocationFraction)
	}
}

func TestLoadMergesYAMLOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	content := []byte(`
sim:
  initial_capital: 50000
  max_trades_per_day: 5
momentum:
  entry_z: 2.0
mean_reversion:
  entry_thresh: 0.9
regime:
  trend_threshold: 0.01
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write sim config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sim.InitialCapital != 50000 {
		t.Fatalf("InitialCapital = %v, want 50000", cfg.Sim.InitialCapital)
	}
	if cfg.Sim.MaxTradesPerDay != 5 {
		t.Fatalf("MaxTradesPerDay = %v, want 5", cfg.Sim.MaxTradesPerDay)
	}
	// Unset knobs must keep their defaults.
	if cfg.Sim.CooldownBars != 5 {
		t.Fatalf("CooldownBars = %v, want default 5", cfg.Sim.CooldownBars)
	}
	if cfg.Sim.Momentum.EntryZ != 2.0 {
		t.Fatalf("Momentum.EntryZ = %v, want 2.0", cfg.Sim.Momentum.EntryZ)
	}
	if cfg.Sim.MeanReversion.EntryThresh != 0.9 {
		t.Fatalf("MeanReversion.EntryThresh = %v, want 0.9", cfg.Sim.MeanReversion.EntryThresh)
	}
	if cfg.Sim.Regime.TrendThreshold != 0.01 {
		t.Fatalf("Regime.TrendThreshold = %v, want 0.01", cfg.Sim.Regime.TrendThreshold)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load("/nonexistent/path/sim.yaml")
	if err != nil {
		t.Fatalf("Load returned error for a missing sim file: %v", err)
	}
	if cfg.Sim.InitialCapital != 100000 {
		t.Fatal("expected defaults when the sim file does not exist")
	}
}
