package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-core/internal/strategy"
)

// Config holds the full set of knobs a backtest run is driven by: the
// environment-driven server/runtime settings (port, DB path, JWT secret)
// plus the YAML-driven simulation parameters (§6 of the core design).
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	Sim SimConfig
}

// SimConfig is the configuration surface consumed by the engine.
type SimConfig struct {
	InitialCapital     float64 `yaml:"initial_capital"`
	AllocationFraction float64 `yaml:"allocation_fraction"`
	FeeRate            float64 `yaml:"fee_rate"`

	ATRStopMultiplier    float64 `yaml:"atr_stop_multiplier"`
	MaxDrawdownLimit     float64 `yaml:"max_drawdown_limit"`
	MaxTradesPerDay      int     `yaml:"max_trades_per_day"`
	CooldownBars         int     `yaml:"cooldown_bars"`
	DrawdownCooldownBars int     `yaml:"drawdown_cooldown_bars"`
	ATRPeriod            int     `yaml:"atr_period"`

	Momentum      strategy.MomentumConfig      `yaml:"-"`
	MeanReversion strategy.MeanReversionConfig `yaml:"-"`
	Regime        RegimeConfig                 `yaml:"-"`
}

// RegimeConfig mirrors strategy.NewRegimeDetector's constructor arguments,
// kept here rather than in the strategy package since it has no natural
// struct home there (the detector takes plain ints/floats, not a config
// struct, to match the teacher's terse-constructor style).
type RegimeConfig struct {
	VolShort       int
	VolLong        int
	TrendSMA       int
	TrendThreshold float64
}

// yamlFile is the on-disk shape; sub-sections are unmarshaled into plain
// structs first, then projected onto the strategy package's own config
// types so this package never forces YAML tags onto the strategy package.
type yamlFile struct {
	Sim           SimConfig         `yaml:"sim"`
	Momentum      momentumYAML      `yaml:"momentum"`
	MeanReversion meanReversionYAML `yaml:"mean_reversion"`
	Regime        regimeYAML        `yaml:"regime"`
}

type momentumYAML struct {
	ROCPeriod  int     `yaml:"mom_period"`
	RankPeriod int     `yaml:"rank_period"`
	EMAFast    int     `yaml:"ema_fast"`
	EMASlow    int     `yaml:"ema_slow"`
	VolumeMA   int     `yaml:"volume_ma"`
	RSIPeriod  int     `yaml:"rsi_period"`
	EntryZ     float64 `yaml:"entry_z"`
	ExitZ      float64 `yaml:"exit_z"`
}

type meanReversionYAML struct {
	BBPeriod    int     `yaml:"bb_period"`
	BBStdDev    float64 `yaml:"bb_std"`
	RSIPeriod   int     `yaml:"rsi_period"`
	RSILow      float64 `yaml:"rsi_low"`
	RSIHigh     float64 `yaml:"rsi_high"`
	EntryThresh float64 `yaml:"entry_thresh"`
	ExitThresh  float64 `yaml:"exit_thresh"`
	VolShort    int     `yaml:"vol_short"`
	VolLong     int     `yaml:"vol_long"`
}

type regimeYAML struct {
	VolShort       int     `yaml:"vol_short"`
	VolLong        int     `yaml:"vol_long"`
	TrendSMA       int     `yaml:"trend_sma"`
	TrendThreshold float64 `yaml:"trend_threshold"`
}

// Default returns the spec's documented default configuration.
func Default() Config {
	return Config{
		Port:      "8080",
		DBPath:    "./data/backtest.db",
		JWTSecret: "dev-secret",
		Sim: SimConfig{
			InitialCapital:       100000,
			AllocationFraction:   0.20,
			FeeRate:              0.0,
			ATRStopMultiplier:    2.0,
			MaxDrawdownLimit:     0,
			MaxTradesPerDay:      20,
			CooldownBars:         5,
			DrawdownCooldownBars: 20,
			ATRPeriod:            14,
			Momentum:             strategy.DefaultMomentumConfig(),
			MeanReversion:        strategy.DefaultMeanReversionConfig(),
			Regime:               RegimeConfig{VolShort: 50, VolLong: 200, TrendSMA: 300, TrendThreshold: 0.005},
		},
	}
}

// Load reads server/runtime settings from the environment (optionally via a
// .env file) and simulation parameters from a YAML file at simPath. A
// missing simPath is not an error; defaults apply.
func Load(simPath string) (Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := Default()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	if simPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(simPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read sim config %s: %w", simPath, err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse sim config %s: %w", simPath, err)
	}

	if file.Sim != (SimConfig{}) {
		cfg.Sim = mergeSim(cfg.Sim, file.Sim)
	}
	cfg.Sim.Momentum = mergeMomentum(cfg.Sim.Momentum, file.Momentum)
	cfg.Sim.MeanReversion = mergeMeanReversion(cfg.Sim.MeanReversion, file.MeanReversion)
	cfg.Sim.Regime = mergeRegime(cfg.Sim.Regime, file.Regime)

	return cfg, nil
}

func mergeSim(base, override SimConfig) SimConfig {
	if override.InitialCapital != 0 {
		base.InitialCapital = override.InitialCapital
	}
	if override.AllocationFraction != 0 {
		base.AllocationFraction = override.AllocationFraction
	}
	base.FeeRate = override.FeeRate
	if override.ATRStopMultiplier != 0 {
		base.ATRStopMultiplier = override.ATRStopMultiplier
	}
	base.MaxDrawdownLimit = override.MaxDrawdownLimit
	if override.MaxTradesPerDay != 0 {
		base.MaxTradesPerDay = override.MaxTradesPerDay
	}
	if override.CooldownBars != 0 {
		base.CooldownBars = override.CooldownBars
	}
	if override.DrawdownCooldownBars != 0 {
		base.DrawdownCooldownBars = override.DrawdownCooldownBars
	}
	if override.ATRPeriod != 0 {
		base.ATRPeriod = override.ATRPeriod
	}
	return base
}

func mergeMomentum(base strategy.MomentumConfig, o momentumYAML) strategy.MomentumConfig {
	if o.ROCPeriod != 0 {
		base.ROCPeriod = o.ROCPeriod
	}
	if o.RankPeriod != 0 {
		base.RankPeriod = o.RankPeriod
	}
	if o.EMAFast != 0 {
		base.EMAFast = o.EMAFast
	}
	if o.EMASlow != 0 {
		base.EMASlow = o.EMASlow
	}
	if o.VolumeMA != 0 {
		base.VolumeMA = o.VolumeMA
	}
	if o.RSIPeriod != 0 {
		base.RSIPeriod = o.RSIPeriod
	}
	if o.EntryZ != 0 {
		base.EntryZ = o.EntryZ
	}
	if o.ExitZ != 0 {
		base.ExitZ = o.ExitZ
	}
	return base
}

func mergeMeanReversion(base strategy.MeanReversionConfig, o meanReversionYAML) strategy.MeanReversionConfig {
	if o.BBPeriod != 0 {
		base.BBPeriod = o.BBPeriod
	}
	if o.BBStdDev != 0 {
		base.BBStdDev = o.BBStdDev
	}
	if o.RSIPeriod != 0 {
		base.RSIPeriod = o.RSIPeriod
	}
	if o.RSILow != 0 {
		base.RSILow = o.RSILow
	}
	if o.RSIHigh != 0 {
		base.RSIHigh = o.RSIHigh
	}
	if o.EntryThresh != 0 {
		base.EntryThresh = o.EntryThresh
	}
	if o.ExitThresh != 0 {
		base.ExitThresh = o.ExitThresh
	}
	if o.VolShort != 0 {
		base.VolShort = o.VolShort
	}
	if o.VolLong != 0 {
		base.VolLong = o.VolLong
	}
	return base
}

func mergeRegime(base RegimeConfig, o regimeYAML) RegimeConfig {
	if o.VolShort != 0 {
		base.VolShort = o.VolShort
	}
	if o.VolLong != 0 {
		base.VolLong = o.VolLong
	}
	if o.TrendSMA != 0 {
		base.TrendSMA = o.TrendSMA
	}
	if o.TrendThreshold != 0 {
		base.TrendThreshold = o.TrendThreshold
	}
	return base
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

