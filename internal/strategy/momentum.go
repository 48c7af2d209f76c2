package strategy

import (
	"trading-core/internal/indicators"
	"trading-core/internal/model"
)

// MomentumConfig carries the tunable knobs for MomentumStrategy.
type MomentumConfig struct {
	ROCPeriod    int // default 100
	RankPeriod   int // default 100, window over the ROC series
	EMAFast      int // default 12
	EMASlow      int // default 26
	VolumeMA     int // default 20
	RSIPeriod    int // default 14
	EntryZ       float64
	ExitZ        float64
}

// DefaultMomentumConfig returns the spec's default momentum parameters.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		ROCPeriod:  100,
		RankPeriod: 100,
		EMAFast:    12,
		EMASlow:    26,
		VolumeMA:   20,
		RSIPeriod:  14,
		EntryZ:     1.5,
		ExitZ:      0.3,
	}
}

// MomentumStrategy trades breakouts confirmed by a momentum z-score,
// trend-aligned EMAs, above-average volume, and a non-extreme RSI.
type MomentumStrategy struct {
	cfg MomentumConfig

	roc      *indicators.ROC
	rank     *indicators.RollingStats
	emaFast  *indicators.EMA
	emaSlow  *indicators.EMA
	volumeMA *indicators.SMA
	rsi      *indicators.RSI

	lastZ  float64
	signal model.Side
}

// NewMomentumStrategy builds a momentum producer from the given config.
func NewMomentumStrategy(cfg MomentumConfig) *MomentumStrategy {
	return &MomentumStrategy{
		cfg:      cfg,
		roc:      indicators.NewROC(cfg.ROCPeriod),
		rank:     indicators.NewRollingStats(cfg.RankPeriod),
		emaFast:  indicators.NewEMA(cfg.EMAFast),
		emaSlow:  indicators.NewEMA(cfg.EMASlow),
		volumeMA: indicators.NewSMA(cfg.VolumeMA),
		rsi:      indicators.NewRSI(cfg.RSIPeriod),
	}
}

// OnBar advances every owned indicator and re-evaluates the signal.
func (m *MomentumStrategy) OnBar(bar model.Bar) {
	rocValue := m.roc.Update(bar.Close)
	m.emaFast.Update(bar.Close)
	m.emaSlow.Update(bar.Close)
	m.volumeMA.Update(bar.Volume)
	m.rsi.Update(bar.Close)

	z := m.lastZ
	ready := m.roc.Ready()
	if ready {
		z = m.rank.Update(rocValue)
	}

	if !ready || !m.rank.Ready() || !m.emaSlow.Ready() || !m.volumeMA.Ready() || !m.rsi.Ready() {
		m.signal = model.Flat
		m.lastZ = z
		return
	}

	emaFast := m.emaFast.Value()
	emaSlow := m.emaSlow.Value()
	rsi := m.rsi.Value()
	aboveAvgVolume := bar.Volume > m.volumeMA.Value()

	longEntry := z > m.cfg.EntryZ && emaFast > emaSlow && aboveAvgVolume && rsi < 75 && z > m.lastZ
	shortEntry := z < -m.cfg.EntryZ && emaFast < emaSlow && aboveAvgVolume && rsi > 25 && z < m.lastZ
	weakening := absFloat(z) < m.cfg.ExitZ

	switch {
	case weakening:
		m.signal = model.Flat
	case longEntry:
		m.signal = model.Long
	case shortEntry:
		m.signal = model.Short
	}
	// otherwise hold the prior signal unchanged

	m.lastZ = z
}

// Signal returns the current desired position side.
func (m *MomentumStrategy) Signal() model.Side {
	return m.signal
}

// Name identifies this producer for logging and reporting.
func (m *MomentumStrategy) Name() string {
	return "momentum"
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
