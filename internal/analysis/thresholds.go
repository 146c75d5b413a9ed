// Package analysis holds the pure scoring functions of the monitoring pipeline.
// Nothing in this package keeps state between calls.
package analysis

// Thresholds configures the risk scorer.
type Thresholds struct {
	LiquidityMin        float64
	Volatility          float64
	ImpermanentLoss     float64
	AbnormalTxRatio     float64
	QuickDumpPct        float64
	NewTokenDays        float64
	PumpWarningPct      float64
	MinTxnsForSellCheck int
	MaxRiskScore        int
}

// AlertConfig configures change detection between consecutive snapshots.
type AlertConfig struct {
	PriceChangePct     float64
	VolumeChangePct    float64
	LiquidityChangePct float64
	SentimentChange    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LiquidityMin:        100000,
		Volatility:          20,
		ImpermanentLoss:     30,
		AbnormalTxRatio:     10,
		QuickDumpPct:        15,
		NewTokenDays:        7,
		PumpWarningPct:      50,
		MinTxnsForSellCheck: 10,
		MaxRiskScore:        70,
	}
}

func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		PriceChangePct:     10,
		VolumeChangePct:    50,
		LiquidityChangePct: 20,
		SentimentChange:    0.3,
	}
}

// percentDelta is |current-previous|/previous*100. Callers guard previous > 0.
func percentDelta(current, previous float64) float64 {
	d := (current - previous) / previous * 100
	if d < 0 {
		return -d
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
