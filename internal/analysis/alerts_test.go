package analysis

import (
	"testing"

	"dex-sentinel/internal/domain"

	"github.com/stretchr/testify/assert"
)

func alertSnapshot(price string, vol1h, liq float64) domain.TokenSnapshot {
	return domain.TokenSnapshot{
		BaseToken: domain.TokenRef{Symbol: "SMP"},
		PriceUSD:  price,
		Volume:    domain.WindowValues{H1: vol1h},
		Liquidity: domain.Liquidity{USD: liq},
	}
}

func TestDetectAlertsAllMetrics(t *testing.T) {
	prev := alertSnapshot("1.00", 1000, 100000)
	cur := alertSnapshot("1.25", 200, 130000)

	got := DetectAlerts(cur, prev)
	assert.Equal(t, []string{
		"PRICE ALERT: SMP increased by 25.00%",
		"VOLUME ALERT: Volume decreased by 80.00%",
		"LIQUIDITY ALERT: Liquidity increased by 30.00%",
	}, got)
}

func TestDetectAlertsBelowThresholds(t *testing.T) {
	prev := alertSnapshot("1.00", 1000, 100000)
	cur := alertSnapshot("1.08", 1500, 80000)
	assert.Empty(t, DetectAlerts(cur, prev), "thresholds are strict")
}

func TestDetectAlertsZeroBaselineSuppressed(t *testing.T) {
	prev := alertSnapshot("0", 0, 0)
	cur := alertSnapshot("999", 1e9, 1e9)
	assert.Empty(t, DetectAlerts(cur, prev))

	prev = alertSnapshot("garbage", 0, 0)
	assert.Empty(t, DetectAlerts(cur, prev))
}

func TestAlertKindOf(t *testing.T) {
	assert.Equal(t, domain.AlertKindPrice, AlertKindOf("PRICE ALERT: X increased by 11.00%"))
	assert.Equal(t, domain.AlertKindVolume, AlertKindOf("VOLUME ALERT: Volume decreased by 60.00%"))
	assert.Equal(t, domain.AlertKindLiquidity, AlertKindOf("LIQUIDITY ALERT: Liquidity increased by 30.00%"))
	assert.Equal(t, domain.AlertKindOther, AlertKindOf("something else"))
}
