package analysis

import (
	"fmt"
	"strings"

	"dex-sentinel/internal/domain"
)

// DetectAlerts compares consecutive snapshots with the default alert config.
func DetectAlerts(current, previous domain.TokenSnapshot) []string {
	return DefaultAlertConfig().Detect(current, previous)
}

// Detect returns one message per metric whose percent change exceeds its
// threshold. A metric with a zero previous value never alerts.
func (c AlertConfig) Detect(current, previous domain.TokenSnapshot) []string {
	var alerts []string

	if prev, cur := previous.Price(), current.Price(); prev > 0 {
		if change := percentDelta(cur, prev); change > c.PriceChangePct {
			alerts = append(alerts, fmt.Sprintf("PRICE ALERT: %s %s by %.2f%%",
				current.BaseToken.Symbol, direction(cur, prev), change))
		}
	}

	if prev, cur := previous.Volume.H1, current.Volume.H1; prev > 0 {
		if change := percentDelta(cur, prev); change > c.VolumeChangePct {
			alerts = append(alerts, fmt.Sprintf("VOLUME ALERT: Volume %s by %.2f%%", direction(cur, prev), change))
		}
	}

	if prev, cur := previous.Liquidity.USD, current.Liquidity.USD; prev > 0 {
		if change := percentDelta(cur, prev); change > c.LiquidityChangePct {
			alerts = append(alerts, fmt.Sprintf("LIQUIDITY ALERT: Liquidity %s by %.2f%%", direction(cur, prev), change))
		}
	}

	return alerts
}

func direction(current, previous float64) string {
	if current > previous {
		return "increased"
	}
	return "decreased"
}

// AlertKindOf classifies a message produced by Detect.
func AlertKindOf(message string) domain.AlertKind {
	switch {
	case strings.HasPrefix(message, "PRICE ALERT"):
		return domain.AlertKindPrice
	case strings.HasPrefix(message, "VOLUME ALERT"):
		return domain.AlertKindVolume
	case strings.HasPrefix(message, "LIQUIDITY ALERT"):
		return domain.AlertKindLiquidity
	default:
		return domain.AlertKindOther
	}
}
