package analysis

import (
	"fmt"
	"math"
	"time"

	"dex-sentinel/internal/domain"
)

// RiskScorer scores snapshots against a fixed set of thresholds.
type RiskScorer struct {
	thresholds Thresholds
	alerts     AlertConfig
}

func NewRiskScorer(thresholds Thresholds, alerts AlertConfig) *RiskScorer {
	return &RiskScorer{thresholds: thresholds, alerts: alerts}
}

// ScoreRisk scores with the default thresholds.
func ScoreRisk(current domain.TokenSnapshot, previous *domain.TokenSnapshot, now time.Time) domain.RiskAnalysis {
	return NewRiskScorer(DefaultThresholds(), DefaultAlertConfig()).Score(current, previous, now)
}

type riskAccumulator struct {
	score           int
	vulnerabilities []string
	recommendations []string
}

func (a *riskAccumulator) add(points int, vulnerability, recommendation string) {
	a.score += points
	a.vulnerabilities = append(a.vulnerabilities, vulnerability)
	a.recommendations = append(a.recommendations, recommendation)
}

// Score runs every check against current (and previous, when non-nil) and
// caps the summed points at MaxRiskScore.
func (s *RiskScorer) Score(current domain.TokenSnapshot, previous *domain.TokenSnapshot, now time.Time) domain.RiskAnalysis {
	t := s.thresholds
	acc := &riskAccumulator{
		vulnerabilities: []string{},
		recommendations: []string{},
	}

	if current.Liquidity.USD < t.LiquidityMin {
		acc.add(30, "Low liquidity", "Increase liquidity or wait for higher liquidity levels")
	}

	volatility := math.Abs(current.PriceChange.H6)
	if volatility > t.Volatility {
		acc.add(20, fmt.Sprintf("High volatility: %.2f%% over 6h", volatility), "Exercise caution due to high fluctuations")
		if volatility > t.ImpermanentLoss {
			acc.add(10, "High impermanent loss risk", "Consider impermanent loss risks")
		}
	}

	txH1 := current.Txns.H1.Total()
	txH6 := current.Txns.H6.Total()
	if txH1 > 0 && float64(txH6)/float64(txH1) > t.AbnormalTxRatio {
		acc.add(20, "Unusual transaction pattern", "Monitor for market manipulation")
	}

	if current.MarketCap > 0 && current.MarketCap < current.Liquidity.USD {
		acc.add(20, "Market cap < liquidity", "Review valuation")
	}

	if age := current.AgeDays(now); age < t.NewTokenDays {
		acc.add(15, fmt.Sprintf("New token (%.1f days old)", age), "Consider smaller position size")
	}

	h24 := current.Txns.H24
	if total := h24.Total(); total > t.MinTxnsForSellCheck {
		sellPct := float64(h24.Sells) / float64(total) * 100
		if sellPct > t.QuickDumpPct {
			acc.add(25, fmt.Sprintf("High selling pressure: %.1f%%", sellPct), "Watch for potential sell-off")
		}
	}

	if current.PriceChange.H24 > t.PumpWarningPct {
		acc.add(5, fmt.Sprintf("Possible pump: %.2f%%", current.PriceChange.H24), "Extreme caution advised")
	}

	if previous != nil {
		if prevPrice := previous.Price(); prevPrice > 0 {
			diff := percentDelta(current.Price(), prevPrice)
			if diff > s.alerts.PriceChangePct {
				acc.add(10, fmt.Sprintf("Sudden price change: %.2f%%", diff), "Investigate price movement")
			}
		}
	}

	score := acc.score
	if score > t.MaxRiskScore {
		score = t.MaxRiskScore
	}
	return domain.RiskAnalysis{
		RiskScore:       score,
		Vulnerabilities: acc.vulnerabilities,
		Recommendations: acc.recommendations,
	}
}
