package analysis

import (
	"fmt"

	"dex-sentinel/internal/domain"
)

const (
	txWeight     = 0.4
	priceWeight  = 0.4
	socialWeight = 0.2
)

// ScoreSentiment derives a sentiment score from transaction flow and price
// action. previous, when non-nil, enables the "significant shift" trend.
func ScoreSentiment(current domain.TokenSnapshot, previous *domain.MarketSentiment) domain.MarketSentiment {
	return ScoreSentimentWith(current, previous, DefaultAlertConfig().SentimentChange)
}

// ScoreSentimentWith is ScoreSentiment with an explicit shift threshold.
func ScoreSentimentWith(current domain.TokenSnapshot, previous *domain.MarketSentiment, shiftThreshold float64) domain.MarketSentiment {
	buys := current.Txns.H24.Buys
	sells := current.Txns.H24.Sells

	txSentiment := 0.0
	if total := buys + sells; total > 0 {
		txSentiment = float64(buys-sells) / float64(total)
	}

	price1h := current.PriceChange.H1 / 100
	price24h := current.PriceChange.H24 / 100

	// Only the price term is clamped; social may exceed ±1.
	priceSentiment := clamp(price1h*0.6+price24h*0.4, -1, 1)
	socialSentiment := price1h*0.3 + price24h*0.7

	overall := txSentiment*txWeight + priceSentiment*priceWeight + socialSentiment*socialWeight

	trends := []string{overallLabel(overall)}

	switch {
	case price1h > 0 && price24h < 0:
		trends = append(trends, "Positive momentum vs negative trend")
	case price1h < 0 && price24h > 0:
		trends = append(trends, "Negative momentum vs positive trend")
	}

	switch {
	case buys > sells*2:
		trends = append(trends, "Strong buying pressure")
	case sells > buys*2:
		trends = append(trends, "Strong selling pressure")
	}

	if previous != nil {
		delta := overall - previous.Score
		if delta > shiftThreshold || -delta > shiftThreshold {
			direction := "negative"
			if overall > previous.Score {
				direction = "positive"
			}
			trends = append(trends, fmt.Sprintf("Significant %s shift", direction))
		}
	}

	return domain.MarketSentiment{
		Score: overall,
		Breakdown: domain.SentimentBreakdown{
			Social:       socialSentiment,
			Transactions: txSentiment,
			PriceAction:  priceSentiment,
		},
		Trends: trends,
	}
}

func overallLabel(overall float64) string {
	switch {
	case overall > 0.7:
		return "Strong bullish sentiment"
	case overall > 0.3:
		return "Moderate bullish"
	case overall < -0.7:
		return "Strong bearish"
	case overall < -0.3:
		return "Moderate bearish"
	default:
		return "Neutral"
	}
}
