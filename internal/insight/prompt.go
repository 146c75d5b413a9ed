package insight

import (
	"encoding/json"
	"strings"
	"time"

	"dex-sentinel/internal/domain"
)

const analystInstructions = `You are a crypto market analysis AI. Provide 3-5 specific, actionable insights about this token based on the following data:`

const analystTopics = `Please provide insights about:
1. Market position and liquidity health
2. Price momentum and trading patterns
3. Risk factors and opportunities
4. Market sentiment indicators
5. Trading recommendations

Format each insight as a separate bullet point.`

// Summary is the structured view of a token handed to the model.
type Summary struct {
	Token        TokenSummary   `json:"token"`
	Transactions TxnSummary     `json:"transactions"`
	Sentiment    *float64       `json:"sentiment"`
	WeeklyData   map[string]any `json:"weekly_data"`
}

type TokenSummary struct {
	Name         string              `json:"name"`
	Symbol       string              `json:"symbol"`
	Price        float64             `json:"price"`
	PriceChanges domain.WindowValues `json:"price_changes"`
	Liquidity    float64             `json:"liquidity"`
	MarketCap    float64             `json:"market_cap"`
	AgeDays      float64             `json:"age"`
}

type TxnSummary struct {
	H1  domain.TxnCounts `json:"h1"`
	H24 domain.TxnCounts `json:"h24"`
}

func BuildSummary(snap domain.TokenSnapshot, weekly map[string]any, sentiment *domain.MarketSentiment, now time.Time) Summary {
	s := Summary{
		Token: TokenSummary{
			Name:         snap.BaseToken.Name,
			Symbol:       snap.BaseToken.Symbol,
			Price:        snap.Price(),
			PriceChanges: snap.PriceChange,
			Liquidity:    snap.Liquidity.USD,
			MarketCap:    snap.MarketCap,
			AgeDays:      snap.AgeDays(now),
		},
		Transactions: TxnSummary{H1: snap.Txns.H1, H24: snap.Txns.H24},
		WeeklyData:   weekly,
	}
	if sentiment != nil {
		score := sentiment.Score
		s.Sentiment = &score
	}
	return s
}

func BuildPrompt(summary Summary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(analystInstructions)
	sb.WriteString("\n\n")
	sb.Write(data)
	sb.WriteString("\n\n")
	sb.WriteString(analystTopics)
	return sb.String(), nil
}

// SplitInsights keeps the first limit non-empty trimmed lines of text.
// A limit <= 0 falls back to MaxInsights.
func SplitInsights(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxInsights
	}
	out := make([]string, 0, limit)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
