package domain

import "time"

// RiskAnalysis is the bounded heuristic risk verdict for a snapshot.
type RiskAnalysis struct {
	RiskScore       int      `json:"risk_score"`
	Vulnerabilities []string `json:"vulnerabilities"`
	Recommendations []string `json:"recommendations"`
}

type SentimentBreakdown struct {
	Social       float64 `json:"social"`
	Transactions float64 `json:"transactions"`
	PriceAction  float64 `json:"price_action"`
}

type MarketSentiment struct {
	Score     float64            `json:"score"`
	Breakdown SentimentBreakdown `json:"breakdown"`
	Trends    []string           `json:"trends"`
}

type PriceMetrics struct {
	Current float64      `json:"current"`
	Change  ChangeMetric `json:"change"`
}

type ChangeMetric struct {
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type TxnRatio struct {
	Buys  int     `json:"buys"`
	Sells int     `json:"sells"`
	Ratio float64 `json:"ratio"`
}

type TxnMetrics struct {
	H1 TxnRatio `json:"h1"`
}

type ReportMetrics struct {
	Price        PriceMetrics `json:"price"`
	Volume       ChangeMetric `json:"volume"`
	Liquidity    float64      `json:"liquidity"`
	MarketCap    float64      `json:"market_cap"`
	FDV          float64      `json:"fdv"`
	Transactions TxnMetrics   `json:"transactions"`
}

// AnalyticsReport is the unit persisted weekly, cached, and served over HTTP.
type AnalyticsReport struct {
	ChainID      string           `json:"chain_id"`
	TokenAddress string           `json:"token_address"`
	TokenName    string           `json:"token_name"`
	TokenSymbol  string           `json:"token_symbol"`
	Timestamp    float64          `json:"timestamp"`
	Metrics      ReportMetrics    `json:"metrics"`
	Risk         RiskAnalysis     `json:"risk"`
	Sentiment    *MarketSentiment `json:"sentiment,omitempty"`
	AIInsights   []string         `json:"ai_insights"`
}

// GeneratedAt converts the float unix timestamp back to a time.
func (r AnalyticsReport) GeneratedAt() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// AlertKind classifies alert messages.
type AlertKind string

const (
	AlertKindPrice     AlertKind = "price"
	AlertKindVolume    AlertKind = "volume"
	AlertKindLiquidity AlertKind = "liquidity"
	AlertKindOther     AlertKind = "other"
)

// AlertEvent is one detected change, as dispatched to sinks.
type AlertEvent struct {
	ID        int64     `json:"id,omitempty"`
	TokenKey  TokenKey  `json:"token_key"`
	Symbol    string    `json:"symbol"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type AlertFilter struct {
	TokenKey TokenKey
	Limit    int
}
