package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// TokenRef identifies a token on a DEX.
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TxnCounts holds buy and sell counts for a single window.
type TxnCounts struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Total returns buys + sells.
func (t TxnCounts) Total() int {
	return t.Buys + t.Sells
}

// TxnWindows buckets transaction counts by lookback window.
type TxnWindows struct {
	M5  TxnCounts `json:"m5"`
	H1  TxnCounts `json:"h1"`
	H6  TxnCounts `json:"h6"`
	H24 TxnCounts `json:"h24"`
}

// WindowValues holds one float per lookback window (volume, price change %).
type WindowValues struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// TokenSnapshot is the canonical, fully defaulted state of one pair at a point in time.
// PairCreatedAt is unix milliseconds as reported by the market-data provider.
type TokenSnapshot struct {
	ChainID       string          `json:"chain_id"`
	DexID         string          `json:"dex_id"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pair_address"`
	Labels        []string        `json:"labels"`
	BaseToken     TokenRef        `json:"base_token"`
	QuoteToken    TokenRef        `json:"quote_token"`
	PriceNative   string          `json:"price_native"`
	PriceUSD      string          `json:"price_usd"`
	Txns          TxnWindows      `json:"txns"`
	Volume        WindowValues    `json:"volume"`
	PriceChange   WindowValues    `json:"price_change"`
	Liquidity     Liquidity       `json:"liquidity"`
	FDV           float64         `json:"fdv"`
	MarketCap     float64         `json:"market_cap"`
	PairCreatedAt int64           `json:"pair_created_at"`
	Info          json.RawMessage `json:"info,omitempty"`
	Boosts        json.RawMessage `json:"boosts,omitempty"`
}

// Price returns the USD price, or 0 when the provider string does not parse.
func (s TokenSnapshot) Price() float64 {
	return parseFloat(s.PriceUSD)
}

// NativePrice returns the price in units of the quote token.
func (s TokenSnapshot) NativePrice() float64 {
	return parseFloat(s.PriceNative)
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CreatedAt converts PairCreatedAt to a time. The zero value maps to the unix epoch.
func (s TokenSnapshot) CreatedAt() time.Time {
	return time.UnixMilli(s.PairCreatedAt)
}

// AgeDays returns the pair age in fractional days relative to now.
func (s TokenSnapshot) AgeDays(now time.Time) float64 {
	return now.Sub(s.CreatedAt()).Hours() / 24
}

// PricePoint is one sample in a token's price history.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}
