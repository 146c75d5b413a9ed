package provider

import (
	"encoding/json"
	"math"

	"dex-sentinel/internal/domain"

	"github.com/tidwall/gjson"
)

// Normalize selects the pair matching chainID from a DexScreener tokens payload
// and converts it to a fully defaulted snapshot. It reports false when the
// payload is not JSON, carries no pairs, or no pair matches the chain.
func Normalize(payload []byte, chainID string) (domain.TokenSnapshot, bool) {
	if !gjson.ValidBytes(payload) {
		return domain.TokenSnapshot{}, false
	}

	pairs := gjson.GetBytes(payload, "pairs")
	if !pairs.IsArray() {
		return domain.TokenSnapshot{}, false
	}

	for _, pair := range pairs.Array() {
		if pair.Get("chainId").String() == chainID {
			return NormalizePair(pair), true
		}
	}
	return domain.TokenSnapshot{}, false
}

// NormalizePair converts one raw pair object. Missing numbers become 0, missing
// prices become "0", and numeric strings are parsed.
func NormalizePair(pair gjson.Result) domain.TokenSnapshot {
	snap := domain.TokenSnapshot{
		ChainID:       pair.Get("chainId").String(),
		DexID:         pair.Get("dexId").String(),
		URL:           pair.Get("url").String(),
		PairAddress:   pair.Get("pairAddress").String(),
		Labels:        stringList(pair.Get("labels")),
		BaseToken:     tokenRef(pair.Get("baseToken")),
		QuoteToken:    tokenRef(pair.Get("quoteToken")),
		PriceNative:   priceString(pair.Get("priceNative")),
		PriceUSD:      priceString(pair.Get("priceUsd")),
		Txns:          txnWindows(pair.Get("txns")),
		Volume:        windowValues(pair.Get("volume")),
		PriceChange:   windowValues(pair.Get("priceChange")),
		FDV:           finite(pair.Get("fdv")),
		MarketCap:     finite(pair.Get("marketCap")),
		PairCreatedAt: pair.Get("pairCreatedAt").Int(),
		Info:          rawObject(pair.Get("info")),
		Boosts:        rawObject(pair.Get("boosts")),
	}

	liq := pair.Get("liquidity")
	snap.Liquidity = domain.Liquidity{
		USD:   finite(liq.Get("usd")),
		Base:  finite(liq.Get("base")),
		Quote: finite(liq.Get("quote")),
	}
	return snap
}

func tokenRef(r gjson.Result) domain.TokenRef {
	return domain.TokenRef{
		Address: r.Get("address").String(),
		Name:    r.Get("name").String(),
		Symbol:  r.Get("symbol").String(),
	}
}

func priceString(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return "0"
	}
	if s := r.String(); s != "" {
		return s
	}
	return "0"
}

func txnWindows(r gjson.Result) domain.TxnWindows {
	counts := func(path string) domain.TxnCounts {
		w := r.Get(path)
		return domain.TxnCounts{
			Buys:  int(w.Get("buys").Int()),
			Sells: int(w.Get("sells").Int()),
		}
	}
	return domain.TxnWindows{
		M5:  counts("m5"),
		H1:  counts("h1"),
		H6:  counts("h6"),
		H24: counts("h24"),
	}
}

func windowValues(r gjson.Result) domain.WindowValues {
	return domain.WindowValues{
		M5:  finite(r.Get("m5")),
		H1:  finite(r.Get("h1")),
		H6:  finite(r.Get("h6")),
		H24: finite(r.Get("h24")),
	}
}

func stringList(r gjson.Result) []string {
	if !r.IsArray() {
		return []string{}
	}
	out := make([]string, 0, len(r.Array()))
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

func rawObject(r gjson.Result) json.RawMessage {
	if !r.IsObject() && !r.IsArray() {
		return nil
	}
	return json.RawMessage(r.Raw)
}

// finite reads r as a float. NaN and infinities (e.g. 1e400 or "Infinity") become 0.
func finite(r gjson.Result) float64 {
	f := r.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
