package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenKeyFileName(t *testing.T) {
	key := NewTokenKey("solana", "abc/def")
	assert.Equal(t, TokenKey("solana-abc/def"), key)
	assert.Equal(t, "solana-abc_def.json", key.FileName())
}

func TestParseTrackedToken(t *testing.T) {
	tests := []struct {
		in      string
		want    TrackedToken
		wantErr bool
	}{
		{in: "ethereum:0xabc", want: TrackedToken{ChainID: "ethereum", TokenAddress: "0xabc"}},
		{in: " So11111 ", want: TrackedToken{ChainID: DefaultChainID, TokenAddress: "So11111"}},
		{in: ":0xabc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTrackedToken(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSnapshotPriceDefaultsToZero(t *testing.T) {
	assert.Equal(t, 0.0, TokenSnapshot{PriceUSD: "n/a"}.Price())
	assert.Equal(t, 0.0, TokenSnapshot{}.Price())
	assert.InDelta(t, 1.25, TokenSnapshot{PriceUSD: "1.25"}.Price(), 1e-12)
}

func TestSnapshotAgeDays(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	snap := TokenSnapshot{PairCreatedAt: now.Add(-36 * time.Hour).UnixMilli()}
	assert.InDelta(t, 1.5, snap.AgeDays(now), 1e-9)
}

func TestReportGeneratedAt(t *testing.T) {
	ts := time.Unix(1700000000, 500_000_000)
	r := AnalyticsReport{Timestamp: float64(ts.UnixNano()) / float64(time.Second)}
	assert.WithinDuration(t, ts, r.GeneratedAt(), time.Millisecond)
}
