package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/provider"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

var fixedNow = time.Unix(1_700_000_000, 500_000_000)

func scenarioSnapshot() *domain.TokenSnapshot {
	return &domain.TokenSnapshot{
		ChainID:       "solana",
		BaseToken:     domain.TokenRef{Address: "So111", Name: "Sample", Symbol: "SMP"},
		PriceUSD:      "0.34",
		Txns:          domain.TxnWindows{H1: domain.TxnCounts{Buys: 6, Sells: 4}, H6: domain.TxnCounts{Buys: 60, Sells: 50}, H24: domain.TxnCounts{Buys: 10, Sells: 10}},
		Volume:        domain.WindowValues{H1: 1000, H6: 5000, H24: 12000},
		PriceChange:   domain.WindowValues{H1: -2.5, H6: 25, H24: 60},
		Liquidity:     domain.Liquidity{USD: 50000},
		MarketCap:     40000,
		FDV:           45000,
		PairCreatedAt: fixedNow.Add(-48 * time.Hour).UnixMilli(),
	}
}

type stubFetcher struct {
	snap  *domain.TokenSnapshot
	err   error
	calls int
}

func (s *stubFetcher) FetchSnapshot(ctx context.Context, chainID, tokenAddress string) (*domain.TokenSnapshot, error) {
	s.calls++
	return s.snap, s.err
}

type stubInsights struct {
	lines     []string
	weekly    map[string]any
	sentiment *domain.MarketSentiment
}

func (s *stubInsights) Generate(ctx context.Context, snap domain.TokenSnapshot, weekly map[string]any, sentiment *domain.MarketSentiment) []string {
	s.weekly = weekly
	s.sentiment = sentiment
	return s.lines
}

type stubWeekly struct {
	docs    map[domain.TokenKey]map[string]any
	reports map[domain.TokenKey]*domain.AnalyticsReport
}

func (s *stubWeekly) Load(key domain.TokenKey) (map[string]any, bool) {
	d, ok := s.docs[key]
	return d, ok
}

func (s *stubWeekly) LoadReport(key domain.TokenKey) (*domain.AnalyticsReport, bool) {
	r, ok := s.reports[key]
	return r, ok
}

type stubHistory struct {
	points []domain.PricePoint
}

func (s *stubHistory) History(key domain.TokenKey, limit int) []domain.PricePoint {
	return s.points
}

func (s *stubHistory) Sentiments(key domain.TokenKey, limit int) []domain.MarketSentiment {
	return []domain.MarketSentiment{{Score: 0.1}}
}

type fakeRedis struct {
	data   map[string][]byte
	setErr error
	getErr error
	ttl    time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.ttl = expiration
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func newTestService(fetcher SnapshotFetcher, insights InsightGenerator, weekly WeeklyReader, cache *ReportCache) *ReportService {
	svc := NewReportService(testTracer, zap.NewNop(), fetcher, insights, weekly, &stubHistory{}, cache, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestAssembleMetrics(t *testing.T) {
	insights := &stubInsights{lines: []string{"a", "b"}}
	svc := newTestService(nil, insights, nil, nil)

	snap := scenarioSnapshot()
	risk := domain.RiskAnalysis{RiskScore: 70}
	sentiment := &domain.MarketSentiment{Score: 0.3}
	weekly := map[string]any{"token_symbol": "SMP"}

	report := svc.Assemble(context.Background(), *snap, risk, weekly, sentiment)

	assert.Equal(t, "Sample", report.TokenName)
	assert.Equal(t, "SMP", report.TokenSymbol)
	assert.InDelta(t, 1_700_000_000.5, report.Timestamp, 1e-3)
	assert.Equal(t, 0.34, report.Metrics.Price.Current)
	assert.Equal(t, domain.ChangeMetric{H1: -2.5, H6: 25, H24: 60}, report.Metrics.Price.Change)
	assert.Equal(t, domain.ChangeMetric{H1: 1000, H6: 5000, H24: 12000}, report.Metrics.Volume)
	assert.Equal(t, 50000.0, report.Metrics.Liquidity)
	assert.Equal(t, 40000.0, report.Metrics.MarketCap)
	assert.Equal(t, 45000.0, report.Metrics.FDV)
	assert.Equal(t, domain.TxnRatio{Buys: 6, Sells: 4, Ratio: 1.5}, report.Metrics.Transactions.H1)
	assert.Equal(t, risk, report.Risk)
	assert.Equal(t, []string{"a", "b"}, report.AIInsights)
	assert.Equal(t, weekly, insights.weekly)
	assert.Same(t, sentiment, insights.sentiment)
}

func TestAssembleRatioWithZeroSells(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	snap := scenarioSnapshot()
	snap.Txns.H1 = domain.TxnCounts{Buys: 7, Sells: 0}

	report := svc.Assemble(context.Background(), *snap, domain.RiskAnalysis{}, nil, nil)
	assert.Equal(t, 7.0, report.Metrics.Transactions.H1.Ratio)
	assert.NotNil(t, report.AIInsights)
}

func TestOnDemandReportScenario(t *testing.T) {
	key := domain.NewTokenKey("solana", "So111")
	weekly := &stubWeekly{docs: map[domain.TokenKey]map[string]any{key: {"timestamp": 1.0}}}
	insights := &stubInsights{lines: []string{"insight"}}
	svc := newTestService(&stubFetcher{snap: scenarioSnapshot()}, insights, weekly, nil)

	report, err := svc.OnDemandReport(context.Background(), "", "So111")
	require.NoError(t, err)
	assert.Equal(t, "solana", report.ChainID)
	assert.Equal(t, "So111", report.TokenAddress)
	assert.Equal(t, 70, report.Risk.RiskScore)
	assert.NotContains(t, report.Risk.Vulnerabilities, "Sudden price change", "no previous snapshot on demand")
	require.NotNil(t, report.Sentiment)
	assert.Equal(t, map[string]any{"timestamp": 1.0}, insights.weekly)
}

func TestOnDemandReportErrors(t *testing.T) {
	svc := newTestService(&stubFetcher{}, nil, nil, nil)
	_, err := svc.OnDemandReport(context.Background(), "solana", "  ")
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = svc.OnDemandReport(context.Background(), "solana", "So111")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	svc = newTestService(&stubFetcher{err: provider.ErrPairNotFound}, nil, nil, nil)
	_, err = svc.OnDemandReport(context.Background(), "solana", "So111")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	svc = newTestService(&stubFetcher{err: errors.New("timeout")}, nil, nil, nil)
	_, err = svc.OnDemandReport(context.Background(), "solana", "So111")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLatestReportPrefersCache(t *testing.T) {
	rdb := newFakeRedis()
	cache := NewReportCache(rdb, time.Minute)
	key := domain.NewTokenKey("solana", "So111")

	fromFile := &domain.AnalyticsReport{TokenSymbol: "FILE"}
	weekly := &stubWeekly{reports: map[domain.TokenKey]*domain.AnalyticsReport{key: fromFile}}
	svc := newTestService(nil, nil, weekly, cache)

	got, err := svc.LatestReport(context.Background(), "solana", "So111")
	require.NoError(t, err)
	assert.Equal(t, "FILE", got.TokenSymbol)

	svc.CacheReport(context.Background(), key, domain.AnalyticsReport{TokenSymbol: "CACHED"})
	assert.Equal(t, time.Minute, rdb.ttl)
	got, err = svc.LatestReport(context.Background(), "solana", "So111")
	require.NoError(t, err)
	assert.Equal(t, "CACHED", got.TokenSymbol)
}

func TestLatestReportCacheFailureFallsBack(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("redis down")
	key := domain.NewTokenKey("solana", "So111")
	weekly := &stubWeekly{reports: map[domain.TokenKey]*domain.AnalyticsReport{key: {TokenSymbol: "FILE"}}}
	svc := newTestService(nil, nil, weekly, NewReportCache(rdb, 0))

	got, err := svc.LatestReport(context.Background(), "solana", "So111")
	require.NoError(t, err)
	assert.Equal(t, "FILE", got.TokenSymbol)

	_, err = svc.LatestReport(context.Background(), "solana", "other")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestReportCacheDisabledAndCorrupt(t *testing.T) {
	var disabled *ReportCache
	require.NoError(t, disabled.Set(context.Background(), "k", domain.AnalyticsReport{}))
	got, err := NewReportCache(nil, 0).Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	rdb := newFakeRedis()
	rdb.data["report:k"] = []byte("{broken")
	_, err = NewReportCache(rdb, 0).Get(context.Background(), "k")
	assert.Error(t, err)

	rdb.setErr = errors.New("read only")
	svc := newTestService(nil, nil, nil, NewReportCache(rdb, 0))
	assert.NotPanics(t, func() { svc.CacheReport(context.Background(), "k", domain.AnalyticsReport{}) })
}

func TestHistoryPassThrough(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	svc.history = &stubHistory{points: []domain.PricePoint{{Price: 1}}}
	assert.Len(t, svc.History("k", 10), 1)
	assert.Len(t, svc.Sentiments("k", 10), 1)

	svc.history = nil
	assert.Empty(t, svc.History("k", 10))
}
