package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dex-sentinel/internal/analysis"
	"dex-sentinel/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrMissingAddress = errors.New("token address is required")
	ErrTokenNotFound  = errors.New("token data not found")
)

type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, chainID, tokenAddress string) (*domain.TokenSnapshot, error)
}

type InsightGenerator interface {
	Generate(ctx context.Context, snap domain.TokenSnapshot, weekly map[string]any, sentiment *domain.MarketSentiment) []string
}

type WeeklyReader interface {
	Load(key domain.TokenKey) (map[string]any, bool)
	LoadReport(key domain.TokenKey) (*domain.AnalyticsReport, bool)
}

type HistoryReader interface {
	History(key domain.TokenKey, limit int) []domain.PricePoint
	Sentiments(key domain.TokenKey, limit int) []domain.MarketSentiment
}

// ReportService assembles analytics reports and serves the read paths.
// It never mutates monitor-owned state.
type ReportService struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	fetcher  SnapshotFetcher
	insights InsightGenerator
	weekly   WeeklyReader
	history  HistoryReader
	cache    *ReportCache
	risk     *analysis.RiskScorer
	now      func() time.Time
}

func NewReportService(
	tracer trace.Tracer,
	logger *zap.Logger,
	fetcher SnapshotFetcher,
	insights InsightGenerator,
	weekly WeeklyReader,
	history HistoryReader,
	cache *ReportCache,
	risk *analysis.RiskScorer,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if risk == nil {
		risk = analysis.NewRiskScorer(analysis.DefaultThresholds(), analysis.DefaultAlertConfig())
	}
	return &ReportService{
		tracer:   tracer,
		logger:   logger,
		fetcher:  fetcher,
		insights: insights,
		weekly:   weekly,
		history:  history,
		cache:    cache,
		risk:     risk,
		now:      time.Now,
	}
}

// Assemble combines the scorer outputs and narrative insights into a report.
func (s *ReportService) Assemble(
	ctx context.Context,
	snap domain.TokenSnapshot,
	risk domain.RiskAnalysis,
	weekly map[string]any,
	sentiment *domain.MarketSentiment,
) domain.AnalyticsReport {
	ctx, span := s.tracer.Start(ctx, "report-service.assemble")
	defer span.End()

	buys, sells := snap.Txns.H1.Buys, snap.Txns.H1.Sells
	report := domain.AnalyticsReport{
		ChainID:      snap.ChainID,
		TokenAddress: snap.BaseToken.Address,
		TokenName:    snap.BaseToken.Name,
		TokenSymbol:  snap.BaseToken.Symbol,
		Timestamp:    unixSeconds(s.now()),
		Metrics: domain.ReportMetrics{
			Price: domain.PriceMetrics{
				Current: snap.Price(),
				Change: domain.ChangeMetric{
					H1:  snap.PriceChange.H1,
					H6:  snap.PriceChange.H6,
					H24: snap.PriceChange.H24,
				},
			},
			Volume: domain.ChangeMetric{
				H1:  snap.Volume.H1,
				H6:  snap.Volume.H6,
				H24: snap.Volume.H24,
			},
			Liquidity: snap.Liquidity.USD,
			MarketCap: snap.MarketCap,
			FDV:       snap.FDV,
			Transactions: domain.TxnMetrics{
				H1: domain.TxnRatio{
					Buys:  buys,
					Sells: sells,
					Ratio: float64(buys) / float64(max(1, sells)),
				},
			},
		},
		Risk:      risk,
		Sentiment: sentiment,
	}

	if s.insights != nil {
		report.AIInsights = s.insights.Generate(ctx, snap, weekly, sentiment)
	}
	if report.AIInsights == nil {
		report.AIInsights = []string{}
	}
	span.SetAttributes(
		attribute.String("token.symbol", report.TokenSymbol),
		attribute.Int("risk.score", risk.RiskScore),
	)
	return report
}

// OnDemandReport fetches a fresh snapshot and reports on it without any
// previous snapshot or sentiment. It only reads the weekly file.
func (s *ReportService) OnDemandReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error) {
	ctx, span := s.tracer.Start(ctx, "report-service.on-demand")
	defer span.End()

	tokenAddress = strings.TrimSpace(tokenAddress)
	if tokenAddress == "" {
		return nil, ErrMissingAddress
	}
	chainID = strings.TrimSpace(chainID)
	if chainID == "" {
		chainID = domain.DefaultChainID
	}
	span.SetAttributes(
		attribute.String("token.chain", chainID),
		attribute.String("token.address", tokenAddress),
	)

	snap, err := s.fetcher.FetchSnapshot(ctx, chainID, tokenAddress)
	if err != nil || snap == nil {
		s.logger.Info("on-demand fetch returned no data",
			zap.String("chain_id", chainID),
			zap.String("token_address", tokenAddress),
			zap.Error(err),
		)
		if err == nil {
			return nil, ErrTokenNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrTokenNotFound, err)
	}

	key := domain.NewTokenKey(chainID, tokenAddress)
	weekly := s.loadWeekly(key)
	sentiment := analysis.ScoreSentiment(*snap, nil)
	risk := s.risk.Score(*snap, nil, s.now())

	report := s.Assemble(ctx, *snap, risk, weekly, &sentiment)
	report.ChainID = chainID
	report.TokenAddress = tokenAddress
	return &report, nil
}

// LatestReport returns the last report produced by the monitor, trying the
// cache before the weekly file.
func (s *ReportService) LatestReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error) {
	ctx, span := s.tracer.Start(ctx, "report-service.latest")
	defer span.End()

	if strings.TrimSpace(tokenAddress) == "" {
		return nil, ErrMissingAddress
	}
	key := domain.NewTokenKey(chainID, tokenAddress)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("report cache read failed", zap.String("token_key", key.String()), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	if s.weekly != nil {
		if report, ok := s.weekly.LoadReport(key); ok {
			return report, nil
		}
	}
	return nil, ErrTokenNotFound
}

// CacheReport stores report as the latest for key. Failures are logged.
func (s *ReportService) CacheReport(ctx context.Context, key domain.TokenKey, report domain.AnalyticsReport) {
	if err := s.cache.Set(ctx, key, report); err != nil {
		s.logger.Warn("report cache write failed", zap.String("token_key", key.String()), zap.Error(err))
	}
}

func (s *ReportService) History(key domain.TokenKey, limit int) []domain.PricePoint {
	if s.history == nil {
		return []domain.PricePoint{}
	}
	return s.history.History(key, limit)
}

func (s *ReportService) Sentiments(key domain.TokenKey, limit int) []domain.MarketSentiment {
	if s.history == nil {
		return []domain.MarketSentiment{}
	}
	return s.history.Sentiments(key, limit)
}

func (s *ReportService) loadWeekly(key domain.TokenKey) map[string]any {
	if s.weekly == nil {
		return nil
	}
	weekly, ok := s.weekly.Load(key)
	if !ok {
		return nil
	}
	return weekly
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
