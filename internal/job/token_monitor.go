package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex-sentinel/internal/analysis"
	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultPollInterval = 20 * time.Second

// ErrNoData marks a cycle skipped because the provider returned nothing.
var ErrNoData = errors.New("no market data")

type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, chainID, tokenAddress string) (*domain.TokenSnapshot, error)
}

type HistoryStore interface {
	Previous(key domain.TokenKey) (domain.TokenSnapshot, bool)
	Record(key domain.TokenKey, snap domain.TokenSnapshot, at time.Time) domain.PricePoint
	RecordSentiment(key domain.TokenKey, sentiment domain.MarketSentiment)
}

type WeeklyStore interface {
	Load(key domain.TokenKey) (map[string]any, bool)
	Save(key domain.TokenKey, v any) bool
}

type ReportAssembler interface {
	Assemble(ctx context.Context, snap domain.TokenSnapshot, risk domain.RiskAnalysis, weekly map[string]any, sentiment *domain.MarketSentiment) domain.AnalyticsReport
	CacheReport(ctx context.Context, key domain.TokenKey, report domain.AnalyticsReport)
}

type AlertDispatcher interface {
	Dispatch(ctx context.Context, event domain.AlertEvent)
}

// TokenMonitor polls one token per Run call: fetch, alert check, record,
// score, assemble, persist, then sleep.
type TokenMonitor struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	fetcher  SnapshotFetcher
	store    HistoryStore
	weekly   WeeklyStore
	reports  ReportAssembler
	alerts   AlertDispatcher
	risk     *analysis.RiskScorer
	alertCfg analysis.AlertConfig
	interval time.Duration
	now      func() time.Time
}

func NewTokenMonitor(
	tracer trace.Tracer,
	logger *zap.Logger,
	m *metrics.Metrics,
	fetcher SnapshotFetcher,
	store HistoryStore,
	weekly WeeklyStore,
	reports ReportAssembler,
	alerts AlertDispatcher,
	interval time.Duration,
) *TokenMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	alertCfg := analysis.DefaultAlertConfig()
	return &TokenMonitor{
		tracer:   tracer,
		logger:   logger,
		metrics:  m,
		fetcher:  fetcher,
		store:    store,
		weekly:   weekly,
		reports:  reports,
		alerts:   alerts,
		risk:     analysis.NewRiskScorer(analysis.DefaultThresholds(), alertCfg),
		alertCfg: alertCfg,
		interval: interval,
		now:      time.Now,
	}
}

func (m *TokenMonitor) Interval() time.Duration {
	return m.interval
}

// Run blocks until ctx is cancelled. Cancellation is checked between cycles;
// an in-flight cycle finishes against the cancelled context.
func (m *TokenMonitor) Run(ctx context.Context, target domain.TrackedToken) {
	logger := m.logger.With(zap.String("token_key", target.Key().String()))
	logger.Info("starting token monitoring", zap.Duration("interval", m.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("token monitoring stopped")
			return
		case <-timer.C:
		}

		if _, err := m.RunCycle(ctx, target); err != nil && !errors.Is(err, ErrNoData) {
			logger.Error("monitoring cycle failed", zap.Error(err))
		}
		timer.Reset(m.interval)
	}
}

// RunCycle performs one poll. It returns ErrNoData when the provider had
// nothing, and converts a panic into an error.
func (m *TokenMonitor) RunCycle(ctx context.Context, target domain.TrackedToken) (report *domain.AnalyticsReport, err error) {
	key := target.Key()
	ctx, span := m.tracer.Start(ctx, "token-monitor.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("token_key", key.String()))

	started := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			report = nil
			err = fmt.Errorf("monitoring cycle panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
		}
		m.metrics.ObserveCycle(status, time.Since(started))
	}()

	snap, fetchErr := m.fetcher.FetchSnapshot(ctx, target.ChainID, target.TokenAddress)
	if fetchErr != nil || snap == nil {
		status = "no_data"
		m.metrics.FetchFailed(target.ChainID)
		m.logger.Info("no market data this cycle", zap.String("token_key", key.String()), zap.Error(fetchErr))
		return nil, ErrNoData
	}

	now := m.now()
	previous, hasPrevious := m.store.Previous(key)
	if hasPrevious {
		m.raiseAlerts(ctx, key, *snap, previous, now)
	}
	m.store.Record(key, *snap, now)

	weekly, _ := m.weekly.Load(key)
	sentiment := analysis.ScoreSentimentWith(*snap, nil, m.alertCfg.SentimentChange)
	m.store.RecordSentiment(key, sentiment)

	var prev *domain.TokenSnapshot
	if hasPrevious {
		prev = &previous
	}
	risk := m.risk.Score(*snap, prev, now)

	r := m.reports.Assemble(ctx, *snap, risk, weekly, &sentiment)
	r.ChainID = target.ChainID
	r.TokenAddress = target.TokenAddress

	m.weekly.Save(key, r)
	m.reports.CacheReport(ctx, key, r)
	m.metrics.SetScores(key.String(), risk.RiskScore, sentiment.Score)

	m.logger.Debug("monitoring cycle complete",
		zap.String("token_key", key.String()),
		zap.Int("risk_score", risk.RiskScore),
		zap.Float64("sentiment", sentiment.Score),
	)
	return &r, nil
}

func (m *TokenMonitor) raiseAlerts(ctx context.Context, key domain.TokenKey, current, previous domain.TokenSnapshot, now time.Time) {
	for _, msg := range m.alertCfg.Detect(current, previous) {
		kind := analysis.AlertKindOf(msg)
		m.metrics.AlertRaised(string(kind))
		m.logger.Warn(msg, zap.String("token_key", key.String()), zap.String("kind", string(kind)))
		if m.alerts == nil {
			continue
		}
		m.alerts.Dispatch(ctx, domain.AlertEvent{
			TokenKey:  key,
			Symbol:    current.BaseToken.Symbol,
			Kind:      kind,
			Message:   msg,
			CreatedAt: now.UTC(),
		})
	}
}
