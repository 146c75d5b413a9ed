// Package metrics exposes the Prometheus collectors for the monitor and the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dex_sentinel"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MonitorCycles   *prometheus.CounterVec
	FetchFailures   *prometheus.CounterVec
	AlertsRaised    *prometheus.CounterVec
	RiskScore       *prometheus.GaugeVec
	SentimentScore  *prometheus.GaugeVec
	InsightLatency  *prometheus.HistogramVec
	CycleDuration   prometheus.Histogram
	TrackedTokens   prometheus.Gauge
	AlertsDelivered *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MonitorCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Monitoring cycles by outcome",
		}, []string{"status"}), // status: ok|no_data|panic
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Market-data fetches that yielded no snapshot",
		}, []string{"chain"}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts detected by kind",
		}, []string{"kind"}),
		RiskScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Last risk score per token",
		}, []string{"token_key"}),
		SentimentScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sentiment_score",
			Help:      "Last overall sentiment score per token",
		}, []string{"token_key"}),
		InsightLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insight_latency_seconds",
			Help:      "Narrative insight generation latency",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Wall time of one monitoring cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		TrackedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_tokens",
			Help:      "Number of running monitors",
		}),
		AlertsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_deliveries_total",
			Help:      "Alert sink deliveries by sink and status",
		}, []string{"sink", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCycle(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MonitorCycles.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FetchFailed(chain string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(chain).Inc()
}

func (m *Metrics) AlertRaised(kind string) {
	if m == nil {
		return
	}
	m.AlertsRaised.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetScores(tokenKey string, risk int, sentiment float64) {
	if m == nil {
		return
	}
	m.RiskScore.WithLabelValues(tokenKey).Set(float64(risk))
	m.SentimentScore.WithLabelValues(tokenKey).Set(sentiment)
}

func (m *Metrics) ObserveInsight(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InsightLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *Metrics) SetTracked(n int) {
	if m == nil {
		return
	}
	m.TrackedTokens.Set(float64(n))
}

func (m *Metrics) AlertDelivered(sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AlertsDelivered.WithLabelValues(sink, status).Inc()
}
