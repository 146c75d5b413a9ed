package handler

import (
	"context"
	"net/http"

	"dex-sentinel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReportService interface {
	OnDemandReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error)
	LatestReport(ctx context.Context, chainID, tokenAddress string) (*domain.AnalyticsReport, error)
	History(key domain.TokenKey, limit int) []domain.PricePoint
	Sentiments(key domain.TokenKey, limit int) []domain.MarketSentiment
}

type MonitorManager interface {
	Track(target domain.TrackedToken) error
	Tracked() []domain.TrackedToken
}

type AlertArchive interface {
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.AlertEvent, error)
}

type AlertStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	reports  ReportService
	monitors MonitorManager
	archive  AlertArchive
	stream   AlertStream
}

// New wires the HTTP surface. archive and stream may be nil; their routes
// then answer 503.
func New(
	tracer trace.Tracer,
	logger *zap.Logger,
	reports ReportService,
	monitors MonitorManager,
	archive AlertArchive,
	stream AlertStream,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracer:   tracer,
		logger:   logger,
		reports:  reports,
		monitors: monitors,
		archive:  archive,
		stream:   stream,
	}
}

// RegisterRoutes mounts every route. /api is guarded by APIKeyAuth(apiKey).
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/get_token", h.GetToken)
	r.GET("/ws/alerts", h.StreamAlerts)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/tokens/:chain/:address/report", h.GetTokenReport)
	api.GET("/tokens/:chain/:address/latest", h.GetLatestReport)
	api.GET("/tokens/:chain/:address/history", h.GetHistory)
	api.GET("/monitors", h.ListMonitors)
	api.POST("/monitors", h.CreateMonitor)
	api.GET("/alerts", h.ListAlerts)
}
