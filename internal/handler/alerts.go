package handler

import (
	"net/http"
	"strings"

	"dex-sentinel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// ListAlerts godoc
// @Summary      Archived alerts, newest first
// @Tags         alerts
// @Produce      json
// @Param        token_key  query  string  false  "Filter by {chain}-{address}"
// @Param        limit      query  int     false  "Max rows (default 50)"
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/alerts [get]
func (h *Handler) ListAlerts(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert archive is not configured"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-alerts")
	defer span.End()

	limit, ok := parseLimit(c, defaultAlertLimit, maxAlertLimit)
	if !ok {
		return
	}
	filter := domain.AlertFilter{
		TokenKey: domain.TokenKey(strings.TrimSpace(c.Query("token_key"))),
		Limit:    limit,
	}
	span.SetAttributes(attribute.String("token_key", filter.TokenKey.String()))

	alerts, err := h.archive.ListAlerts(ctx, filter)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("list alerts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// StreamAlerts upgrades to a websocket that pushes alerts as they fire.
func (h *Handler) StreamAlerts(c *gin.Context) {
	if h.stream == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert stream is not available"})
		return
	}
	h.stream.ServeWS(c.Writer, c.Request)
}
