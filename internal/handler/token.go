package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// GetToken godoc
// @Summary      On-demand token report
// @Description  Fetches the pair now and returns risk, sentiment, metrics and insights
// @Tags         tokens
// @Produce      json
// @Param        token_address  query  string  true   "Token address"
// @Param        chain_id       query  string  false  "Chain id (default solana)"
// @Success      200  {object}  domain.AnalyticsReport
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /get_token [get]
func (h *Handler) GetToken(c *gin.Context) {
	chain := c.DefaultQuery("chain_id", domain.DefaultChainID)
	h.onDemand(c, chain, c.Query("token_address"))
}

// GetTokenReport godoc
// @Summary      On-demand token report by path
// @Tags         tokens
// @Produce      json
// @Param        chain    path  string  true  "Chain id"
// @Param        address  path  string  true  "Token address"
// @Success      200  {object}  domain.AnalyticsReport
// @Failure      404  {object}  map[string]string
// @Router       /api/tokens/{chain}/{address}/report [get]
func (h *Handler) GetTokenReport(c *gin.Context) {
	h.onDemand(c, c.Param("chain"), c.Param("address"))
}

func (h *Handler) onDemand(c *gin.Context, chain, address string) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.on-demand-report")
	defer span.End()
	span.SetAttributes(attribute.String("token.chain", chain), attribute.String("token.address", address))

	report, err := h.reports.OnDemandReport(ctx, chain, address)
	if err != nil {
		span.RecordError(err)
		h.writeReportError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetLatestReport returns the last report the monitor produced for the token.
func (h *Handler) GetLatestReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.latest-report")
	defer span.End()

	report, err := h.reports.LatestReport(ctx, c.Param("chain"), c.Param("address"))
	if err != nil {
		h.writeReportError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetHistory returns recorded price points and sentiment scores, oldest first.
func (h *Handler) GetHistory(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	limit, ok := parseLimit(c, defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		return
	}
	key := domain.NewTokenKey(c.Param("chain"), c.Param("address"))
	span.SetAttributes(attribute.String("token_key", key.String()), attribute.Int("limit", limit))

	c.JSON(http.StatusOK, gin.H{
		"token_key":  key,
		"points":     h.reports.History(key, limit),
		"sentiments": h.reports.Sentiments(key, limit),
	})
}

func (h *Handler) writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token address is required"})
	case errors.Is(err, service.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Token data not found"})
	default:
		h.logger.Error("report request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseLimit reads ?limit=, writing a 400 and returning false when invalid.
func parseLimit(c *gin.Context, def, max int) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if limit > max {
		limit = max
	}
	return limit, true
}
