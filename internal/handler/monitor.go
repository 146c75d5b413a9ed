package handler

import (
	"errors"
	"net/http"
	"strings"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/job"

	"github.com/gin-gonic/gin"
)

// ListMonitors godoc
// @Summary      List tracked tokens
// @Tags         monitors
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/monitors [get]
func (h *Handler) ListMonitors(c *gin.Context) {
	tracked := h.monitors.Tracked()
	c.JSON(http.StatusOK, gin.H{"monitors": tracked, "count": len(tracked)})
}

type createMonitorRequest struct {
	ChainID      string `json:"chain_id"`
	TokenAddress string `json:"token_address" binding:"required"`
}

// CreateMonitor godoc
// @Summary      Start tracking a token
// @Tags         monitors
// @Accept       json
// @Produce      json
// @Success      201  {object}  domain.TrackedToken
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/monitors [post]
func (h *Handler) CreateMonitor(c *gin.Context) {
	var req createMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token_address is required"})
		return
	}
	target := domain.TrackedToken{
		ChainID:      strings.TrimSpace(req.ChainID),
		TokenAddress: strings.TrimSpace(req.TokenAddress),
	}
	if target.ChainID == "" {
		target.ChainID = domain.DefaultChainID
	}

	switch err := h.monitors.Track(target); {
	case err == nil:
		c.JSON(http.StatusCreated, target)
	case errors.Is(err, job.ErrAlreadyTracked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "token_key": target.Key()})
	case errors.Is(err, job.ErrInvalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
