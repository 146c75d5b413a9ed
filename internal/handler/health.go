package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the number of running monitors
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	monitors := 0
	if h.monitors != nil {
		monitors = len(h.monitors.Tracked())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"monitors":        monitors,
		"alerts_archived": h.archive != nil,
	})
}
