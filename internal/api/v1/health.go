package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/config"
	temporalservice "github.com/brfledger/utilitybilling/internal/temporal/service"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	cfg      *config.Configuration
	temporal temporalservice.TemporalService
}

func NewHealthHandler(cfg *config.Configuration, temporal temporalservice.TemporalService) *HealthHandler {
	return &HealthHandler{cfg: cfg, temporal: temporal}
}

// Health reports liveness; an enabled but unreachable temporal frontend answers 503
func (h *HealthHandler) Health(c *gin.Context) {
	temporalStatus := "disabled"
	if h.cfg.Temporal.Enabled && h.temporal != nil {
		temporalStatus = "ok"
		if !h.temporal.IsHealthy(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "temporal": "unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "temporal": temporalStatus})
}
