package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/gin-gonic/gin"
)

type SharedCostHandler struct {
	service service.SharedCostService
	log     *logger.Logger
}

func NewSharedCostHandler(service service.SharedCostService, log *logger.Logger) *SharedCostHandler {
	return &SharedCostHandler{service: service, log: log}
}

func (h *SharedCostHandler) CreateSharedCost(c *gin.Context) {
	var req dto.CreateSharedCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateSharedCost(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create shared cost", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListSharedCosts requires ?year=&quarter=
func (h *SharedCostHandler) ListSharedCosts(c *gin.Context) {
	year, err := queryInt(c, "year")
	if err != nil {
		c.Error(err)
		return
	}
	quarter, err := queryInt(c, "quarter")
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ListSharedCosts(c.Request.Context(), year, quarter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}
