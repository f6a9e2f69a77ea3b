package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/gin-gonic/gin"
)

type PeriodHandler struct {
	service service.PeriodService
	log     *logger.Logger
}

func NewPeriodHandler(service service.PeriodService, log *logger.Logger) *PeriodHandler {
	return &PeriodHandler{service: service, log: log}
}

func (h *PeriodHandler) CreateBillingPeriod(c *gin.Context) {
	var req dto.CreateBillingPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateBillingPeriod(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create billing period", "name", req.Name, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *PeriodHandler) GetBillingPeriod(c *gin.Context) {
	resp, err := h.service.GetBillingPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PeriodHandler) ListBillingPeriods(c *gin.Context) {
	resp, err := h.service.ListBillingPeriods(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ValidateBillingPeriods reports overlapping periods
func (h *PeriodHandler) ValidateBillingPeriods(c *gin.Context) {
	if err := h.service.ValidateBillingPeriods(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
