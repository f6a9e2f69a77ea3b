package v1

import (
	"net/http"
	"time"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/gin-gonic/gin"
)

// PricingHandler manages the append-only price history of a utility service
type PricingHandler struct {
	service service.PricingService
	log     *logger.Logger
}

func NewPricingHandler(service service.PricingService, log *logger.Logger) *PricingHandler {
	return &PricingHandler{service: service, log: log}
}

func (h *PricingHandler) CreatePricing(c *gin.Context) {
	var req dto.CreatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if req.ServiceID == "" {
		req.ServiceID = c.Param("id")
	}

	resp, err := h.service.CreatePricing(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create pricing", "service_id", req.ServiceID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *PricingHandler) ListPricing(c *gin.Context) {
	resp, err := h.service.ListPricing(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResolvePricing returns the price in effect on ?date=YYYY-MM-DD, today when omitted
func (h *PricingHandler) ResolvePricing(c *gin.Context) {
	asOf, err := queryDate(c, "date", time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ResolvePricing(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
