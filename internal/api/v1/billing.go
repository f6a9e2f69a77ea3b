package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	temporalservice "github.com/brfledger/utilitybilling/internal/temporal/service"
	"github.com/gin-gonic/gin"
)

// BillingHandler exposes consumption, reconciliation and bill generation
type BillingHandler struct {
	billing        service.BillingService
	billingRun     service.BillingRunService
	consumption    service.ConsumptionService
	reconciliation service.ReconciliationService
	temporal       temporalservice.TemporalService
	log            *logger.Logger
}

func NewBillingHandler(
	billing service.BillingService,
	billingRun service.BillingRunService,
	consumption service.ConsumptionService,
	reconciliation service.ReconciliationService,
	temporal temporalservice.TemporalService,
	log *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		billing:        billing,
		billingRun:     billingRun,
		consumption:    consumption,
		reconciliation: reconciliation,
		temporal:       temporal,
		log:            log,
	}
}

// GenerateBills bills one period and returns its batch report
func (h *BillingHandler) GenerateBills(c *gin.Context) {
	var req dto.GenerateBillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	report, err := h.billing.GenerateBills(c.Request.Context(), req.BillingPeriodID)
	if err != nil {
		h.log.Errorw("failed to generate bills", "billing_period_id", req.BillingPeriodID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// RunBilling bills several periods in start date order. With async set the run is
// handed to a workflow and 202 carries the workflow ids.
func (h *BillingHandler) RunBilling(c *gin.Context) {
	var req dto.BillingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if req.Async {
		if h.temporal == nil {
			c.Error(ierr.NewError("temporal is not configured").
				WithHint("Asynchronous billing runs need temporal to be enabled").
				Mark(ierr.ErrInvalidOperation))
			return
		}
		resp, err := h.temporal.StartBillingRun(c.Request.Context(), req)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
		return
	}

	resp, err := h.billingRun.Run(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("billing run failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) ListLineItems(c *gin.Context) {
	items, err := h.billing.ListLineItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BillingHandler) GetServiceConsumption(c *gin.Context) {
	resp, err := h.consumption.GetServiceConsumption(c.Request.Context(), c.Param("id"), c.Param("service_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) Reconcile(c *gin.Context) {
	req := dto.ReconcileRequest{
		BillingPeriodID: c.Param("id"),
		ServiceID:       c.Param("service_id"),
	}

	resp, err := h.reconciliation.Reconcile(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to reconcile",
			"billing_period_id", req.BillingPeriodID,
			"service_id", req.ServiceID,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) GetReconciliation(c *gin.Context) {
	resp, err := h.reconciliation.GetReconciliation(c.Request.Context(), c.Param("service_id"), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) ListReconciliations(c *gin.Context) {
	resp, err := h.reconciliation.ListReconciliations(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}
