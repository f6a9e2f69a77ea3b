package cron

import (
	"net/http"
	"time"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	temporalservice "github.com/brfledger/utilitybilling/internal/temporal/service"
	"github.com/gin-gonic/gin"
)

// InvoiceCronHandler handles invoice related cron jobs
type InvoiceCronHandler struct {
	invoiceService service.InvoiceService
	temporal       temporalservice.TemporalService
	logger         *logger.Logger
}

func NewInvoiceCronHandler(
	invoiceService service.InvoiceService,
	temporal temporalservice.TemporalService,
	logger *logger.Logger,
) *InvoiceCronHandler {
	return &InvoiceCronHandler{
		invoiceService: invoiceService,
		temporal:       temporal,
		logger:         logger,
	}
}

// MarkOverdue moves pending invoices past their due date to overdue.
// An optional ?as_of=YYYY-MM-DD replays the sweep for a given day and
// ?async=true hands the sweep to the overdue workflow.
func (h *InvoiceCronHandler) MarkOverdue(c *gin.Context) {
	now := time.Now().UTC()
	h.logger.Infow("starting overdue sweep cron job", "time", now.Format(time.RFC3339))

	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("as_of must be a date formatted as YYYY-MM-DD").
				Mark(ierr.ErrValidation))
			return
		}
		asOf = parsed
		now = parsed
	}

	if c.Query("async") == "true" {
		if h.temporal == nil {
			c.Error(ierr.NewError("temporal is not configured").
				WithHint("Asynchronous overdue sweeps need temporal to be enabled").
				Mark(ierr.ErrInvalidOperation))
			return
		}
		// a zero as_of lets the workflow use its own start time
		resp, err := h.temporal.StartOverdueSweep(c.Request.Context(), asOf)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
		return
	}

	resp, err := h.invoiceService.MarkOverdue(c.Request.Context(), now)
	if err != nil {
		h.logger.Errorw("failed to mark invoices overdue", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed overdue sweep cron job", "updated", resp.Updated)
	c.JSON(http.StatusOK, resp)
}
