package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
)

const contentTypeCSV = "text/csv"

type ReadingHandler struct {
	service service.ReadingService
	log     *logger.Logger
}

func NewReadingHandler(service service.ReadingService, log *logger.Logger) *ReadingHandler {
	return &ReadingHandler{service: service, log: log}
}

func (h *ReadingHandler) RecordHouseholdReading(c *gin.Context) {
	var req dto.RecordHouseholdReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordHouseholdReading(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReadingHandler) RecordMainReading(c *gin.Context) {
	var req dto.RecordMainReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordMainReading(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ImportReadings accepts a JSON batch or a text/csv reading sheet.
// Rejected rows are listed in the response; the remaining rows are stored.
func (h *ReadingHandler) ImportReadings(c *gin.Context) {
	var req dto.ImportReadingsRequest

	if c.ContentType() == contentTypeCSV {
		var rows []*dto.ReadingCSVRow
		if err := gocsv.Unmarshal(c.Request.Body, &rows); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid CSV reading sheet").
				Mark(ierr.ErrValidation))
			return
		}
		for i, row := range rows {
			r, err := row.ToRequest(i + 1)
			if err != nil {
				c.Error(err)
				return
			}
			req.Readings = append(req.Readings, r)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ImportReadings(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to import readings", "rows", len(req.Readings), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListMeterReadings lists readings of a meter; ?kind=main selects a main meter
func (h *ReadingHandler) ListMeterReadings(c *gin.Context) {
	kind := types.MeterKindHousehold
	if c.Query("kind") == string(types.MeterKindMain) {
		kind = types.MeterKindMain
	}

	resp, err := h.service.ListMeterReadings(c.Request.Context(), kind, c.Param("meter_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}
