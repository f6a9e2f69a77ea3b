package v1

import (
	"net/http"

	"github.com/brfledger/utilitybilling/internal/api/dto"
	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/brfledger/utilitybilling/internal/service"
	"github.com/brfledger/utilitybilling/internal/types"
	"github.com/gin-gonic/gin"
)

// ServiceCatalogHandler manages utility services and their meters
type ServiceCatalogHandler struct {
	service service.ServiceCatalogService
	log     *logger.Logger
}

func NewServiceCatalogHandler(service service.ServiceCatalogService, log *logger.Logger) *ServiceCatalogHandler {
	return &ServiceCatalogHandler{service: service, log: log}
}

func (h *ServiceCatalogHandler) CreateUtilityService(c *gin.Context) {
	var req dto.CreateUtilityServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateUtilityService(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create utility service", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ServiceCatalogHandler) GetUtilityService(c *gin.Context) {
	resp, err := h.service.GetUtilityService(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ServiceCatalogHandler) ListUtilityServices(c *gin.Context) {
	filter := types.NewUtilityServiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListUtilityServices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ServiceCatalogHandler) CreateMainMeter(c *gin.Context) {
	var req dto.CreateMainMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if req.ServiceID == "" {
		req.ServiceID = c.Param("id")
	}

	resp, err := h.service.CreateMainMeter(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create main meter", "service_id", req.ServiceID, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ServiceCatalogHandler) ListMainMeters(c *gin.Context) {
	resp, err := h.service.ListMainMeters(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *ServiceCatalogHandler) CreateHouseholdMeter(c *gin.Context) {
	var req dto.CreateHouseholdMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateHouseholdMeter(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create household meter",
			"household_id", req.HouseholdID,
			"service_id", req.ServiceID,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ServiceCatalogHandler) ListHouseholdMeters(c *gin.Context) {
	var filter types.HouseholdMeterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListHouseholdMeters(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}
