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

type HouseholdHandler struct {
	service service.HouseholdService
	log     *logger.Logger
}

func NewHouseholdHandler(service service.HouseholdService, log *logger.Logger) *HouseholdHandler {
	return &HouseholdHandler{service: service, log: log}
}

// @Summary Create a household
// @Tags Households
// @Accept json
// @Produce json
// @Param household body dto.CreateHouseholdRequest true "Household"
// @Success 201 {object} dto.HouseholdResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /households [post]
func (h *HouseholdHandler) CreateHousehold(c *gin.Context) {
	var req dto.CreateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateHousehold(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create household", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetHousehold accepts either the household id or, with ?by=number, the household number
func (h *HouseholdHandler) GetHousehold(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Household ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var (
		resp *dto.HouseholdResponse
		err  error
	)
	if c.Query("by") == "number" {
		resp, err = h.service.GetHouseholdByNumber(c.Request.Context(), id)
	} else {
		resp, err = h.service.GetHousehold(c.Request.Context(), id)
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HouseholdHandler) ListHouseholds(c *gin.Context) {
	filter := types.NewHouseholdFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListHouseholds(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorw("failed to list households", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HouseholdHandler) UpdateHousehold(c *gin.Context) {
	var req dto.UpdateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateHousehold(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeactivateHousehold soft-deactivates; the household's history is kept
func (h *HouseholdHandler) DeactivateHousehold(c *gin.Context) {
	resp, err := h.service.DeactivateHousehold(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
