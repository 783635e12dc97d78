package handlers

import (
	"fmt"
	"net/http"

	"waste-process-api/pkg/models"
	"waste-process-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ProcessHandler exposes the waste analysis pipeline over HTTP.
type ProcessHandler struct {
	service *services.WasteProcessService
}

// NewProcessHandler creates a ProcessHandler.
func NewProcessHandler(service *services.WasteProcessService) *ProcessHandler {
	return &ProcessHandler{service: service}
}

// Process runs the full analysis for one purchase/waste report.
// POST /api/v1/process/process
func (h *ProcessHandler) Process(c *gin.Context) {
	var input models.WasteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
		return
	}

	out, err := h.service.Process(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Metrics returns the derived metrics without calling the model.
// POST /api/v1/process/metrics
func (h *ProcessHandler) Metrics(c *gin.Context) {
	var input models.WasteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", services.ErrInvalidInput, err))
		return
	}

	metrics, err := h.service.Metrics(input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// History returns the historical points for a country and category.
// GET /api/v1/process/history?country=&category=
func (h *ProcessHandler) History(c *gin.Context) {
	country := c.DefaultQuery("country", h.service.DefaultCountry())
	category := c.Query("category")

	points, err := h.service.History(c.Request.Context(), country, category)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"country":  country,
		"category": category,
		"count":    len(points),
		"history":  points,
	})
}
