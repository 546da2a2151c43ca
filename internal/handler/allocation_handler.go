package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pfe-match/pfe-match-api/internal/service"
	"github.com/pfe-match/pfe-match-api/pkg/response"
)

// AllocationHandler exposes the recomputation trigger.
type AllocationHandler struct {
	allocation *service.AllocationService
}

// NewAllocationHandler constructs an allocation handler.
func NewAllocationHandler(allocation *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocation: allocation}
}

// Recompute godoc
// @Summary Recompute the full allocation
// @Tags Allocations
// @Produce json
// @Param X-Cron-Token header string false "Scheduler shared secret"
// @Success 200 {object} response.Envelope
// @Router /allocations/recompute [post]
func (h *AllocationHandler) Recompute(c *gin.Context) {
	metrics, err := h.allocation.Recompute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
