package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pfe-match/pfe-match-api/internal/models"
	"github.com/pfe-match/pfe-match-api/internal/service"
	appErrors "github.com/pfe-match/pfe-match-api/pkg/errors"
	"github.com/pfe-match/pfe-match-api/pkg/response"
)

// SubmissionHandler handles choice submission endpoints.
type SubmissionHandler struct {
	service *service.SubmissionService
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(svc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit team choices
// @Tags Choices
// @Accept json
// @Produce json
// @Param payload body service.SubmitChoicesRequest true "Choices payload"
// @Success 201 {object} response.Envelope
// @Router /choices [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitChoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	team, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// List godoc
// @Summary List submissions
// @Tags Choices
// @Produce json
// @Param status query string false "Filter by status"
// @Param specialty query string false "Filter by specialty"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /choices [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	var filter models.TeamFilter
	filter.Status = c.Query("status")
	filter.Specialty = c.Query("specialty")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	teams, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, pagination)
}

// Get godoc
// @Summary Get submission by id
// @Tags Choices
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} response.Envelope
// @Router /choices/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	team, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}

// DecideMentor godoc
// @Summary Record a mentor decision on an assignment
// @Tags Choices
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body service.MentorDecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /choices/{id}/mentor-decision [patch]
func (h *SubmissionHandler) DecideMentor(c *gin.Context) {
	var req service.MentorDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	team, err := h.service.DecideMentor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, team, nil)
}
