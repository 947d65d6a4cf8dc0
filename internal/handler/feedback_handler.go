package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

// FeedbackHandler exposes feedback submission and listing endpoints.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Create godoc
// @Summary Submit feedback for an attended event
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req models.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	feedback, err := h.feedback.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// Update godoc
// @Summary Update the caller's own feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feedback ID"
// @Param payload body models.FeedbackPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id} [put]
func (h *FeedbackHandler) Update(c *gin.Context) {
	var patch models.FeedbackPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	feedback, err := h.feedback.Update(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// ListByEvent godoc
// @Summary List feedback for an event with a rating summary
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /feedback/event/{eventId} [get]
func (h *FeedbackHandler) ListByEvent(c *gin.Context) {
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	items, summary, err := h.feedback.ListByEvent(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, map[string]interface{}{"summary": summary})
}
