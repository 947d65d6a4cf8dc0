package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

// NoteHandler exposes the private per-event note endpoints.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// Upsert godoc
// @Summary Create or replace the caller's note for an event
// @Tags Notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.NoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Upsert(c *gin.Context) {
	var req models.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	note, created, err := h.notes.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, note)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// GetByEvent godoc
// @Summary Fetch the caller's note for an event
// @Tags Notes
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /notes/event/{eventId} [get]
func (h *NoteHandler) GetByEvent(c *gin.Context) {
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	note, err := h.notes.GetByEvent(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if note == nil {
		// No note yet is a normal answer: data is an explicit null.
		response.JSON(c, http.StatusOK, json.RawMessage("null"), nil)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}
