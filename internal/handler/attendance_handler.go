package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

// AttendanceHandler exposes manual marking, QR check-in and attendance listings.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// MarkManual godoc
// @Summary Mark a student's attendance manually
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.MarkAttendanceRequest true "Event and student"
// @Success 201 {object} response.Envelope
// @Router /attendance/manual [post]
func (h *AttendanceHandler) MarkManual(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	attendance, err := h.attendance.MarkManual(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendance)
}

// QRCheckIn godoc
// @Summary Self check-in with a scanned QR payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.QRCheckInRequest true "Scanned QR data"
// @Success 201 {object} response.Envelope
// @Router /attendance/qr-checkin [post]
func (h *AttendanceHandler) QRCheckIn(c *gin.Context) {
	var req models.QRCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	attendance, err := h.attendance.QRCheckIn(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendance)
}

// ListByEvent godoc
// @Summary List attendance records for an event
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/event/{eventId} [get]
func (h *AttendanceHandler) ListByEvent(c *gin.Context) {
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	records, err := h.attendance.ListByEvent(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
