package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/service"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/response"
)

// ReportHandler exposes admin analytics and async export endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// EventPopularity godoc
// @Summary Rank events by registration count
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /reports/event-popularity [get]
func (h *ReportHandler) EventPopularity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.reports.EventPopularity(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// StudentParticipation godoc
// @Summary Count attended events per student
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Param category query string false "Event category filter"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /reports/student-participation [get]
func (h *ReportHandler) StudentParticipation(c *gin.Context) {
	filter := models.ReportFilter{Category: c.Query("category")}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	var err error
	if filter.From, err = parseReportTime(c.Query("from")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
		return
	}
	if filter.To, err = parseReportTime(c.Query("to")); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
		return
	}

	actor, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.reports.StudentParticipation(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Leaderboard godoc
// @Summary Rank students by attended events
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /reports/leaderboard [get]
func (h *ReportHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.reports.Leaderboard(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// AttendancePercentage godoc
// @Summary Relate attendance to registrations per event
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/attendance-percentage [get]
func (h *ReportHandler) AttendancePercentage(c *gin.Context) {
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.reports.AttendancePercentage(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// AverageFeedback godoc
// @Summary Average feedback rating per event
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/average-feedback [get]
func (h *ReportHandler) AverageFeedback(c *gin.Context) {
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.reports.AverageFeedback(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// RequestExport godoc
// @Summary Queue an async report export
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ExportRequest true "Report and format"
// @Success 202 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) RequestExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	job, err := h.exports.Request(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Check an export job, returning a signed download URL when done
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	actor, ok := requireUser(c)
	if !ok {
		return
	}
	job, url, err := h.exports.Status(actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if url != "" {
		meta = map[string]interface{}{"download_url": url}
	}
	response.JSON(c, http.StatusOK, job, nil, meta)
}

// Download godoc
// @Summary Download a completed export using a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/exports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	_, relPath, err := h.exports.ParseToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}

	contentType := "application/octet-stream"
	switch filepath.Ext(relPath) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filepath.Base(relPath)),
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, headers)
}

func parseReportTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
