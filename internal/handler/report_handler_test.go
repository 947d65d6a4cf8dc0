package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
)

func TestParseReportTime(t *testing.T) {
	got, err := parseReportTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseReportTime("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	got, err = parseReportTime("2026-03-01T10:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.UTC().Hour())

	_, err = parseReportTime("01/03/2026")
	assert.Error(t, err)
}

func TestReportHandlerExportsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/reports/exports", nil)
	c.Set(middleware.ContextUserKey, &models.AuthUser{ID: "adm-1", Role: models.RoleAdmin, CollegeID: "col-1"})

	h.RequestExport(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
