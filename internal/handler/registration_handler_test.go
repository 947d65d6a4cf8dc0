package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-events-api/internal/middleware"
	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/repository"
	"github.com/noah-isme/campus-events-api/internal/service"
)

type fakeRegistrationRepo struct {
	admitResult *models.Registration
	admitErr    error
	lastAdmit   struct {
		eventID   string
		studentID string
		collegeID string
	}
}

func (f *fakeRegistrationRepo) Admit(_ context.Context, eventID, studentID, collegeID string) (*models.Registration, error) {
	f.lastAdmit.eventID = eventID
	f.lastAdmit.studentID = studentID
	f.lastAdmit.collegeID = collegeID
	return f.admitResult, f.admitErr
}

func (f *fakeRegistrationRepo) Cancel(context.Context, string, string) (*models.CancelOutcome, error) {
	return nil, repository.ErrRegistrationNotFound
}

func (f *fakeRegistrationRepo) ListByStudent(context.Context, string) ([]models.RegistrationDetail, error) {
	return nil, nil
}

func registrationTestContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.AuthUser{ID: "stu-1", Role: models.RoleStudent, CollegeID: "col-1"})
	return c, rec
}

func TestRegistrationHandlerRegisterSuccess(t *testing.T) {
	repo := &fakeRegistrationRepo{
		admitResult: &models.Registration{
			ID:        "reg-1",
			EventID:   "evt-1",
			StudentID: "stu-1",
			CollegeID: "col-1",
			Status:    models.RegistrationStatusRegistered,
			CreatedAt: time.Now().UTC(),
		},
	}
	h := NewRegistrationHandler(service.NewRegistrationService(repo, nil, nil, nil))

	c, rec := registrationTestContext(t, `{"event_id":"evt-1"}`)
	h.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "evt-1", repo.lastAdmit.eventID)
	assert.Equal(t, "stu-1", repo.lastAdmit.studentID)
	assert.Equal(t, "col-1", repo.lastAdmit.collegeID)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "registered", envelope.Data["status"])
}

func TestRegistrationHandlerRegisterWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewRegistrationHandler(service.NewRegistrationService(&fakeRegistrationRepo{}, nil, nil, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(`{"event_id":"evt-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Register(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegistrationHandlerRegisterMalformedBody(t *testing.T) {
	h := NewRegistrationHandler(service.NewRegistrationService(&fakeRegistrationRepo{}, nil, nil, nil))

	c, rec := registrationTestContext(t, `{"event_id":`)
	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationHandlerRegisterDuplicate(t *testing.T) {
	repo := &fakeRegistrationRepo{admitErr: repository.ErrDuplicateRegistration}
	h := NewRegistrationHandler(service.NewRegistrationService(repo, nil, nil, nil))

	c, rec := registrationTestContext(t, `{"event_id":"evt-1"}`)
	h.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "DUPLICATE_REGISTRATION", envelope.Error.Code)
}
