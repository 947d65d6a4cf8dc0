package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type mockAttendanceRepo struct {
	present map[string]bool
	created *models.Attendance
}

func (m *mockAttendanceRepo) Exists(ctx context.Context, eventID, studentID string) (bool, error) {
	return m.present[eventID+studentID], nil
}

func (m *mockAttendanceRepo) Create(ctx context.Context, attendance *models.Attendance) error {
	attendance.ID = "att-new"
	m.created = attendance
	return nil
}

func (m *mockAttendanceRepo) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	return nil, nil
}

type mockAttendanceRegistrations struct {
	active map[string]*models.Registration
}

func (m *mockAttendanceRegistrations) FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error) {
	if r, ok := m.active[eventID+studentID]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func newAttendanceService(attendance *mockAttendanceRepo, events *mockEventRepo, regs *mockAttendanceRegistrations) *AttendanceService {
	return NewAttendanceService(attendance, events, regs, validator.New(), zap.NewNop())
}

func activeEventFixture() *mockEventRepo {
	return &mockEventRepo{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1", CollegeID: "col-1", Status: models.EventStatusActive, QRSecret: "super-secret"},
	}}
}

func registeredFixture(studentID string) *mockAttendanceRegistrations {
	return &mockAttendanceRegistrations{active: map[string]*models.Registration{
		"evt-1" + studentID: {ID: "reg-1", Status: models.RegistrationStatusRegistered},
	}}
}

func qrData(t *testing.T, payload models.QRPayload) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(raw)
}

func TestAttendanceServiceQRCheckInRecordsAttendance(t *testing.T) {
	attendance := &mockAttendanceRepo{}
	svc := newAttendanceService(attendance, activeEventFixture(), registeredFixture("stu-1"))

	data := qrData(t, models.QRPayload{EventID: "evt-1", Secret: "super-secret", CollegeID: "col-1"})
	record, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: data})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceMethodQR, record.Method)
	assert.Nil(t, record.MarkedBy)
	assert.Equal(t, "col-1", record.CollegeID)
}

func TestAttendanceServiceQRCheckInMismatchesAreIndistinguishable(t *testing.T) {
	cases := map[string]models.QRPayload{
		"wrong secret":  {EventID: "evt-1", Secret: "forged", CollegeID: "col-1"},
		"wrong event":   {EventID: "evt-404", Secret: "super-secret", CollegeID: "col-1"},
		"wrong college": {EventID: "evt-1", Secret: "super-secret", CollegeID: "col-other"},
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newAttendanceService(&mockAttendanceRepo{}, activeEventFixture(), registeredFixture("stu-1"))
			_, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: qrData(t, payload)})
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrInvalidProof.Code, appErr.Code)
			assert.Equal(t, appErrors.ErrInvalidProof.Message, appErr.Message)
		})
	}
}

func TestAttendanceServiceQRCheckInRejectsMalformedPayload(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, activeEventFixture(), registeredFixture("stu-1"))

	_, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: "not json"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidProof.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceQRCheckInRejectsDuplicate(t *testing.T) {
	attendance := &mockAttendanceRepo{present: map[string]bool{"evt-1stu-1": true}}
	svc := newAttendanceService(attendance, activeEventFixture(), registeredFixture("stu-1"))

	data := qrData(t, models.QRPayload{EventID: "evt-1", Secret: "super-secret", CollegeID: "col-1"})
	_, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: data})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyCheckedIn.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceQRCheckInAdmitsWithoutRegistration(t *testing.T) {
	attendance := &mockAttendanceRepo{}
	svc := newAttendanceService(attendance, activeEventFixture(), &mockAttendanceRegistrations{})

	data := qrData(t, models.QRPayload{EventID: "evt-1", Secret: "super-secret", CollegeID: "col-1"})
	record, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: data})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceMethodQR, record.Method)
	assert.Nil(t, record.MarkedBy)
	assert.Equal(t, "stu-1", record.StudentID)
}

func TestAttendanceServiceQRCheckInAdmitsWaitlistedStudent(t *testing.T) {
	regs := &mockAttendanceRegistrations{active: map[string]*models.Registration{
		"evt-1stu-1": {ID: "reg-1", Status: models.RegistrationStatusWaitlisted},
	}}
	svc := newAttendanceService(&mockAttendanceRepo{}, activeEventFixture(), regs)

	data := qrData(t, models.QRPayload{EventID: "evt-1", Secret: "super-secret", CollegeID: "col-1"})
	record, err := svc.QRCheckIn(context.Background(), studentActor(), models.QRCheckInRequest{QRData: data})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceMethodQR, record.Method)
}

func TestAttendanceServiceMarkManualSetsMarkedBy(t *testing.T) {
	attendance := &mockAttendanceRepo{}
	svc := newAttendanceService(attendance, activeEventFixture(), registeredFixture("11111111-1111-4111-8111-111111111111"))

	record, err := svc.MarkManual(context.Background(), adminActor(), models.MarkAttendanceRequest{
		EventID:   "evt-1",
		StudentID: "11111111-1111-4111-8111-111111111111",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceMethodManual, record.Method)
	require.NotNil(t, record.MarkedBy)
	assert.Equal(t, "adm-1", *record.MarkedBy)
}

func TestAttendanceServiceMarkManualRequiresRegistration(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, activeEventFixture(), &mockAttendanceRegistrations{})

	_, err := svc.MarkManual(context.Background(), adminActor(), models.MarkAttendanceRequest{
		EventID:   "evt-1",
		StudentID: "11111111-1111-4111-8111-111111111111",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRegistrationRequired.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceMarkManualUnknownEvent(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, &mockEventRepo{}, &mockAttendanceRegistrations{})

	_, err := svc.MarkManual(context.Background(), adminActor(), models.MarkAttendanceRequest{
		EventID:   "evt-1",
		StudentID: "11111111-1111-4111-8111-111111111111",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
