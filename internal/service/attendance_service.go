package service

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type attendanceRepository interface {
	Exists(ctx context.Context, eventID, studentID string) (bool, error)
	Create(ctx context.Context, attendance *models.Attendance) error
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error)
}

type attendanceEventRepository interface {
	FindByID(ctx context.Context, id, collegeID string) (*models.Event, error)
}

type attendanceRegistrationRepository interface {
	FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error)
}

// AttendanceService records presence facts through the manual and QR paths.
type AttendanceService struct {
	attendance    attendanceRepository
	events        attendanceEventRepository
	registrations attendanceRegistrationRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendance attendanceRepository, events attendanceEventRepository, registrations attendanceRegistrationRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		attendance:    attendance,
		events:        events,
		registrations: registrations,
		validator:     validate,
		logger:        logger,
	}
}

// MarkManual records attendance on behalf of a student. The student must
// hold a confirmed registration; waitlisted students are not admitted.
func (s *AttendanceService) MarkManual(ctx context.Context, actor models.AuthUser, req models.MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID, actor.CollegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if err := s.requireConfirmedRegistration(ctx, event.ID, req.StudentID); err != nil {
		return nil, err
	}

	markedBy := actor.ID
	return s.record(ctx, event, req.StudentID, models.AttendanceMethodManual, &markedBy)
}

// QRCheckIn validates the scanned payload and records the caller's own
// attendance. The payload itself is the admission proof, so no registration
// is needed on this path. Every mismatch surfaces the same error so the
// response never reveals which field was wrong.
func (s *AttendanceService) QRCheckIn(ctx context.Context, actor models.AuthUser, req models.QRCheckInRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	var payload models.QRPayload
	if err := json.Unmarshal([]byte(req.QRData), &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidProof, "")
	}
	if payload.EventID == "" || payload.Secret == "" || payload.CollegeID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidProof, "")
	}
	if payload.CollegeID != actor.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrInvalidProof, "")
	}

	event, err := s.events.FindByID(ctx, payload.EventID, actor.CollegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidProof, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !hmac.Equal([]byte(payload.Secret), []byte(event.QRSecret)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidProof, "")
	}

	return s.record(ctx, event, actor.ID, models.AttendanceMethodQR, nil)
}

// ListByEvent returns the attendance sheet for an event in the caller's
// college.
func (s *AttendanceService) ListByEvent(ctx context.Context, actor models.AuthUser, eventID string) ([]models.AttendanceDetail, error) {
	if _, err := s.events.FindByID(ctx, eventID, actor.CollegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	attendance, err := s.attendance.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return attendance, nil
}

func (s *AttendanceService) requireConfirmedRegistration(ctx context.Context, eventID, studentID string) error {
	reg, err := s.registrations.FindActive(ctx, eventID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRegistrationRequired, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if reg.Status != models.RegistrationStatusRegistered {
		return appErrors.Clone(appErrors.ErrRegistrationRequired, "waitlisted students cannot be marked present")
	}
	return nil
}

func (s *AttendanceService) record(ctx context.Context, event *models.Event, studentID string, method models.AttendanceMethod, markedBy *string) (*models.Attendance, error) {
	present, err := s.attendance.Exists(ctx, event.ID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if present {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCheckedIn, "")
	}

	attendance := &models.Attendance{
		EventID:   event.ID,
		StudentID: studentID,
		CollegeID: event.CollegeID,
		Method:    method,
		MarkedBy:  markedBy,
	}
	if err := s.attendance.Create(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.logger.Info("attendance recorded",
		zap.String("event_id", event.ID),
		zap.String("student_id", studentID),
		zap.String("method", string(method)))

	return attendance, nil
}
