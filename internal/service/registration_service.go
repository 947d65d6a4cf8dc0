package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	"github.com/noah-isme/campus-events-api/internal/repository"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type registrationRepository interface {
	Admit(ctx context.Context, eventID, studentID, collegeID string) (*models.Registration, error)
	Cancel(ctx context.Context, registrationID, studentID string) (*models.CancelOutcome, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.RegistrationDetail, error)
}

// RegistrationService fronts the admission engine for student callers.
type RegistrationService struct {
	registrations registrationRepository
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(registrations registrationRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{registrations: registrations, validator: validate, logger: logger, metrics: metrics}
}

// Register admits the student into the event or waitlists them when the
// event is full. The outcome is decided atomically in the repository.
func (s *RegistrationService) Register(ctx context.Context, actor models.AuthUser, req models.RegisterForEventRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	registration, err := s.registrations.Admit(ctx, req.EventID, actor.ID, actor.CollegeID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		case errors.Is(err, repository.ErrEventNotOpen):
			return nil, appErrors.Clone(appErrors.ErrEventNotOpen, "")
		case errors.Is(err, repository.ErrDuplicateRegistration):
			return nil, appErrors.Clone(appErrors.ErrDuplicateRegistration, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
	}

	s.metrics.RecordAdmission(string(registration.Status))
	s.logger.Info("registration admitted",
		zap.String("registration_id", registration.ID),
		zap.String("event_id", registration.EventID),
		zap.String("status", string(registration.Status)))

	return registration, nil
}

// ListMine returns the caller's registrations with event context.
func (s *RegistrationService) ListMine(ctx context.Context, actor models.AuthUser) ([]models.RegistrationDetail, error) {
	registrations, err := s.registrations.ListByStudent(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return registrations, nil
}

// Cancel releases the caller's registration. Freeing a confirmed slot
// promotes the waitlist head inside the same transaction.
func (s *RegistrationService) Cancel(ctx context.Context, actor models.AuthUser, registrationID string) (*models.CancelOutcome, error) {
	outcome, err := s.registrations.Cancel(ctx, registrationID, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRegistrationNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration is already cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}

	if outcome.PromotedRegistrationID != nil {
		s.logger.Info("waitlist head promoted",
			zap.String("registration_id", *outcome.PromotedRegistrationID),
			zap.String("event_id", outcome.Registration.EventID))
	}

	return outcome, nil
}
