package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id, collegeID string) (*models.Event, error)
	List(ctx context.Context, collegeID string, filter models.EventFilter) ([]models.Event, int, error)
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
}

type eventRegistrationRepository interface {
	FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error)
	CountByEventAndStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error)
}

// EventService owns the event lifecycle inside one college.
type EventService struct {
	events        eventRepository
	registrations eventRegistrationRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewEventService constructs an EventService instance.
func NewEventService(events eventRepository, registrations eventRegistrationRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{events: events, registrations: registrations, validator: validate, logger: logger}
}

// Create stores a new draft event owned by the calling admin. The QR secret
// is generated here and never leaves the server except through the dedicated
// QR endpoint.
func (s *EventService) Create(ctx context.Context, actor models.AuthUser, req models.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EventDate.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event date must be in the future")
	}

	secret, err := generateQRSecret()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate event secret")
	}

	event := &models.Event{
		CollegeID:   actor.CollegeID,
		CreatedBy:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Venue:       req.Venue,
		EventDate:   req.EventDate,
		Capacity:    req.Capacity,
		QRSecret:    secret,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("college_id", event.CollegeID),
		zap.Int("capacity", event.Capacity))

	return event, nil
}

// List returns the caller's college events matching the filter.
func (s *EventService) List(ctx context.Context, actor models.AuthUser, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	if filter.Status != "" && !models.EventStatus(filter.Status).Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown event status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	events, total, err := s.events.List(ctx, actor.CollegeID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return events, pagination, nil
}

// Get returns one event with occupancy counts. Student callers also see
// their own registration if any.
func (s *EventService) Get(ctx context.Context, actor models.AuthUser, eventID string) (*models.EventDetail, error) {
	event, err := s.findInTenant(ctx, eventID, actor.CollegeID)
	if err != nil {
		return nil, err
	}

	registered, err := s.registrations.CountByEventAndStatus(ctx, event.ID, models.RegistrationStatusRegistered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	waitlisted, err := s.registrations.CountByEventAndStatus(ctx, event.ID, models.RegistrationStatusWaitlisted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist")
	}

	detail := &models.EventDetail{
		Event:           *event,
		RegisteredCount: registered,
		WaitlistedCount: waitlisted,
	}

	if actor.Role == models.RoleStudent {
		reg, err := s.registrations.FindActive(ctx, event.ID, actor.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
		}
		if err == nil {
			detail.UserRegistration = &models.RegistrationSummary{
				ID:               reg.ID,
				Status:           reg.Status,
				WaitlistPosition: reg.WaitlistPosition,
			}
		}
	}

	return detail, nil
}

// UpdateStatus moves an event through its lifecycle. Only the owning admin
// or a super admin may do so. Transitions are monotonic; completed and
// cancelled are terminal.
func (s *EventService) UpdateStatus(ctx context.Context, actor models.AuthUser, eventID string, req models.UpdateEventStatusRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event status")
	}

	event, err := s.findInTenant(ctx, eventID, actor.CollegeID)
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}

	if !event.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatusChange, "cannot move event from "+string(event.Status)+" to "+string(req.Status))
	}

	if err := s.events.UpdateStatus(ctx, event.ID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}

	s.logger.Info("event status changed",
		zap.String("event_id", event.ID),
		zap.String("from", string(event.Status)),
		zap.String("to", string(req.Status)))

	event.Status = req.Status
	return event, nil
}

// QRPayload returns the check-in payload for event staff to display. The
// secret is only handed to the owning admin or a super admin.
func (s *EventService) QRPayload(ctx context.Context, actor models.AuthUser, eventID string) (*models.QRPayload, error) {
	event, err := s.findInTenant(ctx, eventID, actor.CollegeID)
	if err != nil {
		return nil, err
	}
	if err := requireEventOwner(event, actor); err != nil {
		return nil, err
	}
	return &models.QRPayload{
		EventID:   event.ID,
		Secret:    event.QRSecret,
		CollegeID: event.CollegeID,
	}, nil
}

func requireEventOwner(event *models.Event, actor models.AuthUser) error {
	if event.CreatedBy != actor.ID && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the event owner can do this")
	}
	return nil
}

func (s *EventService) findInTenant(ctx context.Context, eventID, collegeID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID, collegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func generateQRSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
