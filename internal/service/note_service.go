package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type noteRepository interface {
	Upsert(ctx context.Context, note *models.Note) (bool, error)
	FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Note, error)
}

type noteEventRepository interface {
	FindByID(ctx context.Context, id, collegeID string) (*models.Event, error)
}

type noteRegistrationRepository interface {
	FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error)
}

// NoteService manages private per-student event notes.
type NoteService struct {
	notes         noteRepository
	events        noteEventRepository
	registrations noteRegistrationRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewNoteService constructs a NoteService instance.
func NewNoteService(notes noteRepository, events noteEventRepository, registrations noteRegistrationRepository, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoteService{
		notes:         notes,
		events:        events,
		registrations: registrations,
		validator:     validate,
		logger:        logger,
	}
}

// Upsert writes the caller's note for an event they registered for. Repeat
// writes replace the content in place. The second return value reports
// whether a new note was created.
func (s *NoteService) Upsert(ctx context.Context, actor models.AuthUser, req models.NoteRequest) (*models.Note, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID, actor.CollegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if _, err := s.registrations.FindActive(ctx, event.ID, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrRegistrationRequired, "notes require an active registration")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	note := &models.Note{
		EventID:   event.ID,
		StudentID: actor.ID,
		CollegeID: actor.CollegeID,
		Content:   req.Content,
	}
	created, err := s.notes.Upsert(ctx, note)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save note")
	}

	return note, created, nil
}

// GetByEvent returns the caller's note for the event, or nil when none has
// been written yet. An absent note is a normal state, not an error.
func (s *NoteService) GetByEvent(ctx context.Context, actor models.AuthUser, eventID string) (*models.Note, error) {
	note, err := s.notes.FindByEventAndStudent(ctx, eventID, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return note, nil
}
