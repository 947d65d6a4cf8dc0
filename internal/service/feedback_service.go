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

type feedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByID(ctx context.Context, id string) (*models.Feedback, error)
	FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Feedback, error)
	ApplyPatch(ctx context.Context, id string, patch models.FeedbackPatch) error
	ListByEvent(ctx context.Context, eventID string) ([]models.FeedbackDetail, error)
	RatingDistribution(ctx context.Context, eventID string) ([]models.RatingCount, error)
}

type feedbackEventRepository interface {
	FindByID(ctx context.Context, id, collegeID string) (*models.Event, error)
}

type feedbackAttendanceRepository interface {
	Exists(ctx context.Context, eventID, studentID string) (bool, error)
}

// FeedbackService enforces the attend-before-rate rule and ownership of
// feedback rows.
type FeedbackService struct {
	feedback   feedbackRepository
	events     feedbackEventRepository
	attendance feedbackAttendanceRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFeedbackService constructs a FeedbackService instance.
func NewFeedbackService(feedback feedbackRepository, events feedbackEventRepository, attendance feedbackAttendanceRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{
		feedback:   feedback,
		events:     events,
		attendance: attendance,
		validator:  validate,
		logger:     logger,
	}
}

// Create stores the student's feedback. Attendance is required first and at
// most one row exists per (event, student).
func (s *FeedbackService) Create(ctx context.Context, actor models.AuthUser, req models.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	event, err := s.findInTenant(ctx, req.EventID, actor.CollegeID)
	if err != nil {
		return nil, err
	}

	attended, err := s.attendance.Exists(ctx, event.ID, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if !attended {
		return nil, appErrors.Clone(appErrors.ErrAttendanceRequired, "feedback requires recorded attendance")
	}

	if _, err := s.feedback.FindByEventAndStudent(ctx, event.ID, actor.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted for this event")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check feedback")
	}

	feedback := &models.Feedback{
		EventID:   event.ID,
		StudentID: actor.ID,
		CollegeID: actor.CollegeID,
		Rating:    req.Rating,
		Comments:  req.Comments,
		Anonymous: req.Anonymous,
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}

	s.logger.Info("feedback submitted",
		zap.String("event_id", event.ID),
		zap.Int("rating", feedback.Rating),
		zap.Bool("anonymous", feedback.Anonymous))

	return feedback, nil
}

// Update patches the caller's own feedback row. Unset fields keep their
// stored values.
func (s *FeedbackService) Update(ctx context.Context, actor models.AuthUser, feedbackID string, patch models.FeedbackPatch) (*models.Feedback, error) {
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "patch sets no fields")
	}
	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be between 1 and 5")
	}

	feedback, err := s.feedback.FindByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	if feedback.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "feedback belongs to another student")
	}

	if err := s.feedback.ApplyPatch(ctx, feedback.ID, patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback")
	}

	updated, err := s.feedback.FindByID(ctx, feedback.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload feedback")
	}
	return updated, nil
}

// ListByEvent returns feedback for an event with a rating summary. Names of
// anonymous authors never leave the repository.
func (s *FeedbackService) ListByEvent(ctx context.Context, actor models.AuthUser, eventID string) ([]models.FeedbackDetail, *models.FeedbackSummary, error) {
	event, err := s.findInTenant(ctx, eventID, actor.CollegeID)
	if err != nil {
		return nil, nil, err
	}

	feedback, err := s.feedback.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}

	counts, err := s.feedback.RatingDistribution(ctx, event.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate ratings")
	}

	summary := summarizeRatings(counts)
	return feedback, summary, nil
}

func (s *FeedbackService) findInTenant(ctx context.Context, eventID, collegeID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID, collegeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func summarizeRatings(counts []models.RatingCount) *models.FeedbackSummary {
	summary := &models.FeedbackSummary{Distribution: make(map[int]int, len(counts))}
	total := 0
	for _, bucket := range counts {
		summary.Distribution[bucket.Rating] = bucket.Count
		summary.Count += bucket.Count
		total += bucket.Rating * bucket.Count
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary
}
