package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-events-api/internal/models"
)

// FeedbackRepository handles persistence of event feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const feedbackColumns = `id, event_id, student_id, college_id, rating, comments, anonymous, created_at, updated_at`

// Create persists a new feedback record.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	const query = `INSERT INTO feedback (id, event_id, student_id, college_id, rating, comments, anonymous, created_at, updated_at)
        VALUES (:id, :event_id, :student_id, :college_id, :rating, :comments, :anonymous, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// FindByID returns a feedback row by its ID.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE id = $1`, feedbackColumns)
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// FindByEventAndStudent returns the student's feedback for an event.
func (r *FeedbackRepository) FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE event_id = $1 AND student_id = $2`, feedbackColumns)
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, eventID, studentID); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// ApplyPatch updates only the fields set in the patch. COALESCE keeps the
// stored value for unset fields, so no dynamic SQL assembly is needed.
func (r *FeedbackRepository) ApplyPatch(ctx context.Context, id string, patch models.FeedbackPatch) error {
	const query = `UPDATE feedback SET
        rating = COALESCE($2, rating),
        comments = COALESCE($3, comments),
        anonymous = COALESCE($4, anonymous),
        updated_at = $5
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, patch.Rating, patch.Comments, patch.Anonymous, time.Now().UTC()); err != nil {
		return fmt.Errorf("patch feedback: %w", err)
	}
	return nil
}

// ListByEvent returns feedback for an event with author names. Names are
// nulled out in SQL for anonymous rows so they never reach the service layer.
func (r *FeedbackRepository) ListByEvent(ctx context.Context, eventID string) ([]models.FeedbackDetail, error) {
	const query = `SELECT f.id, f.event_id, f.student_id, f.college_id, f.rating, f.comments, f.anonymous, f.created_at, f.updated_at,
        CASE WHEN f.anonymous THEN NULL ELSE u.first_name || ' ' || u.last_name END AS student_name
        FROM feedback f
        JOIN users u ON u.id = f.student_id
        WHERE f.event_id = $1
        ORDER BY f.created_at DESC`
	var feedback []models.FeedbackDetail
	if err := r.db.SelectContext(ctx, &feedback, query, eventID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return feedback, nil
}

// RatingDistribution returns the per-rating counts for an event.
func (r *FeedbackRepository) RatingDistribution(ctx context.Context, eventID string) ([]models.RatingCount, error) {
	const query = `SELECT rating, COUNT(*) AS count FROM feedback WHERE event_id = $1 GROUP BY rating ORDER BY rating`
	var counts []models.RatingCount
	if err := r.db.SelectContext(ctx, &counts, query, eventID); err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	return counts, nil
}
