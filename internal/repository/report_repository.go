package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-events-api/internal/models"
)

// ReportRepository runs the read-side aggregation queries. Every query is
// scoped to one college; no caller-supplied tenant ever reaches this layer.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// EventPopularity counts non-cancelled registrations per event, most popular
// first.
func (r *ReportRepository) EventPopularity(ctx context.Context, collegeID string, limit int) ([]models.EventPopularityRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT e.id AS event_id, e.title, e.category, e.event_date,
        COUNT(r.id) FILTER (WHERE r.status <> '%s') AS registrations
        FROM events e
        LEFT JOIN registrations r ON r.event_id = e.id
        WHERE e.college_id = $1
        GROUP BY e.id, e.title, e.category, e.event_date
        ORDER BY registrations DESC, e.event_date ASC
        LIMIT %d`, models.RegistrationStatusCancelled, limit)
	var rows []models.EventPopularityRow
	if err := r.db.SelectContext(ctx, &rows, query, collegeID); err != nil {
		return nil, fmt.Errorf("event popularity: %w", err)
	}
	return rows, nil
}

// StudentParticipation counts attendance per student, optionally filtered by
// event date window and category.
func (r *ReportRepository) StudentParticipation(ctx context.Context, collegeID string, filter models.ReportFilter) ([]models.StudentParticipationRow, error) {
	conditions := "a.college_id = $1"
	args := []interface{}{collegeID}

	if filter.From != nil {
		conditions += fmt.Sprintf(" AND e.event_date >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions += fmt.Sprintf(" AND e.event_date <= $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	if filter.Category != "" {
		conditions += fmt.Sprintf(" AND e.category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT u.id AS student_id, u.first_name || ' ' || u.last_name AS student_name, u.student_number,
        COUNT(a.id) AS attended
        FROM attendance a
        JOIN users u ON u.id = a.student_id
        JOIN events e ON e.id = a.event_id
        WHERE %s
        GROUP BY u.id, u.first_name, u.last_name, u.student_number
        ORDER BY attended DESC
        LIMIT %d`, conditions, limit)

	var rows []models.StudentParticipationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student participation: %w", err)
	}
	return rows, nil
}

// Leaderboard returns the top-N students by attendance count.
func (r *ReportRepository) Leaderboard(ctx context.Context, collegeID string, limit int) ([]models.StudentParticipationRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT u.id AS student_id, u.first_name || ' ' || u.last_name AS student_name, u.student_number,
        COUNT(a.id) AS attended
        FROM attendance a
        JOIN users u ON u.id = a.student_id
        WHERE a.college_id = $1
        GROUP BY u.id, u.first_name, u.last_name, u.student_number
        ORDER BY attended DESC
        LIMIT %d`, limit)
	var rows []models.StudentParticipationRow
	if err := r.db.SelectContext(ctx, &rows, query, collegeID); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return rows, nil
}

// AttendancePercentage relates attendance to registered count per event. The
// division is guarded in SQL: zero registered reports zero percent.
func (r *ReportRepository) AttendancePercentage(ctx context.Context, collegeID string) ([]models.AttendancePercentageRow, error) {
	query := fmt.Sprintf(`SELECT e.id AS event_id, e.title,
        COUNT(DISTINCT r.id) FILTER (WHERE r.status = '%s') AS registered,
        COUNT(DISTINCT a.id) AS attended,
        CASE WHEN COUNT(DISTINCT r.id) FILTER (WHERE r.status = '%s') = 0 THEN 0
             ELSE ROUND(COUNT(DISTINCT a.id)::numeric * 100 / COUNT(DISTINCT r.id) FILTER (WHERE r.status = '%s'), 2)
        END AS percentage
        FROM events e
        LEFT JOIN registrations r ON r.event_id = e.id
        LEFT JOIN attendance a ON a.event_id = e.id
        WHERE e.college_id = $1
        GROUP BY e.id, e.title
        ORDER BY e.event_date ASC`,
		models.RegistrationStatusRegistered, models.RegistrationStatusRegistered, models.RegistrationStatusRegistered)
	var rows []models.AttendancePercentageRow
	if err := r.db.SelectContext(ctx, &rows, query, collegeID); err != nil {
		return nil, fmt.Errorf("attendance percentage: %w", err)
	}
	return rows, nil
}

// AverageFeedback is the mean rating per event.
func (r *ReportRepository) AverageFeedback(ctx context.Context, collegeID string) ([]models.AverageFeedbackRow, error) {
	const query = `SELECT e.id AS event_id, e.title,
        ROUND(AVG(f.rating)::numeric, 2) AS average_rating,
        COUNT(f.id) AS feedback_count
        FROM events e
        JOIN feedback f ON f.event_id = e.id
        WHERE e.college_id = $1
        GROUP BY e.id, e.title
        ORDER BY average_rating DESC`
	var rows []models.AverageFeedbackRow
	if err := r.db.SelectContext(ctx, &rows, query, collegeID); err != nil {
		return nil, fmt.Errorf("average feedback: %w", err)
	}
	return rows, nil
}
