package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-events-api/internal/models"
)

// AttendanceRepository handles persistence of attendance facts.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Exists reports whether attendance is already recorded for (event, student).
func (r *AttendanceRepository) Exists(ctx context.Context, eventID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM attendance WHERE event_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, eventID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return true, nil
}

// Create inserts the one-time attendance fact.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	if attendance.CheckedInAt.IsZero() {
		attendance.CheckedInAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, event_id, student_id, college_id, method, marked_by, checked_in_at)
        VALUES (:id, :event_id, :student_id, :college_id, :method, :marked_by, :checked_in_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// ListByEvent returns attendance for an event joined with student identity.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.event_id, a.student_id, a.college_id, a.method, a.marked_by, a.checked_in_at,
        u.first_name || ' ' || u.last_name AS student_name, u.student_number, u.email AS student_email
        FROM attendance a
        JOIN users u ON u.id = a.student_id
        WHERE a.event_id = $1
        ORDER BY a.checked_in_at ASC`
	var attendance []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &attendance, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return attendance, nil
}
