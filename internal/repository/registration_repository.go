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

// Sentinel errors surfaced by the admission transaction. The service layer
// maps them onto the HTTP error taxonomy.
var (
	ErrEventNotFound         = errors.New("event not found")
	ErrEventNotOpen          = errors.New("event not open for registration")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrAlreadyCancelled      = errors.New("registration already cancelled")
)

// RegistrationRepository handles persistence of registrations and owns the
// capacity/waitlist admission transaction.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

type admissionEvent struct {
	Capacity int                `db:"capacity"`
	Status   models.EventStatus `db:"status"`
}

// Admit decides between immediate registration and waitlisting for one
// student. The whole count-then-insert sequence runs inside a single
// transaction holding a row lock on the event, so concurrent admissions for
// the same event serialise: capacity cannot overshoot and waitlist positions
// stay dense and unique.
func (r *RegistrationRepository) Admit(ctx context.Context, eventID, studentID, collegeID string) (*models.Registration, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var event admissionEvent
	const lockQuery = `SELECT capacity, status FROM events WHERE id = $1 AND college_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &event, lockQuery, eventID, collegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	if event.Status != models.EventStatusActive {
		return nil, ErrEventNotOpen
	}

	var exists int
	const dupQuery = `SELECT 1 FROM registrations WHERE event_id = $1 AND student_id = $2 AND status <> $3 LIMIT 1`
	err = tx.GetContext(ctx, &exists, dupQuery, eventID, studentID, models.RegistrationStatusCancelled)
	if err == nil {
		return nil, ErrDuplicateRegistration
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check duplicate registration: %w", err)
	}

	var registered int
	const countQuery = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`
	if err := tx.GetContext(ctx, &registered, countQuery, eventID, models.RegistrationStatusRegistered); err != nil {
		return nil, fmt.Errorf("count registered: %w", err)
	}

	registration := &models.Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		StudentID: studentID,
		CollegeID: collegeID,
		CreatedAt: time.Now().UTC(),
	}

	if registered < event.Capacity {
		registration.Status = models.RegistrationStatusRegistered
	} else {
		var next int
		const positionQuery = `SELECT COALESCE(MAX(waitlist_position), 0) + 1 FROM registrations WHERE event_id = $1 AND status = $2`
		if err := tx.GetContext(ctx, &next, positionQuery, eventID, models.RegistrationStatusWaitlisted); err != nil {
			return nil, fmt.Errorf("next waitlist position: %w", err)
		}
		registration.Status = models.RegistrationStatusWaitlisted
		registration.WaitlistPosition = &next
	}

	const insertQuery = `INSERT INTO registrations (id, event_id, student_id, college_id, status, waitlist_position, created_at)
        VALUES (:id, :event_id, :student_id, :college_id, :status, :waitlist_position, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, registration); err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit admission: %w", err)
	}
	return registration, nil
}

// Cancel marks the student's registration cancelled. Freeing a registered
// slot promotes the waitlist head inside the same transaction; in both cases
// trailing waitlist positions are renumbered so the sequence stays gapless.
func (r *RegistrationRepository) Cancel(ctx context.Context, registrationID, studentID string) (*models.CancelOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var reg models.Registration
	const findQuery = `SELECT id, event_id, student_id, college_id, status, waitlist_position, created_at, cancelled_at
        FROM registrations WHERE id = $1 AND student_id = $2`
	if err := tx.GetContext(ctx, &reg, findQuery, registrationID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	// Lock the event row so this serialises with concurrent admissions.
	var lockedID string
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, reg.EventID); err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}

	now := time.Now().UTC()
	const cancelQuery = `UPDATE registrations SET status = $2, waitlist_position = NULL, cancelled_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, cancelQuery, reg.ID, models.RegistrationStatusCancelled, now); err != nil {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}

	outcome := &models.CancelOutcome{}

	switch reg.Status {
	case models.RegistrationStatusRegistered:
		var headID string
		const headQuery = `SELECT id FROM registrations WHERE event_id = $1 AND status = $2 ORDER BY waitlist_position ASC LIMIT 1`
		err := tx.GetContext(ctx, &headID, headQuery, reg.EventID, models.RegistrationStatusWaitlisted)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find waitlist head: %w", err)
		}
		if err == nil {
			const promoteQuery = `UPDATE registrations SET status = $2, waitlist_position = NULL WHERE id = $1`
			if _, err := tx.ExecContext(ctx, promoteQuery, headID, models.RegistrationStatusRegistered); err != nil {
				return nil, fmt.Errorf("promote waitlist head: %w", err)
			}
			const shiftQuery = `UPDATE registrations SET waitlist_position = waitlist_position - 1 WHERE event_id = $1 AND status = $2`
			if _, err := tx.ExecContext(ctx, shiftQuery, reg.EventID, models.RegistrationStatusWaitlisted); err != nil {
				return nil, fmt.Errorf("renumber waitlist: %w", err)
			}
			outcome.PromotedRegistrationID = &headID
		}
	case models.RegistrationStatusWaitlisted:
		if reg.WaitlistPosition != nil {
			const shiftQuery = `UPDATE registrations SET waitlist_position = waitlist_position - 1
                WHERE event_id = $1 AND status = $2 AND waitlist_position > $3`
			if _, err := tx.ExecContext(ctx, shiftQuery, reg.EventID, models.RegistrationStatusWaitlisted, *reg.WaitlistPosition); err != nil {
				return nil, fmt.Errorf("renumber waitlist: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}

	reg.Status = models.RegistrationStatusCancelled
	reg.WaitlistPosition = nil
	reg.CancelledAt = &now
	outcome.Registration = &reg
	return outcome, nil
}

// FindActive returns the non-cancelled registration for (event, student).
func (r *RegistrationRepository) FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error) {
	const query = `SELECT id, event_id, student_id, college_id, status, waitlist_position, created_at, cancelled_at
        FROM registrations WHERE event_id = $1 AND student_id = $2 AND status <> $3`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, eventID, studentID, models.RegistrationStatusCancelled); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListByStudent returns the student's registrations joined with event info.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.RegistrationDetail, error) {
	const query = `SELECT r.id, r.event_id, r.student_id, r.college_id, r.status, r.waitlist_position, r.created_at, r.cancelled_at,
        e.title AS event_title, e.event_date, e.venue
        FROM registrations r
        JOIN events e ON e.id = r.event_id
        WHERE r.student_id = $1
        ORDER BY r.created_at DESC`
	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, studentID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// CountByEventAndStatus returns how many registrations an event has in the
// given status.
func (r *RegistrationRepository) CountByEventAndStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID, status); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
