package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-events-api/internal/models"
)

// NoteRepository handles persistence of student event notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Upsert creates the note or replaces its content in place. Returns true when
// a new row was created.
func (r *NoteRepository) Upsert(ctx context.Context, note *models.Note) (bool, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now
	const query = `INSERT INTO notes (id, event_id, student_id, college_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (event_id, student_id) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
        RETURNING (created_at = updated_at) AS inserted`
	var inserted bool
	err := r.db.GetContext(ctx, &inserted, query,
		note.ID, note.EventID, note.StudentID, note.CollegeID, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("upsert note: %w", err)
	}
	return inserted, nil
}

// FindByEventAndStudent returns the student's note for an event.
func (r *NoteRepository) FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Note, error) {
	const query = `SELECT id, event_id, student_id, college_id, content, created_at, updated_at
        FROM notes WHERE event_id = $1 AND student_id = $2`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, eventID, studentID); err != nil {
		return nil, err
	}
	return &note, nil
}
