package models

import "time"

// Note is a student's private annotation for an event they registered for.
// One note per (event, student); writes are upserts.
type Note struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CollegeID string    `db:"college_id" json:"college_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NoteRequest is the upsert payload for a student's event note.
type NoteRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Content string `json:"content" validate:"required,max=10000"`
}
