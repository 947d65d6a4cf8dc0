package models

import "time"

// AttendanceMethod records which admission path produced the attendance fact.
type AttendanceMethod string

const (
	AttendanceMethodManual AttendanceMethod = "manual"
	AttendanceMethodQR     AttendanceMethod = "qr"
)

// Attendance is the one-time fact that a student was present at an event.
// At most one row exists per (event, student); rows are never mutated.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	EventID     string           `db:"event_id" json:"event_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	CollegeID   string           `db:"college_id" json:"college_id"`
	Method      AttendanceMethod `db:"method" json:"method"`
	MarkedBy    *string          `db:"marked_by" json:"marked_by,omitempty"`
	CheckedInAt time.Time        `db:"checked_in_at" json:"checked_in_at"`
}

// AttendanceDetail joins student identity for admin listings.
type AttendanceDetail struct {
	Attendance
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	StudentEmail  string  `db:"student_email" json:"student_email"`
}

// MarkAttendanceRequest is the admin payload for manual check-in.
type MarkAttendanceRequest struct {
	EventID   string `json:"event_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// QRCheckInRequest carries the raw QR payload a student scanned.
type QRCheckInRequest struct {
	QRData string `json:"qr_data" validate:"required"`
}
