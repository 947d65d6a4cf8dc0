package models

import "time"

// RegistrationStatus is the admission outcome for a (event, student) pair.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusWaitlisted RegistrationStatus = "waitlisted"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
)

// Registration is the ternary relation (event, student, college). At most one
// non-cancelled row exists per (event, student). WaitlistPosition is set only
// while status is waitlisted and positions for one event are dense 1..N in
// arrival order.
type Registration struct {
	ID               string             `db:"id" json:"id"`
	EventID          string             `db:"event_id" json:"event_id"`
	StudentID        string             `db:"student_id" json:"student_id"`
	CollegeID        string             `db:"college_id" json:"college_id"`
	Status           RegistrationStatus `db:"status" json:"status"`
	WaitlistPosition *int               `db:"waitlist_position" json:"waitlist_position,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	CancelledAt      *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// RegisterForEventRequest is the student payload for event registration.
type RegisterForEventRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

// RegistrationSummary is the compact shape embedded in event reads.
type RegistrationSummary struct {
	ID               string             `json:"id"`
	Status           RegistrationStatus `json:"status"`
	WaitlistPosition *int               `json:"waitlist_position,omitempty"`
}

// RegistrationDetail joins event context for the "my registrations" listing.
type RegistrationDetail struct {
	Registration
	EventTitle string    `db:"event_title" json:"event_title"`
	EventDate  time.Time `db:"event_date" json:"event_date"`
	Venue      string    `db:"venue" json:"venue"`
}

// CancelOutcome describes the side effects of cancelling a registration.
type CancelOutcome struct {
	Registration *Registration `json:"registration"`
	// PromotedRegistrationID is set when freeing a registered slot moved the
	// waitlist head to registered.
	PromotedRegistrationID *string `json:"promoted_registration_id,omitempty"`
}
