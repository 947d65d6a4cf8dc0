package models

import "time"

// EventStatus captures the event lifecycle.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether the status is a known lifecycle value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusActive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces the lifecycle: draft -> active -> completed is
// monotonic; cancelled is terminal and reachable from any non-terminal state.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == EventStatusCompleted || s == EventStatusCancelled {
		return false
	}
	switch next {
	case EventStatusCancelled:
		return true
	case EventStatusActive:
		return s == EventStatusDraft
	case EventStatusCompleted:
		return s == EventStatusActive
	}
	return false
}

// Event belongs to exactly one college and is owned by the admin who created
// it. QRSecret is generated at creation time and never serialised to clients
// outside the dedicated QR endpoint.
type Event struct {
	ID          string      `db:"id" json:"id"`
	CollegeID   string      `db:"college_id" json:"college_id"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	Title       string      `db:"title" json:"title"`
	Description *string     `db:"description" json:"description,omitempty"`
	Category    *string     `db:"category" json:"category,omitempty"`
	Venue       string      `db:"venue" json:"venue"`
	EventDate   time.Time   `db:"event_date" json:"event_date"`
	Capacity    int         `db:"capacity" json:"capacity"`
	Status      EventStatus `db:"status" json:"status"`
	QRSecret    string      `db:"qr_secret" json:"-"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// EventFilter captures listing criteria for events.
type EventFilter struct {
	Status   string
	Category string
	Page     int
	PageSize int
}

// EventDetail is the single-event read model with occupancy counts and, for
// student callers, their own registration.
type EventDetail struct {
	Event
	RegisteredCount  int                  `json:"registered_count"`
	WaitlistedCount  int                  `json:"waitlisted_count"`
	UserRegistration *RegistrationSummary `json:"user_registration,omitempty"`
}

// CreateEventRequest is the admin payload for creating an event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,max=50"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	EventDate   time.Time `json:"event_date" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required,gt=0"`
}

// UpdateEventStatusRequest moves an event through its lifecycle.
type UpdateEventStatusRequest struct {
	Status EventStatus `json:"status" validate:"required"`
}

// QRPayload is the JSON students scan to self check in. All three fields must
// match the stored event record.
type QRPayload struct {
	EventID   string `json:"event_id"`
	Secret    string `json:"secret"`
	CollegeID string `json:"college_id"`
}
