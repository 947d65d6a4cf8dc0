package models

import "time"

// Feedback is the one-per-(event, student) rating row. Only the owning
// student may mutate it; admins read it in aggregate.
type Feedback struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CollegeID string    `db:"college_id" json:"college_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comments  *string   `db:"comments" json:"comments,omitempty"`
	Anonymous bool      `db:"anonymous" json:"anonymous"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateFeedbackRequest is the student payload for submitting feedback.
type CreateFeedbackRequest struct {
	EventID   string  `json:"event_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Comments  *string `json:"comments,omitempty" validate:"omitempty,max=2000"`
	Anonymous bool    `json:"anonymous"`
}

// FeedbackPatch applies only the fields the caller set. Explicit optional
// fields replace the dynamic statement assembly the legacy API used.
type FeedbackPatch struct {
	Rating    *int    `json:"rating,omitempty"`
	Comments  *string `json:"comments,omitempty"`
	Anonymous *bool   `json:"anonymous,omitempty"`
}

// Empty reports whether the patch sets nothing.
func (p FeedbackPatch) Empty() bool {
	return p.Rating == nil && p.Comments == nil && p.Anonymous == nil
}

// FeedbackDetail attaches the author name for admin listings. The name is
// blanked when the student asked for anonymity.
type FeedbackDetail struct {
	Feedback
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}

// RatingCount is one bucket of the rating distribution.
type RatingCount struct {
	Rating int `db:"rating" json:"rating"`
	Count  int `db:"count" json:"count"`
}

// FeedbackSummary aggregates ratings for one event.
type FeedbackSummary struct {
	Average      float64     `json:"average"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
}
