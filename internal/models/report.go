package models

import "time"

// ReportFilter narrows participation reports by time window and category.
type ReportFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Limit    int
}

// EventPopularityRow counts registrations per event.
type EventPopularityRow struct {
	EventID       string    `db:"event_id" json:"event_id"`
	Title         string    `db:"title" json:"title"`
	Category      *string   `db:"category" json:"category,omitempty"`
	EventDate     time.Time `db:"event_date" json:"event_date"`
	Registrations int       `db:"registrations" json:"registrations"`
}

// StudentParticipationRow counts attendances per student.
type StudentParticipationRow struct {
	StudentID     string  `db:"student_id" json:"student_id"`
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	Attended      int     `db:"attended" json:"attended"`
}

// AttendancePercentageRow relates attendance to registrations per event.
// Percentage is 0 when nobody registered; the raw counts stay available.
type AttendancePercentageRow struct {
	EventID    string  `db:"event_id" json:"event_id"`
	Title      string  `db:"title" json:"title"`
	Registered int     `db:"registered" json:"registered"`
	Attended   int     `db:"attended" json:"attended"`
	Percentage float64 `db:"percentage" json:"percentage"`
}

// AverageFeedbackRow is the mean rating per event.
type AverageFeedbackRow struct {
	EventID       string  `db:"event_id" json:"event_id"`
	Title         string  `db:"title" json:"title"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
	FeedbackCount int     `db:"feedback_count" json:"feedback_count"`
}

// ExportFormat selects the rendering backend for report exports.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportJobStatus tracks the async export lifecycle.
type ExportJobStatus string

const (
	ExportJobPending    ExportJobStatus = "pending"
	ExportJobProcessing ExportJobStatus = "processing"
	ExportJobCompleted  ExportJobStatus = "completed"
	ExportJobFailed     ExportJobStatus = "failed"
)

// ExportRequest queues an async report export.
type ExportRequest struct {
	Report string       `json:"report" validate:"required,oneof=event-popularity student-participation attendance-percentage average-feedback"`
	Format ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJob describes one queued report export.
type ExportJob struct {
	ID          string          `json:"id"`
	CollegeID   string          `json:"college_id"`
	RequestedBy string          `json:"requested_by"`
	Report      string          `json:"report"`
	Format      ExportFormat    `json:"format"`
	Status      ExportJobStatus `json:"status"`
	FilePath    string          `json:"-"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
