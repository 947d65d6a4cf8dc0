package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/models"
)

func TestReportRepositoryEventPopularity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"event_id", "title", "category", "event_date", "registrations"}).
		AddRow("evt-1", "Tech Fest", "tech", time.Now(), 42).
		AddRow("evt-2", "Open Mic", nil, time.Now(), 7)
	mock.ExpectQuery("SELECT e.id AS event_id, e.title").
		WithArgs("col-1").
		WillReturnRows(rows)

	report, err := repo.EventPopularity(context.Background(), "col-1", 20)
	require.NoError(t, err)
	require.Len(t, report, 2)
	require.Equal(t, 42, report[0].Registrations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryStudentParticipationFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "student_number", "attended"}).
		AddRow("stu-1", "Ada Lovelace", "S-100", 5)
	mock.ExpectQuery("SELECT u.id AS student_id").
		WithArgs("col-1", from, "tech").
		WillReturnRows(rows)

	report, err := repo.StudentParticipation(context.Background(), "col-1", models.ReportFilter{From: &from, Category: "tech"})
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, 5, report[0].Attended)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryAttendancePercentageGuardsZeroRegistered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"event_id", "title", "registered", "attended", "percentage"}).
		AddRow("evt-1", "Tech Fest", 2, 1, 50.0).
		AddRow("evt-2", "Ghost Town", 0, 0, 0.0)
	mock.ExpectQuery("SELECT e.id AS event_id, e.title").
		WithArgs("col-1").
		WillReturnRows(rows)

	report, err := repo.AttendancePercentage(context.Background(), "col-1")
	require.NoError(t, err)
	require.Len(t, report, 2)
	require.Equal(t, 0.0, report[1].Percentage)
	require.NoError(t, mock.ExpectationsWereMet())
}
