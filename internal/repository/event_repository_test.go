package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/models"
)

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "college_id", "created_by", "title", "description", "category", "venue", "event_date", "capacity", "status", "qr_secret", "created_at", "updated_at"})
}

func TestEventRepositoryFindByIDScopesTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("SELECT .+ FROM events WHERE id = .+ AND college_id = .+").
		WithArgs("evt-1", "col-1").
		WillReturnRows(eventRows().AddRow("evt-1", "col-1", "adm-1", "Tech Fest", nil, "tech", "Main Hall", time.Now(), 100, "active", "secret", time.Now(), time.Now()))

	event, err := repo.FindByID(context.Background(), "evt-1", "col-1")
	require.NoError(t, err)
	require.Equal(t, "Tech Fest", event.Title)
	require.Equal(t, "secret", event.QRSecret)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("SELECT .+ FROM events WHERE college_id = .+ AND status = .+ ORDER BY event_date").
		WithArgs("col-1", "active").
		WillReturnRows(eventRows().AddRow("evt-1", "col-1", "adm-1", "Tech Fest", nil, nil, "Main Hall", time.Now(), 100, "active", "secret", time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM events WHERE college_id").
		WithArgs("col-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), "col-1", models.EventFilter{Status: "active", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateDefaultsToDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.Event{
		CollegeID: "col-1",
		CreatedBy: "adm-1",
		Title:     "Tech Fest",
		Venue:     "Main Hall",
		EventDate: time.Now().Add(48 * time.Hour),
		Capacity:  100,
		QRSecret:  "secret",
	}
	require.NoError(t, repo.Create(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.Equal(t, models.EventStatusDraft, event.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
