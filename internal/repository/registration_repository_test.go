package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

const admissionLockQuery = `SELECT capacity, status FROM events WHERE id = $1 AND college_id = $2 FOR UPDATE`

func TestRegistrationRepositoryAdmitUnderCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(admissionLockQuery)).
		WithArgs("evt-1", "col-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "status"}).AddRow(2, "active"))
	mock.ExpectQuery("SELECT 1 FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`)).
		WithArgs("evt-1", models.RegistrationStatusRegistered).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO registrations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reg, err := repo.Admit(context.Background(), "evt-1", "stu-1", "col-1")
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusRegistered, reg.Status)
	require.Nil(t, reg.WaitlistPosition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAdmitWaitlistsWhenFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(admissionLockQuery)).
		WithArgs("evt-1", "col-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "status"}).AddRow(2, "active"))
	mock.ExpectQuery("SELECT 1 FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = $2`)).
		WithArgs("evt-1", models.RegistrationStatusRegistered).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(waitlist_position), 0) + 1 FROM registrations WHERE event_id = $1 AND status = $2`)).
		WithArgs("evt-1", models.RegistrationStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec("INSERT INTO registrations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reg, err := repo.Admit(context.Background(), "evt-1", "stu-4", "col-1")
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusWaitlisted, reg.Status)
	require.NotNil(t, reg.WaitlistPosition)
	require.Equal(t, 3, *reg.WaitlistPosition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAdmitRejectsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(admissionLockQuery)).
		WithArgs("evt-1", "col-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "status"}).AddRow(2, "active"))
	mock.ExpectQuery("SELECT 1 FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "evt-1", "stu-1", "col-1")
	require.ErrorIs(t, err, ErrDuplicateRegistration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAdmitRejectsInactiveEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(admissionLockQuery)).
		WithArgs("evt-1", "col-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "status"}).AddRow(2, "draft"))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "evt-1", "stu-1", "col-1")
	require.ErrorIs(t, err, ErrEventNotOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAdmitRejectsMissingEvent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(admissionLockQuery)).
		WithArgs("evt-404", "col-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "status"}))
	mock.ExpectRollback()

	_, err := repo.Admit(context.Background(), "evt-404", "stu-1", "col-1")
	require.ErrorIs(t, err, ErrEventNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCancelPromotesWaitlistHead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	regRows := sqlmock.NewRows([]string{"id", "event_id", "student_id", "college_id", "status", "waitlist_position", "created_at", "cancelled_at"}).
		AddRow("reg-1", "evt-1", "stu-1", "col-1", "registered", nil, time.Now(), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id, student_id, college_id, status, waitlist_position").
		WithArgs("reg-1", "stu-1").
		WillReturnRows(regRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM events WHERE id = $1 FOR UPDATE`)).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt-1"))
	mock.ExpectExec("UPDATE registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM registrations WHERE event_id").
		WithArgs("evt-1", models.RegistrationStatusWaitlisted).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("reg-3"))
	mock.ExpectExec("UPDATE registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE registrations SET waitlist_position = waitlist_position - 1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	outcome, err := repo.Cancel(context.Background(), "reg-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, models.RegistrationStatusCancelled, outcome.Registration.Status)
	require.NotNil(t, outcome.PromotedRegistrationID)
	require.Equal(t, "reg-3", *outcome.PromotedRegistrationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCancelRenumbersBehindWaitlisted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	regRows := sqlmock.NewRows([]string{"id", "event_id", "student_id", "college_id", "status", "waitlist_position", "created_at", "cancelled_at"}).
		AddRow("reg-2", "evt-1", "stu-2", "col-1", "waitlisted", 2, time.Now(), nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id, student_id, college_id, status, waitlist_position").
		WithArgs("reg-2", "stu-2").
		WillReturnRows(regRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM events WHERE id = $1 FOR UPDATE`)).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt-1"))
	mock.ExpectExec("UPDATE registrations SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE registrations SET waitlist_position = waitlist_position - 1").
		WithArgs("evt-1", models.RegistrationStatusWaitlisted, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Cancel(context.Background(), "reg-2", "stu-2")
	require.NoError(t, err)
	require.Nil(t, outcome.PromotedRegistrationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCancelRejectsCancelled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	regRows := sqlmock.NewRows([]string{"id", "event_id", "student_id", "college_id", "status", "waitlist_position", "created_at", "cancelled_at"}).
		AddRow("reg-1", "evt-1", "stu-1", "col-1", "cancelled", nil, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, event_id, student_id, college_id, status, waitlist_position").
		WithArgs("reg-1", "stu-1").
		WillReturnRows(regRows)
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), "reg-1", "stu-1")
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "event_id", "student_id", "college_id", "status", "waitlist_position", "created_at", "cancelled_at", "event_title", "event_date", "venue"}).
		AddRow("reg-1", "evt-1", "stu-1", "col-1", "registered", nil, time.Now(), nil, "Tech Fest", time.Now(), "Main Hall")
	mock.ExpectQuery("SELECT r.id, r.event_id").
		WithArgs("stu-1").
		WillReturnRows(rows)

	registrations, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, registrations, 1)
	require.Equal(t, "Tech Fest", registrations[0].EventTitle)
	require.NoError(t, mock.ExpectationsWereMet())
}
