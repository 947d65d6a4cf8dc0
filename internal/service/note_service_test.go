package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type mockNoteRepo struct {
	notes    map[string]*models.Note
	upserted *models.Note
	inserted bool
}

func (m *mockNoteRepo) Upsert(ctx context.Context, note *models.Note) (bool, error) {
	note.ID = "note-1"
	m.upserted = note
	return m.inserted, nil
}

func (m *mockNoteRepo) FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Note, error) {
	if n, ok := m.notes[eventID+studentID]; ok {
		return n, nil
	}
	return nil, sql.ErrNoRows
}

type mockNoteRegistrations struct {
	active map[string]*models.Registration
}

func (m *mockNoteRegistrations) FindActive(ctx context.Context, eventID, studentID string) (*models.Registration, error) {
	if r, ok := m.active[eventID+studentID]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func newNoteService(notes *mockNoteRepo, events *mockEventRepo, regs *mockNoteRegistrations) *NoteService {
	return NewNoteService(notes, events, regs, validator.New(), zap.NewNop())
}

func TestNoteServiceUpsertRequiresRegistration(t *testing.T) {
	svc := newNoteService(&mockNoteRepo{}, activeEventFixture(), &mockNoteRegistrations{})

	_, _, err := svc.Upsert(context.Background(), studentActor(), models.NoteRequest{EventID: "evt-1", Content: "remember to ask about internships"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRegistrationRequired.Code, appErrors.FromError(err).Code)
}

func TestNoteServiceUpsertAcceptsWaitlistedRegistration(t *testing.T) {
	notes := &mockNoteRepo{inserted: true}
	regs := &mockNoteRegistrations{active: map[string]*models.Registration{
		"evt-1stu-1": {ID: "reg-1", Status: models.RegistrationStatusWaitlisted},
	}}
	svc := newNoteService(notes, activeEventFixture(), regs)

	note, created, err := svc.Upsert(context.Background(), studentActor(), models.NoteRequest{EventID: "evt-1", Content: "bring resume"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "bring resume", note.Content)
	assert.Equal(t, "stu-1", note.StudentID)
}

func TestNoteServiceUpsertReportsReplacement(t *testing.T) {
	notes := &mockNoteRepo{inserted: false}
	regs := &mockNoteRegistrations{active: map[string]*models.Registration{
		"evt-1stu-1": {ID: "reg-1", Status: models.RegistrationStatusRegistered},
	}}
	svc := newNoteService(notes, activeEventFixture(), regs)

	_, created, err := svc.Upsert(context.Background(), studentActor(), models.NoteRequest{EventID: "evt-1", Content: "updated"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestNoteServiceGetByEventReturnsNilWhenAbsent(t *testing.T) {
	svc := newNoteService(&mockNoteRepo{}, activeEventFixture(), &mockNoteRegistrations{})

	note, err := svc.GetByEvent(context.Background(), studentActor(), "evt-1")
	require.NoError(t, err)
	assert.Nil(t, note)
}

func TestNoteServiceGetByEventReturnsOwnNote(t *testing.T) {
	notes := &mockNoteRepo{notes: map[string]*models.Note{
		"evt-1stu-1": {ID: "note-1", EventID: "evt-1", StudentID: "stu-1", Content: "great speakers"},
	}}
	svc := newNoteService(notes, activeEventFixture(), &mockNoteRegistrations{})

	note, err := svc.GetByEvent(context.Background(), studentActor(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "great speakers", note.Content)
}
