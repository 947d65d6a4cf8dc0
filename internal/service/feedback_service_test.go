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

type mockFeedbackRepo struct {
	byID    map[string]*models.Feedback
	byEvent map[string]*models.Feedback
	created *models.Feedback
	patched *models.FeedbackPatch
	listed  []models.FeedbackDetail
	ratings []models.RatingCount
}

func (m *mockFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.ID = "fb-new"
	m.created = feedback
	return nil
}

func (m *mockFeedbackRepo) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	if f, ok := m.byID[id]; ok {
		copied := *f
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedbackRepo) FindByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Feedback, error) {
	if f, ok := m.byEvent[eventID+studentID]; ok {
		return f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedbackRepo) ApplyPatch(ctx context.Context, id string, patch models.FeedbackPatch) error {
	m.patched = &patch
	if f, ok := m.byID[id]; ok {
		if patch.Rating != nil {
			f.Rating = *patch.Rating
		}
		if patch.Comments != nil {
			f.Comments = patch.Comments
		}
		if patch.Anonymous != nil {
			f.Anonymous = *patch.Anonymous
		}
	}
	return nil
}

func (m *mockFeedbackRepo) ListByEvent(ctx context.Context, eventID string) ([]models.FeedbackDetail, error) {
	return m.listed, nil
}

func (m *mockFeedbackRepo) RatingDistribution(ctx context.Context, eventID string) ([]models.RatingCount, error) {
	return m.ratings, nil
}

type mockFeedbackAttendance struct {
	present map[string]bool
}

func (m *mockFeedbackAttendance) Exists(ctx context.Context, eventID, studentID string) (bool, error) {
	return m.present[eventID+studentID], nil
}

func newFeedbackService(feedback *mockFeedbackRepo, events *mockEventRepo, attendance *mockFeedbackAttendance) *FeedbackService {
	return NewFeedbackService(feedback, events, attendance, validator.New(), zap.NewNop())
}

func TestFeedbackServiceCreateRequiresAttendance(t *testing.T) {
	svc := newFeedbackService(&mockFeedbackRepo{}, activeEventFixture(), &mockFeedbackAttendance{})

	_, err := svc.Create(context.Background(), studentActor(), models.CreateFeedbackRequest{EventID: "evt-1", Rating: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAttendanceRequired.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceCreateRejectsDuplicate(t *testing.T) {
	feedback := &mockFeedbackRepo{byEvent: map[string]*models.Feedback{
		"evt-1stu-1": {ID: "fb-1"},
	}}
	attendance := &mockFeedbackAttendance{present: map[string]bool{"evt-1stu-1": true}}
	svc := newFeedbackService(feedback, activeEventFixture(), attendance)

	_, err := svc.Create(context.Background(), studentActor(), models.CreateFeedbackRequest{EventID: "evt-1", Rating: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceCreateStoresFeedback(t *testing.T) {
	feedback := &mockFeedbackRepo{}
	attendance := &mockFeedbackAttendance{present: map[string]bool{"evt-1stu-1": true}}
	svc := newFeedbackService(feedback, activeEventFixture(), attendance)

	comments := "great talk"
	created, err := svc.Create(context.Background(), studentActor(), models.CreateFeedbackRequest{
		EventID:   "evt-1",
		Rating:    4,
		Comments:  &comments,
		Anonymous: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, created.Rating)
	assert.True(t, created.Anonymous)
	assert.Equal(t, "stu-1", created.StudentID)
}

func TestFeedbackServiceCreateRejectsOutOfRangeRating(t *testing.T) {
	svc := newFeedbackService(&mockFeedbackRepo{}, activeEventFixture(), &mockFeedbackAttendance{})

	_, err := svc.Create(context.Background(), studentActor(), models.CreateFeedbackRequest{EventID: "evt-1", Rating: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceUpdateRejectsOtherStudents(t *testing.T) {
	feedback := &mockFeedbackRepo{byID: map[string]*models.Feedback{
		"fb-1": {ID: "fb-1", StudentID: "stu-other", Rating: 3},
	}}
	svc := newFeedbackService(feedback, activeEventFixture(), &mockFeedbackAttendance{})

	rating := 5
	_, err := svc.Update(context.Background(), studentActor(), "fb-1", models.FeedbackPatch{Rating: &rating})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceUpdateRejectsEmptyPatch(t *testing.T) {
	svc := newFeedbackService(&mockFeedbackRepo{}, activeEventFixture(), &mockFeedbackAttendance{})

	_, err := svc.Update(context.Background(), studentActor(), "fb-1", models.FeedbackPatch{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackServiceUpdatePatchesOwnRow(t *testing.T) {
	feedback := &mockFeedbackRepo{byID: map[string]*models.Feedback{
		"fb-1": {ID: "fb-1", StudentID: "stu-1", Rating: 3},
	}}
	svc := newFeedbackService(feedback, activeEventFixture(), &mockFeedbackAttendance{})

	rating := 5
	updated, err := svc.Update(context.Background(), studentActor(), "fb-1", models.FeedbackPatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	require.NotNil(t, feedback.patched)
	assert.Nil(t, feedback.patched.Comments)
}

func TestFeedbackServiceListByEventSummarizesRatings(t *testing.T) {
	feedback := &mockFeedbackRepo{
		ratings: []models.RatingCount{
			{Rating: 3, Count: 1},
			{Rating: 5, Count: 3},
		},
	}
	svc := newFeedbackService(feedback, activeEventFixture(), &mockFeedbackAttendance{})

	_, summary, err := svc.ListByEvent(context.Background(), adminActor(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Count)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
	assert.Equal(t, 3, summary.Distribution[5])
}
