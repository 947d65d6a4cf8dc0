package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/jobs"
	"github.com/noah-isme/campus-events-api/pkg/storage"
)

type mockReportSource struct{}

func (m *mockReportSource) EventPopularity(ctx context.Context, actor models.AuthUser, limit int) ([]models.EventPopularityRow, error) {
	return []models.EventPopularityRow{
		{EventID: "evt-1", Title: "Tech Fest", EventDate: time.Now(), Registrations: 42},
	}, nil
}

func (m *mockReportSource) StudentParticipation(ctx context.Context, actor models.AuthUser, filter models.ReportFilter) ([]models.StudentParticipationRow, error) {
	return []models.StudentParticipationRow{
		{StudentID: "stu-1", StudentName: "Ada Lovelace", Attended: 5},
	}, nil
}

func (m *mockReportSource) AttendancePercentage(ctx context.Context, actor models.AuthUser) ([]models.AttendancePercentageRow, error) {
	return []models.AttendancePercentageRow{
		{EventID: "evt-1", Title: "Tech Fest", Registered: 50, Attended: 25, Percentage: 50},
	}, nil
}

func (m *mockReportSource) AverageFeedback(ctx context.Context, actor models.AuthUser) ([]models.AverageFeedbackRow, error) {
	return []models.AverageFeedbackRow{
		{EventID: "evt-1", Title: "Tech Fest", AverageRating: 4.5, FeedbackCount: 10},
	}, nil
}

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(&mockReportSource{}, store, signer, ExportConfig{APIPrefix: "/api/v1"}, validator.New(), zap.NewNop())
}

func TestExportServiceProcessRendersCSV(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:          "job-1",
		CollegeID:   "col-1",
		RequestedBy: "adm-1",
		Report:      ReportEventPopularity,
		Format:      models.ExportFormatCSV,
		Status:      models.ExportJobPending,
		CreatedAt:   time.Now().UTC(),
	}
	svc.store[job.ID] = job

	err := svc.Process(context.Background(), jobs.Job{ID: job.ID, Type: exportJobType})
	require.NoError(t, err)

	view, url, err := svc.Status(adminActor(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, view.Status)
	assert.Contains(t, url, "/api/v1/reports/exports/download/")

	file, err := svc.Open(view.FilePath)
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceProcessRendersPDF(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:          "job-2",
		CollegeID:   "col-1",
		RequestedBy: "adm-1",
		Report:      ReportAverageFeedback,
		Format:      models.ExportFormatPDF,
		Status:      models.ExportJobPending,
		CreatedAt:   time.Now().UTC(),
	}
	svc.store[job.ID] = job

	err := svc.Process(context.Background(), jobs.Job{ID: job.ID, Type: exportJobType})
	require.NoError(t, err)

	view, _, err := svc.Status(adminActor(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, view.Status)
	assert.True(t, strings.HasSuffix(view.FilePath, ".pdf"))
}

func TestExportServiceProcessMarksUnknownReportFailed(t *testing.T) {
	svc := newExportFixture(t)

	job := &models.ExportJob{
		ID:        "job-3",
		CollegeID: "col-1",
		Report:    "unknown-report",
		Format:    models.ExportFormatCSV,
		Status:    models.ExportJobPending,
	}
	svc.store[job.ID] = job

	err := svc.Process(context.Background(), jobs.Job{ID: job.ID})
	require.Error(t, err)

	view, _, err := svc.Status(adminActor(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobFailed, view.Status)
	assert.NotEmpty(t, view.Error)
}

func TestExportServiceStatusScopesTenant(t *testing.T) {
	svc := newExportFixture(t)
	svc.store["job-4"] = &models.ExportJob{ID: "job-4", CollegeID: "col-other"}

	_, _, err := svc.Status(adminActor(), "job-4")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRequestRequiresRunningQueue(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Request(context.Background(), adminActor(), models.ExportRequest{
		Report: ReportEventPopularity,
		Format: models.ExportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRequestAndProcessThroughQueue(t *testing.T) {
	svc := newExportFixture(t)

	queue := jobs.NewQueue("report-exports", svc.Process, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.Bind(queue)

	job, err := svc.Request(context.Background(), adminActor(), models.ExportRequest{
		Report: ReportAttendancePercentage,
		Format: models.ExportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobPending, job.Status)

	require.Eventually(t, func() bool {
		view, _, err := svc.Status(adminActor(), job.ID)
		return err == nil && view.Status == models.ExportJobCompleted
	}, 5*time.Second, 50*time.Millisecond)
}

func TestExportServiceCleanupRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(&mockReportSource{}, store, signer, ExportConfig{ResultTTL: time.Nanosecond}, validator.New(), zap.NewNop())

	_, err = store.Save("stale.csv", []byte("a,b\n"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	deleted, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Contains(t, deleted, "stale.csv")
	_, err = os.Stat(store.Path("stale.csv"))
	assert.True(t, os.IsNotExist(err))
}
