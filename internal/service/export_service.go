package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
	"github.com/noah-isme/campus-events-api/pkg/export"
	"github.com/noah-isme/campus-events-api/pkg/jobs"
	"github.com/noah-isme/campus-events-api/pkg/storage"
)

const exportJobType = "report-export"

// Report names accepted by the export endpoint.
const (
	ReportEventPopularity      = "event-popularity"
	ReportStudentParticipation = "student-participation"
	ReportAttendancePercentage = "attendance-percentage"
	ReportAverageFeedback      = "average-feedback"
)

type exportReportSource interface {
	EventPopularity(ctx context.Context, actor models.AuthUser, limit int) ([]models.EventPopularityRow, error)
	StudentParticipation(ctx context.Context, actor models.AuthUser, filter models.ReportFilter) ([]models.StudentParticipationRow, error)
	AttendancePercentage(ctx context.Context, actor models.AuthUser) ([]models.AttendancePercentageRow, error)
	AverageFeedback(ctx context.Context, actor models.AuthUser) ([]models.AverageFeedbackRow, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService queues report exports, renders them in the background and
// hands out signed download URLs. Job metadata lives in memory only; the
// rendered files are the durable artifact.
type ExportService struct {
	reports   exportReportSource
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig

	mu    sync.RWMutex
	store map[string]*models.ExportJob
	queue *jobs.Queue
}

// NewExportService constructs an ExportService.
func NewExportService(reports exportReportSource, fileStore fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		reports:   reports,
		storage:   fileStore,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		store:     make(map[string]*models.ExportJob),
	}
}

// Bind attaches the worker queue that executes Process.
func (s *ExportService) Bind(queue *jobs.Queue) {
	s.queue = queue
}

// Request queues a new export job and returns its pending descriptor.
func (s *ExportService) Request(ctx context.Context, actor models.AuthUser, req models.ExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		CollegeID:   actor.CollegeID,
		RequestedBy: actor.ID,
		Report:      req.Report,
		Format:      req.Format,
		Status:      models.ExportJobPending,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.store[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: exportJobType}); err != nil {
		s.mu.Lock()
		delete(s.store, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("export queued",
		zap.String("job_id", job.ID),
		zap.String("report", job.Report),
		zap.String("format", string(job.Format)))

	return snapshot(job), nil
}

// Status returns the job state plus a signed download URL when the file is
// ready. Jobs are visible only inside the requesting college.
func (s *ExportService) Status(actor models.AuthUser, jobID string) (*models.ExportJob, string, error) {
	s.mu.RLock()
	job, ok := s.store[jobID]
	s.mu.RUnlock()
	if !ok || job.CollegeID != actor.CollegeID {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	view := snapshot(job)
	if view.Status != models.ExportJobCompleted {
		return view, "", nil
	}

	token, _, err := s.signer.Generate(view.ID, view.FilePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return view, fmt.Sprintf("%s/reports/exports/download/%s", prefix, token), nil
}

// Process is the queue handler. It renders the dataset and stores the file.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	jobID := job.ID

	s.mu.Lock()
	stored, found := s.store[jobID]
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("export job %s not found", jobID)
	}
	stored.Status = models.ExportJobProcessing
	actor := models.AuthUser{ID: stored.RequestedBy, Role: models.RoleAdmin, CollegeID: stored.CollegeID}
	report := stored.Report
	format := stored.Format
	s.mu.Unlock()

	dataset, title, err := s.buildDataset(ctx, actor, report)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	filename := fmt.Sprintf("%s_%s.%s", report, time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if stored, ok := s.store[jobID]; ok {
		stored.Status = models.ExportJobCompleted
		stored.FilePath = relPath
		stored.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Info("export completed", zap.String("job_id", jobID), zap.String("file", relPath))
	return nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string) (jobID, relPath string, err error) {
	jobID, relPath, _, err = s.signer.Parse(token, false)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	return jobID, relPath, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes export files older than the configured TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func (s *ExportService) fail(jobID string, cause error) {
	s.mu.Lock()
	if stored, ok := s.store[jobID]; ok {
		stored.Status = models.ExportJobFailed
		stored.Error = cause.Error()
	}
	s.mu.Unlock()
	s.logger.Error("export failed", zap.String("job_id", jobID), zap.Error(cause))
}

func snapshot(job *models.ExportJob) *models.ExportJob {
	copied := *job
	return &copied
}

func (s *ExportService) buildDataset(ctx context.Context, actor models.AuthUser, report string) (export.Dataset, string, error) {
	switch report {
	case ReportEventPopularity:
		rows, err := s.reports.EventPopularity(ctx, actor, 100)
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataRows := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			dataRows = append(dataRows, map[string]string{
				"Event":         row.Title,
				"Category":      derefString(row.Category),
				"Date":          row.EventDate.UTC().Format("2006-01-02"),
				"Registrations": fmt.Sprintf("%d", row.Registrations),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Event", "Category", "Date", "Registrations"},
			Rows:    dataRows,
		}
		return dataset, "Event Popularity", nil

	case ReportStudentParticipation:
		rows, err := s.reports.StudentParticipation(ctx, actor, models.ReportFilter{Limit: 100})
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataRows := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			dataRows = append(dataRows, map[string]string{
				"Student":         row.StudentName,
				"Student Number":  derefString(row.StudentNumber),
				"Events Attended": fmt.Sprintf("%d", row.Attended),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Student", "Student Number", "Events Attended"},
			Rows:    dataRows,
		}
		return dataset, "Student Participation", nil

	case ReportAttendancePercentage:
		rows, err := s.reports.AttendancePercentage(ctx, actor)
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataRows := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			dataRows = append(dataRows, map[string]string{
				"Event":          row.Title,
				"Registered":     fmt.Sprintf("%d", row.Registered),
				"Attended":       fmt.Sprintf("%d", row.Attended),
				"Attendance (%)": fmt.Sprintf("%.2f", row.Percentage),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Event", "Registered", "Attended", "Attendance (%)"},
			Rows:    dataRows,
		}
		return dataset, "Attendance Percentage", nil

	case ReportAverageFeedback:
		rows, err := s.reports.AverageFeedback(ctx, actor)
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataRows := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			dataRows = append(dataRows, map[string]string{
				"Event":          row.Title,
				"Average Rating": fmt.Sprintf("%.2f", row.AverageRating),
				"Responses":      fmt.Sprintf("%d", row.FeedbackCount),
			})
		}
		dataset := export.Dataset{
			Headers: []string{"Event", "Average Rating", "Responses"},
			Rows:    dataRows,
		}
		return dataset, "Average Feedback", nil
	}
	return export.Dataset{}, "", fmt.Errorf("unsupported report %s", report)
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
