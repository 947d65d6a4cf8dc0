package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-events-api/internal/models"
	appErrors "github.com/noah-isme/campus-events-api/pkg/errors"
)

type reportRepository interface {
	EventPopularity(ctx context.Context, collegeID string, limit int) ([]models.EventPopularityRow, error)
	StudentParticipation(ctx context.Context, collegeID string, filter models.ReportFilter) ([]models.StudentParticipationRow, error)
	Leaderboard(ctx context.Context, collegeID string, limit int) ([]models.StudentParticipationRow, error)
	AttendancePercentage(ctx context.Context, collegeID string) ([]models.AttendancePercentageRow, error)
	AverageFeedback(ctx context.Context, collegeID string) ([]models.AverageFeedbackRow, error)
}

// ReportService serves the admin aggregation reads through a read-through
// cache. Cache keys always embed the college ID so tenants never share
// entries.
type ReportService struct {
	reports reportRepository
	cache   *CacheService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewReportService constructs a ReportService instance.
func NewReportService(reports reportRepository, cache *CacheService, logger *zap.Logger, ttl time.Duration) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportService{reports: reports, cache: cache, logger: logger, ttl: ttl}
}

// EventPopularity ranks events by non-cancelled registrations.
func (s *ReportService) EventPopularity(ctx context.Context, actor models.AuthUser, limit int) ([]models.EventPopularityRow, error) {
	key := fmt.Sprintf("reports:%s:event-popularity:%d", actor.CollegeID, limit)
	var cached []models.EventPopularityRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.EventPopularity(ctx, actor.CollegeID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build popularity report")
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// StudentParticipation counts attendance per student within the filter.
func (s *ReportService) StudentParticipation(ctx context.Context, actor models.AuthUser, filter models.ReportFilter) ([]models.StudentParticipationRow, error) {
	key := participationKey(actor.CollegeID, filter)
	var cached []models.StudentParticipationRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.StudentParticipation(ctx, actor.CollegeID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build participation report")
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// Leaderboard returns the most active students by attendance.
func (s *ReportService) Leaderboard(ctx context.Context, actor models.AuthUser, limit int) ([]models.StudentParticipationRow, error) {
	key := fmt.Sprintf("reports:%s:leaderboard:%d", actor.CollegeID, limit)
	var cached []models.StudentParticipationRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.Leaderboard(ctx, actor.CollegeID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build leaderboard")
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// AttendancePercentage relates attendance to registered counts per event.
func (s *ReportService) AttendancePercentage(ctx context.Context, actor models.AuthUser) ([]models.AttendancePercentageRow, error) {
	key := fmt.Sprintf("reports:%s:attendance-percentage", actor.CollegeID)
	var cached []models.AttendancePercentageRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.AttendancePercentage(ctx, actor.CollegeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance report")
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// AverageFeedback is the mean rating per event.
func (s *ReportService) AverageFeedback(ctx context.Context, actor models.AuthUser) ([]models.AverageFeedbackRow, error) {
	key := fmt.Sprintf("reports:%s:average-feedback", actor.CollegeID)
	var cached []models.AverageFeedbackRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.AverageFeedback(ctx, actor.CollegeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build feedback report")
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// InvalidateCollege drops all cached reports for one college.
func (s *ReportService) InvalidateCollege(ctx context.Context, collegeID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("reports:%s:*", collegeID)); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.String("college_id", collegeID), zap.Error(err))
	}
}

func (s *ReportService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("failed to cache report", zap.String("key", key), zap.Error(err))
	}
}

func participationKey(collegeID string, filter models.ReportFilter) string {
	from, to := "", ""
	if filter.From != nil {
		from = filter.From.UTC().Format(time.RFC3339)
	}
	if filter.To != nil {
		to = filter.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("reports:%s:student-participation:%s:%s:%s:%d", collegeID, from, to, filter.Category, filter.Limit)
}
