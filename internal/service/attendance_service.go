package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type attendanceRepository interface {
	Mark(ctx context.Context, att *models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	Summary(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error)
}

// MarkAttendanceRequest records one session for an enrollment.
type MarkAttendanceRequest struct {
	EnrollmentID  string   `json:"enrollment_id" validate:"required"`
	SessionDate   string   `json:"session_date" validate:"required,datetime=2006-01-02"`
	Status        string   `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	DurationHours *float64 `json:"duration_hours,omitempty" validate:"omitempty,gte=0,lte=24"`
	Remarks       *string  `json:"remarks,omitempty"`
}

// AttendanceService records and reports session attendance.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Mark records the session for an enrollment. Marking the same date twice
// overwrites the earlier record.
func (s *AttendanceService) Mark(ctx context.Context, markerID string, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if _, err := s.enrollments.FindDetailByID(ctx, req.EnrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_date must be formatted YYYY-MM-DD")
	}

	att := &models.Attendance{
		EnrollmentID:  req.EnrollmentID,
		SessionDate:   sessionDate,
		Status:        models.AttendanceStatus(req.Status),
		DurationHours: req.DurationHours,
		Remarks:       req.Remarks,
		MarkedBy:      &markerID,
	}
	if err := s.repo.Mark(ctx, att); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}

	s.logger.Info("attendance marked",
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("session_date", req.SessionDate),
		zap.String("status", req.Status))
	return att, nil
}

// List returns attendance records with pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return records, pagination, nil
}

// Summary aggregates the session history of one enrollment.
func (s *AttendanceService) Summary(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error) {
	if _, err := s.enrollments.FindDetailByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	summary, err := s.repo.Summary(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}
	return summary, nil
}
