package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type performanceRepository interface {
	Create(ctx context.Context, p *models.Performance, notification *models.Notification) error
	List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceDetail, int, error)
}

// RecordPerformanceRequest adds one evaluation for an enrollment.
type RecordPerformanceRequest struct {
	EnrollmentID   string  `json:"enrollment_id" validate:"required"`
	Score          float64 `json:"score" validate:"gte=0,lte=100"`
	SkillLevel     *string `json:"skill_level,omitempty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	EvaluationDate string  `json:"evaluation_date" validate:"required,datetime=2006-01-02"`
	Remarks        *string `json:"remarks,omitempty"`
}

// PerformanceService records and lists evaluations.
type PerformanceService struct {
	repo        performanceRepository
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPerformanceService constructs PerformanceService.
func NewPerformanceService(repo performanceRepository, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger) *PerformanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// Record stores the evaluation and notifies the student in the same
// transaction.
func (s *PerformanceService) Record(ctx context.Context, evaluatorID string, req RecordPerformanceRequest) (*models.Performance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	evaluationDate, err := time.Parse("2006-01-02", req.EvaluationDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "evaluation_date must be formatted YYYY-MM-DD")
	}

	record := &models.Performance{
		EnrollmentID:   req.EnrollmentID,
		Score:          req.Score,
		SkillLevel:     req.SkillLevel,
		EvaluationDate: evaluationDate,
		Remarks:        req.Remarks,
		EvaluatedBy:    &evaluatorID,
	}
	notification := &models.Notification{
		UserID:  enrollment.StudentID,
		Title:   "Performance Evaluation",
		Message: fmt.Sprintf("Your performance in %s has been evaluated. Score: %.0f/100", enrollment.ActivityName, req.Score),
		Type:    models.NotificationTypePerformance,
	}

	if err := s.repo.Create(ctx, record, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record evaluation")
	}

	s.logger.Info("performance recorded",
		zap.String("performance_id", record.ID),
		zap.String("enrollment_id", req.EnrollmentID),
		zap.Float64("score", req.Score))
	return record, nil
}

// List returns evaluations with pagination metadata.
func (s *PerformanceService) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return records, pagination, nil
}
