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
	"github.com/noah-isme/sma-ekskul-api/internal/repository"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	CreatePending(ctx context.Context, enrollment *models.Enrollment, payment *models.Payment, notification *models.Notification) error
	UpdateStatus(ctx context.Context, upd repository.StatusUpdate, notification *models.Notification) (*models.Enrollment, error)
	Cancel(ctx context.Context, id, studentID string) (*models.Enrollment, error)
	Summary(ctx context.Context, studentID string) (*models.EnrollmentSummary, error)
}

type activityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

// EnrollRequest describes an enrollment creation payload.
type EnrollRequest struct {
	ActivityID string `json:"activity_id" validate:"required"`
}

// DecideEnrollmentRequest carries a lifecycle transition decision.
type DecideEnrollmentRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=APPROVED REJECTED ACTIVE COMPLETED DROPPED"`
	Reason *string                 `json:"reason,omitempty"`
	Notes  *string                 `json:"notes,omitempty"`
}

// EnrollmentService orchestrates the enrollment lifecycle.
type EnrollmentService struct {
	repo       enrollmentRepository
	activities activityReader
	validator  *validator.Validate
	logger     *zap.Logger
	paymentDue time.Duration
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, activities activityReader, validate *validator.Validate, logger *zap.Logger, paymentDue time.Duration) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if paymentDue <= 0 {
		paymentDue = 7 * 24 * time.Hour
	}
	return &EnrollmentService{repo: repo, activities: activities, validator: validate, logger: logger, paymentDue: paymentDue}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Get returns a single enrollment with contextual info.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll registers a pending enrollment for the student. The due payment and
// the notification to the activity owner are created in the same transaction
// as the enrollment row.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	activity, err := s.activities.FindByID(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if !activity.Status.Enrollable() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity is not open for enrollment")
	}

	enrollment := &models.Enrollment{
		StudentID:  studentID,
		ActivityID: activity.ID,
		EnrolledAt: time.Now().UTC(),
	}

	var payment *models.Payment
	if activity.IsPaid && activity.Fee > 0 {
		due := time.Now().UTC().Add(s.paymentDue)
		payment = &models.Payment{
			Amount:        activity.Fee,
			PaymentStatus: models.PaymentStatusPending,
			DueDate:       &due,
		}
	}

	notification := &models.Notification{
		UserID:  activity.CreatedBy,
		Title:   "New Enrollment Request",
		Message: fmt.Sprintf("A new enrollment request for %s is awaiting your approval.", activity.Name),
		Type:    models.NotificationTypeEnrollment,
	}

	if err := s.repo.CreatePending(ctx, enrollment, payment, notification); err != nil {
		switch {
		case errors.Is(err, repository.ErrActivityUnavailable):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity is not open for enrollment")
		case errors.Is(err, repository.ErrActivityFull):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("activity_id", activity.ID))

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Decide applies an approve/reject/progress transition decided by staff. The
// seat ledger moves with the transition inside one transaction.
func (s *EnrollmentService) Decide(ctx context.Context, id, deciderID string, req DecideEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Status == models.EnrollmentStatusRejected && (req.Reason == nil || *req.Reason == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires a reason")
	}

	current, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	upd := repository.StatusUpdate{
		EnrollmentID: id,
		NewStatus:    req.Status,
		DecidedBy:    deciderID,
		Notes:        req.Notes,
	}
	if req.Status == models.EnrollmentStatusRejected {
		upd.ReasonForRejection = req.Reason
	}

	notification := s.decisionNotification(current, req)

	if _, err := s.repo.UpdateStatus(ctx, upd, notification); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
		case errors.Is(err, repository.ErrActivityFull):
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}

	s.logger.Info("enrollment status updated",
		zap.String("enrollment_id", id),
		zap.String("status", string(req.Status)),
		zap.String("decided_by", deciderID))

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Cancel drops the student's own enrollment and releases its seat when one
// was held.
func (s *EnrollmentService) Cancel(ctx context.Context, id, studentID string) (*models.Enrollment, error) {
	cancelled, err := s.repo.Cancel(ctx, id, studentID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "completed enrollments cannot be cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}

	s.logger.Info("enrollment cancelled",
		zap.String("enrollment_id", id),
		zap.String("student_id", studentID))
	return cancelled, nil
}

// Summary aggregates a student's enrollments and dues.
func (s *EnrollmentService) Summary(ctx context.Context, studentID string) (*models.EnrollmentSummary, error) {
	summary, err := s.repo.Summary(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build enrollment summary")
	}
	return summary, nil
}

func (s *EnrollmentService) decisionNotification(current *models.EnrollmentDetail, req DecideEnrollmentRequest) *models.Notification {
	n := &models.Notification{
		UserID: current.StudentID,
		Type:   models.NotificationTypeEnrollment,
	}
	switch req.Status {
	case models.EnrollmentStatusApproved:
		n.Title = "Enrollment Approved"
		n.Message = fmt.Sprintf("Your enrollment in %s has been approved.", current.ActivityName)
		if current.Fee > 0 {
			n.Message += " Please settle the activity fee before the due date."
		}
	case models.EnrollmentStatusRejected:
		n.Title = "Enrollment Rejected"
		reason := ""
		if req.Reason != nil {
			reason = *req.Reason
		}
		n.Message = fmt.Sprintf("Your enrollment in %s was rejected: %s", current.ActivityName, reason)
	case models.EnrollmentStatusActive:
		n.Title = "Enrollment Activated"
		n.Message = fmt.Sprintf("Your enrollment in %s is now active.", current.ActivityName)
	case models.EnrollmentStatusCompleted:
		n.Title = "Activity Completed"
		n.Message = fmt.Sprintf("Your participation in %s has been marked as completed.", current.ActivityName)
	case models.EnrollmentStatusDropped:
		n.Title = "Enrollment Dropped"
		n.Message = fmt.Sprintf("Your enrollment in %s has been dropped.", current.ActivityName)
	}
	return n
}
