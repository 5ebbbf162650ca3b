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

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error)
	MarkPaid(ctx context.Context, rec repository.RecordPayment, notification *models.Notification) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
}

type enrollmentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

// RecordPaymentRequest settles the pending due of an enrollment.
type RecordPaymentRequest struct {
	EnrollmentID  string  `json:"enrollment_id" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=CASH TRANSFER EWALLET"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

// PaymentService manages activity fee dues and settlements.
type PaymentService struct {
	repo        paymentRepository
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, enrollments: enrollments, validator: validate, logger: logger}
}

// List returns payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
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
	return payments, pagination, nil
}

// ListByStudent returns a student's payments with activity context.
func (s *PaymentService) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student payments")
	}
	return payments, nil
}

// Record marks the pending due of an enrollment as paid, issues a receipt
// number and notifies the student in the same transaction.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	rec := repository.RecordPayment{
		EnrollmentID:  req.EnrollmentID,
		Method:        req.PaymentMethod,
		TransactionID: req.TransactionID,
		ReceiptNumber: generateReceiptNumber(),
	}

	notification := &models.Notification{
		UserID:  enrollment.StudentID,
		Title:   "Payment Received",
		Message: fmt.Sprintf("Your payment for %s has been received. Receipt: %s", enrollment.ActivityName, rec.ReceiptNumber),
		Type:    models.NotificationTypePayment,
	}

	payment, err := s.repo.MarkPaid(ctx, rec, notification)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending payment for this enrollment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("receipt", rec.ReceiptNumber))
	return payment, nil
}

func generateReceiptNumber() string {
	return fmt.Sprintf("RCP-%d", time.Now().UTC().UnixNano())
}
