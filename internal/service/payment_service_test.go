package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	"github.com/noah-isme/sma-ekskul-api/internal/repository"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockPaymentRepo struct {
	payments    map[string]models.Payment
	markPaidErr error
	lastRecord  repository.RecordPayment
	lastNotif   *models.Notification
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	var list []models.PaymentDetail
	for _, p := range m.payments {
		list = append(list, models.PaymentDetail{Payment: p})
	}
	return list, len(list), nil
}

func (m *mockPaymentRepo) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error) {
	if p, ok := m.payments[enrollmentID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) MarkPaid(ctx context.Context, rec repository.RecordPayment, notification *models.Notification) (*models.Payment, error) {
	if m.markPaidErr != nil {
		return nil, m.markPaidErr
	}
	p, ok := m.payments[rec.EnrollmentID]
	if !ok || p.PaymentStatus != models.PaymentStatusPending {
		return nil, sql.ErrNoRows
	}
	m.lastRecord = rec
	m.lastNotif = notification
	p.PaymentStatus = models.PaymentStatusPaid
	p.ReceiptNumber = &rec.ReceiptNumber
	m.payments[rec.EnrollmentID] = p
	return &p, nil
}

func (m *mockPaymentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	var list []models.PaymentDetail
	for _, p := range m.payments {
		list = append(list, models.PaymentDetail{Payment: p, StudentID: studentID})
	}
	return list, nil
}

type mockEnrollmentReader struct {
	details map[string]*models.EnrollmentDetail
}

func (m *mockEnrollmentReader) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func TestPaymentServiceRecord(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"e1": {ID: "p1", EnrollmentID: "e1", Amount: 150000, PaymentStatus: models.PaymentStatusPending},
	}}
	enrollments := &mockEnrollmentReader{details: map[string]*models.EnrollmentDetail{
		"e1": {
			Enrollment:   models.Enrollment{ID: "e1", StudentID: "s1"},
			ActivityName: "Basketball",
		},
	}}
	svc := NewPaymentService(repo, enrollments, validator.New(), zap.NewNop())

	payment, err := svc.Record(context.Background(), RecordPaymentRequest{EnrollmentID: "e1", PaymentMethod: "CASH"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.PaymentStatus)
	assert.True(t, strings.HasPrefix(repo.lastRecord.ReceiptNumber, "RCP-"))

	require.NotNil(t, repo.lastNotif)
	assert.Equal(t, "s1", repo.lastNotif.UserID)
	assert.Equal(t, models.NotificationTypePayment, repo.lastNotif.Type)
	assert.Contains(t, repo.lastNotif.Message, "Basketball")
}

func TestPaymentServiceRecordNoPendingDue(t *testing.T) {
	repo := &mockPaymentRepo{payments: map[string]models.Payment{
		"e1": {ID: "p1", EnrollmentID: "e1", PaymentStatus: models.PaymentStatusPaid},
	}}
	enrollments := &mockEnrollmentReader{details: map[string]*models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "s1"}},
	}}
	svc := NewPaymentService(repo, enrollments, validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), RecordPaymentRequest{EnrollmentID: "e1", PaymentMethod: "CASH"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceRecordUnknownEnrollment(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockEnrollmentReader{}, validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), RecordPaymentRequest{EnrollmentID: "missing", PaymentMethod: "CASH"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceRecordInvalidMethod(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockEnrollmentReader{}, validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), RecordPaymentRequest{EnrollmentID: "e1", PaymentMethod: "BARTER"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
