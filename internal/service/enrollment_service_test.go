package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	"github.com/noah-isme/sma-ekskul-api/internal/repository"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.EnrollmentDetail
	createErr   error
	updateErr   error
	cancelErr   error

	created          *models.Enrollment
	createdPayment   *models.Payment
	createdNotif     *models.Notification
	lastUpdate       repository.StatusUpdate
	updateNotif      *models.Notification
	cancelledID      string
	summary          *models.EnrollmentSummary
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		list = append(list, e)
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		enrollment := e.Enrollment
		return &enrollment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) CreatePending(ctx context.Context, enrollment *models.Enrollment, payment *models.Payment, notification *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.EnrollmentDetail)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.enrollments[enrollment.ID] = models.EnrollmentDetail{Enrollment: *enrollment}
	m.created = enrollment
	m.createdPayment = payment
	m.createdNotif = notification
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, upd repository.StatusUpdate, notification *models.Notification) (*models.Enrollment, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.lastUpdate = upd
	m.updateNotif = notification
	e, ok := m.enrollments[upd.EnrollmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e.Status = upd.NewStatus
	m.enrollments[upd.EnrollmentID] = e
	enrollment := e.Enrollment
	return &enrollment, nil
}

func (m *mockEnrollmentRepo) Cancel(ctx context.Context, id, studentID string) (*models.Enrollment, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	e, ok := m.enrollments[id]
	if !ok || e.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	m.cancelledID = id
	e.Status = models.EnrollmentStatusDropped
	m.enrollments[id] = e
	enrollment := e.Enrollment
	return &enrollment, nil
}

func (m *mockEnrollmentRepo) Summary(ctx context.Context, studentID string) (*models.EnrollmentSummary, error) {
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.EnrollmentSummary{}, nil
}

type mockActivityReader struct {
	activities map[string]*models.Activity
}

func (m *mockActivityReader) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := m.activities[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func paidActivity() *models.Activity {
	return &models.Activity{
		ID:          "a1",
		Name:        "Basketball",
		Category:    "Sports",
		CreatedBy:   "t1",
		MaxStudents: 20,
		Fee:         150000,
		IsPaid:      true,
		Status:      models.ActivityStatusApproved,
	}
}

func newTestEnrollmentService(repo *mockEnrollmentRepo, activities *mockActivityReader) *EnrollmentService {
	return NewEnrollmentService(repo, activities, validator.New(), zap.NewNop(), 7*24*time.Hour)
}

func TestEnrollmentServiceEnrollCreatesPendingWithPayment(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	activities := &mockActivityReader{activities: map[string]*models.Activity{"a1": paidActivity()}}
	svc := newTestEnrollmentService(repo, activities)

	detail, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "a1"})
	require.NoError(t, err)
	require.NotNil(t, detail)

	require.NotNil(t, repo.created)
	assert.Equal(t, "s1", repo.created.StudentID)

	require.NotNil(t, repo.createdPayment)
	assert.Equal(t, 150000.0, repo.createdPayment.Amount)
	require.NotNil(t, repo.createdPayment.DueDate)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), *repo.createdPayment.DueDate, time.Minute)

	require.NotNil(t, repo.createdNotif)
	assert.Equal(t, "t1", repo.createdNotif.UserID)
	assert.Equal(t, models.NotificationTypeEnrollment, repo.createdNotif.Type)
}

func TestEnrollmentServiceEnrollFreeActivitySkipsPayment(t *testing.T) {
	activity := paidActivity()
	activity.Fee = 0
	activity.IsPaid = false
	repo := &mockEnrollmentRepo{}
	svc := newTestEnrollmentService(repo, &mockActivityReader{activities: map[string]*models.Activity{"a1": activity}})

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "a1"})
	require.NoError(t, err)
	assert.Nil(t, repo.createdPayment)
}

func TestEnrollmentServiceEnrollCapacityExceeded(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrActivityFull}
	svc := newTestEnrollmentService(repo, &mockActivityReader{activities: map[string]*models.Activity{"a1": paidActivity()}})

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "a1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrDuplicateEnrollment}
	svc := newTestEnrollmentService(repo, &mockActivityReader{activities: map[string]*models.Activity{"a1": paidActivity()}})

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "a1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestEnrollmentServiceEnrollUnknownActivity(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollClosedActivity(t *testing.T) {
	activity := paidActivity()
	activity.Status = models.ActivityStatusInactive
	repo := &mockEnrollmentRepo{}
	svc := newTestEnrollmentService(repo, &mockActivityReader{activities: map[string]*models.Activity{"a1": activity}})

	_, err := svc.Enroll(context.Background(), "s1", EnrollRequest{ActivityID: "a1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestEnrollmentServiceDecideApprove(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.EnrollmentDetail{
		"e1": {
			Enrollment:   models.Enrollment{ID: "e1", StudentID: "s1", ActivityID: "a1", Status: models.EnrollmentStatusPending},
			ActivityName: "Basketball",
			Fee:          150000,
		},
	}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	detail, err := svc.Decide(context.Background(), "e1", "admin-1", DecideEnrollmentRequest{Status: models.EnrollmentStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, detail.Status)
	assert.Equal(t, "admin-1", repo.lastUpdate.DecidedBy)

	require.NotNil(t, repo.updateNotif)
	assert.Equal(t, "Enrollment Approved", repo.updateNotif.Title)
	assert.Contains(t, repo.updateNotif.Message, "Basketball")
	assert.Contains(t, repo.updateNotif.Message, "settle the activity fee")
}

func TestEnrollmentServiceDecideRejectRequiresReason(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusPending}},
	}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Decide(context.Background(), "e1", "admin-1", DecideEnrollmentRequest{Status: models.EnrollmentStatusRejected})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceDecideRejectCarriesReason(t *testing.T) {
	reason := "schedule conflict with mandatory classes"
	repo := &mockEnrollmentRepo{enrollments: map[string]models.EnrollmentDetail{
		"e1": {
			Enrollment:   models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusPending},
			ActivityName: "Basketball",
		},
	}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Decide(context.Background(), "e1", "admin-1", DecideEnrollmentRequest{
		Status: models.EnrollmentStatusRejected,
		Reason: &reason,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdate.ReasonForRejection)
	assert.Equal(t, reason, *repo.lastUpdate.ReasonForRejection)
	require.NotNil(t, repo.updateNotif)
	assert.Contains(t, repo.updateNotif.Message, reason)
}

func TestEnrollmentServiceDecideInvalidTransition(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.EnrollmentDetail{
			"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusCompleted}},
		},
		updateErr: repository.ErrInvalidTransition,
	}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Decide(context.Background(), "e1", "admin-1", DecideEnrollmentRequest{Status: models.EnrollmentStatusApproved})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestEnrollmentServiceDecideCapacityRace(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[string]models.EnrollmentDetail{
			"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusPending}},
		},
		updateErr: repository.ErrActivityFull,
	}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Decide(context.Background(), "e1", "admin-1", DecideEnrollmentRequest{Status: models.EnrollmentStatusApproved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCancel(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "s1", Status: models.EnrollmentStatusActive}},
	}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	cancelled, err := svc.Cancel(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, cancelled.Status)
	assert.Equal(t, "e1", repo.cancelledID)
}

func TestEnrollmentServiceCancelCompleted(t *testing.T) {
	repo := &mockEnrollmentRepo{cancelErr: repository.ErrInvalidTransition}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Cancel(context.Background(), "e1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCancelForeignEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.EnrollmentDetail{
		"e1": {Enrollment: models.Enrollment{ID: "e1", StudentID: "someone-else", Status: models.EnrollmentStatusActive}},
	}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	_, err := svc.Cancel(context.Background(), "e1", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceSummary(t *testing.T) {
	repo := &mockEnrollmentRepo{summary: &models.EnrollmentSummary{TotalEnrollments: 3, ActiveEnrollments: 2, TotalPaid: 300000}}
	svc := newTestEnrollmentService(repo, &mockActivityReader{})

	summary, err := svc.Summary(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalEnrollments)
	assert.Equal(t, 300000.0, summary.TotalPaid)
}
