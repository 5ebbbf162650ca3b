package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockPerformanceRepo struct {
	created   *models.Performance
	lastNotif *models.Notification
	records   []models.PerformanceDetail
}

func (m *mockPerformanceRepo) Create(ctx context.Context, p *models.Performance, notification *models.Notification) error {
	if p.ID == "" {
		p.ID = "new-performance"
	}
	m.created = p
	m.lastNotif = notification
	return nil
}

func (m *mockPerformanceRepo) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceDetail, int, error) {
	return m.records, len(m.records), nil
}

func TestPerformanceServiceRecord(t *testing.T) {
	repo := &mockPerformanceRepo{}
	svc := NewPerformanceService(repo, activeEnrollmentReader(), validator.New(), zap.NewNop())

	level := "INTERMEDIATE"
	record, err := svc.Record(context.Background(), "t1", RecordPerformanceRequest{
		EnrollmentID:   "e1",
		Score:          85,
		SkillLevel:     &level,
		EvaluationDate: "2026-08-28",
	})
	require.NoError(t, err)
	assert.Equal(t, 85.0, record.Score)
	require.NotNil(t, record.EvaluatedBy)
	assert.Equal(t, "t1", *record.EvaluatedBy)

	require.NotNil(t, repo.lastNotif)
	assert.Equal(t, "s1", repo.lastNotif.UserID)
	assert.Equal(t, models.NotificationTypePerformance, repo.lastNotif.Type)
	assert.Contains(t, repo.lastNotif.Message, "Basketball")
	assert.Contains(t, repo.lastNotif.Message, "85/100")
}

func TestPerformanceServiceRecordUnknownEnrollment(t *testing.T) {
	svc := NewPerformanceService(&mockPerformanceRepo{}, &mockEnrollmentReader{}, validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), "t1", RecordPerformanceRequest{
		EnrollmentID:   "missing",
		Score:          85,
		EvaluationDate: "2026-08-28",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPerformanceServiceRecordScoreOutOfRange(t *testing.T) {
	svc := NewPerformanceService(&mockPerformanceRepo{}, activeEnrollmentReader(), validator.New(), zap.NewNop())

	_, err := svc.Record(context.Background(), "t1", RecordPerformanceRequest{
		EnrollmentID:   "e1",
		Score:          130,
		EvaluationDate: "2026-08-28",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
