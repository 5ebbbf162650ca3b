package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockPredictionRepo struct {
	stats      *models.EngagementStats
	saved      []*models.Prediction
	history    []models.Prediction
	categories []string
	recs       []models.ActivityRecommendation
}

func (m *mockPredictionRepo) EngagementStats(ctx context.Context, studentID, activityID string) (*models.EngagementStats, error) {
	if m.stats == nil {
		return nil, sql.ErrNoRows
	}
	return m.stats, nil
}

func (m *mockPredictionRepo) Save(ctx context.Context, p *models.Prediction) error {
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockPredictionRepo) History(ctx context.Context, studentID, modelType string, limit int) ([]models.Prediction, error) {
	return m.history, nil
}

func (m *mockPredictionRepo) TriedCategories(ctx context.Context, studentID string) ([]string, error) {
	return m.categories, nil
}

func (m *mockPredictionRepo) Recommendations(ctx context.Context, exclude []string, limit int) ([]models.ActivityRecommendation, error) {
	return m.recs, nil
}

func TestScoreLocalHighRisk(t *testing.T) {
	assessment := scoreLocal(&models.EngagementStats{
		AttendancePercentage: 40,
		AverageScore:         45,
		TotalEvaluations:     4,
		TotalSessions:        10,
	})

	assert.InDelta(t, 0.8, assessment.RiskScore, 0.001)
	assert.Equal(t, models.RiskLevelHigh, assessment.RiskLevel)
	assert.Equal(t, models.ModelTypeRuleBased, assessment.ModelType)
	assert.Len(t, assessment.Factors, 2)
}

func TestScoreLocalMediumRisk(t *testing.T) {
	assessment := scoreLocal(&models.EngagementStats{
		AttendancePercentage: 70,
		AverageScore:         65,
		TotalEvaluations:     2,
		TotalSessions:        8,
	})

	assert.InDelta(t, 0.4, assessment.RiskScore, 0.001)
	assert.Equal(t, models.RiskLevelMedium, assessment.RiskLevel)
}

func TestScoreLocalLowRisk(t *testing.T) {
	assessment := scoreLocal(&models.EngagementStats{
		AttendancePercentage: 95,
		AverageScore:         88,
		TotalEvaluations:     3,
		TotalSessions:        12,
	})

	assert.Equal(t, 0.0, assessment.RiskScore)
	assert.Equal(t, models.RiskLevelLow, assessment.RiskLevel)
	assert.Empty(t, assessment.Factors)
}

func TestScoreLocalSparseSessions(t *testing.T) {
	assessment := scoreLocal(&models.EngagementStats{
		AttendancePercentage: 100,
		TotalSessions:        1,
	})

	assert.InDelta(t, 0.1, assessment.RiskScore, 0.001)
	assert.Equal(t, models.RiskLevelLow, assessment.RiskLevel)
}

func TestRiskServiceAssessPersistsPrediction(t *testing.T) {
	repo := &mockPredictionRepo{stats: &models.EngagementStats{
		StudentID:            "s1",
		ActivityID:           "a1",
		AttendancePercentage: 40,
		AverageScore:         45,
		TotalEvaluations:     4,
		TotalSessions:        10,
	}}
	svc := NewRiskService(repo, RiskConfig{}, validator.New(), zap.NewNop())

	assessment, err := svc.AssessDropoutRisk(context.Background(), AssessRiskRequest{StudentID: "s1", ActivityID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelHigh, assessment.RiskLevel)

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, "s1", saved.StudentID)
	assert.Equal(t, models.ModelTypeRuleBased, saved.ModelType)
	require.NotNil(t, saved.RiskLevel)
	assert.Equal(t, models.RiskLevelHigh, *saved.RiskLevel)
}

func TestRiskServiceAssessNoActiveEnrollment(t *testing.T) {
	svc := NewRiskService(&mockPredictionRepo{}, RiskConfig{}, validator.New(), zap.NewNop())

	_, err := svc.AssessDropoutRisk(context.Background(), AssessRiskRequest{StudentID: "s1", ActivityID: "a1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRiskServiceUsesExternalModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict/dropout", r.URL.Path)
		json.NewEncoder(w).Encode(models.RiskAssessment{RiskScore: 0.62, RiskLevel: models.RiskLevelHigh})
	}))
	defer server.Close()

	repo := &mockPredictionRepo{stats: &models.EngagementStats{StudentID: "s1", ActivityID: "a1", AttendancePercentage: 90}}
	svc := NewRiskService(repo, RiskConfig{Enabled: true, BaseURL: server.URL}, validator.New(), zap.NewNop())

	assessment, err := svc.AssessDropoutRisk(context.Background(), AssessRiskRequest{StudentID: "s1", ActivityID: "a1"})
	require.NoError(t, err)
	assert.InDelta(t, 0.62, assessment.RiskScore, 0.001)
	assert.Equal(t, models.ModelTypeDropoutRisk, assessment.ModelType)
}

func TestRiskServiceFallsBackWhenExternalFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &mockPredictionRepo{stats: &models.EngagementStats{StudentID: "s1", ActivityID: "a1", AttendancePercentage: 95, TotalSessions: 10}}
	svc := NewRiskService(repo, RiskConfig{Enabled: true, BaseURL: server.URL}, validator.New(), zap.NewNop())

	assessment, err := svc.AssessDropoutRisk(context.Background(), AssessRiskRequest{StudentID: "s1", ActivityID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, models.ModelTypeRuleBased, assessment.ModelType)
}

func TestRiskServiceRecommendExcludesTriedCategories(t *testing.T) {
	repo := &mockPredictionRepo{
		categories: []string{"Sports"},
		recs: []models.ActivityRecommendation{
			{ActivityID: "a2", Name: "Chess Club", Category: "Academic", Popularity: 12},
		},
	}
	svc := NewRiskService(repo, RiskConfig{}, validator.New(), zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "s1", 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Chess Club", recs[0].Name)
}
