package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type predictionRepository interface {
	EngagementStats(ctx context.Context, studentID, activityID string) (*models.EngagementStats, error)
	Save(ctx context.Context, p *models.Prediction) error
	History(ctx context.Context, studentID, modelType string, limit int) ([]models.Prediction, error)
	TriedCategories(ctx context.Context, studentID string) ([]string, error)
	Recommendations(ctx context.Context, excludeCategories []string, limit int) ([]models.ActivityRecommendation, error)
}

// RiskConfig points at the external scoring service.
type RiskConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// AssessRiskRequest identifies the enrollment to score.
type AssessRiskRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ActivityID string `json:"activity_id" validate:"required"`
}

// RiskService scores dropout risk for active enrollments. The external model
// is best-effort; when it is disabled or unreachable a deterministic local
// heuristic produces the assessment instead.
type RiskService struct {
	repo      predictionRepository
	client    *http.Client
	config    RiskConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRiskService constructs RiskService.
func NewRiskService(repo predictionRepository, config RiskConfig, validate *validator.Validate, logger *zap.Logger) *RiskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RiskService{
		repo:      repo,
		client:    &http.Client{Timeout: timeout},
		config:    config,
		validator: validate,
		logger:    logger,
	}
}

// AssessDropoutRisk scores one active enrollment and persists the result.
func (s *RiskService) AssessDropoutRisk(ctx context.Context, req AssessRiskRequest) (*models.RiskAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}

	stats, err := s.repo.EngagementStats(ctx, req.StudentID, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for student and activity")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load engagement stats")
	}

	assessment := s.score(ctx, stats)

	result, err := json.Marshal(assessment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode assessment")
	}
	prediction := &models.Prediction{
		StudentID:          req.StudentID,
		ActivityID:         &req.ActivityID,
		ModelType:          assessment.ModelType,
		PredictionResult:   result,
		ConfidenceScore:    assessment.RiskScore,
		RiskLevel:          &assessment.RiskLevel,
		RecommendedActions: &assessment.RecommendedActions,
	}
	if err := s.repo.Save(ctx, prediction); err != nil {
		s.logger.Warn("failed to persist prediction", zap.Error(err))
	}

	return assessment, nil
}

// History lists stored predictions.
func (s *RiskService) History(ctx context.Context, studentID, modelType string, limit int) ([]models.Prediction, error) {
	predictions, err := s.repo.History(ctx, studentID, modelType, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list predictions")
	}
	return predictions, nil
}

// Recommend suggests open activities in categories the student has not tried.
func (s *RiskService) Recommend(ctx context.Context, studentID string, limit int) ([]models.ActivityRecommendation, error) {
	tried, err := s.repo.TriedCategories(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	recommendations, err := s.repo.Recommendations(ctx, tried, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recommendations")
	}
	return recommendations, nil
}

func (s *RiskService) score(ctx context.Context, stats *models.EngagementStats) *models.RiskAssessment {
	if s.config.Enabled && s.config.BaseURL != "" {
		assessment, err := s.scoreRemote(ctx, stats)
		if err == nil {
			return assessment
		}
		s.logger.Warn("external scoring failed, using local heuristic", zap.Error(err))
	}
	return scoreLocal(stats)
}

func (s *RiskService) scoreRemote(ctx context.Context, stats *models.EngagementStats) (*models.RiskAssessment, error) {
	body, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	url := s.config.BaseURL + "/predict/dropout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring service returned %d", resp.StatusCode)
	}

	var assessment models.RiskAssessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	assessment.ModelType = models.ModelTypeDropoutRisk
	return &assessment, nil
}

// scoreLocal applies the fallback heuristic over attendance and performance.
func scoreLocal(stats *models.EngagementStats) *models.RiskAssessment {
	score := 0.0
	var factors []string

	switch {
	case stats.AttendancePercentage < 60:
		score += 0.4
		factors = append(factors, "attendance below 60%")
	case stats.AttendancePercentage < 75:
		score += 0.2
		factors = append(factors, "attendance below 75%")
	}

	if stats.TotalEvaluations > 0 {
		switch {
		case stats.AverageScore < 50:
			score += 0.4
			factors = append(factors, "average score below 50")
		case stats.AverageScore < 70:
			score += 0.2
			factors = append(factors, "average score below 70")
		}
	}

	if stats.TotalSessions < 3 {
		score += 0.1
		factors = append(factors, "fewer than 3 recorded sessions")
	}

	level := models.RiskLevelLow
	switch {
	case score >= 0.5:
		level = models.RiskLevelHigh
	case score >= 0.3:
		level = models.RiskLevelMedium
	}

	return &models.RiskAssessment{
		RiskScore:            score,
		RiskLevel:            level,
		Factors:              factors,
		AttendancePercentage: stats.AttendancePercentage,
		AverageScore:         stats.AverageScore,
		RecommendedActions:   recommendedActions(level),
		ModelType:            models.ModelTypeRuleBased,
	}
}

func recommendedActions(level string) string {
	switch level {
	case models.RiskLevelHigh:
		return "Schedule a meeting with the student and guardian. Review attendance barriers and consider a lighter activity load."
	case models.RiskLevelMedium:
		return "Monitor attendance weekly and check in with the activity supervisor."
	default:
		return "No action needed. Keep encouraging participation."
	}
}
