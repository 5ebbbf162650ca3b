package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
)

// PredictionRepository persists scoring results and assembles the feature
// aggregates they are computed from.
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository constructs the repository.
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// EngagementStats aggregates attendance and performance for the student's
// active enrollment in the activity.
func (r *PredictionRepository) EngagementStats(ctx context.Context, studentID, activityID string) (*models.EngagementStats, error) {
	const query = `SELECT
        e.id AS enrollment_id,
        e.student_id,
        e.activity_id,
        COUNT(DISTINCT att.id) AS total_sessions,
        COUNT(DISTINCT att.id) FILTER (WHERE att.status = 'PRESENT') AS present_count,
        COALESCE(AVG(CASE WHEN att.status = 'PRESENT' THEN 1.0 ELSE 0.0 END) * 100, 0) AS attendance_percentage,
        COALESCE(AVG(perf.score), 0) AS average_score,
        COUNT(DISTINCT perf.id) AS total_evaluations,
        GREATEST(EXTRACT(DAY FROM NOW() - e.enrolled_at), 0)::int AS days_enrolled
        FROM enrollments e
        LEFT JOIN attendance att ON att.enrollment_id = e.id
        LEFT JOIN performance perf ON perf.enrollment_id = e.id
        WHERE e.student_id = $1 AND e.activity_id = $2 AND e.status = $3
        GROUP BY e.id`
	var stats models.EngagementStats
	if err := r.db.GetContext(ctx, &stats, query, studentID, activityID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Save persists a prediction result.
func (r *PredictionRepository) Save(ctx context.Context, p *models.Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO predictions (id, student_id, activity_id, model_type, prediction_result, confidence_score, risk_level, recommended_actions, created_at)
        VALUES (:id, :student_id, :activity_id, :model_type, :prediction_result, :confidence_score, :risk_level, :recommended_actions, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

// History lists stored predictions, newest first.
func (r *PredictionRepository) History(ctx context.Context, studentID, modelType string, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var conditions []string
	var args []interface{}
	if studentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	if modelType != "" {
		conditions = append(conditions, fmt.Sprintf("model_type = $%d", len(args)+1))
		args = append(args, modelType)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`SELECT id, student_id, activity_id, model_type, prediction_result, confidence_score, risk_level, recommended_actions, created_at
        FROM predictions%s ORDER BY created_at DESC LIMIT %d`, clause, limit)

	var predictions []models.Prediction
	if err := r.db.SelectContext(ctx, &predictions, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return predictions, nil
}

// TriedCategories returns the categories a student has enrolled in.
func (r *PredictionRepository) TriedCategories(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT a.category
        FROM enrollments e
        JOIN activities a ON a.id = e.activity_id
        WHERE e.student_id = $1`
	var categories []string
	if err := r.db.SelectContext(ctx, &categories, query, studentID); err != nil {
		return nil, fmt.Errorf("tried categories: %w", err)
	}
	return categories, nil
}

// Recommendations returns popular open activities outside the given
// categories.
func (r *PredictionRepository) Recommendations(ctx context.Context, excludeCategories []string, limit int) ([]models.ActivityRecommendation, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	query := `SELECT a.id AS activity_id, a.name, a.category,
        COUNT(DISTINCT e.id) AS popularity,
        COALESCE(AVG(p.score), 0) AS average_score,
        (a.max_students - a.current_enrolled) AS available_seats
        FROM activities a
        LEFT JOIN enrollments e ON e.activity_id = a.id
        LEFT JOIN performance p ON p.enrollment_id = e.id
        WHERE a.status = $1 AND a.current_enrolled < a.max_students`
	args := []interface{}{models.ActivityStatusApproved}
	if len(excludeCategories) > 0 {
		placeholders := make([]string, len(excludeCategories))
		for i, category := range excludeCategories {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, category)
		}
		query += fmt.Sprintf(" AND a.category NOT IN (%s)", strings.Join(placeholders, ","))
	}
	query += fmt.Sprintf(` GROUP BY a.id ORDER BY popularity DESC, average_score DESC LIMIT %d`, limit)

	var recommendations []models.ActivityRecommendation
	if err := r.db.SelectContext(ctx, &recommendations, query, args...); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recommendations, nil
}
