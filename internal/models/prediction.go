package models

import (
	"encoding/json"
	"time"
)

// Prediction model types.
const (
	ModelTypeDropoutRisk = "dropout_risk"
	ModelTypeRuleBased   = "rule_based"
)

// Risk levels produced by dropout scoring.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// Prediction is a persisted scoring result.
type Prediction struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	ActivityID         *string         `db:"activity_id" json:"activity_id,omitempty"`
	ModelType          string          `db:"model_type" json:"model_type"`
	PredictionResult   json.RawMessage `db:"prediction_result" json:"prediction_result"`
	ConfidenceScore    float64         `db:"confidence_score" json:"confidence_score"`
	RiskLevel          *string         `db:"risk_level" json:"risk_level,omitempty"`
	RecommendedActions *string         `db:"recommended_actions" json:"recommended_actions,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// EngagementStats aggregates attendance and performance for one enrollment,
// the feature vector for dropout scoring.
type EngagementStats struct {
	EnrollmentID         string  `db:"enrollment_id" json:"enrollment_id"`
	StudentID            string  `db:"student_id" json:"student_id"`
	ActivityID           string  `db:"activity_id" json:"activity_id"`
	TotalSessions        int     `db:"total_sessions" json:"total_sessions"`
	PresentCount         int     `db:"present_count" json:"present_count"`
	AttendancePercentage float64 `db:"attendance_percentage" json:"attendance_percentage"`
	AverageScore         float64 `db:"average_score" json:"average_score"`
	TotalEvaluations     int     `db:"total_evaluations" json:"total_evaluations"`
	DaysEnrolled         int     `db:"days_enrolled" json:"days_enrolled"`
}

// RiskAssessment is the scoring outcome returned to clients.
type RiskAssessment struct {
	RiskScore            float64  `json:"risk_score"`
	RiskLevel            string   `json:"risk_level"`
	Factors              []string `json:"factors"`
	AttendancePercentage float64  `json:"attendance_percentage"`
	AverageScore         float64  `json:"average_score"`
	RecommendedActions   string   `json:"recommended_actions"`
	ModelType            string   `json:"model_type"`
}

// ActivityRecommendation suggests an activity the student has not tried.
type ActivityRecommendation struct {
	ActivityID     string  `db:"activity_id" json:"activity_id"`
	Name           string  `db:"name" json:"name"`
	Category       string  `db:"category" json:"category"`
	Popularity     int     `db:"popularity" json:"popularity"`
	AverageScore   float64 `db:"average_score" json:"average_score"`
	AvailableSeats int     `db:"available_seats" json:"available_seats"`
}
