package models

import "time"

// Performance is one evaluation of a student's work in an activity.
type Performance struct {
	ID             string    `db:"id" json:"id"`
	EnrollmentID   string    `db:"enrollment_id" json:"enrollment_id"`
	Score          float64   `db:"score" json:"score"`
	SkillLevel     *string   `db:"skill_level" json:"skill_level,omitempty"`
	EvaluationDate time.Time `db:"evaluation_date" json:"evaluation_date"`
	Remarks        *string   `db:"remarks" json:"remarks,omitempty"`
	EvaluatedBy    *string   `db:"evaluated_by" json:"evaluated_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PerformanceDetail enriches Performance with student and activity context.
type PerformanceDetail struct {
	Performance
	StudentID       string  `db:"student_id" json:"student_id"`
	StudentName     string  `db:"student_name" json:"student_name"`
	ActivityName    string  `db:"activity_name" json:"activity_name"`
	Category        string  `db:"category" json:"category"`
	EvaluatedByName *string `db:"evaluated_by_name" json:"evaluated_by_name,omitempty"`
}

// PerformanceFilter provides filters for listing evaluations.
type PerformanceFilter struct {
	EnrollmentID string
	ActivityID   string
	StudentID    string
	Page         int
	PageSize     int
}
