package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved  EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Counted reports whether the status occupies a seat in the activity ledger.
func (s EnrollmentStatus) Counted() bool {
	return s == EnrollmentStatusApproved || s == EnrollmentStatusActive
}

// Terminal reports whether no further transition is permitted.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusRejected || s == EnrollmentStatusCompleted || s == EnrollmentStatusDropped
}

// enrollmentTransitions encodes the permitted state machine.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending:  {EnrollmentStatusApproved, EnrollmentStatusRejected},
	EnrollmentStatusApproved: {EnrollmentStatusActive, EnrollmentStatusDropped},
	EnrollmentStatusActive:   {EnrollmentStatusCompleted, EnrollmentStatusDropped},
}

// CanTransition reports whether moving from s to next is allowed.
func (s EnrollmentStatus) CanTransition(next EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Enrollment captures a student's request to participate in an activity.
type Enrollment struct {
	ID                 string           `db:"id" json:"id"`
	StudentID          string           `db:"student_id" json:"student_id"`
	ActivityID         string           `db:"activity_id" json:"activity_id"`
	Status             EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt         time.Time        `db:"enrolled_at" json:"enrolled_at"`
	ApprovedBy         *string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	ReasonForRejection *string          `db:"reason_for_rejection" json:"reason_for_rejection,omitempty"`
	Notes              *string          `db:"notes" json:"notes,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student, activity and payment info.
type EnrollmentDetail struct {
	Enrollment
	StudentName    string   `db:"student_name" json:"student_name"`
	StudentEmail   string   `db:"student_email" json:"student_email"`
	ActivityName   string   `db:"activity_name" json:"activity_name"`
	Category       string   `db:"category" json:"category"`
	Fee            float64  `db:"fee" json:"fee"`
	ApprovedByName *string  `db:"approved_by_name" json:"approved_by_name,omitempty"`
	PaymentStatus  *string  `db:"payment_status" json:"payment_status,omitempty"`
	PaymentAmount  *float64 `db:"payment_amount" json:"payment_amount,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID  string
	ActivityID string
	Status     EnrollmentStatus
	Page       int
	PageSize   int
}

// EnrollmentSummary aggregates a student's enrollments and dues.
type EnrollmentSummary struct {
	TotalEnrollments     int     `db:"total_enrollments" json:"total_enrollments"`
	PendingEnrollments   int     `db:"pending_enrollments" json:"pending_enrollments"`
	ApprovedEnrollments  int     `db:"approved_enrollments" json:"approved_enrollments"`
	ActiveEnrollments    int     `db:"active_enrollments" json:"active_enrollments"`
	CompletedEnrollments int     `db:"completed_enrollments" json:"completed_enrollments"`
	TotalPaid            float64 `db:"total_paid" json:"total_paid"`
	PendingPayments      float64 `db:"pending_payments" json:"pending_payments"`
}
