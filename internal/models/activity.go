package models

import "time"

// ActivityStatus represents the lifecycle of an activity listing.
type ActivityStatus string

// Possible activity statuses.
const (
	ActivityStatusPending  ActivityStatus = "PENDING"
	ActivityStatusApproved ActivityStatus = "APPROVED"
	ActivityStatusRejected ActivityStatus = "REJECTED"
	ActivityStatusActive   ActivityStatus = "ACTIVE"
	ActivityStatusInactive ActivityStatus = "INACTIVE"
)

// Enrollable reports whether students may request enrollment.
func (s ActivityStatus) Enrollable() bool {
	return s == ActivityStatusApproved || s == ActivityStatusActive
}

// Activity is an extracurricular activity listing with its seat ledger.
// CurrentEnrolled mirrors the number of enrollments in counted statuses and is
// mutated only inside enrollment lifecycle transactions.
type Activity struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Description     *string        `db:"description" json:"description,omitempty"`
	Category        string         `db:"category" json:"category"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	MaxStudents     int            `db:"max_students" json:"max_students"`
	CurrentEnrolled int            `db:"current_enrolled" json:"current_enrolled"`
	Fee             float64        `db:"fee" json:"fee"`
	IsPaid          bool           `db:"is_paid" json:"is_paid"`
	Status          ActivityStatus `db:"status" json:"status"`
	Schedule        *string        `db:"schedule" json:"schedule,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// SeatsAvailable returns the number of open seats.
func (a Activity) SeatsAvailable() int {
	remaining := a.MaxStudents - a.CurrentEnrolled
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ActivityDetail enriches Activity with owner info and live seat data.
type ActivityDetail struct {
	Activity
	CreatedByName  string `db:"created_by_name" json:"created_by_name"`
	AvailableSeats int    `db:"available_seats" json:"available_seats"`
}

// ActivityFilter provides filters for listing activities.
type ActivityFilter struct {
	Category  string
	Status    ActivityStatus
	CreatedBy string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
