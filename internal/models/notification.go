package models

import "time"

// Notification types used by lifecycle side effects.
const (
	NotificationTypeEnrollment  = "enrollment"
	NotificationTypePayment     = "payment"
	NotificationTypeReminder    = "payment_reminder"
	NotificationTypePerformance = "performance"
)

// Notification is a write-once message addressed to a single user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	RelatedID *string   `db:"related_id" json:"related_id,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
