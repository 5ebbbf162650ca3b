package models

import "time"

// PaymentStatus represents the settlement state of a payment.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Payment is a due or settled fee tied to one enrollment.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	EnrollmentID  string        `db:"enrollment_id" json:"enrollment_id"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod *string       `db:"payment_method" json:"payment_method,omitempty"`
	TransactionID *string       `db:"transaction_id" json:"transaction_id,omitempty"`
	ReceiptNumber *string       `db:"receipt_number" json:"receipt_number,omitempty"`
	DueDate       *time.Time    `db:"due_date" json:"due_date,omitempty"`
	PaymentDate   *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// PaymentDetail enriches Payment with student and activity context.
type PaymentDetail struct {
	Payment
	StudentID    string `db:"student_id" json:"student_id"`
	StudentName  string `db:"student_name" json:"student_name"`
	ActivityName string `db:"activity_name" json:"activity_name"`
	Category     string `db:"category" json:"category"`
}

// PaymentFilter provides filters for listing payments.
type PaymentFilter struct {
	StudentID string
	Status    PaymentStatus
	Page      int
	PageSize  int
}
