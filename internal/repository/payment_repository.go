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

// PaymentRepository handles persistence of payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// insertPayment writes a payment row inside an existing transaction. Used by
// enrollment creation so the due record commits or rolls back with it.
func insertPayment(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if payment.PaymentStatus == "" {
		payment.PaymentStatus = models.PaymentStatusPending
	}
	const query = `INSERT INTO payments (id, enrollment_id, amount, payment_status, payment_method, transaction_id, receipt_number, due_date, payment_date, created_at)
        VALUES (:id, :enrollment_id, :amount, :payment_status, :payment_method, :transaction_id, :receipt_number, :due_date, :payment_date, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// List returns payments filtered by the provided criteria.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	base := `FROM payments p
LEFT JOIN enrollments e ON e.id = p.enrollment_id
LEFT JOIN users s ON s.id = e.student_id
LEFT JOIN activities a ON a.id = e.activity_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("p.payment_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.enrollment_id, p.amount, p.payment_status, p.payment_method,
        p.transaction_id, p.receipt_number, p.due_date, p.payment_date, p.created_at,
        e.student_id, s.full_name AS student_name, a.name AS activity_name, a.category
        %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByEnrollment returns the payment attached to an enrollment.
func (r *PaymentRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error) {
	const query = `SELECT id, enrollment_id, amount, payment_status, payment_method, transaction_id, receipt_number, due_date, payment_date, created_at
        FROM payments WHERE enrollment_id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, enrollmentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RecordPayment marks the pending due for an enrollment as paid and emits the
// receipt notification in the same transaction.
type RecordPayment struct {
	EnrollmentID  string
	Method        string
	TransactionID *string
	ReceiptNumber string
}

// MarkPaid settles the pending payment for an enrollment. Returns the updated
// payment; sql.ErrNoRows when no pending due exists.
func (r *PaymentRepository) MarkPaid(ctx context.Context, rec RecordPayment, notification *models.Notification) (*models.Payment, error) {
	var paid models.Payment

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var payment models.Payment
		err := tx.GetContext(ctx, &payment,
			`SELECT id, enrollment_id, amount, payment_status, payment_method, transaction_id, receipt_number, due_date, payment_date, created_at
             FROM payments WHERE enrollment_id = $1 AND payment_status = $2 FOR UPDATE`,
			rec.EnrollmentID, models.PaymentStatusPending)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE payments SET payment_status = $2, payment_method = $3, transaction_id = $4, receipt_number = $5, payment_date = $6
             WHERE id = $1`,
			payment.ID, models.PaymentStatusPaid, rec.Method, rec.TransactionID, rec.ReceiptNumber, now)
		if err != nil {
			return fmt.Errorf("settle payment: %w", err)
		}

		if notification != nil {
			notification.RelatedID = &payment.ID
			if err := insertNotification(ctx, tx, notification); err != nil {
				return err
			}
		}

		paid = payment
		paid.PaymentStatus = models.PaymentStatusPaid
		paid.PaymentMethod = &rec.Method
		paid.TransactionID = rec.TransactionID
		paid.ReceiptNumber = &rec.ReceiptNumber
		paid.PaymentDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &paid, nil
}

// ListByStudent returns a student's payments with activity context.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.enrollment_id, p.amount, p.payment_status, p.payment_method,
        p.transaction_id, p.receipt_number, p.due_date, p.payment_date, p.created_at,
        e.student_id, s.full_name AS student_name, a.name AS activity_name, a.category
        FROM payments p
        LEFT JOIN enrollments e ON e.id = p.enrollment_id
        LEFT JOIN users s ON s.id = e.student_id
        LEFT JOIN activities a ON a.id = e.activity_id
        WHERE e.student_id = $1
        ORDER BY p.created_at DESC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// ListDueSoon returns pending payments whose due date falls before the cutoff,
// for the reminder sweep.
func (r *PaymentRepository) ListDueSoon(ctx context.Context, cutoff time.Time) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.enrollment_id, p.amount, p.payment_status, p.payment_method,
        p.transaction_id, p.receipt_number, p.due_date, p.payment_date, p.created_at,
        e.student_id, s.full_name AS student_name, a.name AS activity_name, a.category
        FROM payments p
        JOIN enrollments e ON e.id = p.enrollment_id
        JOIN users s ON s.id = e.student_id
        JOIN activities a ON a.id = e.activity_id
        WHERE p.payment_status = $1 AND p.due_date IS NOT NULL AND p.due_date <= $2
          AND e.status NOT IN ($3, $4)
        ORDER BY p.due_date ASC`
	var payments []models.PaymentDetail
	err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusPending, cutoff,
		models.EnrollmentStatusDropped, models.EnrollmentStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("list due payments: %w", err)
	}
	return payments, nil
}
