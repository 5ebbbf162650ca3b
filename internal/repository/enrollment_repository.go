package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index on live (student_id, activity_id) pairs.
const uniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments and owns the
// seat-ledger transactions around them.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users s ON s.id = e.student_id
LEFT JOIN activities a ON a.id = e.activity_id
LEFT JOIN users approver ON approver.id = e.approved_by
LEFT JOIN payments p ON p.enrollment_id = e.id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ActivityID != "" {
		conditions = append(conditions, fmt.Sprintf("e.activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.activity_id, e.status, e.enrolled_at,
        e.approved_by, e.approved_at, e.reason_for_rejection, e.notes,
        s.full_name AS student_name, s.email AS student_email,
        a.name AS activity_name, a.category, a.fee,
        approver.full_name AS approved_by_name,
        p.payment_status, p.amount AS payment_amount
        %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, activity_id, status, enrolled_at, approved_by, approved_at, reason_for_rejection, notes
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.activity_id, e.status, e.enrolled_at,
        e.approved_by, e.approved_at, e.reason_for_rejection, e.notes,
        s.full_name AS student_name, s.email AS student_email,
        a.name AS activity_name, a.category, a.fee,
        approver.full_name AS approved_by_name,
        p.payment_status, p.amount AS payment_amount
        FROM enrollments e
        LEFT JOIN users s ON s.id = e.student_id
        LEFT JOIN activities a ON a.id = e.activity_id
        LEFT JOIN users approver ON approver.id = e.approved_by
        LEFT JOIN payments p ON p.enrollment_id = e.id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreatePending registers a pending enrollment together with its side-effect
// records in one transaction. The activity row is locked first so the seat
// check cannot race a concurrent approval, and the live-pair uniqueness is
// re-verified under the same lock.
func (r *EnrollmentRepository) CreatePending(ctx context.Context, enrollment *models.Enrollment, payment *models.Payment, notification *models.Notification) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusPending

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		activity, err := lockActivity(ctx, tx, enrollment.ActivityID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrActivityUnavailable
			}
			return err
		}
		if !activity.Status.Enrollable() {
			return ErrActivityUnavailable
		}
		if activity.CurrentEnrolled >= activity.MaxStudents {
			return ErrActivityFull
		}

		var exists int
		err = tx.GetContext(ctx, &exists,
			`SELECT 1 FROM enrollments WHERE student_id = $1 AND activity_id = $2 AND status NOT IN ($3, $4) LIMIT 1`,
			enrollment.StudentID, enrollment.ActivityID, models.EnrollmentStatusRejected, models.EnrollmentStatusDropped)
		if err == nil {
			return ErrDuplicateEnrollment
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check duplicate enrollment: %w", err)
		}

		const insert = `INSERT INTO enrollments (id, student_id, activity_id, status, enrolled_at)
            VALUES (:id, :student_id, :activity_id, :status, :enrolled_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, insert, enrollment); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrDuplicateEnrollment
			}
			return fmt.Errorf("insert enrollment: %w", err)
		}

		if payment != nil {
			payment.EnrollmentID = enrollment.ID
			if err := insertPayment(ctx, tx, payment); err != nil {
				return err
			}
		}
		if notification != nil {
			notification.RelatedID = &enrollment.ID
			if err := insertNotification(ctx, tx, notification); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

// StatusUpdate carries an approve/reject/progress decision.
type StatusUpdate struct {
	EnrollmentID       string
	NewStatus          models.EnrollmentStatus
	DecidedBy          string
	ReasonForRejection *string
	Notes              *string
}

// UpdateStatus applies a lifecycle transition atomically. When the transition
// enters or leaves the counted set {APPROVED, ACTIVE} the activity ledger is
// adjusted in the same transaction, under the activity row lock.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, upd StatusUpdate, notification *models.Notification) (*models.Enrollment, error) {
	var updated models.Enrollment

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var enrollment models.Enrollment
		err := tx.GetContext(ctx, &enrollment,
			`SELECT id, student_id, activity_id, status, enrolled_at, approved_by, approved_at, reason_for_rejection, notes
             FROM enrollments WHERE id = $1 FOR UPDATE`, upd.EnrollmentID)
		if err != nil {
			return err
		}

		if !enrollment.Status.CanTransition(upd.NewStatus) {
			return ErrInvalidTransition
		}

		activity, err := lockActivity(ctx, tx, enrollment.ActivityID)
		if err != nil {
			return fmt.Errorf("lock activity: %w", err)
		}

		delta := seatDelta(enrollment.Status, upd.NewStatus)
		if delta > 0 && activity.CurrentEnrolled+delta > activity.MaxStudents {
			return ErrActivityFull
		}
		if delta != 0 {
			if err := adjustSeats(ctx, tx, activity.ID, delta); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE enrollments SET status = $2, approved_by = $3, approved_at = $4, reason_for_rejection = $5, notes = $6
             WHERE id = $1`,
			enrollment.ID, upd.NewStatus, upd.DecidedBy, now, upd.ReasonForRejection, upd.Notes)
		if err != nil {
			return fmt.Errorf("update enrollment status: %w", err)
		}

		if notification != nil {
			notification.UserID = enrollment.StudentID
			notification.RelatedID = &enrollment.ID
			if err := insertNotification(ctx, tx, notification); err != nil {
				return err
			}
		}

		updated = enrollment
		updated.Status = upd.NewStatus
		updated.ApprovedBy = &upd.DecidedBy
		updated.ApprovedAt = &now
		updated.ReasonForRejection = upd.ReasonForRejection
		updated.Notes = upd.Notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel drops a student's own enrollment. Completed enrollments are
// terminal. A seat is released when the enrollment occupied one.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id, studentID string) (*models.Enrollment, error) {
	var cancelled models.Enrollment

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var enrollment models.Enrollment
		err := tx.GetContext(ctx, &enrollment,
			`SELECT id, student_id, activity_id, status, enrolled_at, approved_by, approved_at, reason_for_rejection, notes
             FROM enrollments WHERE id = $1 AND student_id = $2 FOR UPDATE`, id, studentID)
		if err != nil {
			return err
		}

		if enrollment.Status == models.EnrollmentStatusCompleted {
			return ErrInvalidTransition
		}
		if enrollment.Status == models.EnrollmentStatusDropped || enrollment.Status == models.EnrollmentStatusRejected {
			return sql.ErrNoRows
		}

		if enrollment.Status.Counted() {
			if _, err := lockActivity(ctx, tx, enrollment.ActivityID); err != nil {
				return fmt.Errorf("lock activity: %w", err)
			}
			if err := adjustSeats(ctx, tx, enrollment.ActivityID, -1); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET status = $2 WHERE id = $1`, id, models.EnrollmentStatusDropped); err != nil {
			return fmt.Errorf("drop enrollment: %w", err)
		}

		cancelled = enrollment
		cancelled.Status = models.EnrollmentStatusDropped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// Summary aggregates a student's enrollments and related dues.
func (r *EnrollmentRepository) Summary(ctx context.Context, studentID string) (*models.EnrollmentSummary, error) {
	const query = `SELECT
        COUNT(*) AS total_enrollments,
        COUNT(*) FILTER (WHERE e.status = 'PENDING') AS pending_enrollments,
        COUNT(*) FILTER (WHERE e.status = 'APPROVED') AS approved_enrollments,
        COUNT(*) FILTER (WHERE e.status = 'ACTIVE') AS active_enrollments,
        COUNT(*) FILTER (WHERE e.status = 'COMPLETED') AS completed_enrollments,
        COALESCE(SUM(p.amount) FILTER (WHERE p.payment_status = 'PAID'), 0) AS total_paid,
        COALESCE(SUM(p.amount) FILTER (WHERE p.payment_status = 'PENDING'), 0) AS pending_payments
        FROM enrollments e
        LEFT JOIN payments p ON p.enrollment_id = e.id
        WHERE e.student_id = $1`
	var summary models.EnrollmentSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID); err != nil {
		return nil, fmt.Errorf("enrollment summary: %w", err)
	}
	return &summary, nil
}

// lockActivity loads the activity row FOR UPDATE inside tx.
func lockActivity(ctx context.Context, tx *sqlx.Tx, activityID string) (*models.Activity, error) {
	const query = `SELECT id, name, description, category, created_by, max_students, current_enrolled, fee, is_paid, status, schedule, created_at, updated_at
        FROM activities WHERE id = $1 FOR UPDATE`
	var activity models.Activity
	if err := tx.GetContext(ctx, &activity, query, activityID); err != nil {
		return nil, err
	}
	return &activity, nil
}

// adjustSeats shifts current_enrolled by delta. The CHECK constraint on the
// column is the final guard against drift.
func adjustSeats(ctx context.Context, tx *sqlx.Tx, activityID string, delta int) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE activities SET current_enrolled = current_enrolled + $2, updated_at = NOW() WHERE id = $1`,
		activityID, delta); err != nil {
		return fmt.Errorf("adjust activity seats: %w", err)
	}
	return nil
}

// seatDelta returns the ledger adjustment for a transition.
func seatDelta(from, to models.EnrollmentStatus) int {
	switch {
	case !from.Counted() && to.Counted():
		return 1
	case from.Counted() && !to.Counted():
		return -1
	default:
		return 0
	}
}
