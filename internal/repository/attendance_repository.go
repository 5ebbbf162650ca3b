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

// AttendanceRepository persists per-session attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Mark inserts the session record, or overwrites the earlier one when the
// session date was already marked for the enrollment.
func (r *AttendanceRepository) Mark(ctx context.Context, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, enrollment_id, session_date, status, duration_hours, remarks, marked_by, created_at)
        VALUES (:id, :enrollment_id, :session_date, :status, :duration_hours, :remarks, :marked_by, :created_at)
        ON CONFLICT (enrollment_id, session_date) DO UPDATE
        SET status = EXCLUDED.status, duration_hours = EXCLUDED.duration_hours,
            remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by`
	if _, err := r.db.NamedExecContext(ctx, query, att); err != nil {
		return fmt.Errorf("mark attendance: %w", err)
	}
	return nil
}

// List returns attendance records filtered by the provided criteria.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	base := `FROM attendance att
JOIN enrollments e ON e.id = att.enrollment_id
JOIN users s ON s.id = e.student_id
JOIN activities a ON a.id = e.activity_id
LEFT JOIN users marker ON marker.id = att.marked_by`
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("att.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.ActivityID != "" {
		conditions = append(conditions, fmt.Sprintf("e.activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("att.session_date = $%d", len(args)+1))
		args = append(args, filter.Date)
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
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT att.id, att.enrollment_id, att.session_date, att.status, att.duration_hours,
        att.remarks, att.marked_by, att.created_at,
        e.student_id, s.full_name AS student_name, a.name AS activity_name,
        marker.full_name AS marked_by_name
        %s ORDER BY att.session_date DESC, att.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var records []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// Summary aggregates the session history of one enrollment.
func (r *AttendanceRepository) Summary(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error) {
	const query = `SELECT
        COUNT(*) AS total_sessions,
        COUNT(*) FILTER (WHERE status = 'PRESENT') AS present_count,
        COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent_count,
        COUNT(*) FILTER (WHERE status = 'LATE') AS late_count,
        COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused_count,
        COALESCE(SUM(duration_hours), 0) AS total_hours,
        COALESCE(ROUND(COUNT(*) FILTER (WHERE status = 'PRESENT') * 100.0 / NULLIF(COUNT(*), 0), 2), 0) AS attendance_percentage
        FROM attendance WHERE enrollment_id = $1`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return &summary, nil
}
