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

// PerformanceRepository persists evaluation records.
type PerformanceRepository struct {
	db *sqlx.DB
}

// NewPerformanceRepository constructs the repository.
func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

// Create writes the evaluation and the student notification in one
// transaction.
func (r *PerformanceRepository) Create(ctx context.Context, p *models.Performance, notification *models.Notification) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO performance (id, enrollment_id, score, skill_level, evaluation_date, remarks, evaluated_by, created_at)
            VALUES (:id, :enrollment_id, :score, :skill_level, :evaluation_date, :remarks, :evaluated_by, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, p); err != nil {
			return fmt.Errorf("insert performance: %w", err)
		}

		if notification != nil {
			notification.RelatedID = &p.ID
			if err := insertNotification(ctx, tx, notification); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns evaluations filtered by the provided criteria.
func (r *PerformanceRepository) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceDetail, int, error) {
	base := `FROM performance p
JOIN enrollments e ON e.id = p.enrollment_id
JOIN users s ON s.id = e.student_id
JOIN activities a ON a.id = e.activity_id
LEFT JOIN users evaluator ON evaluator.id = p.evaluated_by`
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.enrollment_id = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT p.id, p.enrollment_id, p.score, p.skill_level, p.evaluation_date,
        p.remarks, p.evaluated_by, p.created_at,
        e.student_id, s.full_name AS student_name, a.name AS activity_name, a.category,
        evaluator.full_name AS evaluated_by_name
        %s ORDER BY p.evaluation_date DESC, p.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var records []models.PerformanceDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list performance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count performance: %w", err)
	}
	return records, total, nil
}
