package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
)

func TestAttendanceRepositoryMark(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	marker := "tch-1"
	att := &models.Attendance{
		EnrollmentID: "enr-1",
		SessionDate:  time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Status:       models.AttendancePresent,
		MarkedBy:     &marker,
	}
	err := repo.Mark(context.Background(), att)
	require.NoError(t, err)
	assert.NotEmpty(t, att.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE enrollment_id = $1")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"total_sessions", "present_count", "absent_count", "late_count", "excused_count", "total_hours", "attendance_percentage",
		}).AddRow(10, 8, 1, 1, 0, 15.0, 80.0))

	summary, err := repo.Summary(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalSessions)
	assert.Equal(t, 8, summary.PresentCount)
	assert.Equal(t, 80.0, summary.AttendancePercentage)
	require.NoError(t, mock.ExpectationsWereMet())
}
