package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
)

func TestPerformanceRepositoryCreateWritesNotification(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO performance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := &models.Performance{
		EnrollmentID:   "enr-1",
		Score:          85,
		EvaluationDate: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
	notification := &models.Notification{
		UserID: "stu-1",
		Title:  "Performance Evaluation",
		Type:   models.NotificationTypePerformance,
	}
	err := repo.Create(context.Background(), record, notification)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	require.NotNil(t, notification.RelatedID)
	assert.Equal(t, record.ID, *notification.RelatedID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformanceRepositoryCreateRollsBackOnNotificationFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPerformanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO performance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	record := &models.Performance{
		EnrollmentID:   "enr-1",
		Score:          85,
		EvaluationDate: time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}
	err := repo.Create(context.Background(), record, &models.Notification{UserID: "stu-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
