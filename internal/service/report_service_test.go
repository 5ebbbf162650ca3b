package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockRosterLister struct {
	enrollments []models.EnrollmentDetail
	listCalls   int
}

func (m *mockRosterLister) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.listCalls++
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(m.enrollments) {
		return nil, len(m.enrollments), nil
	}
	end := start + size
	if end > len(m.enrollments) {
		end = len(m.enrollments)
	}
	return m.enrollments[start:end], len(m.enrollments), nil
}

type mockRosterActivity struct {
	detail *models.ActivityDetail
}

func (m *mockRosterActivity) FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func rosterEnrollments(n int) []models.EnrollmentDetail {
	list := make([]models.EnrollmentDetail, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, models.EnrollmentDetail{
			Enrollment: models.Enrollment{
				ID:         fmt.Sprintf("e%d", i),
				StudentID:  fmt.Sprintf("s%d", i),
				Status:     models.EnrollmentStatusActive,
				EnrolledAt: time.Now().UTC(),
			},
			StudentName:  fmt.Sprintf("Student %d", i),
			StudentEmail: fmt.Sprintf("student%d@school.id", i),
		})
	}
	return list
}

func TestReportServiceRosterIncludesAllPages(t *testing.T) {
	lister := &mockRosterLister{enrollments: rosterEnrollments(250)}
	activities := &mockRosterActivity{detail: &models.ActivityDetail{
		Activity: models.Activity{ID: "a1", Name: "Basketball"},
	}}
	svc := NewReportService(lister, activities, zap.NewNop())

	file, err := svc.ActivityRoster(context.Background(), "a1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.GreaterOrEqual(t, lister.listCalls, 3)

	// Header line plus one line per enrollment.
	assert.Equal(t, 251, bytes.Count(file.Content, []byte("\n")))
	assert.Contains(t, string(file.Content), "Student 249")
}

func TestReportServiceRosterUnknownActivity(t *testing.T) {
	svc := NewReportService(&mockRosterLister{}, &mockRosterActivity{}, zap.NewNop())

	_, err := svc.ActivityRoster(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceRosterRejectsUnknownFormat(t *testing.T) {
	svc := NewReportService(&mockRosterLister{}, &mockRosterActivity{}, zap.NewNop())

	_, err := svc.ActivityRoster(context.Background(), "a1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
