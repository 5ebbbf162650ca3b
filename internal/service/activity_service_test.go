package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type mockActivityRepo struct {
	activities map[string]models.ActivityDetail
	listCalls  int
	created    *models.Activity
	statuses   map[string]models.ActivityStatus
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error) {
	m.listCalls++
	var list []models.ActivityDetail
	for _, a := range m.activities {
		list = append(list, a)
	}
	return list, len(list), nil
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if a, ok := m.activities[id]; ok {
		activity := a.Activity
		return &activity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error) {
	if a, ok := m.activities[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	if m.activities == nil {
		m.activities = make(map[string]models.ActivityDetail)
	}
	if activity.ID == "" {
		activity.ID = "new-activity"
	}
	m.activities[activity.ID] = models.ActivityDetail{Activity: *activity}
	m.created = activity
	return nil
}

func (m *mockActivityRepo) UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error {
	a, ok := m.activities[id]
	if !ok {
		return sql.ErrNoRows
	}
	if m.statuses == nil {
		m.statuses = make(map[string]models.ActivityStatus)
	}
	m.statuses[id] = status
	a.Status = status
	m.activities[id] = a
	return nil
}

type mockCatalogCache struct {
	store       map[string][]byte
	hits        int
	sets        int
	invalidated int
}

func (m *mockCatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.store[key]; ok {
		m.hits++
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockCatalogCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = []byte("cached")
	m.sets++
	return nil
}

func (m *mockCatalogCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated++
	m.store = nil
	return nil
}

func sampleDetail() models.ActivityDetail {
	return models.ActivityDetail{
		Activity: models.Activity{
			ID:          "a1",
			Name:        "Basketball",
			Category:    "Sports",
			MaxStudents: 20,
			Status:      models.ActivityStatusApproved,
		},
		AvailableSeats: 15,
	}
}

func TestActivityServiceListCachesResults(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.ActivityDetail{"a1": sampleDetail()}}
	cache := &mockCatalogCache{}
	svc := NewActivityService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	_, _, err := svc.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, 1, cache.sets)

	_, _, err = svc.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, 1, cache.hits)
}

func TestActivityServiceCreateInvalidatesCatalog(t *testing.T) {
	repo := &mockActivityRepo{}
	cache := &mockCatalogCache{}
	svc := NewActivityService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	detail, err := svc.Create(context.Background(), "t1", CreateActivityRequest{
		Name:        "Robotics Club",
		Category:    "Technology",
		MaxStudents: 15,
		Fee:         200000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusPending, detail.Status)
	assert.True(t, detail.IsPaid)
	assert.Equal(t, 1, cache.invalidated)
}

func TestActivityServiceCreateRejectsBadPayload(t *testing.T) {
	svc := NewActivityService(&mockActivityRepo{}, nil, nil, validator.New(), zap.NewNop(), time.Minute)

	_, err := svc.Create(context.Background(), "t1", CreateActivityRequest{Name: "x", Category: "", MaxStudents: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestActivityServiceUpdateStatus(t *testing.T) {
	repo := &mockActivityRepo{activities: map[string]models.ActivityDetail{"a1": sampleDetail()}}
	cache := &mockCatalogCache{}
	svc := NewActivityService(repo, cache, nil, validator.New(), zap.NewNop(), time.Minute)

	detail, err := svc.UpdateStatus(context.Background(), "a1", UpdateActivityStatusRequest{Status: models.ActivityStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusInactive, detail.Status)
	assert.Equal(t, 1, cache.invalidated)
}

func TestActivityServiceUpdateStatusUnknown(t *testing.T) {
	svc := NewActivityService(&mockActivityRepo{}, nil, nil, validator.New(), zap.NewNop(), time.Minute)

	_, err := svc.UpdateStatus(context.Background(), "missing", UpdateActivityStatusRequest{Status: models.ActivityStatusApproved})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
