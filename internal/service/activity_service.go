package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-ekskul-api/internal/models"
	appErrors "github.com/noah-isme/sma-ekskul-api/pkg/errors"
)

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error)
	Create(ctx context.Context, activity *models.Activity) error
	UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCachePrefix = "activities:list:"

// CreateActivityRequest describes an activity creation payload.
type CreateActivityRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=150"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category" validate:"required"`
	MaxStudents int     `json:"max_students" validate:"required,min=1"`
	Fee         float64 `json:"fee" validate:"min=0"`
	Schedule    *string `json:"schedule,omitempty"`
}

// UpdateActivityStatusRequest moves an activity through its approval flow.
type UpdateActivityStatusRequest struct {
	Status models.ActivityStatus `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED ACTIVE INACTIVE"`
}

type cachedCatalog struct {
	Activities []models.ActivityDetail `json:"activities"`
	Total      int                     `json:"total"`
}

// ActivityService manages the activity catalog. List reads go through Redis
// with a short TTL; mutations invalidate the cached pages.
type ActivityService struct {
	repo      activityRepository
	cache     catalogCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepository, cache catalogCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ActivityService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// List returns catalog entries with pagination metadata.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := s.catalogKey(filter)
	if s.cache != nil {
		start := time.Now()
		var cached cachedCatalog
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}
			return cached.Activities, pagination, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache lookup failed", zap.Error(err))
		}
	}

	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, cachedCatalog{Activities: activities, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache store failed", zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return activities, pagination, nil
}

// Get returns one activity with owner and seat info.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.ActivityDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return detail, nil
}

// Create registers a new activity listing awaiting approval.
func (s *ActivityService) Create(ctx context.Context, creatorID string, req CreateActivityRequest) (*models.ActivityDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	activity := &models.Activity{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CreatedBy:   creatorID,
		MaxStudents: req.MaxStudents,
		Fee:         req.Fee,
		IsPaid:      req.Fee > 0,
		Status:      models.ActivityStatusPending,
		Schedule:    req.Schedule,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("activity created", zap.String("activity_id", activity.ID), zap.String("created_by", creatorID))

	detail, err := s.repo.FindDetailByID(ctx, activity.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity detail")
	}
	return detail, nil
}

// UpdateStatus moves an activity through its approval lifecycle.
func (s *ActivityService) UpdateStatus(ctx context.Context, id string, req UpdateActivityStatusRequest) (*models.ActivityDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity status")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("activity status updated", zap.String("activity_id", id), zap.String("status", string(req.Status)))

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity detail")
	}
	return detail, nil
}

func (s *ActivityService) catalogKey(filter models.ActivityFilter) string {
	return fmt.Sprintf("%s%s:%s:%s:%s:%d:%d:%s:%s",
		catalogCachePrefix, filter.Category, filter.Status, filter.CreatedBy, filter.Search,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

func (s *ActivityService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCachePrefix+"*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
