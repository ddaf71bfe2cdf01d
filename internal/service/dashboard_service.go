package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/dto"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:metrics"

type dashboardRepository interface {
	Counters(ctx context.Context) (*dto.DashboardMetrics, error)
	StateDistribution(ctx context.Context) ([]dto.ProgramStateCount, error)
	Occupancy(ctx context.Context) ([]dto.ProgramOccupancyEntry, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService assembles the landing-page metrics with a short-lived
// cache in front of the aggregate queries.
type DashboardService struct {
	repo     dashboardRepository
	cache    dashboardCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(repo dashboardRepository, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Metrics returns the aggregated dashboard payload, served from cache when
// fresh.
func (s *DashboardService) Metrics(ctx context.Context) (*dto.DashboardMetrics, error) {
	if s.cache != nil {
		var cached dto.DashboardMetrics
		err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	metrics, err := s.repo.Counters(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counters")
	}
	distribution, err := s.repo.StateDistribution(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program distribution")
	}
	occupancy, err := s.repo.Occupancy(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program occupancy")
	}
	metrics.Distribucion = distribution
	metrics.Ocupacion = occupancy

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, metrics, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return metrics, nil
}

// Invalidate drops the cached payload so the next read recomputes it.
// Called after writes that move the dashboard numbers.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
