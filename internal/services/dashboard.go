package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pkonline/internal/dto"
	"pkonline/internal/repositories"
)

const (
	statisticsCacheKey = "dashboard:queue_statistics"
	statisticsCacheTTL = 30 * time.Second
)

type DashboardServiceInterface interface {
	QueueStatistics(ctx context.Context) ([]dto.QueueStatisticsDTO, error)
	InvalidateStatistics(ctx context.Context)
}

type DashboardService struct {
	appRepo   repositories.ApplicationRepositoryInterface
	cacheRepo repositories.CacheRepositoryInterface
	logger    *zap.Logger
}

func NewDashboardService(
	appRepo repositories.ApplicationRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	logger *zap.Logger,
) DashboardServiceInterface {
	return &DashboardService{
		appRepo:   appRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
	}
}

// QueueStatistics отдаёт сводку по очередям. Сводка дорогая при больших
// таблицах, поэтому результат недолго живёт в кеше.
func (s *DashboardService) QueueStatistics(ctx context.Context) ([]dto.QueueStatisticsDTO, error) {
	if cached, err := s.cacheRepo.Get(ctx, statisticsCacheKey); err == nil && cached != "" {
		var stats []dto.QueueStatisticsDTO
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return stats, nil
		}
	}

	stats, err := s.appRepo.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := s.cacheRepo.Set(ctx, statisticsCacheKey, payload, statisticsCacheTTL); err != nil {
			s.logger.Warn("не удалось закешировать статистику очередей", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *DashboardService) InvalidateStatistics(ctx context.Context) {
	if err := s.cacheRepo.Del(ctx, statisticsCacheKey); err != nil {
		s.logger.Warn("не удалось сбросить кеш статистики", zap.Error(err))
	}
}
