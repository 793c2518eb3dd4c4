package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
)

type dashboardCountsProvider interface {
	DashboardCounts(ctx context.Context, dayStart, dayEnd time.Time) (models.GateDashboardCounts, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the front-desk KPI tiles. Counts for "today" use
// the server's local day boundaries.
type DashboardService struct {
	counts dashboardCountsProvider
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(counts dashboardCountsProvider, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		counts: counts,
		cache:  cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Gate returns the KPI tiles and indicates cache utilisation.
func (s *DashboardService) Gate(ctx context.Context) (*dto.GateDashboardResponse, bool, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	cacheKey := fmt.Sprintf("dash:gate:%s", dayStart.Format("2006-01-02"))
	if s.cache != nil {
		var cached dto.GateDashboardResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	counts, err := s.counts.DashboardCounts(ctx, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		return nil, false, storageError(err, "failed to compute gate dashboard")
	}

	summary := &dto.GateDashboardResponse{
		IssuedToday:    counts.IssuedToday,
		CurrentlyOut:   counts.CurrentlyOut,
		ReturnedToday:  counts.ReturnedToday,
		CancelledToday: counts.CancelledToday,
		VisitorsOnSite: counts.VisitorsOnSite,
		GeneratedAt:    now.UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// InvalidateGate drops cached tiles after a mutation so the next read is fresh.
func (s *DashboardService) InvalidateGate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dash:gate:*"); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.Error(err))
	}
}
