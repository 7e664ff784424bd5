package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/dto"
	"github.com/noah-isme/learnpath-api/internal/models"
	"github.com/noah-isme/learnpath-api/internal/repository"
)

type dashboardRepository interface {
	CountAdmins(ctx context.Context) (int, error)
	StudentsByStack(ctx context.Context) ([]repository.StackCount, error)
	UpcomingClasses(ctx context.Context, from time.Time, limit int) ([]models.LiveClass, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	UpcomingLimit int
	Location      *time.Location
}

// DashboardService composes the admin landing page summary.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	config DashboardServiceConfig
	now    func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, config DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.UpcomingLimit <= 0 {
		config.UpcomingLimit = 5
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, config: config, now: time.Now}
}

// Summary returns the dashboard payload and whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	summary, hit, err := cached(ctx, s.cache, cacheKeyDashboard, s.config.CacheTTL, s.build)
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

func (s *DashboardService) build(ctx context.Context) (dto.DashboardSummary, error) {
	var out dto.DashboardSummary

	admins, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return out, internalError(err, "failed to count admins")
	}

	counts, err := s.repo.StudentsByStack(ctx)
	if err != nil {
		return out, internalError(err, "failed to count students")
	}
	byStack := make(map[string]int, len(models.Stacks))
	for _, stack := range models.Stacks {
		byStack[string(stack)] = 0
	}
	total := 0
	for _, c := range counts {
		byStack[string(c.Stack)] = c.Count
		total += c.Count
	}

	classes, err := s.repo.UpcomingClasses(ctx, s.now(), s.config.UpcomingLimit)
	if err != nil {
		return out, internalError(err, "failed to load upcoming classes")
	}
	upcoming := make([]dto.LiveClassResponse, 0, len(classes))
	for _, class := range classes {
		upcoming = append(upcoming, dto.NewLiveClassResponse(class, s.config.Location))
	}

	out = dto.DashboardSummary{
		TotalAdmins:     admins,
		Students:        dto.StudentStats{Total: total, ByStack: byStack},
		UpcomingClasses: upcoming,
	}
	return out, nil
}
