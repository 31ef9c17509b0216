package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// FloorPlanQueryUseCase serves floor plan reads through the cache.
type FloorPlanQueryUseCase struct {
	repo         domain.FloorPlanRepository
	cache        domain.Cache
	floorPlanTTL time.Duration
	listTTL      time.Duration
	logger       *slog.Logger
}

func NewFloorPlanQueryUseCase(repo domain.FloorPlanRepository, cache domain.Cache, floorPlanTTL, listTTL time.Duration, logger *slog.Logger) *FloorPlanQueryUseCase {
	return &FloorPlanQueryUseCase{
		repo:         repo,
		cache:        cache,
		floorPlanTTL: floorPlanTTL,
		listTTL:      listTTL,
		logger:       logger,
	}
}

// Get returns one floor plan with its rooms.
func (uc *FloorPlanQueryUseCase) Get(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error) {
	key := domain.FloorPlanCacheKey(floorPlanID)

	var cached domain.FloorPlan
	if uc.cache.Get(ctx, key, &cached) {
		if cached.TenantID != p.TenantID {
			return nil, domain.ErrNotFound
		}
		return &cached, nil
	}

	fp, err := uc.repo.GetFloorPlan(ctx, p.TenantID, floorPlanID)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(ctx, key, fp, uc.floorPlanTTL)
	return fp, nil
}

// List returns the caller's floor plans ordered by name.
func (uc *FloorPlanQueryUseCase) List(ctx context.Context, p domain.Principal) ([]domain.FloorPlan, error) {
	key := domain.FloorPlanListCacheKey(p.TenantID)

	var cached []domain.FloorPlan
	if uc.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	plans, err := uc.repo.ListFloorPlans(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(ctx, key, plans, uc.listTTL)
	return plans, nil
}

// Versions returns the version history of a floor plan, newest first.
func (uc *FloorPlanQueryUseCase) Versions(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) ([]domain.VersionSummary, error) {
	return uc.repo.ListVersions(ctx, p.TenantID, floorPlanID)
}
