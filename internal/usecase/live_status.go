package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// StatusRedactor masks personal data in a status view before it reaches a non-admin viewer.
type StatusRedactor interface {
	RedactStatus(status *domain.FloorPlanStatus) (int, error)
}

// LiveStatusUseCase assembles the current occupancy of a floor plan.
type LiveStatusUseCase struct {
	repo     domain.FloorPlanRepository
	bookings domain.BookingRepository
	cache    domain.Cache
	redactor StatusRedactor
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewLiveStatusUseCase creates the live status assembler. redactor may be nil.
func NewLiveStatusUseCase(repo domain.FloorPlanRepository, bookings domain.BookingRepository, cache domain.Cache, redactor StatusRedactor, ttl time.Duration, logger *slog.Logger) *LiveStatusUseCase {
	return &LiveStatusUseCase{
		repo:     repo,
		bookings: bookings,
		cache:    cache,
		redactor: redactor,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns every room of the floor plan marked Booked or Available at the
// current instant. The shared cache holds the unredacted view.
func (uc *LiveStatusUseCase) Get(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlanStatus, error) {
	key := domain.FloorPlanStatusCacheKey(floorPlanID)

	status := &domain.FloorPlanStatus{}
	if uc.cache.Get(ctx, key, status) {
		if status.TenantID != p.TenantID {
			return nil, domain.ErrNotFound
		}
	} else {
		var err error
		status, err = uc.assemble(ctx, p.TenantID, floorPlanID)
		if err != nil {
			return nil, err
		}
		uc.cache.Set(ctx, key, status, uc.ttl)
	}

	if !p.IsAdmin() && uc.redactor != nil {
		if _, err := uc.redactor.RedactStatus(status); err != nil {
			return nil, fmt.Errorf("failed to redact live status: %w", err)
		}
	}
	return status, nil
}

func (uc *LiveStatusUseCase) assemble(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*domain.FloorPlanStatus, error) {
	fp, err := uc.repo.GetFloorPlan(ctx, tenantID, floorPlanID)
	if err != nil {
		return nil, err
	}

	active, err := uc.bookings.ActiveBookings(ctx, fp.RoomIDs(), uc.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load active bookings: %w", err)
	}
	byRoom := make(map[uuid.UUID]domain.ActiveBooking, len(active))
	for _, b := range active {
		// Keep the booking ending last if windows overlap.
		if prev, ok := byRoom[b.RoomID]; !ok || b.EndTime.After(prev.EndTime) {
			byRoom[b.RoomID] = b
		}
	}

	status := &domain.FloorPlanStatus{
		ID:               fp.ID,
		TenantID:         fp.TenantID,
		Name:             fp.Name,
		Width:            fp.Width,
		Height:           fp.Height,
		LastModifiedAt:   fp.LastModifiedAt,
		CurrentVersionID: fp.CurrentVersionID,
		Rooms:            make([]domain.RoomStatus, len(fp.Rooms)),
	}
	for i, room := range fp.Rooms {
		rs := domain.RoomStatus{Room: room, CurrentStatus: domain.StatusAvailable}
		if b, ok := byRoom[room.ID]; ok {
			rs.CurrentStatus = domain.StatusBooked
			rs.CurrentBooking = &domain.BookingDetails{
				UserID:    b.UserID.String(),
				UserEmail: b.UserEmail,
				EndTime:   b.EndTime,
			}
		}
		status.Rooms[i] = rs
	}
	return status, nil
}
