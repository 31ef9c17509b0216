package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// BookingInput is a reservation request.
type BookingInput struct {
	RoomID       uuid.UUID `json:"room_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Participants int       `json:"participants"`
}

// Validate checks the window and participant count.
func (in BookingInput) Validate() error {
	if in.RoomID == uuid.Nil {
		return domain.NewValidationError("room_id is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.NewValidationError("end_time must be after start_time")
	}
	if in.Participants < 0 {
		return domain.NewValidationError("participants cannot be negative")
	}
	return nil
}

// BookingUseCase books rooms and tells live viewers about it.
type BookingUseCase struct {
	bookings domain.BookingRepository
	cache    domain.Cache
	effects  *SideEffectQueue
	logger   *slog.Logger
	now      func() time.Time
}

func NewBookingUseCase(bookings domain.BookingRepository, cache domain.Cache, effects *SideEffectQueue, logger *slog.Logger) *BookingUseCase {
	return &BookingUseCase{
		bookings: bookings,
		cache:    cache,
		effects:  effects,
		logger:   logger,
		now:      time.Now,
	}
}

// Book reserves a room of the caller's tenant for the requested window.
func (uc *BookingUseCase) Book(ctx context.Context, p domain.Principal, in BookingInput) (*domain.Booking, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	participants := in.Participants
	if participants == 0 {
		participants = 1
	}

	b := &domain.Booking{
		ID:           uuid.New(),
		RoomID:       in.RoomID,
		UserID:       p.UserID,
		StartTime:    in.StartTime.UTC().Truncate(time.Microsecond),
		EndTime:      in.EndTime.UTC().Truncate(time.Microsecond),
		Participants: participants,
	}
	floorPlanID, err := uc.bookings.CreateBooking(ctx, p.TenantID, b)
	if err != nil {
		return nil, err
	}

	uc.cache.Delete(ctx, domain.FloorPlanStatusCacheKey(floorPlanID))
	uc.effects.Dispatch(ctx, SideEffect{
		FloorPlanID: floorPlanID,
		Event:       domain.LiveEvent{FloorPlanID: floorPlanID, TenantID: p.TenantID, Event: domain.EventBookingChanged},
	})
	uc.logger.Info("room booked", "booking_id", b.ID, "room_id", b.RoomID, "floor_plan_id", floorPlanID)
	return b, nil
}

// Mine lists the caller's bookings that have not ended yet.
func (uc *BookingUseCase) Mine(ctx context.Context, p domain.Principal) ([]domain.BookingListing, error) {
	return uc.bookings.UpcomingBookings(ctx, p.TenantID, p.UserID, uc.now().UTC())
}

// Upcoming lists every booking of the caller's tenant that has not ended yet.
// It is served behind the admin check.
func (uc *BookingUseCase) Upcoming(ctx context.Context, p domain.Principal) ([]domain.BookingListing, error) {
	return uc.bookings.UpcomingBookings(ctx, p.TenantID, uuid.Nil, uc.now().UTC())
}
