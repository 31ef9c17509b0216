package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FloorPlanRepository is the transactional system of record for floor plans,
// rooms and versions. Every read is scoped to a tenant.
type FloorPlanRepository interface {
	// GetFloorPlan loads a floor plan with its rooms. It returns ErrNotFound for
	// unknown ids and for plans owned by another tenant.
	GetFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*FloorPlan, error)

	// ListFloorPlans returns every floor plan of a tenant ordered by name.
	ListFloorPlans(ctx context.Context, tenantID uuid.UUID) ([]FloorPlan, error)

	// ListVersions returns the version history of a floor plan, newest first.
	ListVersions(ctx context.Context, tenantID, floorPlanID uuid.UUID) ([]VersionSummary, error)

	// CommitterRole returns the role of the user who committed a version,
	// or an empty role when it cannot be determined.
	CommitterRole(ctx context.Context, versionID uuid.UUID) (Role, error)

	// InTx runs fn inside one transaction, committing when fn returns nil.
	// Failures that may succeed on a second attempt are wrapped in ErrTransientStore.
	InTx(ctx context.Context, fn func(tx FloorPlanTx) error) error
}

// FloorPlanTx is the write surface available inside a transaction.
type FloorPlanTx interface {
	// LockFloorPlan loads a floor plan and its rooms, holding a row lock until the
	// transaction ends.
	LockFloorPlan(ctx context.Context, tenantID, floorPlanID uuid.UUID) (*FloorPlan, error)
	CreateFloorPlan(ctx context.Context, fp *FloorPlan) error
	// UpdateFloorPlan writes the scalar fields, last-modified time and current version pointer.
	UpdateFloorPlan(ctx context.Context, fp *FloorPlan) error
	InsertRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	DeleteRooms(ctx context.Context, floorPlanID uuid.UUID, roomIDs []uuid.UUID) error
	DeleteAllRooms(ctx context.Context, floorPlanID uuid.UUID) error
	InsertVersion(ctx context.Context, v *FloorPlanVersion) error
}

// BookingRepository provides occupancy data for live status and the booking write path.
type BookingRepository interface {
	// ActiveBookings returns bookings for the given rooms whose window contains at.
	ActiveBookings(ctx context.Context, roomIDs []uuid.UUID, at time.Time) ([]ActiveBooking, error)

	// CreateBooking stores a booking for a room owned by the tenant and returns the
	// room's floor plan id. It returns ErrNotFound for foreign rooms and ErrSlotTaken
	// for overlapping windows.
	CreateBooking(ctx context.Context, tenantID uuid.UUID, b *Booking) (uuid.UUID, error)

	// UpcomingBookings returns the tenant's bookings that end after the given
	// instant, earliest start first. A userID other than uuid.Nil keeps only that
	// user's bookings.
	UpcomingBookings(ctx context.Context, tenantID, userID uuid.UUID, after time.Time) ([]BookingListing, error)
}

// SnapshotRepository is the disk archive of floor plan snapshots used for disaster recovery.
type SnapshotRepository interface {
	// Write appends a new snapshot file and returns its path. It never overwrites.
	Write(ctx context.Context, floorPlanID uuid.UUID, snap Snapshot) (string, error)

	// Latest returns the newest snapshot, or ErrNoBackup when none can be read.
	Latest(ctx context.Context, floorPlanID uuid.UUID) (*Snapshot, error)

	// List returns the snapshot files of a floor plan, newest first.
	List(ctx context.Context, floorPlanID uuid.UUID) ([]SnapshotFile, error)
}

// Cache is a best-effort key/value accelerator. Implementations swallow their own
// failures: reads degrade to a miss and writes to a no-op.
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// EventPublisher broadcasts live events to every server process.
type EventPublisher interface {
	Publish(ctx context.Context, event LiveEvent) error
}
